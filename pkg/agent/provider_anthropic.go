package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// AnthropicProvider implements Provider for Anthropic Claude
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete makes an API call to Anthropic Claude
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model: anthropic.Model(req.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		MaxTokens: int64(req.MaxTokens),
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, def := range req.Tools {
			schema := def.InputSchema()
			toolParam := anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
				},
			}
			if required, ok := schema["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	text := ""
	toolCalls := []toolexecutor.Call{}

	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, toolexecutor.Call{
				ID:   b.ID,
				Name: b.Name,
				Args: args,
			})
		}
	}

	resp := &Response{
		Kind: ResponseFinal,
		Text: text,
		Usage: &TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
	if len(toolCalls) > 0 {
		resp.Kind = ResponseToolCalls
		resp.ToolCalls = toolCalls
	}
	return resp, nil
}

// classifyError wraps context-limit rejections in OverflowError. Anthropic
// signals these as 400s whose message mentions the prompt length.
func (p *AnthropicProvider) classifyError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusBadRequest {
		msg := strings.ToLower(apierr.Error())
		if strings.Contains(msg, "prompt is too long") || strings.Contains(msg, "context") && strings.Contains(msg, "too long") {
			return &OverflowError{Provider: p.Name(), Err: err}
		}
	}
	return err
}
