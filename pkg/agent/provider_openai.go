package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// OpenAIProvider implements Provider for OpenAI chat completions
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete makes an API call to OpenAI
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		tools := []openai.ChatCompletionToolParam{}
		for _, def := range req.Tools {
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        def.Name,
					Description: openai.String(def.Description),
					Parameters:  openai.FunctionParameters(def.InputSchema()),
				},
			})
		}
		params.Tools = tools
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choice := completion.Choices[0]

	toolCalls := []toolexecutor.Call{}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		id := tc.ID
		if id == "" {
			// Some gateways strip tool-call IDs; fabricate one so the
			// batch can still report per-call progress
			id, _ = gonanoid.New()
		}
		toolCalls = append(toolCalls, toolexecutor.Call{
			ID:   id,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	resp := &Response{
		Kind: ResponseFinal,
		Text: choice.Message.Content,
		Usage: &TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(toolCalls) > 0 {
		resp.Kind = ResponseToolCalls
		resp.ToolCalls = toolCalls
	}
	return resp, nil
}

// classifyError wraps context-limit rejections in OverflowError. OpenAI
// reports these with the context_length_exceeded error code.
func (p *OpenAIProvider) classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.Code == "context_length_exceeded" {
		return &OverflowError{Provider: p.Name(), Err: err}
	}
	return err
}
