// Package coretools registers the baseline tools shipped with the agent.
package coretools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// Options configures core tool registration.
type Options struct {
	// HTTPClient overrides the client used by http_fetch; nil uses a
	// default with a sane timeout.
	HTTPClient *http.Client
	// MaxFetchBytes caps a fetched response body
	MaxFetchBytes int64
}

// Register registers the baseline tools on a registry.
func Register(registry *toolexecutor.Registry, opts Options) error {
	if registry == nil {
		return errors.New("registry is required")
	}

	tools := []toolexecutor.ToolDefinition{
		currentTimeTool(),
		calculatorTool(),
		httpFetchTool(opts),
	}

	for _, tool := range tools {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func currentTimeTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "current_time",
		Description: "Get the current date and time, optionally in a named IANA timezone.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "timezone", Type: "string", Description: "IANA timezone name, defaults to UTC", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			loc := time.UTC
			if tz, ok := args["timezone"].(string); ok && tz != "" {
				parsed, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
				}
				loc = parsed
			}
			return time.Now().In(loc).Format(time.RFC1123), nil
		},
	}
}

func calculatorTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "calculator",
		Description: "Evaluate a basic arithmetic operation on two numbers.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "operation", Type: "string", Description: "One of add, subtract, multiply, divide", Required: true},
			{Name: "a", Type: "number", Description: "First operand", Required: true},
			{Name: "b", Type: "number", Description: "Second operand", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			op, _ := args["operation"].(string)
			a, err := toFloat(args["a"])
			if err != nil {
				return "", fmt.Errorf("operand a: %w", err)
			}
			b, err := toFloat(args["b"])
			if err != nil {
				return "", fmt.Errorf("operand b: %w", err)
			}

			var result float64
			switch op {
			case "add":
				result = a + b
			case "subtract":
				result = a - b
			case "multiply":
				result = a * b
			case "divide":
				if b == 0 {
					return "", errors.New("division by zero")
				}
				result = a / b
			default:
				return "", fmt.Errorf("unknown operation: %s", op)
			}
			return strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	}
}

func httpFetchTool(opts Options) toolexecutor.ToolDefinition {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	maxBytes := opts.MaxFetchBytes
	if maxBytes <= 0 {
		maxBytes = 512 * 1024
	}

	return toolexecutor.ToolDefinition{
		Name:             "http_fetch",
		Description:      "Fetch the body of an HTTP or HTTPS URL.",
		RequiresApproval: true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			url, _ := args["url"].(string)
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return "", fmt.Errorf("unsupported URL scheme: %s", url)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("request failed with status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
			if err != nil {
				return "", err
			}
			return string(body), nil
		},
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
