// Package toolexecutor registers structured tools and executes the tool
// batches requested by a model turn.
//
// Invariants:
// - Tool names are unique within a registry.
// - Arguments are schema-validated before a handler runs.
// - Approval is resolved sequentially in call order; a denial aborts the
//   whole batch before anything is dispatched.
// - Gated calls run concurrently, but outcomes are recorded and progress
//   events emitted in call order.
//
// Usage:
//
//	reg := toolexecutor.NewRegistry()
//	_ = reg.Register(toolexecutor.ToolDefinition{
//		Name: "echo",
//		Description: "Echo input",
//		Parameters: []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) { return args["text"].(string), nil },
//	})
//	exec := toolexecutor.New(reg, toolexecutor.Options{})
package toolexecutor
