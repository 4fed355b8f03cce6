package toolexecutor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a single parameter of a tool
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolHandler is the function signature for tool execution. It returns the
// success payload as text; errors are converted into failure outcomes by
// the executor and never abort sibling calls.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Parameters       []ToolParameter `json:"parameters"`
	RequiresApproval bool            `json:"requires_approval"`
	Handler          ToolHandler     `json:"-"`
}

// InputSchema renders the parameters as a JSON Schema object map, the shape
// model providers expect for their tool catalogs.
func (d ToolDefinition) InputSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for _, p := range d.Parameters {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry holds the available tools and their compiled schemas
type Registry struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(def ToolDefinition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}

	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Info().Str("tool", def.Name).Bool("requires_approval", def.RequiresApproval).Msg("Tool registered")

	return nil
}

// Unregister removes a tool
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get returns a tool definition by name, or nil if unknown
func (r *Registry) Get(name string) *ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools[name]
}

// Definitions returns all registered tools sorted by name, for building the
// catalog passed to the model.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// ValidateArgs validates arguments against the tool's compiled schema
func (r *Registry) ValidateArgs(name string, args map[string]interface{}) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()

	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("validation errors: %v", msgs)
	}
	return nil
}

func validateDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, p := range def.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[p.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", p.Type, p.Name)
		}
		if p.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", p.Name)
		}
	}
	return nil
}

func compileSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	schemaMap := def.InputSchema()
	schemaMap["additionalProperties"] = false
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}
