// Package tools provides the tool catalog and the executor the orchestrator
// uses to run model-requested tool calls.
//
// Each tool is a standalone definition: a name, an input schema, a
// side-effect classification, and an execute function bound to an external
// collaborator. Tools are registered once at process start; the registry is
// treated as immutable after warm-up.
package tools

import (
	"context"

	"dealflow/internal/types"
)

// ExecuteFunc is the signature for tool execution. The returned map becomes
// the payload of the tool result envelope.
type ExecuteFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool defines a capability the model may request.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does. Advertised to the model.
	Description string

	// Schema defines the expected arguments.
	Schema types.ParameterSchema

	// Mutating marks tools with external side effects. Mutating calls
	// participate in the executor's idempotency cache.
	Mutating bool

	// Execute runs the tool with validated arguments.
	Execute ExecuteFunc
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Definition returns the catalog entry advertised to the model gateway.
func (t *Tool) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Schema,
	}
}
