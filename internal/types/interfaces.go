package types

import (
	"context"
)

// ToolDefinition describes a tool advertised to the model gateway.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is the input schema of a tool: required field names plus
// per-field specs. It doubles as the validation contract for the executor
// and the function declaration handed to the model.
type ParameterSchema struct {
	Required   []string                 `json:"required,omitempty"`
	Properties map[string]ParameterSpec `json:"properties,omitempty"`
}

// ParameterSpec describes a single tool parameter.
type ParameterSpec struct {
	// Type is a JSON schema primitive: string, number, integer, boolean,
	// object, or array.
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`

	// Items is the element type for array parameters.
	Items *ParameterSpec `json:"items,omitempty"`
}

// ModelGateway turns conversation history plus a tool catalog into a
// decision: final text or a set of requested tool calls.
type ModelGateway interface {
	Decide(ctx context.Context, history []Turn, catalog []ToolDefinition) (*Decision, error)
}
