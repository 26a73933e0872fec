// Package types defines the shared domain types for dealflow: conversation
// turns, tool call envelopes, model decisions, and the contact record shape
// exchanged between the CRM store and the tool layer.
package types

import (
	"time"
)

// TurnKind tags the variant of a conversation turn.
type TurnKind string

const (
	// TurnUser is free text from the human.
	TurnUser TurnKind = "user"

	// TurnAssistant is final or degraded text from the model.
	TurnAssistant TurnKind = "assistant"

	// TurnToolRequest records a tool invocation the model asked for.
	TurnToolRequest TurnKind = "tool_request"

	// TurnToolResult records the outcome of a tool invocation.
	TurnToolResult TurnKind = "tool_result"
)

// Turn is one atomic unit of conversation history. Exactly one variant's
// fields are populated, selected by Kind. Turns are immutable once appended.
type Turn struct {
	Kind      TurnKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// TurnUser / TurnAssistant
	Text string `json:"text,omitempty"`

	// TurnToolRequest / TurnToolResult
	CallID   string `json:"call_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`

	// TurnToolRequest
	Arguments map[string]any `json:"arguments,omitempty"`

	// TurnToolResult
	Status       string         `json:"status,omitempty"`
	StatusDetail string         `json:"status_detail,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// UserTurn builds a user message turn.
func UserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Text: text, Timestamp: time.Now().UTC()}
}

// AssistantTurn builds an assistant message turn.
func AssistantTurn(text string) Turn {
	return Turn{Kind: TurnAssistant, Text: text, Timestamp: time.Now().UTC()}
}

// RequestTurn builds a tool request turn from a model tool call.
func RequestTurn(call ToolCall) Turn {
	return Turn{
		Kind:      TurnToolRequest,
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: call.Arguments,
		Timestamp: time.Now().UTC(),
	}
}

// ResultTurn builds a tool result turn from an execution envelope.
func ResultTurn(result ToolCallResult) Turn {
	return Turn{
		Kind:         TurnToolResult,
		CallID:       result.CallID,
		ToolName:     result.ToolName,
		Status:       result.Status,
		StatusDetail: result.StatusDetail,
		Payload:      result.Payload,
		Timestamp:    time.Now().UTC(),
	}
}

// Tool call result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Machine-readable status details for failed tool calls.
const (
	DetailInvalidArguments    = "invalid_arguments"
	DetailUnknownTool         = "unknown_tool"
	DetailTimeout             = "timeout"
	DetailUpstreamRejected    = "upstream_rejected"
	DetailUpstreamUnavailable = "upstream_unavailable"
	DetailNotFound            = "not_found"
	DetailInvalidInput        = "invalid_input"
	DetailRateLimited         = "rate_limited"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallResult is the uniform envelope produced by the tool executor.
// Immutable once created; it becomes part of a TurnToolResult.
type ToolCallResult struct {
	CallID       string         `json:"call_id"`
	ToolName     string         `json:"tool_name"`
	Status       string         `json:"status"`
	StatusDetail string         `json:"status_detail,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// OK reports whether the call succeeded.
func (r ToolCallResult) OK() bool { return r.Status == StatusOK }

// Decision is the model gateway's answer for one orchestration round:
// either requested tool calls, or final text when ToolCalls is empty.
type Decision struct {
	Text      string
	ToolCalls []ToolCall
}

// Final reports whether the decision carries a final answer.
func (d *Decision) Final() bool { return len(d.ToolCalls) == 0 }

// OrchestrationResult is the payload returned to the caller after one
// orchestration cycle. Constructed once, never mutated after return.
type OrchestrationResult struct {
	ConversationID string           `json:"conversation_id"`
	Response       string           `json:"response"`
	ToolCalls      []ToolCall       `json:"tool_calls,omitempty"`
	ToolResults    []ToolCallResult `json:"tool_results,omitempty"`
}

// ContactRecord is the CRM view of a customer card handed to the tool layer.
type ContactRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
	Notes    string `json:"notes,omitempty"`

	LastContact  *time.Time `json:"last_contact,omitempty"`
	NextFollowup *time.Time `json:"next_followup,omitempty"`
}
