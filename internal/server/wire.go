package server

import (
	"dealflow/internal/types"
)

// chatRequest is the single-shot inbound message.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// functionCall is the wire form of a requested tool call.
type functionCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// functionResult is the wire form of a tool outcome.
type functionResult struct {
	ToolName string         `json:"tool_name"`
	Status   string         `json:"status"`
	Payload  map[string]any `json:"payload,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// chatResponse is the uniform response object. Both the single-shot endpoint
// and the streaming channel serialize orchestration results through it.
type chatResponse struct {
	Response        string           `json:"response"`
	Status          string           `json:"status"`
	FunctionCalls   []functionCall   `json:"function_calls,omitempty"`
	FunctionResults []functionResult `json:"function_results,omitempty"`
	ConversationID  string           `json:"conversation_id,omitempty"`
}

// responseFromResult converts an orchestration result to the wire shape.
func responseFromResult(result *types.OrchestrationResult) chatResponse {
	resp := chatResponse{
		Response:       result.Response,
		Status:         "success",
		ConversationID: result.ConversationID,
	}
	for _, call := range result.ToolCalls {
		resp.FunctionCalls = append(resp.FunctionCalls, functionCall{
			ToolName:  call.Name,
			Arguments: call.Arguments,
		})
	}
	for _, res := range result.ToolResults {
		fr := functionResult{
			ToolName: res.ToolName,
			Status:   res.Status,
		}
		if res.OK() {
			fr.Payload = res.Payload
		} else {
			fr.Error = res.StatusDetail
		}
		resp.FunctionResults = append(resp.FunctionResults, fr)
	}
	return resp
}

func errorResponse(conversationID, message string) chatResponse {
	return chatResponse{
		Response:       message,
		Status:         "error",
		ConversationID: conversationID,
	}
}
