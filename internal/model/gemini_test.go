package model

import (
	"errors"
	"testing"

	"google.golang.org/genai"

	"dealflow/internal/types"
)

func candidateResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestDecodeDecisionFinalText(t *testing.T) {
	resp := candidateResponse(
		&genai.Part{Text: "Jane's demo is "},
		&genai.Part{Text: "booked for 2pm."},
	)

	decision, err := decodeDecision(resp)
	if err != nil {
		t.Fatalf("decodeDecision failed: %v", err)
	}
	if !decision.Final() {
		t.Error("text-only response must be final")
	}
	if decision.Text != "Jane's demo is booked for 2pm." {
		t.Errorf("text parts not concatenated: %q", decision.Text)
	}
}

func TestDecodeDecisionToolCalls(t *testing.T) {
	resp := candidateResponse(
		&genai.Part{FunctionCall: &genai.FunctionCall{
			ID:   "fc_1",
			Name: "schedule_meeting",
			Args: map[string]any{"attendee_email": "jane@acme.com"},
		}},
		&genai.Part{FunctionCall: &genai.FunctionCall{
			Name: "send_email",
			Args: map[string]any{"to": "jane@acme.com"},
		}},
	)

	decision, err := decodeDecision(resp)
	if err != nil {
		t.Fatalf("decodeDecision failed: %v", err)
	}
	if decision.Final() {
		t.Error("tool-call response must not be final")
	}
	if len(decision.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(decision.ToolCalls))
	}
	if decision.ToolCalls[0].ID != "fc_1" || decision.ToolCalls[0].Name != "schedule_meeting" {
		t.Errorf("first call mangled: %+v", decision.ToolCalls[0])
	}
	if decision.ToolCalls[0].Arguments["attendee_email"] != "jane@acme.com" {
		t.Errorf("arguments not carried through: %+v", decision.ToolCalls[0].Arguments)
	}
}

func TestDecodeDecisionProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil content", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{}},
		}},
		{"empty parts", candidateResponse()},
		{"nameless function call", candidateResponse(
			&genai.Part{FunctionCall: &genai.FunctionCall{}},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeDecision(tt.resp)
			if !errors.Is(err, ErrModelProtocol) {
				t.Errorf("got %v, want ErrModelProtocol", err)
			}
		})
	}
}

func TestContentsFromHistory(t *testing.T) {
	history := []types.Turn{
		types.UserTurn("schedule a demo with Jane"),
		types.RequestTurn(types.ToolCall{
			ID:        "c1",
			Name:      "schedule_meeting",
			Arguments: map[string]any{"attendee_email": "jane@acme.com"},
		}),
		types.ResultTurn(types.ToolCallResult{
			CallID:       "c1",
			ToolName:     "schedule_meeting",
			Status:       types.StatusError,
			StatusDetail: types.DetailUpstreamUnavailable,
			Payload:      map[string]any{"error": "calendar is down"},
		}),
		types.AssistantTurn("The calendar service is unavailable right now."),
	}

	contents := contentsFromHistory(history)
	if len(contents) != 4 {
		t.Fatalf("got %d contents, want 4", len(contents))
	}

	if contents[0].Role != string(genai.RoleUser) || contents[0].Parts[0].Text != "schedule a demo with Jane" {
		t.Errorf("user turn mangled: %+v", contents[0])
	}

	fc := contents[1].Parts[0].FunctionCall
	if contents[1].Role != string(genai.RoleModel) || fc == nil || fc.Name != "schedule_meeting" || fc.ID != "c1" {
		t.Errorf("tool request mangled: %+v", contents[1])
	}

	fr := contents[2].Parts[0].FunctionResponse
	if contents[2].Role != string(genai.RoleUser) || fr == nil || fr.Name != "schedule_meeting" {
		t.Fatalf("tool result mangled: %+v", contents[2])
	}
	if fr.Response["status"] != types.StatusError {
		t.Errorf("status not surfaced to the model: %+v", fr.Response)
	}
	if fr.Response["status_detail"] != types.DetailUpstreamUnavailable {
		t.Errorf("status detail not surfaced: %+v", fr.Response)
	}
	if fr.Response["error"] != "calendar is down" {
		t.Errorf("payload not merged into the response: %+v", fr.Response)
	}

	if contents[3].Role != string(genai.RoleModel) {
		t.Errorf("assistant turn mangled: %+v", contents[3])
	}
}

func TestDeclarationsFromCatalog(t *testing.T) {
	catalog := []types.ToolDefinition{
		{
			Name:        "update_status",
			Description: "Move a card between pipeline columns",
			Parameters: types.ParameterSchema{
				Required: []string{"contact_name", "new_status"},
				Properties: map[string]types.ParameterSpec{
					"contact_name": {Type: "string", Description: "Full name of the contact"},
					"new_status": {
						Type: "string",
						Enum: []string{"to_reach", "in_progress", "reached_out", "follow_up"},
					},
					"recipients": {
						Type:  "array",
						Items: &types.ParameterSpec{Type: "string"},
					},
				},
			},
		},
	}

	decls := declarationsFromCatalog(catalog)
	if len(decls) != 1 {
		t.Fatalf("got %d declarations, want 1", len(decls))
	}

	decl := decls[0]
	if decl.Name != "update_status" {
		t.Errorf("got name %q", decl.Name)
	}
	if decl.Parameters.Type != genai.TypeObject {
		t.Errorf("parameters must be an object schema, got %v", decl.Parameters.Type)
	}
	if len(decl.Parameters.Required) != 2 {
		t.Errorf("required fields dropped: %v", decl.Parameters.Required)
	}

	status := decl.Parameters.Properties["new_status"]
	if status == nil || status.Type != genai.TypeString || len(status.Enum) != 4 {
		t.Errorf("enum property mangled: %+v", status)
	}

	recipients := decl.Parameters.Properties["recipients"]
	if recipients == nil || recipients.Type != genai.TypeArray || recipients.Items == nil || recipients.Items.Type != genai.TypeString {
		t.Errorf("array property mangled: %+v", recipients)
	}
}

func TestGenaiType(t *testing.T) {
	tests := []struct {
		in   string
		want genai.Type
	}{
		{"string", genai.TypeString},
		{"number", genai.TypeNumber},
		{"integer", genai.TypeInteger},
		{"boolean", genai.TypeBoolean},
		{"array", genai.TypeArray},
		{"object", genai.TypeObject},
		{"", genai.TypeString},
	}
	for _, tt := range tests {
		if got := genaiType(tt.in); got != tt.want {
			t.Errorf("genaiType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
