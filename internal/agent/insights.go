package agent

import (
	"context"
	"fmt"
	"strings"

	"dealflow/internal/types"
)

// CustomerInsight runs a single-shot orchestration with a synthetic first
// message asking the model to analyze one customer. Each call uses a fresh
// conversation.
func (o *Orchestrator) CustomerInsight(ctx context.Context, contact *types.ContactRecord) (*types.OrchestrationResult, error) {
	var b strings.Builder
	b.WriteString("Analyze this customer and provide: 1) customer analysis and insights, 2) recommended next actions, 3) suggested outreach approach, 4) optimal follow-up timing.\n\n")
	writeContactContext(&b, contact)
	return o.Respond(ctx, "", b.String())
}

// EmailSuggestion runs a single-shot orchestration asking for a personalized
// email draft of the given type (follow_up, introduction, ...). The draft is
// returned as text; nothing is sent.
func (o *Orchestrator) EmailSuggestion(ctx context.Context, contact *types.ContactRecord, emailType string) (*types.OrchestrationResult, error) {
	if emailType == "" {
		emailType = "follow_up"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Draft a personalized %s email for this customer. Provide a compelling subject line, a professional and actionable body, and a call-to-action. Do not send it.\n\n", emailType)
	writeContactContext(&b, contact)
	return o.Respond(ctx, "", b.String())
}

func writeContactContext(b *strings.Builder, c *types.ContactRecord) {
	fmt.Fprintf(b, "Customer: %s\n", c.Name)
	if c.Company != "" {
		fmt.Fprintf(b, "Company: %s\n", c.Company)
	}
	if c.Email != "" {
		fmt.Fprintf(b, "Email: %s\n", c.Email)
	}
	fmt.Fprintf(b, "Status: %s\n", c.Status)
	if c.Priority != "" {
		fmt.Fprintf(b, "Priority: %s\n", c.Priority)
	}
	if c.Notes != "" {
		fmt.Fprintf(b, "Notes: %s\n", c.Notes)
	}
	if c.LastContact != nil {
		fmt.Fprintf(b, "Last contact: %s\n", c.LastContact.Format("2006-01-02"))
	}
	if c.NextFollowup != nil {
		fmt.Fprintf(b, "Next follow-up: %s\n", c.NextFollowup.Format("2006-01-02"))
	}
}
