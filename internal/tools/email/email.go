// Package email provides the outbound-mail toolset backed by the email
// collaborator.
//
// Tools:
//   - send_email: deliver one personalized email
//   - send_bulk_emails: deliver the same email to a recipient list
package email

import (
	"context"

	"dealflow/internal/collab"
	"dealflow/internal/tools"
	"dealflow/internal/types"
)

// SendEmailTool returns the single-recipient send tool.
func SendEmailTool(svc collab.Mailer) *tools.Tool {
	return &tools.Tool{
		Name:        "send_email",
		Description: "Send a personalized email to a single recipient",
		Mutating:    true,
		Schema: types.ParameterSchema{
			Required: []string{"to", "subject", "body"},
			Properties: map[string]types.ParameterSpec{
				"to": {
					Type:        "string",
					Description: "Recipient email address",
				},
				"subject": {
					Type:        "string",
					Description: "Email subject line",
				},
				"body": {
					Type:        "string",
					Description: "Email body text",
				},
				"template_vars": {
					Type:        "object",
					Description: "Optional template substitutions, e.g. {\"first_name\": \"Jane\"}",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			messageID, err := svc.Send(ctx, collab.Message{
				To:           tools.StringArg(args, "to", ""),
				Subject:      tools.StringArg(args, "subject", ""),
				Body:         tools.StringArg(args, "body", ""),
				TemplateVars: tools.StringMapArg(args, "template_vars"),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"message_id": messageID}, nil
		},
	}
}

// SendBulkTool returns the bulk send tool.
func SendBulkTool(svc collab.Mailer) *tools.Tool {
	return &tools.Tool{
		Name:        "send_bulk_emails",
		Description: "Send the same email to a list of recipients, reporting per-recipient status",
		Mutating:    true,
		Schema: types.ParameterSchema{
			Required: []string{"recipients", "subject", "body"},
			Properties: map[string]types.ParameterSpec{
				"recipients": {
					Type:        "array",
					Description: "Recipient email addresses",
					Items:       &types.ParameterSpec{Type: "string"},
				},
				"subject": {
					Type:        "string",
					Description: "Email subject line",
				},
				"body": {
					Type:        "string",
					Description: "Email body text",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			results, err := svc.SendBulk(ctx, collab.Message{
				Subject: tools.StringArg(args, "subject", ""),
				Body:    tools.StringArg(args, "body", ""),
			}, tools.StringSliceArg(args, "recipients"))
			if err != nil {
				return nil, err
			}

			statuses := make([]any, 0, len(results))
			for _, r := range results {
				entry := map[string]any{
					"recipient": r.Recipient,
					"status":    r.Status,
				}
				if r.MessageID != "" {
					entry["message_id"] = r.MessageID
				}
				if r.Error != "" {
					entry["error"] = r.Error
				}
				statuses = append(statuses, entry)
			}
			return map[string]any{"results": statuses}, nil
		},
	}
}

// RegisterAll registers all email tools with the given registry.
func RegisterAll(registry *tools.Registry, svc collab.Mailer) error {
	return registry.RegisterAll([]*tools.Tool{
		SendEmailTool(svc),
		SendBulkTool(svc),
	})
}
