// Package crm provides the customer-record toolset backed by the contact
// service (the persistence collaborator).
//
// Tools:
//   - get_contact_info: look up one contact by name or id
//   - search_contacts: search contacts by free text
//   - create_note: attach a note to a contact
//   - update_contact_status: move a contact to another pipeline column
package crm

import (
	"context"

	"dealflow/internal/tools"
	"dealflow/internal/types"
)

// Service is the contact-record contract the toolset needs. The SQLite card
// store implements it; failures must be typed collaborator errors.
type Service interface {
	LookupContact(ctx context.Context, nameOrID string) (*types.ContactRecord, error)
	SearchContacts(ctx context.Context, query string, limit int) ([]types.ContactRecord, error)
	CreateNote(ctx context.Context, contactID int64, text string) (noteID int64, err error)
	TransitionStatus(ctx context.Context, contactID int64, status string) error
}

func contactPayload(c *types.ContactRecord) map[string]any {
	out := map[string]any{
		"id":     c.ID,
		"name":   c.Name,
		"status": c.Status,
	}
	if c.Company != "" {
		out["company"] = c.Company
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Phone != "" {
		out["phone"] = c.Phone
	}
	if c.Priority != "" {
		out["priority"] = c.Priority
	}
	if c.Notes != "" {
		out["notes"] = c.Notes
	}
	return out
}

// ContactInfoTool returns the single-contact lookup tool.
func ContactInfoTool(svc Service) *tools.Tool {
	return &tools.Tool{
		Name:        "get_contact_info",
		Description: "Look up a CRM contact by name or numeric id",
		Schema: types.ParameterSchema{
			Required: []string{"name_or_id"},
			Properties: map[string]types.ParameterSpec{
				"name_or_id": {
					Type:        "string",
					Description: "Contact name or numeric contact id",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			contact, err := svc.LookupContact(ctx, tools.StringArg(args, "name_or_id", ""))
			if err != nil {
				return nil, err
			}
			return map[string]any{"contact": contactPayload(contact)}, nil
		},
	}
}

// SearchContactsTool returns the contact search tool.
func SearchContactsTool(svc Service) *tools.Tool {
	return &tools.Tool{
		Name:        "search_contacts",
		Description: "Search CRM contacts by name, company, or email",
		Schema: types.ParameterSchema{
			Required: []string{"query"},
			Properties: map[string]types.ParameterSpec{
				"query": {
					Type:        "string",
					Description: "Free-text search query",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum results to return (default 10)",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			contacts, err := svc.SearchContacts(ctx,
				tools.StringArg(args, "query", ""),
				tools.IntArg(args, "limit", 10))
			if err != nil {
				return nil, err
			}

			results := make([]any, 0, len(contacts))
			for i := range contacts {
				results = append(results, contactPayload(&contacts[i]))
			}
			return map[string]any{"contacts": results}, nil
		},
	}
}

// CreateNoteTool returns the note-creation tool.
func CreateNoteTool(svc Service) *tools.Tool {
	return &tools.Tool{
		Name:        "create_note",
		Description: "Attach a note to a CRM contact",
		Mutating:    true,
		Schema: types.ParameterSchema{
			Required: []string{"contact_id", "text"},
			Properties: map[string]types.ParameterSpec{
				"contact_id": {
					Type:        "integer",
					Description: "Numeric contact id",
				},
				"text": {
					Type:        "string",
					Description: "Note body",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			noteID, err := svc.CreateNote(ctx,
				int64(tools.IntArg(args, "contact_id", 0)),
				tools.StringArg(args, "text", ""))
			if err != nil {
				return nil, err
			}
			return map[string]any{"note_id": noteID}, nil
		},
	}
}

// UpdateStatusTool returns the pipeline-transition tool.
func UpdateStatusTool(svc Service) *tools.Tool {
	return &tools.Tool{
		Name:        "update_contact_status",
		Description: "Move a contact to another pipeline column (to_reach, in_progress, reached_out, follow_up)",
		Mutating:    true,
		Schema: types.ParameterSchema{
			Required: []string{"contact_id", "status"},
			Properties: map[string]types.ParameterSpec{
				"contact_id": {
					Type:        "integer",
					Description: "Numeric contact id",
				},
				"status": {
					Type:        "string",
					Description: "Target pipeline column",
					Enum:        []string{"to_reach", "in_progress", "reached_out", "follow_up"},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			contactID := int64(tools.IntArg(args, "contact_id", 0))
			status := tools.StringArg(args, "status", "")
			if err := svc.TransitionStatus(ctx, contactID, status); err != nil {
				return nil, err
			}
			return map[string]any{"contact_id": contactID, "status": status}, nil
		},
	}
}

// RegisterAll registers all CRM tools with the given registry.
func RegisterAll(registry *tools.Registry, svc Service) error {
	return registry.RegisterAll([]*tools.Tool{
		ContactInfoTool(svc),
		SearchContactsTool(svc),
		CreateNoteTool(svc),
		UpdateStatusTool(svc),
	})
}
