// Package calendar provides the scheduling toolset backed by the calendar
// collaborator.
//
// Tools:
//   - schedule_meeting: book a meeting with a customer
//   - get_available_slots: list busy intervals for an attendee and range
//   - get_upcoming_meetings: list meetings in the next N days
package calendar

import (
	"context"
	"time"

	"dealflow/internal/collab"
	"dealflow/internal/tools"
	"dealflow/internal/types"
)

// ScheduleMeetingTool returns the meeting-booking tool.
func ScheduleMeetingTool(svc collab.Calendar) *tools.Tool {
	return &tools.Tool{
		Name:        "schedule_meeting",
		Description: "Schedule a meeting with a customer on the calendar",
		Mutating:    true,
		Schema: types.ParameterSchema{
			Required: []string{"attendee_email", "title", "start_time"},
			Properties: map[string]types.ParameterSpec{
				"attendee_email": {
					Type:        "string",
					Description: "Email address of the customer",
				},
				"title": {
					Type:        "string",
					Description: "Title of the meeting",
				},
				"description": {
					Type:        "string",
					Description: "Optional meeting description",
				},
				"start_time": {
					Type:        "string",
					Description: "Meeting start in RFC 3339 format, e.g. 2026-01-15T14:00:00Z",
				},
				"duration_minutes": {
					Type:        "integer",
					Description: "Meeting length in minutes (default 30)",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			start, err := tools.TimeArg(args, "start_time")
			if err != nil {
				return nil, err
			}

			event, err := svc.Schedule(ctx, collab.ScheduleRequest{
				AttendeeEmail:   tools.StringArg(args, "attendee_email", ""),
				Title:           tools.StringArg(args, "title", ""),
				Description:     tools.StringArg(args, "description", ""),
				Start:           start,
				DurationMinutes: tools.IntArg(args, "duration_minutes", 30),
			})
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"event_id": event.EventID,
				"title":    event.Title,
				"start":    event.Start.Format(time.RFC3339),
				"end":      event.End.Format(time.RFC3339),
			}, nil
		},
	}
}

// AvailableSlotsTool returns the availability-check tool.
func AvailableSlotsTool(svc collab.Calendar) *tools.Tool {
	return &tools.Tool{
		Name:        "get_available_slots",
		Description: "Check an attendee's calendar availability for a date range",
		Schema: types.ParameterSchema{
			Required: []string{"attendee_email", "from", "to"},
			Properties: map[string]types.ParameterSpec{
				"attendee_email": {
					Type:        "string",
					Description: "Email address of the attendee to check",
				},
				"from": {
					Type:        "string",
					Description: "Range start in RFC 3339 format",
				},
				"to": {
					Type:        "string",
					Description: "Range end in RFC 3339 format",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			from, err := tools.TimeArg(args, "from")
			if err != nil {
				return nil, err
			}
			to, err := tools.TimeArg(args, "to")
			if err != nil {
				return nil, err
			}

			busy, err := svc.CheckAvailability(ctx, tools.StringArg(args, "attendee_email", ""), from, to)
			if err != nil {
				return nil, err
			}

			intervals := make([]any, 0, len(busy))
			for _, b := range busy {
				intervals = append(intervals, map[string]any{
					"start": b.Start.Format(time.RFC3339),
					"end":   b.End.Format(time.RFC3339),
				})
			}
			return map[string]any{"busy": intervals}, nil
		},
	}
}

// UpcomingMeetingsTool returns the upcoming-meetings listing tool.
func UpcomingMeetingsTool(svc collab.Calendar) *tools.Tool {
	return &tools.Tool{
		Name:        "get_upcoming_meetings",
		Description: "List upcoming meetings for the next few days",
		Schema: types.ParameterSchema{
			Properties: map[string]types.ParameterSpec{
				"days_ahead": {
					Type:        "integer",
					Description: "How many days ahead to look (default 7)",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			events, err := svc.UpcomingMeetings(ctx, tools.IntArg(args, "days_ahead", 7))
			if err != nil {
				return nil, err
			}

			meetings := make([]any, 0, len(events))
			for _, ev := range events {
				meetings = append(meetings, map[string]any{
					"event_id": ev.EventID,
					"title":    ev.Title,
					"start":    ev.Start.Format(time.RFC3339),
					"end":      ev.End.Format(time.RFC3339),
				})
			}
			return map[string]any{"meetings": meetings}, nil
		},
	}
}

// RegisterAll registers all calendar tools with the given registry.
func RegisterAll(registry *tools.Registry, svc collab.Calendar) error {
	return registry.RegisterAll([]*tools.Tool{
		ScheduleMeetingTool(svc),
		AvailableSlotsTool(svc),
		UpcomingMeetingsTool(svc),
	})
}
