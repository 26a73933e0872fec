package calendar

import (
	"context"
	"testing"
	"time"

	"dealflow/internal/collab"
	"dealflow/internal/tools"
)

// fakeCalendar records the last request and plays back canned responses.
type fakeCalendar struct {
	scheduled *collab.ScheduleRequest
	event     *collab.Event
	busy      []collab.BusyInterval
	events    []collab.Event
	err       error
}

func (f *fakeCalendar) Schedule(ctx context.Context, req collab.ScheduleRequest) (*collab.Event, error) {
	f.scheduled = &req
	return f.event, f.err
}

func (f *fakeCalendar) CheckAvailability(ctx context.Context, attendee string, from, to time.Time) ([]collab.BusyInterval, error) {
	return f.busy, f.err
}

func (f *fakeCalendar) UpcomingMeetings(ctx context.Context, daysAhead int) ([]collab.Event, error) {
	return f.events, f.err
}

func TestScheduleMeetingTool(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{event: &collab.Event{
		EventID: "evt_1",
		Title:   "Product demo",
		Start:   start,
		End:     start.Add(45 * time.Minute),
	}}

	tool := ScheduleMeetingTool(fake)
	if !tool.Mutating {
		t.Error("schedule_meeting must be marked mutating")
	}

	payload, err := tool.Execute(context.Background(), map[string]any{
		"attendee_email":   "jane@acme.com",
		"title":            "Product demo",
		"start_time":       "2026-03-10T14:00:00Z",
		"duration_minutes": float64(45),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if fake.scheduled.AttendeeEmail != "jane@acme.com" || fake.scheduled.DurationMinutes != 45 {
		t.Errorf("request mangled: %+v", fake.scheduled)
	}
	if !fake.scheduled.Start.Equal(start) {
		t.Errorf("start = %v, want %v", fake.scheduled.Start, start)
	}
	if payload["event_id"] != "evt_1" {
		t.Errorf("payload mangled: %+v", payload)
	}
}

func TestScheduleMeetingToolBadTime(t *testing.T) {
	tool := ScheduleMeetingTool(&fakeCalendar{})

	_, err := tool.Execute(context.Background(), map[string]any{
		"attendee_email": "jane@acme.com",
		"title":          "Demo",
		"start_time":     "next Tuesday-ish",
	})
	code, ok := collab.CodeOf(err)
	if !ok || code != collab.CodeInvalidInput {
		t.Errorf("got %v, want invalid_input", err)
	}
}

func TestAvailableSlotsTool(t *testing.T) {
	fake := &fakeCalendar{busy: []collab.BusyInterval{{
		Start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}}}

	tool := AvailableSlotsTool(fake)
	payload, err := tool.Execute(context.Background(), map[string]any{
		"attendee_email": "jane@acme.com",
		"from":           "2026-03-10",
		"to":             "2026-03-11",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	busy, ok := payload["busy"].([]any)
	if !ok || len(busy) != 1 {
		t.Errorf("busy intervals mangled: %+v", payload)
	}
}

func TestUpcomingMeetingsTool(t *testing.T) {
	fake := &fakeCalendar{events: []collab.Event{
		{EventID: "evt_1", Title: "Demo"},
		{EventID: "evt_2", Title: "Kickoff"},
	}}

	tool := UpcomingMeetingsTool(fake)
	payload, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	meetings, ok := payload["meetings"].([]any)
	if !ok || len(meetings) != 2 {
		t.Errorf("meetings mangled: %+v", payload)
	}
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	if err := RegisterAll(reg, &fakeCalendar{}); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	for _, name := range []string{"schedule_meeting", "get_available_slots", "get_upcoming_meetings"} {
		if !reg.Has(name) {
			t.Errorf("tool %s not registered", name)
		}
	}
}
