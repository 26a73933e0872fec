package collab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ScheduleRequest describes a meeting to create.
type ScheduleRequest struct {
	AttendeeEmail   string    `json:"attendee_email"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Event is a scheduled calendar entry.
type Event struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// BusyInterval is an occupied slot on an attendee's calendar.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Calendar is the scheduling collaborator contract.
type Calendar interface {
	Schedule(ctx context.Context, req ScheduleRequest) (*Event, error)
	CheckAvailability(ctx context.Context, attendeeEmail string, from, to time.Time) ([]BusyInterval, error)
	UpcomingMeetings(ctx context.Context, daysAhead int) ([]Event, error)
}

// HTTPCalendar talks to the calendar service over its JSON API.
type HTTPCalendar struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCalendar builds a calendar client for the given base URL.
func NewHTTPCalendar(baseURL string, timeout time.Duration) *HTTPCalendar {
	return &HTTPCalendar{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Schedule creates a meeting and returns the created event.
func (c *HTTPCalendar) Schedule(ctx context.Context, req ScheduleRequest) (*Event, error) {
	if req.AttendeeEmail == "" || req.Title == "" {
		return nil, NewError(CodeInvalidInput, "attendee_email and title are required")
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}

	var event Event
	if err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/events", req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CheckAvailability returns the attendee's busy intervals within a range.
func (c *HTTPCalendar) CheckAvailability(ctx context.Context, attendeeEmail string, from, to time.Time) ([]BusyInterval, error) {
	if attendeeEmail == "" {
		return nil, NewError(CodeInvalidInput, "attendee_email is required")
	}

	q := url.Values{}
	q.Set("attendee", attendeeEmail)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))

	var out struct {
		Busy []BusyInterval `json:"busy"`
	}
	endpoint := fmt.Sprintf("%s/availability?%s", c.baseURL, q.Encode())
	if err := doJSON(ctx, c.client, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Busy, nil
}

// UpcomingMeetings lists events starting within the next daysAhead days.
func (c *HTTPCalendar) UpcomingMeetings(ctx context.Context, daysAhead int) ([]Event, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}

	var out struct {
		Events []Event `json:"events"`
	}
	endpoint := fmt.Sprintf("%s/events?days_ahead=%d", c.baseURL, daysAhead)
	if err := doJSON(ctx, c.client, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}
