package store

import (
	"context"
	"time"
)

// Seed populates an empty store with sample customer cards for local
// development. A store that already has cards is left untouched.
func (s *CardStore) Seed(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	in := func(days int) *time.Time {
		t := time.Now().UTC().AddDate(0, 0, days)
		return &t
	}

	samples := []Card{
		{
			CustomerName: "John Smith",
			Company:      "TechCorp Solutions",
			Email:        "john.smith@techcorp.com",
			Phone:        "+1-555-0123",
			Status:       StatusToReach,
			Priority:     PriorityHigh,
			Notes:        "Interested in enterprise software solutions. Follow up on pricing discussion.",
			AssignedTo:   "Sarah Johnson",
			NextFollowup: in(2),
		},
		{
			CustomerName: "Emily Davis",
			Company:      "Marketing Pro Inc",
			Email:        "emily@marketingpro.com",
			Phone:        "+1-555-0234",
			Status:       StatusInProgress,
			Priority:     PriorityMedium,
			Notes:        "Demo scheduled for next week. Needs integration with their current CRM.",
			AssignedTo:   "Mike Chen",
			NextFollowup: in(5),
		},
		{
			CustomerName: "Robert Wilson",
			Company:      "Global Logistics Ltd",
			Email:        "r.wilson@globallogistics.com",
			Phone:        "+1-555-0345",
			Status:       StatusReachedOut,
			Priority:     PriorityMedium,
			Notes:        "Sent proposal last Thursday. Waiting on budget approval from their CFO.",
			AssignedTo:   "Sarah Johnson",
			NextFollowup: in(3),
		},
		{
			CustomerName: "Jane Mitchell",
			Company:      "Acme Corp",
			Email:        "jane@acme.com",
			Phone:        "+1-555-0456",
			Status:       StatusFollowUp,
			Priority:     PriorityHigh,
			Notes:        "Very engaged during the demo. Wants a technical deep-dive with her team.",
			AssignedTo:   "Mike Chen",
			NextFollowup: in(1),
		},
	}

	for _, card := range samples {
		if _, err := s.CreateCard(ctx, card); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}
