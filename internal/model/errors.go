package model

import "errors"

var (
	// ErrModelUnavailable is returned on upstream outage or transport
	// failure. The orchestrator retries within its budget.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrModelProtocol is returned when the upstream response cannot be
	// parsed into a decision.
	ErrModelProtocol = errors.New("model protocol error")
)
