package audit

import (
	"context"
	"time"
)

// Event is one audit-trail entry for a processed operation
type Event struct {
	Type          string         `json:"type"`
	PaymentID     string         `json:"paymentId"`
	ReferenceID   string         `json:"referenceId,omitempty"`
	Operation     string         `json:"operation"`
	Status        string         `json:"status"`
	Amount        string         `json:"amount"`
	CorrelationID string         `json:"correlationId,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// Publisher delivers audit events and confirmation notifications downstream.
// Publish is notify-don't-wait: it never blocks the transactional path and
// never returns an error; delivery failures are logged by the implementation.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
