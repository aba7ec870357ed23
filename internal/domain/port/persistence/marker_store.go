package persistence

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// MarkerStore is the cache-backed idempotency guard. One entry per active
// operation, namespaced by operation type; key derivation lives in the
// processors. Creation is check-then-act, not an atomic set-if-absent; the
// residual race between two near-simultaneous first requests is an accepted
// trade-off.
type MarkerStore interface {
	// GetMarker returns the marker for the key, or nil when absent
	GetMarker(ctx context.Context, key string) (*entity.InFlightMarker, error)

	// CreateMarker writes the marker. Must complete before the gateway call
	// begins for the duplicate check to see concurrent requests.
	CreateMarker(ctx context.Context, key string, marker *entity.InFlightMarker) error

	// DeleteMarker removes the marker. Called unconditionally on every terminal
	// outcome; a leaked marker permanently blocks retries for its business key.
	DeleteMarker(ctx context.Context, key string) error
}

// SnapshotStore holds the materialized authorize view keyed by the authorize
// payment id, used as a fast existence and consistency check for capture and
// void before touching the ledger.
type SnapshotStore interface {
	// GetSnapshot returns the snapshot, or nil when absent
	GetSnapshot(ctx context.Context, authorizePaymentID string) (*entity.AuthorizeSnapshot, error)

	// PutSnapshot publishes a fresh snapshot after a successful authorize
	PutSnapshot(ctx context.Context, snapshot *entity.AuthorizeSnapshot) error

	// MarkCaptured flips the monotone IsCaptured flag
	MarkCaptured(ctx context.Context, authorizePaymentID string) error

	// MarkVoided flips the monotone IsVoided flag
	MarkVoided(ctx context.Context, authorizePaymentID string) error

	// MarkRefunded flips the monotone IsRefunded flag
	MarkRefunded(ctx context.Context, authorizePaymentID string) error
}
