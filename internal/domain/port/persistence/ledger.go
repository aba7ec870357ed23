package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// LedgerRepository is the durable system-of-record for transactions. Rows are
// created IN_PROCESS, finalized exactly once, and never deleted.
type LedgerRepository interface {
	// Create saves a new IN_PROCESS row
	//
	// Possible errors:
	// - ErrDuplicateRequest: if a row with the same payment id already exists
	// - ErrDatabaseConnection: if the store cannot be reached
	Create(ctx context.Context, record *entity.TransactionRecord) error

	// Finalize writes the terminal status and gateway echo fields, but only
	// while the row is still IN_PROCESS. Returns false when the row had already
	// reached a terminal state through another path (the cancellation and
	// completion paths race; the earlier write wins).
	Finalize(ctx context.Context, record *entity.TransactionRecord) (bool, error)

	// GetByPaymentID retrieves a row by its payment id
	//
	// Possible errors:
	// - ErrRecordNotFound: if no row with the given payment id exists
	// - ErrDatabaseConnection: if the store cannot be reached
	GetByPaymentID(ctx context.Context, paymentID string) (*entity.TransactionRecord, error)

	// FindSuccessfulAuthorize looks up a SUCCESS authorize for the business key
	// clientReferenceNumber+groupId. Returns nil when none exists.
	FindSuccessfulAuthorize(ctx context.Context, clientReferenceNumber, groupID string) (*entity.TransactionRecord, error)

	// FindByReference returns all non-FAILURE rows of the given types whose
	// ReferenceID points at the given authorize payment id. Used for the
	// already-captured / already-voided conflict checks.
	FindByReference(ctx context.Context, referenceID string, types []entity.TransactionType) ([]*entity.TransactionRecord, error)

	// HasSuccessfulCapture reports whether at least one SUCCESS capture exists
	// for the client reference
	HasSuccessfulCapture(ctx context.Context, clientReferenceNumber string) (bool, error)

	// SumCapturedAmount sums the authorized amounts of SUCCESS captures for the
	// client reference
	SumCapturedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error)

	// SumRefundedAmount sums the amounts of SUCCESS refunds for the client reference
	SumRefundedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error)

	// HasSameDayRefund reports whether a non-FAILURE refund with identical
	// amount, channel and card last-4 exists for the client reference on the
	// given day. Catches duplicates after the in-flight marker has expired.
	HasSameDayRefund(ctx context.Context, clientReferenceNumber string, amount decimal.Decimal, channel, cardLastFour string, day time.Time) (bool, error)
}
