package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/audit"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	gatewayport "github.com/lunapay/payment-orchestrator/internal/domain/port/gateway"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/persistence"
)

// Processor is the shared contract of the four operation state machines
type Processor interface {
	Process(ctx context.Context, req *Request) (*TransactionResult, error)
}

// base carries the collaborators shared by all four processors and implements
// the common part of the processing skeleton: ledger row creation, in-flight
// marker lifecycle, gateway invocation, terminal persistence, compensation and
// audit publication. The operation-specific duplicate checks and precondition
// validation stay in each processor.
type base struct {
	ledger       persistence.LedgerRepository
	markers      persistence.MarkerStore
	snapshots    persistence.SnapshotStore
	gateway      gatewayport.Client
	publisher    audit.Publisher
	idGen        coreport.IDGenerator
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	compensator  *Compensator
}

// checkInFlight rejects a request whose business key already has an in-flight
// marker with the same amount. A marker with a different amount is a distinct
// business action and passes through.
func (b *base) checkInFlight(ctx context.Context, operation, key string, amount decimal.Decimal) error {
	marker, err := b.markers.GetMarker(ctx, key)
	if err != nil {
		return err
	}
	if marker == nil {
		return nil
	}
	if marker.Amount.Equal(amount) {
		b.logger.Warn("Duplicate request rejected by in-flight marker", map[string]any{
			"operation":  operation,
			"marker_key": key,
		})
		return errs.NewDuplicateRequestError(operation, key, amount.StringFixed(2))
	}
	b.logger.Warn("In-flight marker present with different amount, proceeding", map[string]any{
		"operation":  operation,
		"marker_key": key,
	})
	return nil
}

// run executes the shared tail of the skeleton for a populated IN_PROCESS
// record: persist row, write marker, invoke gateway, persist terminal state,
// clean up the marker on every completion disposition (value, error or
// cancellation), and publish the audit event exactly once.
//
// The cleanup continuation uses a detached context so a caller disconnect
// mid-flight never leaves the row IN_PROCESS or the marker behind. The
// terminal ledger write is conditional on the row still being IN_PROCESS, so
// when the cancellation and completion paths race the earlier write wins.
func (b *base) run(
	ctx context.Context,
	markerKey string,
	record *entity.TransactionRecord,
	gwReq *entity.GatewayRequest,
	compensable bool,
	onApproved func(ctx context.Context, record *entity.TransactionRecord),
) (*TransactionResult, error) {
	if err := b.ledger.Create(ctx, record); err != nil {
		return nil, err
	}

	finalized := false
	defer func() {
		cctx := context.WithoutCancel(ctx)
		if !finalized {
			b.failPending(cctx, record, "processing aborted before terminal state")
		}
		if err := b.markers.DeleteMarker(cctx, markerKey); err != nil {
			// A leaked marker permanently blocks retries for this key.
			b.logger.Error("Failed to delete in-flight marker", map[string]any{
				"marker_key": markerKey,
				"payment_id": record.PaymentID,
				"error":      err.Error(),
			})
		}
		b.publishOutcome(cctx, record)
	}()

	// The marker write must complete before the gateway call begins; that is
	// what makes the duplicate check effective for concurrent requests.
	marker := &entity.InFlightMarker{
		TransactionStatus: entity.StatusInProcess,
		Amount:            record.Amount,
	}
	if err := b.markers.CreateMarker(ctx, markerKey, marker); err != nil {
		return nil, err
	}

	result, err := b.gateway.Invoke(ctx, gwReq)
	if err != nil {
		return nil, err
	}

	record.ApplyGatewayResult(result, b.timeProvider.Now())

	cctx := context.WithoutCancel(ctx)
	updated, perr := b.ledger.Finalize(cctx, record)
	if perr != nil {
		pf := &errs.PersistenceFailure{
			PaymentID:        record.PaymentID,
			Operation:        string(record.TransactionType),
			GatewaySucceeded: result.Approved(),
			Err:              perr,
		}
		if result.Approved() && compensable {
			pf.Compensated = b.compensator.Compensate(cctx, record)
		}
		b.logger.Error("Terminal ledger write failed", pf.LogFields())
		return nil, pf
	}
	finalized = true

	if !updated {
		// The cancellation cleanup finalized the row first; its FAILURE stands.
		b.logger.Warn("Terminal write lost race with cancellation cleanup", map[string]any{
			"payment_id": record.PaymentID,
		})
		record.TransactionStatus = entity.StatusFailure
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: terminal write for %s lost to concurrent finalization",
			errs.ErrPersistence, record.PaymentID)
	}

	if record.TransactionStatus != entity.StatusFailure && onApproved != nil {
		onApproved(cctx, record)
	}

	b.logger.Info("Transaction processed", map[string]any{
		"payment_id": record.PaymentID,
		"operation":  string(record.TransactionType),
		"status":     string(record.TransactionStatus),
	})
	return resultFromRecord(record), nil
}

// failPending moves a still-pending row to FAILURE. The conditional write
// never clobbers a terminal state that arrived through the normal path.
func (b *base) failPending(ctx context.Context, record *entity.TransactionRecord, reason string) {
	record.MarkFailed(reason, b.timeProvider.Now())
	if _, err := b.ledger.Finalize(ctx, record); err != nil {
		b.logger.Error("Failed to mark pending record as FAILURE", map[string]any{
			"payment_id": record.PaymentID,
			"error":      err.Error(),
		})
	}
}

func (b *base) publishOutcome(ctx context.Context, record *entity.TransactionRecord) {
	b.publisher.Publish(ctx, audit.Event{
		Type:          "payment." + strings.ToLower(string(record.TransactionType)),
		PaymentID:     record.PaymentID,
		ReferenceID:   record.ReferenceID,
		Operation:     string(record.TransactionType),
		Status:        string(record.TransactionStatus),
		Amount:        record.Amount.StringFixed(2),
		CorrelationID: record.Routing.CorrelationID,
		OccurredAt:    b.timeProvider.Now(),
	})
}

// loadAuthorize fetches the authorize row referenced by capture/void and
// verifies it is a SUCCESS or PARTIAL authorize.
func (b *base) loadAuthorize(ctx context.Context, referenceID string) (*entity.TransactionRecord, error) {
	authorize, err := b.ledger.GetByPaymentID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return nil, errs.NewValidationDetail(errs.ErrMissingAuthorize, errs.ReasonMissingAuthorize,
				"no authorize found for reference "+referenceID)
		}
		return nil, err
	}
	if authorize.TransactionType != entity.TypeAuthorize ||
		(authorize.TransactionStatus != entity.StatusSuccess && authorize.TransactionStatus != entity.StatusPartial) {
		return nil, errs.NewValidationDetail(errs.ErrMissingAuthorize, errs.ReasonMissingAuthorize,
			"referenced transaction is not a successful authorize")
	}
	return authorize, nil
}

// checkReferenceConflicts enforces at-most-one-capture / at-most-one-void
// against an authorize: any non-FAILURE capture or void already referencing it
// blocks the new operation.
func (b *base) checkReferenceConflicts(ctx context.Context, referenceID string) error {
	conflicts, err := b.ledger.FindByReference(ctx, referenceID,
		[]entity.TransactionType{entity.TypeCapture, entity.TypeVoid})
	if err != nil {
		return err
	}
	for _, c := range conflicts {
		switch c.TransactionType {
		case entity.TypeCapture:
			return errs.NewValidationDetail(errs.ErrAlreadyCaptured, errs.ReasonAlreadyCaptured,
				"authorization "+referenceID+" already captured by "+c.PaymentID)
		case entity.TypeVoid:
			return errs.NewValidationDetail(errs.ErrAlreadyVoided, errs.ReasonAlreadyVoided,
				"authorization "+referenceID+" already voided by "+c.PaymentID)
		}
	}
	return nil
}
