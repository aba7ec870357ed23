package payment

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/audit"
)

// CaptureProcessor converts a prior authorization into an actual charge
type CaptureProcessor struct {
	*base
}

// NewCaptureProcessor creates a CaptureProcessor
func NewCaptureProcessor(b *base) *CaptureProcessor {
	return &CaptureProcessor{base: b}
}

// Process runs the capture state machine
func (p *CaptureProcessor) Process(ctx context.Context, req *Request) (*TransactionResult, error) {
	if req.ReferenceID == "" {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"referenceId is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"amount must be positive")
	}

	markerKey := captureMarkerKey(req.ReferenceID)
	if err := p.checkInFlight(ctx, "capture", markerKey, req.Amount); err != nil {
		return nil, err
	}

	// The snapshot spares a ledger round trip for the common conflict cases.
	snapshot, err := p.snapshots.GetSnapshot(ctx, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		if snapshot.IsCaptured {
			return nil, errs.NewValidationDetail(errs.ErrAlreadyCaptured, errs.ReasonAlreadyCaptured,
				"authorization "+req.ReferenceID+" already captured")
		}
		if snapshot.IsVoided {
			return nil, errs.NewValidationDetail(errs.ErrAlreadyVoided, errs.ReasonAlreadyVoided,
				"authorization "+req.ReferenceID+" already voided")
		}
	}

	authorize, err := p.loadAuthorize(ctx, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if err := p.checkReferenceConflicts(ctx, req.ReferenceID); err != nil {
		return nil, err
	}

	// Amounts must match exactly, not just be covered.
	if !req.Amount.Equal(authorize.AuthorizedAmount) {
		return nil, errs.NewValidationDetail(errs.ErrCaptureAmountMismatch, errs.ReasonCaptureAmountMismatch,
			"capture amount "+req.Amount.StringFixed(2)+
				" does not match authorized amount "+authorize.AuthorizedAmount.StringFixed(2))
	}

	paymentID, err := p.idGen.GenerateUniqueID()
	if err != nil {
		return nil, err
	}

	record := entity.NewTransactionRecord(paymentID, entity.TypeCapture,
		authorize.ClientReferenceNumber, req.Amount, req.Routing, p.timeProvider.Now())
	record.ReferenceID = authorize.PaymentID
	record.InheritTenderFrom(authorize)

	gwReq := &entity.GatewayRequest{
		RouterFunction: entity.TypeCapture,
		Amounts: []entity.AmountEntry{
			{Name: entity.AmountNameTotal, Value: req.Amount},
			{Name: entity.AmountNameAuthorized, Value: authorize.AuthorizedAmount},
		},
		ClientReferenceNumber: authorize.ClientReferenceNumber,
		SessionID:             req.Routing.SessionID,
		MgmID:                 req.Routing.MgmID,
		GatewayID:             authorize.GatewayID,
		GatewayChainID:        authorize.GatewayChainID,
		MerchantReferenceCode: paymentID,
		Routing:               req.Routing,
	}

	return p.run(ctx, markerKey, record, gwReq, true, p.onCaptured)
}

// onCaptured flips the snapshot flag and fires the downstream confirmation.
// The confirmation is notify-don't-wait; it is not part of the transactional
// boundary and its failures are only logged by the publisher.
func (p *CaptureProcessor) onCaptured(ctx context.Context, record *entity.TransactionRecord) {
	if err := p.snapshots.MarkCaptured(ctx, record.ReferenceID); err != nil {
		p.logger.Warn("Failed to flip capture flag on authorize snapshot", map[string]any{
			"authorize_payment_id": record.ReferenceID,
			"error":                err.Error(),
		})
	}
	p.publisher.Publish(ctx, audit.Event{
		Type:          "payment.capture.confirmed",
		PaymentID:     record.PaymentID,
		ReferenceID:   record.ReferenceID,
		Operation:     string(entity.TypeCapture),
		Status:        string(record.TransactionStatus),
		Amount:        record.Amount.StringFixed(2),
		CorrelationID: record.Routing.CorrelationID,
		OccurredAt:    p.timeProvider.Now(),
	})
}
