package payment

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
)

// RefundProcessor returns previously captured funds
type RefundProcessor struct {
	*base
}

// NewRefundProcessor creates a RefundProcessor
func NewRefundProcessor(b *base) *RefundProcessor {
	return &RefundProcessor{base: b}
}

// Process runs the refund state machine
func (p *RefundProcessor) Process(ctx context.Context, req *Request) (*TransactionResult, error) {
	if req.ClientReferenceNumber == "" {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"clientReferenceNumber is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"amount must be positive")
	}

	markerKey := refundMarkerKey(req.ClientReferenceNumber)
	if err := p.checkInFlight(ctx, "refund", markerKey, req.Amount); err != nil {
		return nil, err
	}

	// The marker may have expired; a same-day ledger scan on amount, channel
	// and card last-4 catches the duplicates the cache no longer sees.
	lastFour := entity.MaskCardNumber(req.Tender.CardNumber)
	dup, err := p.ledger.HasSameDayRefund(ctx, req.ClientReferenceNumber, req.Amount,
		req.Routing.Channel, lastFour, p.timeProvider.Now())
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, errs.NewDuplicateRequestError("refund", markerKey, req.Amount.StringFixed(2))
	}

	captured, err := p.ledger.HasSuccessfulCapture(ctx, req.ClientReferenceNumber)
	if err != nil {
		return nil, err
	}
	if !captured {
		return nil, errs.NewValidationDetail(errs.ErrMissingCapture, errs.ReasonMissingCapture,
			"no successful capture found for "+req.ClientReferenceNumber)
	}

	capturedSum, err := p.ledger.SumCapturedAmount(ctx, req.ClientReferenceNumber)
	if err != nil {
		return nil, err
	}
	refundedSum, err := p.ledger.SumRefundedAmount(ctx, req.ClientReferenceNumber)
	if err != nil {
		return nil, err
	}
	refundable := capturedSum.Sub(refundedSum)
	if req.Amount.GreaterThan(refundable) {
		return nil, errs.NewValidationDetail(errs.ErrRefundExceedsCaptured, errs.ReasonRefundExceedsCaptured,
			"refund amount "+req.Amount.StringFixed(2)+
				" exceeds refundable balance "+refundable.StringFixed(2))
	}

	paymentID, err := p.idGen.GenerateUniqueID()
	if err != nil {
		return nil, err
	}

	record := entity.NewTransactionRecord(paymentID, entity.TypeRefund,
		req.ClientReferenceNumber, req.Amount, req.Routing, p.timeProvider.Now())
	record.ReferenceID = req.ReferenceID
	record.AttachTender(req.Tender)

	gwReq := &entity.GatewayRequest{
		RouterFunction: entity.TypeRefund,
		Amounts: []entity.AmountEntry{
			{Name: entity.AmountNameTotal, Value: req.Amount},
		},
		ClientReferenceNumber: req.ClientReferenceNumber,
		SessionID:             req.Routing.SessionID,
		MgmID:                 req.Routing.MgmID,
		Payment: entity.GatewayPayment{
			Tender:  req.Tender,
			Billing: req.Billing,
		},
		MerchantReferenceCode: paymentID,
		Routing:               req.Routing,
	}

	// Refunds carry no compensating void: reversing a failed refund write
	// would charge the customer again.
	return p.run(ctx, markerKey, record, gwReq, false, p.onRefunded)
}

// onRefunded flips the snapshot flag when the caller supplied the authorize
// reference
func (p *RefundProcessor) onRefunded(ctx context.Context, record *entity.TransactionRecord) {
	if record.ReferenceID == "" {
		return
	}
	if err := p.snapshots.MarkRefunded(ctx, record.ReferenceID); err != nil {
		p.logger.Warn("Failed to flip refund flag on authorize snapshot", map[string]any{
			"authorize_payment_id": record.ReferenceID,
			"error":                err.Error(),
		})
	}
}
