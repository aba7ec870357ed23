package payment

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
)

// AuthorizeProcessor reserves funds against a tender without capturing them
type AuthorizeProcessor struct {
	*base
}

// NewAuthorizeProcessor creates an AuthorizeProcessor
func NewAuthorizeProcessor(b *base) *AuthorizeProcessor {
	return &AuthorizeProcessor{base: b}
}

// Process runs the authorize state machine
func (p *AuthorizeProcessor) Process(ctx context.Context, req *Request) (*TransactionResult, error) {
	if req.ClientReferenceNumber == "" {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"clientReferenceNumber is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"amount must be positive")
	}

	markerKey := authorizeMarkerKey(req.ClientReferenceNumber, req.GroupID)
	if err := p.checkInFlight(ctx, "authorize", markerKey, req.Amount); err != nil {
		return nil, err
	}

	existing, err := p.ledger.FindSuccessfulAuthorize(ctx, req.ClientReferenceNumber, req.GroupID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.NewValidationDetail(errs.ErrDuplicateAuthorize, errs.ReasonDuplicateRequest,
			"authorize already processed as "+existing.PaymentID)
	}

	if err := entity.ValidateTenderExpiry(req.Tender, p.timeProvider.Now()); err != nil {
		return nil, err
	}

	paymentID, err := p.idGen.GenerateUniqueID()
	if err != nil {
		return nil, err
	}

	record := entity.NewTransactionRecord(paymentID, entity.TypeAuthorize,
		req.ClientReferenceNumber, req.Amount, req.Routing, p.timeProvider.Now())
	record.GroupID = req.GroupID
	record.AttachTender(req.Tender)

	gwReq := &entity.GatewayRequest{
		RouterFunction: entity.TypeAuthorize,
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

	return p.run(ctx, markerKey, record, gwReq, true, p.publishSnapshot)
}

// publishSnapshot materializes the fresh authorize view used by capture and
// void as a fast consistency check
func (p *AuthorizeProcessor) publishSnapshot(ctx context.Context, record *entity.TransactionRecord) {
	if err := p.snapshots.PutSnapshot(ctx, entity.SnapshotFromRecord(record)); err != nil {
		p.logger.Warn("Failed to publish authorize snapshot", map[string]any{
			"payment_id": record.PaymentID,
			"error":      err.Error(),
		})
	}
}
