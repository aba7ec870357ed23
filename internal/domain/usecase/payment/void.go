package payment

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
)

// VoidProcessor cancels an authorization before capture
type VoidProcessor struct {
	*base
}

// NewVoidProcessor creates a VoidProcessor
func NewVoidProcessor(b *base) *VoidProcessor {
	return &VoidProcessor{base: b}
}

// Process runs the void state machine
func (p *VoidProcessor) Process(ctx context.Context, req *Request) (*TransactionResult, error) {
	if req.ReferenceID == "" {
		return nil, errs.NewValidationDetail(errs.ErrInvalidRequest, errs.ReasonInvalidRequest,
			"referenceId is required")
	}

	snapshot, err := p.snapshots.GetSnapshot(ctx, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		if snapshot.IsVoided {
			return nil, errs.NewValidationDetail(errs.ErrAlreadyVoided, errs.ReasonAlreadyVoided,
				"authorization "+req.ReferenceID+" already voided")
		}
		if snapshot.IsCaptured {
			return nil, errs.NewValidationDetail(errs.ErrAlreadyCaptured, errs.ReasonAlreadyCaptured,
				"authorization "+req.ReferenceID+" already captured")
		}
	}

	authorize, err := p.loadAuthorize(ctx, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if err := p.checkReferenceConflicts(ctx, req.ReferenceID); err != nil {
		return nil, err
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = authorize.AuthorizedAmount
	}

	markerKey := voidMarkerKey(req.ReferenceID)
	if err := p.checkInFlight(ctx, "void", markerKey, amount); err != nil {
		return nil, err
	}

	paymentID, err := p.idGen.GenerateUniqueID()
	if err != nil {
		return nil, err
	}

	record := entity.NewTransactionRecord(paymentID, entity.TypeVoid,
		authorize.ClientReferenceNumber, amount, req.Routing, p.timeProvider.Now())
	record.ReferenceID = authorize.PaymentID
	record.InheritTenderFrom(authorize)

	gwReq := &entity.GatewayRequest{
		RouterFunction: entity.TypeVoid,
		Amounts: []entity.AmountEntry{
			{Name: entity.AmountNameTotal, Value: amount},
		},
		ClientReferenceNumber: authorize.ClientReferenceNumber,
		SessionID:             req.Routing.SessionID,
		MgmID:                 req.Routing.MgmID,
		GatewayID:             authorize.GatewayID,
		GatewayChainID:        authorize.GatewayChainID,
		MerchantReferenceCode: paymentID,
		Routing:               req.Routing,
	}

	return p.run(ctx, markerKey, record, gwReq, true, p.onVoided)
}

func (p *VoidProcessor) onVoided(ctx context.Context, record *entity.TransactionRecord) {
	if err := p.snapshots.MarkVoided(ctx, record.ReferenceID); err != nil {
		p.logger.Warn("Failed to flip void flag on authorize snapshot", map[string]any{
			"authorize_payment_id": record.ReferenceID,
			"error":                err.Error(),
		})
	}
}
