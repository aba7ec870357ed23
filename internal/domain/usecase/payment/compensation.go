package payment

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	gatewayport "github.com/lunapay/payment-orchestrator/internal/domain/port/gateway"
)

// Compensator issues a corrective void against the gateway when the terminal
// ledger write fails after the gateway already approved the operation, so the
// gateway does not retain an unreconciled charge. Best effort: a failed
// compensation is logged and surfaced through the ReconciliationRisk error,
// never retried here.
type Compensator struct {
	gateway      gatewayport.Client
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewCompensator creates a Compensator
func NewCompensator(gw gatewayport.Client, tp coreport.TimeProvider, logger coreport.Logger) *Compensator {
	return &Compensator{gateway: gw, timeProvider: tp, logger: logger}
}

// Compensate voids the transaction the record describes. Returns true when the
// gateway accepted the void.
func (c *Compensator) Compensate(ctx context.Context, record *entity.TransactionRecord) bool {
	c.logger.Warn("Issuing compensating void after ledger failure", map[string]any{
		"payment_id": record.PaymentID,
		"operation":  string(record.TransactionType),
	})

	req := &entity.GatewayRequest{
		RouterFunction: entity.TypeVoid,
		Amounts: []entity.AmountEntry{
			{Name: entity.AmountNameTotal, Value: record.Amount},
		},
		ClientReferenceNumber: record.ClientReferenceNumber,
		SessionID:             record.Routing.SessionID,
		MgmID:                 record.Routing.MgmID,
		GatewayID:             record.GatewayID,
		GatewayChainID:        record.GatewayChainID,
		MerchantReferenceCode: record.PaymentID,
		Routing:               record.Routing,
	}

	result, err := c.gateway.Invoke(ctx, req)
	if err != nil {
		c.logger.Error("Compensating void failed", map[string]any{
			"payment_id": record.PaymentID,
			"error":      err.Error(),
		})
		return false
	}
	if !result.Approved() {
		c.logger.Error("Compensating void declined by gateway", map[string]any{
			"payment_id":    record.PaymentID,
			"response_code": result.ResponseCode,
			"reason_code":   result.ReasonCode,
		})
		return false
	}

	c.logger.Warn("Compensating void accepted", map[string]any{
		"payment_id": record.PaymentID,
	})
	return true
}
