package payment

import (
	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// Request is the operation-agnostic input to a processor. Each operation reads
// the fields it needs: Authorize uses ClientReferenceNumber+GroupID and the
// tender; Capture and Void use ReferenceID (the authorize payment id); Refund
// uses ClientReferenceNumber and may carry ReferenceID to keep the authorize
// snapshot consistent.
type Request struct {
	ClientReferenceNumber string
	GroupID               string
	ReferenceID           string
	Amount                decimal.Decimal
	Tender                entity.Tender
	Billing               entity.Billing
	Routing               entity.RoutingContext
}

// TransactionResult is the caller-facing view of a terminal ledger row
type TransactionResult struct {
	PaymentID          string
	ReferenceID        string
	TransactionType    entity.TransactionType
	TransactionStatus  entity.TransactionStatus
	Amount             decimal.Decimal
	AuthorizedAmount   decimal.Decimal
	ResponseCode       string
	ReasonCode         string
	ReasonDescription  string
	RetrievalReference string
	AVSResult          string
	CVVResponseCode    string
	GatewayChainID     string
	CardLastFour       string
	Currency           string
}

func resultFromRecord(r *entity.TransactionRecord) *TransactionResult {
	return &TransactionResult{
		PaymentID:          r.PaymentID,
		ReferenceID:        r.ReferenceID,
		TransactionType:    r.TransactionType,
		TransactionStatus:  r.TransactionStatus,
		Amount:             r.Amount,
		AuthorizedAmount:   r.AuthorizedAmount,
		ResponseCode:       r.ResponseCode,
		ReasonCode:         r.ReasonCode,
		ReasonDescription:  r.ReasonDescription,
		RetrievalReference: r.RetrievalReference,
		AVSResult:          r.AVSResult,
		CVVResponseCode:    r.CVVResponseCode,
		GatewayChainID:     r.GatewayChainID,
		CardLastFour:       r.CardLastFour,
		Currency:           r.Currency,
	}
}
