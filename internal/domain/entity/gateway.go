package entity

import "github.com/shopspring/decimal"

// Named amount entries carried on a gateway request
const (
	AmountNameTotal      = "total"
	AmountNameAuthorized = "authorizedAmount"
)

// Gateway response codes. Single letter: A/C map to SUCCESS, P to PARTIAL,
// everything else to FAILURE.
const (
	ResponseCodeApproved  = "A"
	ResponseCodeCompleted = "C"
	ResponseCodePartial   = "P"
)

// AmountEntry is one named amount on a gateway request
type AmountEntry struct {
	Name  string
	Value decimal.Decimal
}

// GatewayPayment carries tender and billing data to the gateway
type GatewayPayment struct {
	Tender  Tender
	Billing Billing
}

// GatewayRequest is the outbound DTO for one gateway leg.
// MerchantReferenceCode always equals the local payment id so gateway records
// can be reconciled back to ledger rows.
type GatewayRequest struct {
	RouterFunction        TransactionType
	Amounts               []AmountEntry
	ClientReferenceNumber string
	SessionID             string
	MgmID                 string
	GatewayID             string
	GatewayChainID        string
	Payment               GatewayPayment
	MerchantReferenceCode string

	// Routing headers attached to the invocation
	Routing RoutingContext
}

// TotalAmount returns the "total" named entry, or zero when absent
func (r *GatewayRequest) TotalAmount() decimal.Decimal {
	for _, a := range r.Amounts {
		if a.Name == AmountNameTotal {
			return a.Value
		}
	}
	return decimal.Zero
}

// GatewayResult is the inbound DTO for one gateway leg
type GatewayResult struct {
	ResponseCode       string
	ReasonCode         string
	ReasonDescription  string
	RetrievalReference string
	AVSResult          string
	CVVResponseCode    string
	GatewayID          string
	GatewayChainID     string
	AuthorizedAmount   decimal.Decimal
	DeferredAuth       bool
	AuthSource         string
}

// Approved reports whether the result maps to a non-failure status
func (r *GatewayResult) Approved() bool {
	return StatusFromResponseCode(r.ResponseCode) != StatusFailure
}

// StatusFromResponseCode buckets a gateway response code into a ledger status
func StatusFromResponseCode(code string) TransactionStatus {
	switch code {
	case ResponseCodeApproved, ResponseCodeCompleted:
		return StatusSuccess
	case ResponseCodePartial:
		return StatusPartial
	default:
		return StatusFailure
	}
}
