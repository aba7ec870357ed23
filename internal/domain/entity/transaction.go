package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
)

// TransactionType identifies the operation a ledger row belongs to
type TransactionType string

// Transaction types
const (
	TypeAuthorize TransactionType = "AUTHORIZE"
	TypeCapture   TransactionType = "CAPTURE"
	TypeRefund    TransactionType = "REFUND"
	TypeVoid      TransactionType = "VOID"
)

// TransactionStatus defines possible status values for a ledger row
type TransactionStatus string

// TransactionStatus constants. A row moves IN_PROCESS -> {SUCCESS, FAILURE,
// PARTIAL} exactly once and never reverses.
const (
	StatusInProcess TransactionStatus = "IN_PROCESS"
	StatusSuccess   TransactionStatus = "SUCCESS"
	StatusFailure   TransactionStatus = "FAILURE"
	StatusPartial   TransactionStatus = "PARTIAL"
)

// IsTerminal reports whether the status is a terminal state
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusPartial
}

// Tender carries the payment instrument presented by the caller. The raw PAN
// and CVV are forwarded to the gateway only; the ledger and logs see the
// masked last-4.
type Tender struct {
	CardNumber  string
	CVV         string
	ExpiryMonth int
	ExpiryYear  int
	Issuer      string
	TenderType  string
	Currency    string
}

// Billing carries the billing address attached to an authorize
type Billing struct {
	Name       string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// RoutingContext carries the per-request routing and trace identifiers taken
// from the inbound headers
type RoutingContext struct {
	Source        string
	Channel       string
	JourneyID     string
	CorrelationID string
	TransactionID string
	ClientID      string
	SessionID     string
	MgmID         string
}

// TransactionRecord is the durable ledger row for one operation
type TransactionRecord struct {
	PaymentID             string
	ClientReferenceNumber string
	GroupID               string
	ReferenceID           string
	TransactionType       TransactionType
	TransactionStatus     TransactionStatus
	Amount                decimal.Decimal
	AuthorizedAmount      decimal.Decimal

	// Gateway echo fields
	GatewayID          string
	GatewayChainID     string
	ResponseCode       string
	ReasonCode         string
	ReasonDescription  string
	RetrievalReference string
	AVSResult          string
	CVVResponseCode    string
	DeferredAuth       bool
	AuthSource         string

	// Tender fields (masked)
	CardLastFour string
	CardIssuer   string
	TenderType   string
	Currency     string

	Routing RoutingContext

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
}

// NewTransactionRecord creates a ledger row in IN_PROCESS state
func NewTransactionRecord(
	paymentID string,
	txType TransactionType,
	clientReferenceNumber string,
	amount decimal.Decimal,
	routing RoutingContext,
	now time.Time,
) *TransactionRecord {
	return &TransactionRecord{
		PaymentID:             paymentID,
		ClientReferenceNumber: clientReferenceNumber,
		TransactionType:       txType,
		TransactionStatus:     StatusInProcess,
		Amount:                amount,
		Routing:               routing,
		CreatedAt:             now,
		UpdatedAt:             now,
		CreatedBy:             routing.ClientID,
	}
}

// ApplyGatewayResult maps a gateway result onto the record, deriving the
// terminal status from the response code. AuthorizedAmount is zeroed on
// failure so a declined leg never looks funded.
func (r *TransactionRecord) ApplyGatewayResult(result *GatewayResult, now time.Time) {
	status := StatusFromResponseCode(result.ResponseCode)
	r.TransactionStatus = status
	if status == StatusFailure {
		r.AuthorizedAmount = decimal.Zero
	} else {
		r.AuthorizedAmount = result.AuthorizedAmount
	}
	r.GatewayID = result.GatewayID
	r.GatewayChainID = result.GatewayChainID
	r.ResponseCode = result.ResponseCode
	r.ReasonCode = result.ReasonCode
	r.ReasonDescription = result.ReasonDescription
	r.RetrievalReference = result.RetrievalReference
	r.AVSResult = result.AVSResult
	r.CVVResponseCode = result.CVVResponseCode
	r.DeferredAuth = result.DeferredAuth
	r.AuthSource = result.AuthSource
	r.UpdatedAt = now
}

// MarkFailed moves a still-pending record to FAILURE with a reason
func (r *TransactionRecord) MarkFailed(reason string, now time.Time) {
	r.TransactionStatus = StatusFailure
	r.AuthorizedAmount = decimal.Zero
	if r.ReasonDescription == "" {
		r.ReasonDescription = reason
	}
	r.UpdatedAt = now
}

// AttachTender records the masked tender fields on the row
func (r *TransactionRecord) AttachTender(t Tender) {
	r.CardLastFour = MaskCardNumber(t.CardNumber)
	r.CardIssuer = t.Issuer
	r.TenderType = t.TenderType
	r.Currency = t.Currency
}

// InheritTenderFrom copies the static tender fields from the parent authorize
// row. Used by capture and void which carry no tender of their own.
func (r *TransactionRecord) InheritTenderFrom(parent *TransactionRecord) {
	r.CardLastFour = parent.CardLastFour
	r.CardIssuer = parent.CardIssuer
	r.TenderType = parent.TenderType
	r.Currency = parent.Currency
	r.GroupID = parent.GroupID
	r.GatewayChainID = parent.GatewayChainID
}

// MaskCardNumber reduces a PAN to its last four digits
func MaskCardNumber(pan string) string {
	digits := strings.TrimSpace(pan)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// ValidateTenderExpiry rejects a card whose expiry has passed. The card is
// valid through the last day of its expiry month.
func ValidateTenderExpiry(t Tender, now time.Time) error {
	if t.ExpiryYear == 0 && t.ExpiryMonth == 0 {
		return nil
	}
	if t.ExpiryMonth < 1 || t.ExpiryMonth > 12 {
		return errs.NewValidationDetail(errs.ErrExpiredCard, errs.ReasonExpiredCard, "invalid expiry month")
	}
	endOfMonth := time.Date(t.ExpiryYear, time.Month(t.ExpiryMonth), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0)
	if !now.Before(endOfMonth) {
		return errs.NewValidationDetail(errs.ErrExpiredCard, errs.ReasonExpiredCard, "card is expired")
	}
	return nil
}
