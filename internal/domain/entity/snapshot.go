package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InFlightMarker is the cache entry guarding one active operation. It exists
// iff a ledger row for the same business key is currently IN_PROCESS and must
// be removed on every terminal outcome, including cancellation.
type InFlightMarker struct {
	TransactionStatus TransactionStatus `json:"transactionStatus"`
	Amount            decimal.Decimal   `json:"amount"`
}

// AuthorizeSnapshot is the materialized cache view of an authorize row, keyed
// by the authorize payment id. The three booleans are monotone: they only move
// false -> true.
type AuthorizeSnapshot struct {
	PaymentID             string            `json:"paymentId"`
	ClientReferenceNumber string            `json:"clientReferenceNumber"`
	GroupID               string            `json:"groupId"`
	TransactionStatus     TransactionStatus `json:"transactionStatus"`
	AuthorizedAmount      decimal.Decimal   `json:"authorizedAmount"`
	GatewayChainID        string            `json:"gatewayChainId"`
	CardLastFour          string            `json:"cardLastFour"`
	Currency              string            `json:"currency"`
	IsCaptured            bool              `json:"isCaptured"`
	IsVoided              bool              `json:"isVoided"`
	IsRefunded            bool              `json:"isRefunded"`
	AuthorizedAt          time.Time         `json:"authorizedAt"`
}

// SnapshotFromRecord builds the materialized view published after a
// successful authorize
func SnapshotFromRecord(r *TransactionRecord) *AuthorizeSnapshot {
	return &AuthorizeSnapshot{
		PaymentID:             r.PaymentID,
		ClientReferenceNumber: r.ClientReferenceNumber,
		GroupID:               r.GroupID,
		TransactionStatus:     r.TransactionStatus,
		AuthorizedAmount:      r.AuthorizedAmount,
		GatewayChainID:        r.GatewayChainID,
		CardLastFour:          r.CardLastFour,
		Currency:              r.Currency,
		AuthorizedAt:          r.UpdatedAt,
	}
}
