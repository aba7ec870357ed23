package dto

import (
	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	"github.com/lunapay/payment-orchestrator/internal/domain/usecase/payment"
)

// PaymentRequest is the request body shared by the four payment endpoints.
// Which fields are required depends on the operation and is enforced by the
// processors.
type PaymentRequest struct {
	ClientReferenceNumber string          `json:"clientReferenceNumber"`
	GroupID               string          `json:"groupId"`
	ReferenceID           string          `json:"referenceId"`
	Amount                decimal.Decimal `json:"amount"`
	SessionID             string          `json:"sessionId"`
	MgmID                 string          `json:"mgmId"`
	Tender                *TenderDTO      `json:"tender,omitempty"`
	Billing               *BillingDTO     `json:"billing,omitempty"`
}

// TenderDTO carries the payment instrument. The raw card number and security
// code are forwarded to the gateway and never echoed back.
type TenderDTO struct {
	CardNumber   string `json:"cardNumber"`
	SecurityCode string `json:"securityCode"`
	ExpiryMonth  int    `json:"expiryMonth"`
	ExpiryYear   int    `json:"expiryYear"`
	Issuer       string `json:"issuer"`
	TenderType   string `json:"tenderType"`
	Currency     string `json:"currency"`
}

// BillingDTO carries the billing address attached to an authorize
type BillingDTO struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResponse is the caller-facing view of a terminal ledger row
type PaymentResponse struct {
	PaymentID          string `json:"paymentId"`
	ReferenceID        string `json:"referenceId,omitempty"`
	TransactionType    string `json:"transactionType"`
	TransactionStatus  string `json:"transactionStatus"`
	Amount             string `json:"amount"`
	AuthorizedAmount   string `json:"authorizedAmount"`
	ResponseCode       string `json:"responseCode,omitempty"`
	ReasonCode         string `json:"reasonCode,omitempty"`
	ReasonDescription  string `json:"reasonDescription,omitempty"`
	RetrievalReference string `json:"retrievalReference,omitempty"`
	AVSResult          string `json:"avsResult,omitempty"`
	CVVResponseCode    string `json:"cvvResponseCode,omitempty"`
	GatewayChainID     string `json:"gatewayChainId,omitempty"`
	CardLastFour       string `json:"cardLastFour,omitempty"`
	Currency           string `json:"currency,omitempty"`
}

// ToDomainRequest maps the DTO onto the processor request
func (r *PaymentRequest) ToDomainRequest(routing entity.RoutingContext) *payment.Request {
	routing.SessionID = r.SessionID
	routing.MgmID = r.MgmID

	req := &payment.Request{
		ClientReferenceNumber: r.ClientReferenceNumber,
		GroupID:               r.GroupID,
		ReferenceID:           r.ReferenceID,
		Amount:                r.Amount,
		Routing:               routing,
	}
	if r.Tender != nil {
		req.Tender = entity.Tender{
			CardNumber:  r.Tender.CardNumber,
			CVV:         r.Tender.SecurityCode,
			ExpiryMonth: r.Tender.ExpiryMonth,
			ExpiryYear:  r.Tender.ExpiryYear,
			Issuer:      r.Tender.Issuer,
			TenderType:  r.Tender.TenderType,
			Currency:    r.Tender.Currency,
		}
	}
	if r.Billing != nil {
		req.Billing = entity.Billing{
			Name:       r.Billing.Name,
			Street:     r.Billing.Street,
			City:       r.Billing.City,
			State:      r.Billing.State,
			PostalCode: r.Billing.PostalCode,
			Country:    r.Billing.Country,
		}
	}
	return req
}

// FromDomainResult maps a processor result onto the response DTO
func FromDomainResult(result *payment.TransactionResult) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:          result.PaymentID,
		ReferenceID:        result.ReferenceID,
		TransactionType:    string(result.TransactionType),
		TransactionStatus:  string(result.TransactionStatus),
		Amount:             result.Amount.StringFixed(2),
		AuthorizedAmount:   result.AuthorizedAmount.StringFixed(2),
		ResponseCode:       result.ResponseCode,
		ReasonCode:         result.ReasonCode,
		ReasonDescription:  result.ReasonDescription,
		RetrievalReference: result.RetrievalReference,
		AVSResult:          result.AVSResult,
		CVVResponseCode:    result.CVVResponseCode,
		GatewayChainID:     result.GatewayChainID,
		CardLastFour:       result.CardLastFour,
		Currency:           result.Currency,
	}
}
