package gateway

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// Wire DTOs for the payment router. Field names follow the router contract,
// not the domain model.

type routerRequest struct {
	RouterFunction        string        `json:"routerFunction"`
	Amount                []amountEntry `json:"amount"`
	ClientReferenceNumber string        `json:"clientReferenceNumber"`
	SessionID             string        `json:"sessionId,omitempty"`
	MgmID                 string        `json:"mgmId,omitempty"`
	GatewayID             string        `json:"gatewayId,omitempty"`
	GatewayChainID        string        `json:"gatewayChainId,omitempty"`
	Payment               *paymentBlock `json:"payment,omitempty"`
	MerchantReferenceCode string        `json:"merchantReferenceCode"`
}

type amountEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type paymentBlock struct {
	Card    cardBlock    `json:"card"`
	Billing billingBlock `json:"billing"`
}

type cardBlock struct {
	Number       string `json:"number"`
	SecurityCode string `json:"securityCode,omitempty"`
	ExpiryMonth  string `json:"expirationMonth"`
	ExpiryYear   string `json:"expirationYear"`
	Issuer       string `json:"issuer,omitempty"`
	TenderType   string `json:"tenderType,omitempty"`
	Currency     string `json:"currencyCode,omitempty"`
}

type billingBlock struct {
	Name       string `json:"name,omitempty"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type routerResponse struct {
	RouterResult []routerResult `json:"routerResult"`
}

type routerResult struct {
	GatewayChainID string `json:"gatewayChainId"`
	GatewayResult  struct {
		Transaction struct {
			ResponseCode       string `json:"responseCode"`
			ReasonCode         string `json:"reasonCode"`
			ReasonDescription  string `json:"reasonDescription"`
			RetrievalReference string `json:"retrievalReference"`
			AVSResult          string `json:"avsResult"`
			AuthorizedAmount   string `json:"authorizedAmount"`
			DeferredAuth       bool   `json:"deferredAuth"`
			AuthSource         string `json:"authSource"`
		} `json:"transaction"`
		Card struct {
			SecurityCodeResult string `json:"securityCodeResult"`
			GatewayID          string `json:"gatewayId"`
		} `json:"card"`
	} `json:"gatewayResult"`
}

type routerErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func toRouterRequest(req *entity.GatewayRequest) *routerRequest {
	out := &routerRequest{
		RouterFunction:        string(req.RouterFunction),
		ClientReferenceNumber: req.ClientReferenceNumber,
		SessionID:             req.SessionID,
		MgmID:                 req.MgmID,
		GatewayID:             req.GatewayID,
		GatewayChainID:        req.GatewayChainID,
		MerchantReferenceCode: req.MerchantReferenceCode,
	}
	for _, a := range req.Amounts {
		out.Amount = append(out.Amount, amountEntry{
			Name:  a.Name,
			Value: a.Value.StringFixed(2),
		})
	}
	if req.Payment.Tender.CardNumber != "" {
		t := req.Payment.Tender
		b := req.Payment.Billing
		out.Payment = &paymentBlock{
			Card: cardBlock{
				Number:       t.CardNumber,
				SecurityCode: t.CVV,
				ExpiryMonth:  strconv.Itoa(t.ExpiryMonth),
				ExpiryYear:   strconv.Itoa(t.ExpiryYear),
				Issuer:       t.Issuer,
				TenderType:   t.TenderType,
				Currency:     t.Currency,
			},
			Billing: billingBlock{
				Name:       b.Name,
				Street:     b.Street,
				City:       b.City,
				State:      b.State,
				PostalCode: b.PostalCode,
				Country:    b.Country,
			},
		}
	}
	return out
}

func toGatewayResult(resp *routerResponse) *entity.GatewayResult {
	if len(resp.RouterResult) == 0 {
		return &entity.GatewayResult{}
	}
	rr := resp.RouterResult[0]
	tx := rr.GatewayResult.Transaction

	authorized := decimal.Zero
	if tx.AuthorizedAmount != "" {
		if parsed, err := decimal.NewFromString(tx.AuthorizedAmount); err == nil {
			authorized = parsed
		}
	}

	return &entity.GatewayResult{
		ResponseCode:       tx.ResponseCode,
		ReasonCode:         tx.ReasonCode,
		ReasonDescription:  tx.ReasonDescription,
		RetrievalReference: tx.RetrievalReference,
		AVSResult:          tx.AVSResult,
		CVVResponseCode:    rr.GatewayResult.Card.SecurityCodeResult,
		GatewayID:          rr.GatewayResult.Card.GatewayID,
		GatewayChainID:     rr.GatewayChainID,
		AuthorizedAmount:   authorized,
		DeferredAuth:       tx.DeferredAuth,
		AuthSource:         tx.AuthSource,
	}
}
