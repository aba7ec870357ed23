package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// Transaction is the gorm model for one ledger row
type Transaction struct {
	ID                    uint            `gorm:"primaryKey;autoIncrement"`
	PaymentID             string          `gorm:"column:payment_id;size:32;uniqueIndex;not null"`
	ClientReferenceNumber string          `gorm:"column:client_reference_number;size:64;index:idx_client_ref_group"`
	GroupID               string          `gorm:"column:group_id;size:64;index:idx_client_ref_group"`
	ReferenceID           string          `gorm:"column:reference_id;size:32;index"`
	TransactionType       string          `gorm:"column:transaction_type;size:16;not null"`
	TransactionStatus     string          `gorm:"column:transaction_status;size:16;not null"`
	Amount                decimal.Decimal `gorm:"column:amount;type:numeric(19,4)"`
	AuthorizedAmount      decimal.Decimal `gorm:"column:authorized_amount;type:numeric(19,4)"`

	GatewayID          string `gorm:"column:gateway_id;size:64"`
	GatewayChainID     string `gorm:"column:gateway_chain_id;size:64"`
	ResponseCode       string `gorm:"column:response_code;size:8"`
	ReasonCode         string `gorm:"column:reason_code;size:16"`
	ReasonDescription  string `gorm:"column:reason_description;size:256"`
	RetrievalReference string `gorm:"column:retrieval_reference;size:64"`
	AVSResult          string `gorm:"column:avs_result;size:8"`
	CVVResponseCode    string `gorm:"column:cvv_response_code;size:8"`
	DeferredAuth       bool   `gorm:"column:deferred_auth"`
	AuthSource         string `gorm:"column:auth_source;size:16"`

	CardLastFour string `gorm:"column:card_last_four;size:4"`
	CardIssuer   string `gorm:"column:card_issuer;size:32"`
	TenderType   string `gorm:"column:tender_type;size:16"`
	Currency     string `gorm:"column:currency;size:3"`

	Source        string `gorm:"column:source;size:32"`
	Channel       string `gorm:"column:channel;size:32"`
	JourneyID     string `gorm:"column:journey_id;size:64"`
	CorrelationID string `gorm:"column:correlation_id;size:64"`
	TransactionID string `gorm:"column:transaction_id;size:64"`
	ClientID      string `gorm:"column:client_id;size:64"`
	SessionID     string `gorm:"column:session_id;size:64"`
	MgmID         string `gorm:"column:mgm_id;size:64"`

	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	CreatedBy string    `gorm:"column:created_by;size:64"`
}

// TableName overrides the gorm default
func (Transaction) TableName() string {
	return "payment_transactions"
}

// FromEntity maps a domain record onto the gorm model
func FromEntity(r *entity.TransactionRecord) *Transaction {
	return &Transaction{
		PaymentID:             r.PaymentID,
		ClientReferenceNumber: r.ClientReferenceNumber,
		GroupID:               r.GroupID,
		ReferenceID:           r.ReferenceID,
		TransactionType:       string(r.TransactionType),
		TransactionStatus:     string(r.TransactionStatus),
		Amount:                r.Amount,
		AuthorizedAmount:      r.AuthorizedAmount,
		GatewayID:             r.GatewayID,
		GatewayChainID:        r.GatewayChainID,
		ResponseCode:          r.ResponseCode,
		ReasonCode:            r.ReasonCode,
		ReasonDescription:     r.ReasonDescription,
		RetrievalReference:    r.RetrievalReference,
		AVSResult:             r.AVSResult,
		CVVResponseCode:       r.CVVResponseCode,
		DeferredAuth:          r.DeferredAuth,
		AuthSource:            r.AuthSource,
		CardLastFour:          r.CardLastFour,
		CardIssuer:            r.CardIssuer,
		TenderType:            r.TenderType,
		Currency:              r.Currency,
		Source:                r.Routing.Source,
		Channel:               r.Routing.Channel,
		JourneyID:             r.Routing.JourneyID,
		CorrelationID:         r.Routing.CorrelationID,
		TransactionID:         r.Routing.TransactionID,
		ClientID:              r.Routing.ClientID,
		SessionID:             r.Routing.SessionID,
		MgmID:                 r.Routing.MgmID,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		CreatedBy:             r.CreatedBy,
	}
}

// ToEntity maps the gorm model back to the domain record
func (m *Transaction) ToEntity() *entity.TransactionRecord {
	return &entity.TransactionRecord{
		PaymentID:             m.PaymentID,
		ClientReferenceNumber: m.ClientReferenceNumber,
		GroupID:               m.GroupID,
		ReferenceID:           m.ReferenceID,
		TransactionType:       entity.TransactionType(m.TransactionType),
		TransactionStatus:     entity.TransactionStatus(m.TransactionStatus),
		Amount:                m.Amount,
		AuthorizedAmount:      m.AuthorizedAmount,
		GatewayID:             m.GatewayID,
		GatewayChainID:        m.GatewayChainID,
		ResponseCode:          m.ResponseCode,
		ReasonCode:            m.ReasonCode,
		ReasonDescription:     m.ReasonDescription,
		RetrievalReference:    m.RetrievalReference,
		AVSResult:             m.AVSResult,
		CVVResponseCode:       m.CVVResponseCode,
		DeferredAuth:          m.DeferredAuth,
		AuthSource:            m.AuthSource,
		CardLastFour:          m.CardLastFour,
		CardIssuer:            m.CardIssuer,
		TenderType:            m.TenderType,
		Currency:              m.Currency,
		Routing: entity.RoutingContext{
			Source:        m.Source,
			Channel:       m.Channel,
			JourneyID:     m.JourneyID,
			CorrelationID: m.CorrelationID,
			TransactionID: m.TransactionID,
			ClientID:      m.ClientID,
			SessionID:     m.SessionID,
			MgmID:         m.MgmID,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		CreatedBy: m.CreatedBy,
	}
}
