package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/persistence"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/model"
)

// LedgerRepository is the gorm-backed system-of-record for transactions
type LedgerRepository struct {
	db     *gorm.DB
	logger coreport.Logger
}

var _ persistence.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a LedgerRepository
func NewLedgerRepository(db *gorm.DB, logger coreport.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, logger: logger}
}

// Create saves a new IN_PROCESS row
func (r *LedgerRepository) Create(ctx context.Context, record *entity.TransactionRecord) error {
	row := model.FromEntity(record)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return r.classify(err, "create", record.PaymentID)
	}
	return nil
}

// Finalize writes the terminal fields while the row is still IN_PROCESS.
// The WHERE clause makes the completion and cancellation paths race-safe:
// whichever writes first wins and the loser observes updated=false.
func (r *LedgerRepository) Finalize(ctx context.Context, record *entity.TransactionRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("payment_id = ? AND transaction_status = ?",
			record.PaymentID, string(entity.StatusInProcess)).
		Updates(map[string]any{
			"transaction_status":  string(record.TransactionStatus),
			"authorized_amount":   record.AuthorizedAmount,
			"gateway_id":          record.GatewayID,
			"gateway_chain_id":    record.GatewayChainID,
			"response_code":       record.ResponseCode,
			"reason_code":         record.ReasonCode,
			"reason_description":  record.ReasonDescription,
			"retrieval_reference": record.RetrievalReference,
			"avs_result":          record.AVSResult,
			"cvv_response_code":   record.CVVResponseCode,
			"deferred_auth":       record.DeferredAuth,
			"auth_source":         record.AuthSource,
			"updated_at":          record.UpdatedAt,
		})
	if result.Error != nil {
		return false, r.classify(result.Error, "finalize", record.PaymentID)
	}
	return result.RowsAffected > 0, nil
}

// GetByPaymentID retrieves a row by its payment id
func (r *LedgerRepository) GetByPaymentID(ctx context.Context, paymentID string) (*entity.TransactionRecord, error) {
	var row model.Transaction
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payment id %s", errs.ErrRecordNotFound, paymentID)
	}
	if err != nil {
		return nil, r.classify(err, "get", paymentID)
	}
	return row.ToEntity(), nil
}

// FindSuccessfulAuthorize looks up a SUCCESS authorize for the business key.
// Returns nil when none exists.
func (r *LedgerRepository) FindSuccessfulAuthorize(ctx context.Context, clientReferenceNumber, groupID string) (*entity.TransactionRecord, error) {
	var row model.Transaction
	err := r.db.WithContext(ctx).
		Where("client_reference_number = ? AND group_id = ? AND transaction_type = ? AND transaction_status = ?",
			clientReferenceNumber, groupID,
			string(entity.TypeAuthorize), string(entity.StatusSuccess)).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.classify(err, "find_authorize", clientReferenceNumber)
	}
	return row.ToEntity(), nil
}

// FindByReference returns all non-FAILURE rows of the given types pointing at
// the authorize payment id
func (r *LedgerRepository) FindByReference(ctx context.Context, referenceID string, types []entity.TransactionType) ([]*entity.TransactionRecord, error) {
	typeStrings := make([]string, 0, len(types))
	for _, t := range types {
		typeStrings = append(typeStrings, string(t))
	}

	var rows []model.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_id = ? AND transaction_type IN ? AND transaction_status <> ?",
			referenceID, typeStrings, string(entity.StatusFailure)).
		Find(&rows).Error
	if err != nil {
		return nil, r.classify(err, "find_by_reference", referenceID)
	}

	records := make([]*entity.TransactionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToEntity())
	}
	return records, nil
}

// HasSuccessfulCapture reports whether a SUCCESS capture exists for the client
// reference
func (r *LedgerRepository) HasSuccessfulCapture(ctx context.Context, clientReferenceNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("client_reference_number = ? AND transaction_type = ? AND transaction_status = ?",
			clientReferenceNumber, string(entity.TypeCapture), string(entity.StatusSuccess)).
		Count(&count).Error
	if err != nil {
		return false, r.classify(err, "has_capture", clientReferenceNumber)
	}
	return count > 0, nil
}

// SumCapturedAmount sums authorized amounts of SUCCESS captures
func (r *LedgerRepository) SumCapturedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error) {
	return r.sum(ctx, clientReferenceNumber, entity.TypeCapture, "authorized_amount")
}

// SumRefundedAmount sums amounts of SUCCESS refunds
func (r *LedgerRepository) SumRefundedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error) {
	return r.sum(ctx, clientReferenceNumber, entity.TypeRefund, "amount")
}

func (r *LedgerRepository) sum(ctx context.Context, clientReferenceNumber string, txType entity.TransactionType, column string) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM("+column+"), 0) AS total").
		Where("client_reference_number = ? AND transaction_type = ? AND transaction_status = ?",
			clientReferenceNumber, string(txType), string(entity.StatusSuccess)).
		Scan(&out).Error
	if err != nil {
		return decimal.Zero, r.classify(err, "sum_"+strings.ToLower(string(txType)), clientReferenceNumber)
	}
	return out.Total, nil
}

// HasSameDayRefund reports whether a non-FAILURE refund with identical amount,
// channel and card last-4 exists on the given day
func (r *LedgerRepository) HasSameDayRefund(ctx context.Context, clientReferenceNumber string, amount decimal.Decimal, channel, cardLastFour string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("client_reference_number = ? AND transaction_type = ? AND transaction_status <> ?",
			clientReferenceNumber, string(entity.TypeRefund), string(entity.StatusFailure)).
		Where("amount = ? AND channel = ? AND card_last_four = ?", amount, channel, cardLastFour).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return false, r.classify(err, "same_day_refund", clientReferenceNumber)
	}
	return count > 0, nil
}

// classify maps a gorm error onto the domain taxonomy
func (r *LedgerRepository) classify(err error, operation, key string) error {
	r.logger.Error("Ledger operation failed", map[string]any{
		"operation": operation,
		"key":       key,
		"error":     err.Error(),
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s %s", errs.ErrDuplicateRequest, operation, key)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %s %s: %v", errs.ErrDatabaseConnection, operation, key, err)
	}
	return fmt.Errorf("ledger %s failed for %s: %w", operation, key, err)
}

// isConnectionError spots driver-level connectivity faults by message; the
// postgres driver does not expose a stable sentinel for them
func isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "no such host")
}
