package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 41xx - Validation / precondition failures
	CodeDuplicateRequest      = 4101
	CodeMissingAuthorize      = 4102
	CodeCaptureAmountMismatch = 4103
	CodeAlreadyCaptured       = 4104
	CodeAlreadyVoided         = 4105
	CodeRefundExceedsCaptured = 4106
	CodeMissingCapture        = 4107
	CodeExpiredCard           = 4108
	CodeInvalidRequest        = 4109
	CodeDuplicateAuthorize    = 4110

	// 42xx - Gateway failures
	CodeGatewayRetryExceeded = 4201
	CodeGatewayDeclined      = 4202

	// 51xx - Local bookkeeping failures
	CodePersistence        = 5101
	CodeReconciliationRisk = 5102

	// 5000 - Anything uncaught
	CodeInternalServer = 5000
)

// Stable error code strings surfaced to callers alongside the numeric code.
const (
	ReasonDuplicateRequest      = "DUPLICATE_REQUEST"
	ReasonMissingAuthorize      = "AUTH_NOT_FOUND"
	ReasonCaptureAmountMismatch = "CAPTURE_AUTH_AMOUNT_MISMATCH"
	ReasonAlreadyCaptured       = "AUTH_ALREADY_CAPTURED"
	ReasonAlreadyVoided         = "AUTH_ALREADY_VOIDED"
	ReasonRefundExceedsCaptured = "REFUND_EXCEEDS_CAPTURED"
	ReasonMissingCapture        = "CAPTURE_NOT_FOUND"
	ReasonExpiredCard           = "CARD_EXPIRED"
	ReasonInvalidRequest        = "INVALID_REQUEST"
)

// Base error types
var (
	// ErrDuplicateRequest is returned when an identical request is already in flight
	// or has already been processed for the same business key
	ErrDuplicateRequest = errors.New("duplicate request for business key")

	// ErrDuplicateAuthorize is returned when a successful authorize already exists
	// for the requested payment id
	ErrDuplicateAuthorize = errors.New("authorize already processed")

	// ErrMissingAuthorize is returned when capture/refund/void cannot find a
	// successful authorize to reference
	ErrMissingAuthorize = errors.New("no successful authorize found for reference")

	// ErrCaptureAmountMismatch is returned when the capture amount differs from the
	// authorized amount
	ErrCaptureAmountMismatch = errors.New("capture amount does not match authorized amount")

	// ErrAlreadyCaptured is returned when the referenced authorize has already been captured
	ErrAlreadyCaptured = errors.New("authorization already captured")

	// ErrAlreadyVoided is returned when the referenced authorize has already been voided
	ErrAlreadyVoided = errors.New("authorization already voided")

	// ErrRefundExceedsCaptured is returned when the refund amount exceeds the
	// remaining refundable balance
	ErrRefundExceedsCaptured = errors.New("refund amount exceeds refundable balance")

	// ErrMissingCapture is returned when a refund cannot find a successful capture
	ErrMissingCapture = errors.New("no successful capture found for client reference")

	// ErrExpiredCard is returned when the tender card is past its expiry
	ErrExpiredCard = errors.New("card is expired")

	// ErrInvalidRequest is returned when the request format is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTransientGateway marks a retryable gateway fault; retried internally and
	// never surfaced unless retries are exhausted
	ErrTransientGateway = errors.New("transient gateway error")

	// ErrRetryExceeded is returned when gateway retries are exhausted
	ErrRetryExceeded = errors.New("gateway retries exhausted")

	// ErrTerminalGateway is returned for a non-retryable gateway fault
	ErrTerminalGateway = errors.New("terminal gateway error")

	// ErrPersistence is returned when the ledger write failed while the gateway
	// result was not a success
	ErrPersistence = errors.New("ledger persistence failed")

	// ErrReconciliationRisk is returned when the ledger write failed after a
	// successful gateway response; a compensating void has been attempted
	ErrReconciliationRisk = errors.New("ledger persistence failed after gateway success")

	// ErrRecordNotFound is returned when a ledger row cannot be found
	ErrRecordNotFound = errors.New("transaction record not found")

	// ErrDatabaseConnection is returned when there's a problem talking to the ledger store
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrCacheUnavailable is returned when the marker cache cannot be reached
	ErrCacheUnavailable = errors.New("marker cache unavailable")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateRequest):
		return CodeDuplicateRequest
	case errors.Is(err, ErrDuplicateAuthorize):
		return CodeDuplicateAuthorize
	case errors.Is(err, ErrMissingAuthorize):
		return CodeMissingAuthorize
	case errors.Is(err, ErrCaptureAmountMismatch):
		return CodeCaptureAmountMismatch
	case errors.Is(err, ErrAlreadyCaptured):
		return CodeAlreadyCaptured
	case errors.Is(err, ErrAlreadyVoided):
		return CodeAlreadyVoided
	case errors.Is(err, ErrRefundExceedsCaptured):
		return CodeRefundExceedsCaptured
	case errors.Is(err, ErrMissingCapture):
		return CodeMissingCapture
	case errors.Is(err, ErrExpiredCard):
		return CodeExpiredCard
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrRetryExceeded):
		return CodeGatewayRetryExceeded
	case errors.Is(err, ErrTerminalGateway), errors.Is(err, ErrTransientGateway):
		return CodeGatewayDeclined
	case errors.Is(err, ErrReconciliationRisk):
		return CodeReconciliationRisk
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternalServer
	}
}

// IsValidationError reports whether err belongs to the precondition-failure
// family surfaced as HTTP 412
func IsValidationError(err error) bool {
	return errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrDuplicateAuthorize) ||
		errors.Is(err, ErrMissingAuthorize) ||
		errors.Is(err, ErrCaptureAmountMismatch) ||
		errors.Is(err, ErrAlreadyCaptured) ||
		errors.Is(err, ErrAlreadyVoided) ||
		errors.Is(err, ErrRefundExceedsCaptured) ||
		errors.Is(err, ErrMissingCapture) ||
		errors.Is(err, ErrExpiredCard) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsGatewayError reports whether err originated at the payment gateway
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrTransientGateway) ||
		errors.Is(err, ErrTerminalGateway) ||
		errors.Is(err, ErrRetryExceeded)
}

// IsReconciliationRisk reports whether money may have moved without a local record
func IsReconciliationRisk(err error) bool {
	return errors.Is(err, ErrReconciliationRisk)
}

// DuplicateRequestError provides detail about a rejected duplicate submission
type DuplicateRequestError struct {
	Operation string
	MarkerKey string
	Amount    string
}

// Error implements the error interface
func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("duplicate %s request detected for key %s (amount: %s)",
		e.Operation, e.MarkerKey, e.Amount)
}

// Is checks if the target error is an ErrDuplicateRequest
func (e *DuplicateRequestError) Is(target error) bool {
	return target == ErrDuplicateRequest
}

// LogFields returns a map of fields for structured logging
func (e *DuplicateRequestError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "duplicate_request",
		"operation":  e.Operation,
		"marker_key": e.MarkerKey,
		"amount":     e.Amount,
		"error_code": CodeDuplicateRequest,
	}
}

// NewDuplicateRequestError creates a new detailed duplicate request error
func NewDuplicateRequestError(operation, markerKey, amount string) error {
	return &DuplicateRequestError{
		Operation: operation,
		MarkerKey: markerKey,
		Amount:    amount,
	}
}

// GatewayError carries the origin detail of a gateway fault. The kind sentinel
// decides retry behavior: ErrTransientGateway is retried, ErrTerminalGateway
// and ErrRetryExceeded propagate immediately.
type GatewayError struct {
	Operation   string
	HTTPStatus  int
	GatewayCode string
	Message     string
	Attempts    int
	Kind        error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed (status: %d, code: %s, attempts: %d): %s",
		e.Operation, e.HTTPStatus, e.GatewayCode, e.Attempts, e.Message)
}

// Unwrap returns the kind sentinel
func (e *GatewayError) Unwrap() error {
	return e.Kind
}

// LogFields returns a map of fields for structured logging
func (e *GatewayError) LogFields() map[string]any {
	return map[string]any{
		"error_type":   "gateway_error",
		"operation":    e.Operation,
		"http_status":  e.HTTPStatus,
		"gateway_code": e.GatewayCode,
		"attempts":     e.Attempts,
		"error_code":   ErrorCode(e.Kind),
	}
}

// PersistenceFailure carries detail about a failed ledger write.
// GatewaySucceeded escalates the kind to ReconciliationRisk; Compensated
// reports whether a corrective void was issued against the gateway.
type PersistenceFailure struct {
	PaymentID        string
	Operation        string
	GatewaySucceeded bool
	Compensated      bool
	Err              error
}

// Error implements the error interface
func (e *PersistenceFailure) Error() string {
	if e.GatewaySucceeded {
		suffix := "no compensating void issued"
		if e.Compensated {
			suffix = "compensating void issued"
		}
		return fmt.Sprintf("ledger write failed for %s %s after gateway success (%s): %v",
			e.Operation, e.PaymentID, suffix, e.Err)
	}
	return fmt.Sprintf("ledger write failed for %s %s: %v", e.Operation, e.PaymentID, e.Err)
}

// Unwrap returns the taxonomy sentinel
func (e *PersistenceFailure) Unwrap() error {
	if e.GatewaySucceeded {
		return ErrReconciliationRisk
	}
	return ErrPersistence
}

// LogFields returns a map of fields for structured logging
func (e *PersistenceFailure) LogFields() map[string]any {
	return map[string]any{
		"error_type":        "persistence_failure",
		"payment_id":        e.PaymentID,
		"operation":         e.Operation,
		"gateway_succeeded": e.GatewaySucceeded,
		"compensated":       e.Compensated,
		"error":             e.Err.Error(),
	}
}

// ValidationDetail pairs a validation sentinel with the stable reason string
// surfaced to the caller
type ValidationDetail struct {
	Reason  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationDetail) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying sentinel
func (e *ValidationDetail) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *ValidationDetail) LogFields() map[string]any {
	return map[string]any{
		"error_type": "validation_error",
		"reason":     e.Reason,
		"error_code": ErrorCode(e.Err),
	}
}

// NewValidationDetail wraps a validation sentinel with its caller-facing reason
func NewValidationDetail(err error, reason, message string) error {
	return &ValidationDetail{Reason: reason, Message: message, Err: err}
}

// Reason maps a validation error to its stable caller-facing reason string
func Reason(err error) string {
	var vd *ValidationDetail
	if errors.As(err, &vd) {
		return vd.Reason
	}
	switch {
	case errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrDuplicateAuthorize):
		return ReasonDuplicateRequest
	case errors.Is(err, ErrMissingAuthorize):
		return ReasonMissingAuthorize
	case errors.Is(err, ErrCaptureAmountMismatch):
		return ReasonCaptureAmountMismatch
	case errors.Is(err, ErrAlreadyCaptured):
		return ReasonAlreadyCaptured
	case errors.Is(err, ErrAlreadyVoided):
		return ReasonAlreadyVoided
	case errors.Is(err, ErrRefundExceedsCaptured):
		return ReasonRefundExceedsCaptured
	case errors.Is(err, ErrMissingCapture):
		return ReasonMissingCapture
	case errors.Is(err, ErrExpiredCard):
		return ReasonExpiredCard
	case errors.Is(err, ErrInvalidRequest):
		return ReasonInvalidRequest
	default:
		return ""
	}
}
