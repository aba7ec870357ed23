package payment

import (
	"context"
	"net/http"

	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/audit"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	gatewayport "github.com/lunapay/payment-orchestrator/internal/domain/port/gateway"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/persistence"
)

// Service is the orchestration entry point: one processor per operation over a
// shared collaborator set
type Service struct {
	authorize *AuthorizeProcessor
	capture   *CaptureProcessor
	refund    *RefundProcessor
	void      *VoidProcessor
	logger    coreport.Logger
}

// NewService wires the four processors
func NewService(
	ledger persistence.LedgerRepository,
	markers persistence.MarkerStore,
	snapshots persistence.SnapshotStore,
	gw gatewayport.Client,
	publisher audit.Publisher,
	idGen coreport.IDGenerator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	b := &base{
		ledger:       ledger,
		markers:      markers,
		snapshots:    snapshots,
		gateway:      gw,
		publisher:    publisher,
		idGen:        idGen,
		timeProvider: timeProvider,
		logger:       logger,
		compensator:  NewCompensator(gw, timeProvider, logger),
	}
	return &Service{
		authorize: NewAuthorizeProcessor(b),
		capture:   NewCaptureProcessor(b),
		refund:    NewRefundProcessor(b),
		void:      NewVoidProcessor(b),
		logger:    logger,
	}
}

// Authorize reserves funds against a tender
func (s *Service) Authorize(ctx context.Context, req *Request) (*TransactionResult, error) {
	return s.authorize.Process(ctx, req)
}

// Capture converts a prior authorization into a charge
func (s *Service) Capture(ctx context.Context, req *Request) (*TransactionResult, error) {
	return s.capture.Process(ctx, req)
}

// Refund returns previously captured funds
func (s *Service) Refund(ctx context.Context, req *Request) (*TransactionResult, error) {
	return s.refund.Process(ctx, req)
}

// Void cancels an authorization before capture
func (s *Service) Void(ctx context.Context, req *Request) (*TransactionResult, error) {
	return s.void.Process(ctx, req)
}

// HTTPStatus maps a processing error onto the transport status surfaced to the
// caller. Precondition failures are 412; gateway faults that exhausted retries
// or were terminal are 502; local bookkeeping failures are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errs.IsValidationError(err):
		return http.StatusPreconditionFailed
	case errs.IsGatewayError(err):
		return http.StatusBadGateway
	case errs.IsReconciliationRisk(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
