package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
)

func authorizeRequest() *Request {
	return &Request{
		ClientReferenceNumber: "ORDER-1001",
		GroupID:               "G1",
		Amount:                amt("100.00"),
		Tender:                testTender(),
		Routing:               testRouting(),
	}
}

func TestAuthorizeSuccess(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)
	markerKey := "authorize:ORDER-1001G1"

	f.markers.On("GetMarker", mock.Anything, markerKey).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, "ORDER-1001", "G1").Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000001", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, markerKey, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Return(approvedResult(amt("100.00")), nil)
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(true, nil)
	f.snapshots.On("PutSnapshot", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("DeleteMarker", mock.Anything, markerKey).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	result, err := p.Process(context.Background(), authorizeRequest())

	require.NoError(t, err)
	assert.Equal(t, "PAY000000000000001", result.PaymentID)
	assert.Equal(t, entity.StatusSuccess, result.TransactionStatus)
	assert.True(t, result.AuthorizedAmount.Equal(amt("100.00")))
	assert.Equal(t, "1111", result.CardLastFour)

	f.markers.AssertCalled(t, "DeleteMarker", mock.Anything, markerKey)
	f.snapshots.AssertCalled(t, "PutSnapshot", mock.Anything, mock.MatchedBy(func(s *entity.AuthorizeSnapshot) bool {
		return s.PaymentID == "PAY000000000000001" && !s.IsCaptured && !s.IsVoided
	}))
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestAuthorizeRejectsInFlightDuplicate(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, "authorize:ORDER-1001G1").
		Return(&entity.InFlightMarker{TransactionStatus: entity.StatusInProcess, Amount: amt("100.00")}, nil)

	_, err := p.Process(context.Background(), authorizeRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateRequest)
	f.ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestAuthorizeProceedsWhenMarkerAmountDiffers(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).
		Return(&entity.InFlightMarker{TransactionStatus: entity.StatusInProcess, Amount: amt("55.00")}, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000002", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Return(approvedResult(amt("100.00")), nil)
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(true, nil)
	f.snapshots.On("PutSnapshot", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	result, err := p.Process(context.Background(), authorizeRequest())

	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, result.TransactionStatus)
}

func TestAuthorizeRejectsLedgerDuplicate(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	existing := entity.NewTransactionRecord("PAYOLD", entity.TypeAuthorize,
		"ORDER-1001", amt("100.00"), testRouting(), f.clock.Now())
	existing.TransactionStatus = entity.StatusSuccess

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, "ORDER-1001", "G1").Return(existing, nil)

	_, err := p.Process(context.Background(), authorizeRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateAuthorize)
	assert.Equal(t, errs.ReasonDuplicateRequest, errs.Reason(err))
}

func TestAuthorizeRejectsExpiredCard(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	req := authorizeRequest()
	req.Tender.ExpiryMonth = 1
	req.Tender.ExpiryYear = 2024

	_, err := p.Process(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrExpiredCard)
	f.idGen.AssertNotCalled(t, "GenerateUniqueID")
}

func TestAuthorizeDeclineIsNotAnError(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000003", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Return(declinedResult(), nil)
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(true, nil)
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	result, err := p.Process(context.Background(), authorizeRequest())

	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailure, result.TransactionStatus)
	assert.True(t, result.AuthorizedAmount.IsZero())
	// No snapshot for a declined authorize.
	f.snapshots.AssertNotCalled(t, "PutSnapshot", mock.Anything, mock.Anything)
	f.markers.AssertCalled(t, "DeleteMarker", mock.Anything, mock.Anything)
}

func TestAuthorizeCompensatesOnPersistFailureAfterApproval(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000004", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(false, errors.New("connection lost"))
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	// First invoke approves the authorize; second is the compensating void.
	f.gateway.On("Invoke", mock.Anything, mock.MatchedBy(func(req *entity.GatewayRequest) bool {
		return req.RouterFunction == entity.TypeAuthorize
	})).Return(approvedResult(amt("100.00")), nil).Once()
	f.gateway.On("Invoke", mock.Anything, mock.MatchedBy(func(req *entity.GatewayRequest) bool {
		return req.RouterFunction == entity.TypeVoid
	})).Return(approvedResult(amt("100.00")), nil).Once()

	_, err := p.Process(context.Background(), authorizeRequest())

	require.Error(t, err)
	assert.True(t, errs.IsReconciliationRisk(err))

	var pf *errs.PersistenceFailure
	require.ErrorAs(t, err, &pf)
	assert.True(t, pf.GatewaySucceeded)
	assert.True(t, pf.Compensated)

	f.gateway.AssertNumberOfCalls(t, "Invoke", 2)
	f.markers.AssertCalled(t, "DeleteMarker", mock.Anything, mock.Anything)
}

func TestAuthorizeGatewayErrorFailsPendingRowAndCleansMarker(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000005", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Return(nil, &errs.GatewayError{
		Operation:  "AUTHORIZE",
		HTTPStatus: 503,
		Attempts:   4,
		Kind:       errs.ErrRetryExceeded,
	})
	f.ledger.On("Finalize", mock.Anything, mock.MatchedBy(func(r *entity.TransactionRecord) bool {
		return r.TransactionStatus == entity.StatusFailure
	})).Return(true, nil)
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	_, err := p.Process(context.Background(), authorizeRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRetryExceeded)
	f.ledger.AssertCalled(t, "Finalize", mock.Anything, mock.Anything)
	f.markers.AssertCalled(t, "DeleteMarker", mock.Anything, mock.Anything)
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestAuthorizeLosesFinalizeRaceOnCancellation(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	ctx, cancel := context.WithCancel(context.Background())

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000006", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(approvedResult(amt("100.00")), nil)
	// Another path already finalized the row; this write affects no rows.
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(false, nil)
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	_, err := p.Process(ctx, authorizeRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	f.markers.AssertCalled(t, "DeleteMarker", mock.Anything, mock.Anything)
}

func TestAuthorizeFinalizeConflictWithoutCancellationIsAnError(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	f.markers.On("GetMarker", mock.Anything, mock.Anything).Return(nil, nil)
	f.ledger.On("FindSuccessfulAuthorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.idGen.On("GenerateUniqueID").Return("PAY000000000000007", nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.markers.On("CreateMarker", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Invoke", mock.Anything, mock.Anything).Return(approvedResult(amt("100.00")), nil)
	// Zero rows updated with a live caller: some other writer finalized the row.
	f.ledger.On("Finalize", mock.Anything, mock.Anything).Return(false, nil)
	f.markers.On("DeleteMarker", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	result, err := p.Process(context.Background(), authorizeRequest())

	// The caller must never see a nil result with a nil error.
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errs.ErrPersistence)
}

func TestAuthorizeValidatesRequest(t *testing.T) {
	f := newFixtures()
	p := NewAuthorizeProcessor(f.base)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing client reference", func(r *Request) { r.ClientReferenceNumber = "" }},
		{"zero amount", func(r *Request) { r.Amount = amt("0") }},
		{"negative amount", func(r *Request) { r.Amount = amt("-5.00") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authorizeRequest()
			tt.mutate(req)
			_, err := p.Process(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrInvalidRequest)
		})
	}
}
