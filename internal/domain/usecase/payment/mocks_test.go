package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/audit"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/core"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Create(ctx context.Context, record *entity.TransactionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockLedger) Finalize(ctx context.Context, record *entity.TransactionRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) GetByPaymentID(ctx context.Context, paymentID string) (*entity.TransactionRecord, error) {
	args := m.Called(ctx, paymentID)
	if rec := args.Get(0); rec != nil {
		return rec.(*entity.TransactionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) FindSuccessfulAuthorize(ctx context.Context, clientReferenceNumber, groupID string) (*entity.TransactionRecord, error) {
	args := m.Called(ctx, clientReferenceNumber, groupID)
	if rec := args.Get(0); rec != nil {
		return rec.(*entity.TransactionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) FindByReference(ctx context.Context, referenceID string, types []entity.TransactionType) ([]*entity.TransactionRecord, error) {
	args := m.Called(ctx, referenceID, types)
	if recs := args.Get(0); recs != nil {
		return recs.([]*entity.TransactionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) HasSuccessfulCapture(ctx context.Context, clientReferenceNumber string) (bool, error) {
	args := m.Called(ctx, clientReferenceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) SumCapturedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error) {
	args := m.Called(ctx, clientReferenceNumber)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockLedger) SumRefundedAmount(ctx context.Context, clientReferenceNumber string) (decimal.Decimal, error) {
	args := m.Called(ctx, clientReferenceNumber)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockLedger) HasSameDayRefund(ctx context.Context, clientReferenceNumber string, amount decimal.Decimal, channel, cardLastFour string, day time.Time) (bool, error) {
	args := m.Called(ctx, clientReferenceNumber, amount, channel, cardLastFour, day)
	return args.Bool(0), args.Error(1)
}

type mockMarkerStore struct {
	mock.Mock
}

func (m *mockMarkerStore) GetMarker(ctx context.Context, key string) (*entity.InFlightMarker, error) {
	args := m.Called(ctx, key)
	if marker := args.Get(0); marker != nil {
		return marker.(*entity.InFlightMarker), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMarkerStore) CreateMarker(ctx context.Context, key string, marker *entity.InFlightMarker) error {
	args := m.Called(ctx, key, marker)
	return args.Error(0)
}

func (m *mockMarkerStore) DeleteMarker(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) GetSnapshot(ctx context.Context, authorizePaymentID string) (*entity.AuthorizeSnapshot, error) {
	args := m.Called(ctx, authorizePaymentID)
	if snap := args.Get(0); snap != nil {
		return snap.(*entity.AuthorizeSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSnapshotStore) PutSnapshot(ctx context.Context, snapshot *entity.AuthorizeSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockSnapshotStore) MarkCaptured(ctx context.Context, authorizePaymentID string) error {
	args := m.Called(ctx, authorizePaymentID)
	return args.Error(0)
}

func (m *mockSnapshotStore) MarkVoided(ctx context.Context, authorizePaymentID string) error {
	args := m.Called(ctx, authorizePaymentID)
	return args.Error(0)
}

func (m *mockSnapshotStore) MarkRefunded(ctx context.Context, authorizePaymentID string) error {
	args := m.Called(ctx, authorizePaymentID)
	return args.Error(0)
}

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) Invoke(ctx context.Context, req *entity.GatewayRequest) (*entity.GatewayResult, error) {
	args := m.Called(ctx, req)
	if result := args.Get(0); result != nil {
		return result.(*entity.GatewayResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

type mockIDGenerator struct {
	mock.Mock
}

func (m *mockIDGenerator) NextID() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockIDGenerator) GenerateUniqueID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// stubClock is a fixed-time TimeProvider
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time                  { return c.now }
func (c *stubClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c *stubClock) Sleep(d time.Duration)           {}
func (c *stubClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

type nopLogger struct{}

func (nopLogger) SetLevel(core.LogLevel)              {}
func (nopLogger) GetLevel() core.LogLevel             { return core.LogLevelInfo }
func (nopLogger) Debug(string, map[string]any)        {}
func (nopLogger) Info(string, map[string]any)         {}
func (nopLogger) Warn(string, map[string]any)         {}
func (nopLogger) Error(string, map[string]any)        {}
func (nopLogger) Flush() error                        { return nil }

// fixtures bundles a processor set wired to mocks
type fixtures struct {
	ledger    *mockLedger
	markers   *mockMarkerStore
	snapshots *mockSnapshotStore
	gateway   *mockGatewayClient
	publisher *mockPublisher
	idGen     *mockIDGenerator
	clock     *stubClock
	base      *base
}

func newFixtures() *fixtures {
	f := &fixtures{
		ledger:    &mockLedger{},
		markers:   &mockMarkerStore{},
		snapshots: &mockSnapshotStore{},
		gateway:   &mockGatewayClient{},
		publisher: &mockPublisher{},
		idGen:     &mockIDGenerator{},
		clock:     &stubClock{now: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
	}
	logger := nopLogger{}
	f.base = &base{
		ledger:       f.ledger,
		markers:      f.markers,
		snapshots:    f.snapshots,
		gateway:      f.gateway,
		publisher:    f.publisher,
		idGen:        f.idGen,
		timeProvider: f.clock,
		logger:       logger,
		compensator:  NewCompensator(f.gateway, f.clock, logger),
	}
	return f
}

func approvedResult(amount decimal.Decimal) *entity.GatewayResult {
	return &entity.GatewayResult{
		ResponseCode:     entity.ResponseCodeApproved,
		AuthorizedAmount: amount,
		GatewayID:        "gw-1",
		GatewayChainID:   "chain-1",
	}
}

func declinedResult() *entity.GatewayResult {
	return &entity.GatewayResult{
		ResponseCode:      "D",
		ReasonCode:        "201",
		ReasonDescription: "insufficient funds",
	}
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRouting() entity.RoutingContext {
	return entity.RoutingContext{
		Source:        "web",
		Channel:       "online",
		JourneyID:     "journey-1",
		CorrelationID: "corr-1",
		TransactionID: "tx-1",
		ClientID:      "client-1",
	}
}

func testTender() entity.Tender {
	return entity.Tender{
		CardNumber:  "4111111111111111",
		CVV:         "123",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		Issuer:      "VISA",
		TenderType:  "CREDIT",
		Currency:    "USD",
	}
}
