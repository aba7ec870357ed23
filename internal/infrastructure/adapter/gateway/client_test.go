package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/core"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) {
	return "test-token", nil
}

type fakeClock struct{}

func (fakeClock) Now() time.Time                  { return time.Now() }
func (fakeClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (fakeClock) Sleep(d time.Duration)           {}
func (fakeClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

type silentLogger struct{}

func (silentLogger) SetLevel(level core.LogLevel) {}
func (silentLogger) GetLevel() core.LogLevel      { return core.LogLevelError }
func (silentLogger) Debug(string, map[string]any) {}
func (silentLogger) Info(string, map[string]any)  {}
func (silentLogger) Warn(string, map[string]any)  {}
func (silentLogger) Error(string, map[string]any) {}
func (silentLogger) Flush() error                 { return nil }

func approvedBody(t *testing.T) []byte {
	t.Helper()
	resp := routerResponse{}
	resp.RouterResult = make([]routerResult, 1)
	resp.RouterResult[0].GatewayChainID = "chain-1"
	resp.RouterResult[0].GatewayResult.Transaction.ResponseCode = "A"
	resp.RouterResult[0].GatewayResult.Transaction.AuthorizedAmount = "100.00"
	resp.RouterResult[0].GatewayResult.Card.GatewayID = "gw-1"
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return body
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	return cfg
}

func testRequest() *entity.GatewayRequest {
	return &entity.GatewayRequest{
		RouterFunction: entity.TypeAuthorize,
		Amounts: []entity.AmountEntry{
			{Name: entity.AmountNameTotal, Value: decimal.RequireFromString("100.00")},
		},
		ClientReferenceNumber: "ORDER-1",
		MerchantReferenceCode: "PAY-1",
		Routing: entity.RoutingContext{
			Source:        "web",
			Channel:       "online",
			JourneyID:     "journey-1",
			CorrelationID: "corr-1",
			TransactionID: "tx-1",
			ClientID:      "client-1",
		},
	}
}

func TestInvokeRetriesTransientFaultsThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(approvedBody(t))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	result, err := c.Invoke(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "A", result.ResponseCode)
	assert.Equal(t, "chain-1", result.GatewayChainID)
	assert.True(t, result.AuthorizedAmount.Equal(decimal.RequireFromString("100.00")))
	// Three failures then one success; the caller saw exactly one result.
	assert.Equal(t, int32(4), hits.Load())
}

func TestInvokeExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRetryExceeded)
	assert.Equal(t, int32(4), hits.Load())

	var gwErr *errs.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.HTTPStatus)
}

func TestInvokeDoesNotRetryTerminalStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode":"00041200","message":"invalid account"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTerminalGateway)
	assert.Equal(t, int32(1), hits.Load())
}

func TestInvokeFinalDecisionCodeStopsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		// The trailing odd digit marks a final decision despite the 500.
		_, _ = w.Write([]byte(`{"errorCode":"00041201","message":"declined"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTerminalGateway)
	assert.Equal(t, int32(1), hits.Load())
}

func TestInvokeAlwaysRetries504(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
		// The code claims finality, but on a timeout the router never saw the
		// request through, so it is not trusted.
		_, _ = w.Write([]byte(`{"errorCode":"00041201","message":"timeout"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRetryExceeded)
	assert.Equal(t, int32(4), hits.Load())
}

func TestInvokeSendsAuthAndRoutingHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "web", r.Header.Get("x-source"))
		assert.Equal(t, "online", r.Header.Get("x-channel"))
		assert.Equal(t, "journey-1", r.Header.Get("x-journey-id"))
		assert.Equal(t, "corr-1", r.Header.Get("x-correlation-id"))
		assert.Equal(t, "tx-1", r.Header.Get("x-transaction-id"))
		assert.Equal(t, "client-1", r.Header.Get("x-client-id"))

		var req routerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AUTHORIZE", req.RouterFunction)
		assert.Equal(t, "PAY-1", req.MerchantReferenceCode)
		require.Len(t, req.Amount, 1)
		assert.Equal(t, "100.00", req.Amount[0].Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(approvedBody(t))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestInvokeClampsAttemptFloor(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 0

	c := NewClient(cfg, staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(context.Background(), testRequest())

	// A misconfigured attempt count still yields exactly one attempt and a
	// well-formed error.
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRetryExceeded)
	assert.Equal(t, int32(1), hits.Load())
}

func TestInvokeStopsWhenContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(testConfig(server.URL), staticTokens{}, fakeClock{}, silentLogger{})
	_, err := c.Invoke(ctx, testRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsFinalDecision(t *testing.T) {
	assert.True(t, isFinalDecision("00041201"))
	assert.True(t, isFinalDecision("9"))
	assert.False(t, isFinalDecision("00041200"))
	assert.False(t, isFinalDecision(""))
	assert.False(t, isFinalDecision("ABC"))
}
