package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	gatewayport "github.com/lunapay/payment-orchestrator/internal/domain/port/gateway"
)

// Config holds the gateway client settings
type Config struct {
	BaseURL        string
	RoutePath      string
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultConfig returns the gateway client defaults
func DefaultConfig() Config {
	return Config{
		RoutePath:      "/route",
		RequestTimeout: 10 * time.Second,
		MaxAttempts:    4,
		RetryBaseDelay: 200 * time.Millisecond,
		RetryMaxDelay:  5 * time.Second,
	}
}

// Statuses worth another attempt. Everything else fails fast.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// Client is the HTTP client for the payment router. Retries are handled here;
// callers see at most one result per invocation.
type Client struct {
	httpClient   *http.Client
	config       Config
	tokens       coreport.TokenSource
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

var _ gatewayport.Client = (*Client)(nil)

// NewClient creates a gateway client
func NewClient(
	config Config,
	tokens coreport.TokenSource,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Client {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		config:       config,
		tokens:       tokens,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Invoke sends one router request, retrying transient faults with exponential
// backoff. On exhaustion the last fault is wrapped as ErrRetryExceeded.
func (c *Client) Invoke(ctx context.Context, req *entity.GatewayRequest) (*entity.GatewayResult, error) {
	body, err := json.Marshal(toRouterRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	operation := string(req.RouterFunction)
	var lastErr *errs.GatewayError

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, gwErr := c.send(ctx, operation, body, req.Routing, attempt)
		if gwErr == nil {
			return result, nil
		}
		lastErr = gwErr

		if gwErr.Kind != errs.ErrTransientGateway {
			c.logger.Warn("Gateway fault is terminal, not retrying", gwErr.LogFields())
			return nil, gwErr
		}
		if attempt == c.config.MaxAttempts {
			break
		}

		delay := c.backoffDelay(attempt)
		c.logger.Warn("Transient gateway fault, backing off", map[string]any{
			"operation":   operation,
			"attempt":     attempt,
			"http_status": gwErr.HTTPStatus,
			"delay_ms":    delay.Milliseconds(),
		})
		c.timeProvider.Sleep(delay)
	}

	lastErr.Kind = errs.ErrRetryExceeded
	c.logger.Error("Gateway retries exhausted", lastErr.LogFields())
	return nil, lastErr
}

// send performs a single HTTP exchange
func (c *Client) send(
	ctx context.Context,
	operation string,
	body []byte,
	routing entity.RoutingContext,
	attempt int,
) (*entity.GatewayResult, *errs.GatewayError) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &errs.GatewayError{
			Operation: operation,
			Message:   fmt.Sprintf("token acquisition failed: %v", err),
			Attempts:  attempt,
			Kind:      errs.ErrTransientGateway,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+c.config.RoutePath, bytes.NewReader(body))
	if err != nil {
		return nil, &errs.GatewayError{
			Operation: operation,
			Message:   err.Error(),
			Attempts:  attempt,
			Kind:      errs.ErrTerminalGateway,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("x-source", routing.Source)
	httpReq.Header.Set("x-channel", routing.Channel)
	httpReq.Header.Set("x-journey-id", routing.JourneyID)
	httpReq.Header.Set("x-correlation-id", routing.CorrelationID)
	httpReq.Header.Set("x-transaction-id", routing.TransactionID)
	httpReq.Header.Set("x-client-id", routing.ClientID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport faults (timeouts, connection resets) are retryable unless
		// the caller is gone.
		if ctx.Err() != nil {
			return nil, &errs.GatewayError{
				Operation: operation,
				Message:   err.Error(),
				Attempts:  attempt,
				Kind:      errs.ErrTerminalGateway,
			}
		}
		return nil, &errs.GatewayError{
			Operation: operation,
			Message:   err.Error(),
			Attempts:  attempt,
			Kind:      errs.ErrTransientGateway,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &errs.GatewayError{
			Operation:  operation,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Attempts:   attempt,
			Kind:       errs.ErrTransientGateway,
		}
	}

	if resp.StatusCode == http.StatusOK {
		var routerResp routerResponse
		if err := json.Unmarshal(respBody, &routerResp); err != nil {
			return nil, &errs.GatewayError{
				Operation:  operation,
				HTTPStatus: resp.StatusCode,
				Message:    fmt.Sprintf("malformed response body: %v", err),
				Attempts:   attempt,
				Kind:       errs.ErrTerminalGateway,
			}
		}
		return toGatewayResult(&routerResp), nil
	}

	var errBody routerErrorBody
	_ = json.Unmarshal(respBody, &errBody)

	kind := errs.ErrTerminalGateway
	if isRetryable(resp.StatusCode, errBody.ErrorCode) {
		kind = errs.ErrTransientGateway
	}
	return nil, &errs.GatewayError{
		Operation:   operation,
		HTTPStatus:  resp.StatusCode,
		GatewayCode: errBody.ErrorCode,
		Message:     errBody.Message,
		Attempts:    attempt,
		Kind:        kind,
	}
}

// isRetryable decides whether a failed HTTP status deserves another attempt.
// A router error code ending in an odd digit marks a final decision and
// downgrades an otherwise retryable status, except on 504 where the router
// never saw the request through and the code is untrustworthy.
func isRetryable(status int, errorCode string) bool {
	if !retryableStatuses[status] {
		return false
	}
	if status == http.StatusGatewayTimeout {
		return true
	}
	if isFinalDecision(errorCode) {
		return false
	}
	return true
}

func isFinalDecision(errorCode string) bool {
	if errorCode == "" {
		return false
	}
	last := errorCode[len(errorCode)-1]
	return last >= '0' && last <= '9' && (last-'0')%2 == 1
}

// backoffDelay doubles the base per attempt, capped, with up to 20% jitter so
// concurrent retries spread out
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.config.RetryBaseDelay << uint(attempt-1)
	if delay > c.config.RetryMaxDelay {
		delay = c.config.RetryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}
