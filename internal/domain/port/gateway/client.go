package gateway

import (
	"context"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
)

// Client invokes the external payment gateway with bounded retry.
//
// Transient faults (HTTP 408, 425, 429, 500, 502, 503, 504 and transport
// timeouts) are retried internally with exponential backoff; a structured
// error body whose code signals a final decision downgrades the fault to
// terminal, except on 504 which is always retried. Exhaustion surfaces as
// ErrRetryExceeded carrying the last observed error.
type Client interface {
	Invoke(ctx context.Context, request *entity.GatewayRequest) (*entity.GatewayResult, error)
}
