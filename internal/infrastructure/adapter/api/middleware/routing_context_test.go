package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/logger"
)

func routedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("x-source", "web")
	req.Header.Set("x-channel", "online")
	req.Header.Set("x-journey-id", "journey-1")
	req.Header.Set("x-correlation-id", "corr-1")
	req.Header.Set("x-transaction-id", "tx-1")
	req.Header.Set("x-client-id", "client-1")
	return req
}

func newTestRouter(captured *entity.RoutingContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireRoutingHeaders(logger.NewNoopLogger()))
	router.POST("/auth", func(c *gin.Context) {
		if captured != nil {
			*captured = RoutingFromContext(c)
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireRoutingHeadersPassesThrough(t *testing.T) {
	var routing entity.RoutingContext
	router := newTestRouter(&routing)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, routedRequest())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "web", routing.Source)
	assert.Equal(t, "corr-1", routing.CorrelationID)
	assert.Equal(t, "client-1", routing.ClientID)
}

func TestRequireRoutingHeadersRejectsMissingBearerToken(t *testing.T) {
	router := newTestRouter(nil)

	tests := []struct {
		name  string
		value string
	}{
		{"absent", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := routedRequest()
			req.Header.Set("Authorization", tt.value)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireRoutingHeadersRejectsMissingHeader(t *testing.T) {
	router := newTestRouter(nil)

	for _, header := range requiredHeaders {
		t.Run(header, func(t *testing.T) {
			req := routedRequest()
			req.Header.Del(header)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), header)
		})
	}
}
