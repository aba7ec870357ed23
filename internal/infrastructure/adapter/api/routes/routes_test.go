package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/handler"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/logger"
)

// The payment endpoints live at the root. Requests below carry no credentials,
// so a mounted route answers 401 from the middleware; only an unknown path
// may 404.
func TestPaymentEndpointsMountedAtRoot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNoopLogger()
	router := gin.New()
	SetupRoutes(router, handler.NewPaymentHandler(nil, log), log)

	for _, path := range []string{"/auth", "/capture", "/refund", "/void"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "path %s", path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment/auth", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
