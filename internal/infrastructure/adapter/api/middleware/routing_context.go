package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	domainerr "github.com/lunapay/payment-orchestrator/internal/domain/error"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/dto"
)

// RoutingContextKey is the gin context key holding the extracted routing context
const RoutingContextKey = "routing_context"

var requiredHeaders = []string{
	"x-source",
	"x-channel",
	"x-journey-id",
	"x-correlation-id",
	"x-transaction-id",
	"x-client-id",
}

// RequireRoutingHeaders validates the bearer token and the mandatory routing
// headers, then stashes the latter as an entity.RoutingContext for the handlers
func RequireRoutingHeaders(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); !ok || strings.TrimSpace(token) == "" {
			logger.Warn("Missing or malformed bearer token", map[string]any{
				"path": c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
				Message: "Missing or malformed Authorization header",
			})
			return
		}

		for _, header := range requiredHeaders {
			if c.GetHeader(header) == "" {
				logger.Warn("Missing required routing header", map[string]any{
					"header": header,
					"path":   c.Request.URL.Path,
				})
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
					Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
					Message: "Missing required header: " + header,
				})
				return
			}
		}

		c.Set(RoutingContextKey, entity.RoutingContext{
			Source:        c.GetHeader("x-source"),
			Channel:       c.GetHeader("x-channel"),
			JourneyID:     c.GetHeader("x-journey-id"),
			CorrelationID: c.GetHeader("x-correlation-id"),
			TransactionID: c.GetHeader("x-transaction-id"),
			ClientID:      c.GetHeader("x-client-id"),
		})
		c.Next()
	}
}

// RoutingFromContext retrieves the routing context stored by
// RequireRoutingHeaders
func RoutingFromContext(c *gin.Context) entity.RoutingContext {
	if value, ok := c.Get(RoutingContextKey); ok {
		if routing, ok := value.(entity.RoutingContext); ok {
			return routing
		}
	}
	return entity.RoutingContext{}
}
