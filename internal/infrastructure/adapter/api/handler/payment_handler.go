package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/lunapay/payment-orchestrator/internal/domain/error"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	"github.com/lunapay/payment-orchestrator/internal/domain/usecase/payment"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/dto"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/middleware"
)

// PaymentHandler handles the payment orchestration HTTP endpoints
type PaymentHandler struct {
	service *payment.Service
	logger  coreport.Logger
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(service *payment.Service, logger coreport.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

// Authorize handles POST /auth
func (h *PaymentHandler) Authorize(c *gin.Context) {
	h.process(c, "authorize", h.service.Authorize)
}

// Capture handles POST /capture
func (h *PaymentHandler) Capture(c *gin.Context) {
	h.process(c, "capture", h.service.Capture)
}

// Refund handles POST /refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	h.process(c, "refund", h.service.Refund)
}

// Void handles POST /void
func (h *PaymentHandler) Void(c *gin.Context) {
	h.process(c, "void", h.service.Void)
}

// Health handles GET /health
func (h *PaymentHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type processFunc func(ctx context.Context, req *payment.Request) (*payment.TransactionResult, error)

func (h *PaymentHandler) process(c *gin.Context, operation string, fn processFunc) {
	var body dto.PaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Invalid payment request format", map[string]any{
			"operation": operation,
			"error":     err.Error(),
		})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	routing := middleware.RoutingFromContext(c)
	result, err := fn(c.Request.Context(), body.ToDomainRequest(routing))
	if err != nil {
		c.JSON(payment.HTTPStatus(err), dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Reason:  domainerr.Reason(err),
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromDomainResult(result))
}
