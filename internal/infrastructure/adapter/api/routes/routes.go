package routes

import (
	"github.com/gin-gonic/gin"

	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/handler"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	logger coreport.Logger,
) {
	router.GET("/health", paymentHandler.Health)

	paymentRoutes := router.Group("/")
	paymentRoutes.Use(middleware.RequireRoutingHeaders(logger))
	{
		paymentRoutes.POST("/auth", paymentHandler.Authorize)
		paymentRoutes.POST("/capture", paymentHandler.Capture)
		paymentRoutes.POST("/refund", paymentHandler.Refund)
		paymentRoutes.POST("/void", paymentHandler.Void)
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
}
