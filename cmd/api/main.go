package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/lunapay/payment-orchestrator/internal/domain/usecase/payment"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/handler"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/api/routes"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/database"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/gateway"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/idgen"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/kafka"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/logger"
	redisstore "github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/redis"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/repository"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/adapter/timeutil"
	"github.com/lunapay/payment-orchestrator/internal/infrastructure/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	defer func() { _ = appLogger.Flush() }()

	tp := timeutil.NewRealTimeProvider()

	// Ledger database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		ConnectDelay:    cfg.Database.ConnectDelay,
		LogLevel:        cfg.Database.LogLevel,
	}
	conn, err := database.NewConnection(dbConfig, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.Migrate(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Marker and snapshot cache
	store, err := redisstore.NewStore(context.Background(), redisstore.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MarkerTTL:   cfg.Redis.MarkerTTL,
		SnapshotTTL: cfg.Redis.SnapshotTTL,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to redis", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer store.Close()

	// Audit event publisher
	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to create kafka producer", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Gateway client
	tokens := gateway.NewTokenCache(gateway.TokenConfig{
		TokenURL:     cfg.Gateway.TokenURL,
		ClientID:     cfg.Gateway.TokenClientID,
		ClientSecret: cfg.Gateway.TokenClientSecret,
		RefreshSkew:  cfg.Gateway.TokenRefreshSkew,
	}, tp, appLogger)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		RoutePath:      cfg.Gateway.RoutePath,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		MaxAttempts:    cfg.Gateway.MaxAttempts,
		RetryBaseDelay: cfg.Gateway.RetryBaseDelay,
		RetryMaxDelay:  cfg.Gateway.RetryMaxDelay,
	}, tokens, tp, appLogger)

	// Wire the orchestration service
	ledger := repository.NewLedgerRepository(conn.DB, appLogger)
	generator := idgen.NewGenerator()
	service := payment.NewService(ledger, store, store, gatewayClient, publisher,
		generator, tp, appLogger)

	paymentHandler := handler.NewPaymentHandler(service, appLogger)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, paymentHandler, appLogger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"port": cfg.Server.Port,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	// Flush buffered audit events after the server stops accepting requests.
	if err := publisher.Close(); err != nil {
		appLogger.Error("Failed to close kafka producer", map[string]any{"error": err.Error()})
	}

	appLogger.Info("Server exited gracefully", nil)
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missing []string

	if cfg.Server.Port == 0 {
		missing = append(missing, "server.port")
	}
	if cfg.Database.Host == "" {
		missing = append(missing, "database.host (or PO_DB_HOST)")
	}
	if cfg.Database.Username == "" {
		missing = append(missing, "database.username (or PO_DB_USERNAME)")
	}
	if cfg.Database.Password == "" {
		missing = append(missing, "database.password (or PO_DB_PASSWORD)")
	}
	if cfg.Database.Database == "" {
		missing = append(missing, "database.database (or PO_DB_NAME)")
	}
	if cfg.Gateway.BaseURL == "" {
		missing = append(missing, "gateway.baseUrl (or PO_GATEWAY_BASE_URL)")
	}
	if cfg.Gateway.TokenURL == "" {
		missing = append(missing, "gateway.tokenUrl (or PO_GATEWAY_TOKEN_URL)")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		missing = append(missing, "kafka.brokers (or PO_KAFKA_BROKERS)")
	}

	if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configurations: %v", missing)
	}
	return nil
}
