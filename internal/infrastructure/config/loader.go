package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration from the environment-specific YAML file,
// letting PO_-prefixed environment variables override any value
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("PO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	var lastError error
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			} else {
				lastError = err
			}
		}
	}
	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}
	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 15)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 10)   // seconds

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.connectAttempts", 3)
	v.SetDefault("database.connectDelay", 5) // seconds
	v.SetDefault("database.logLevel", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.markerTtl", 15)     // minutes
	v.SetDefault("redis.snapshotTtl", 1440) // minutes

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "payment-audit-events")

	v.SetDefault("gateway.routePath", "/route")
	v.SetDefault("gateway.requestTimeout", 10) // seconds
	v.SetDefault("gateway.maxAttempts", 4)
	v.SetDefault("gateway.retryBaseDelay", 200)  // milliseconds
	v.SetDefault("gateway.retryMaxDelay", 5000)  // milliseconds
	v.SetDefault("gateway.tokenRefreshSkew", 30) // seconds

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// getEnvironment determines the environment from PO_ENV
func getEnvironment() string {
	env := os.Getenv("PO_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides prioritizes environment variables over file values for
// sensitive settings
func processEnvOverrides(v *viper.Viper) {
	overrides := map[string]string{
		"PO_DB_HOST":               "database.host",
		"PO_DB_USERNAME":           "database.username",
		"PO_DB_PASSWORD":           "database.password",
		"PO_DB_NAME":               "database.database",
		"PO_DB_SSL_MODE":           "database.sslMode",
		"PO_REDIS_ADDR":            "redis.addr",
		"PO_REDIS_PASSWORD":        "redis.password",
		"PO_KAFKA_TOPIC":           "kafka.topic",
		"PO_GATEWAY_BASE_URL":      "gateway.baseUrl",
		"PO_GATEWAY_TOKEN_URL":     "gateway.tokenUrl",
		"PO_GATEWAY_CLIENT_ID":     "gateway.tokenClientId",
		"PO_GATEWAY_CLIENT_SECRET": "gateway.tokenClientSecret",
		"PO_SERVER_HOST":           "server.host",
		"PO_SERVER_PORT":           "server.port",
		"PO_LOGGER_LEVEL":          "logger.level",
	}
	for envKey, configKey := range overrides {
		if value := os.Getenv(envKey); value != "" {
			v.Set(configKey, value)
		}
	}
	if brokers := os.Getenv("PO_KAFKA_BROKERS"); brokers != "" {
		v.Set("kafka.brokers", strings.Split(brokers, ","))
	}
}

// processDurations converts raw numeric values to time.Duration
func processDurations(config *Config) {
	config.Server.ReadTimeout *= time.Second
	config.Server.WriteTimeout *= time.Second
	config.Server.IdleTimeout *= time.Second
	config.Server.ReadHeaderTimeout *= time.Second
	config.Server.ShutdownTimeout *= time.Second

	config.Database.ConnMaxLifetime *= time.Minute
	config.Database.ConnMaxIdleTime *= time.Minute
	config.Database.ConnectDelay *= time.Second

	config.Redis.MarkerTTL *= time.Minute
	config.Redis.SnapshotTTL *= time.Minute

	config.Gateway.RequestTimeout *= time.Second
	config.Gateway.RetryBaseDelay *= time.Millisecond
	config.Gateway.RetryMaxDelay *= time.Millisecond
	config.Gateway.TokenRefreshSkew *= time.Second
}
