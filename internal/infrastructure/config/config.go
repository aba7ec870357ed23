package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Gateway     GatewayConfig  `mapstructure:"gateway"`
	Logger      LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains ledger database settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	ConnectAttempts int           `mapstructure:"connectAttempts"`
	ConnectDelay    time.Duration `mapstructure:"connectDelay"` // seconds
	LogLevel        string        `mapstructure:"logLevel"`
}

// RedisConfig contains marker cache settings
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	MarkerTTL   time.Duration `mapstructure:"markerTtl"`   // minutes
	SnapshotTTL time.Duration `mapstructure:"snapshotTtl"` // minutes
}

// KafkaConfig contains audit event settings
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// GatewayConfig contains payment router client settings
type GatewayConfig struct {
	BaseURL           string        `mapstructure:"baseUrl"`
	RoutePath         string        `mapstructure:"routePath"`
	RequestTimeout    time.Duration `mapstructure:"requestTimeout"` // seconds
	MaxAttempts       int           `mapstructure:"maxAttempts"`
	RetryBaseDelay    time.Duration `mapstructure:"retryBaseDelay"` // milliseconds
	RetryMaxDelay     time.Duration `mapstructure:"retryMaxDelay"`  // milliseconds
	TokenURL          string        `mapstructure:"tokenUrl"`
	TokenClientID     string        `mapstructure:"tokenClientId"`
	TokenClientSecret string        `mapstructure:"tokenClientSecret"`
	TokenRefreshSkew  time.Duration `mapstructure:"tokenRefreshSkew"` // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
