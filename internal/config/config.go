package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// PathPrefix is prepended to the product routes, e.g. "/api/v1".
	PathPrefix       string        `mapstructure:"path_prefix"       validate:"omitempty,startswith=/"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"      validate:"gt=0"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"     validate:"gt=0"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"  validate:"gt=0"`
	ReadinessTimeout time.Duration `mapstructure:"readiness_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"     validate:"gt=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// BrokerConfig contains the message broker settings. An empty URL disables
// the broker; events are then only logged.
type BrokerConfig struct {
	URL            string        `mapstructure:"url"             validate:"omitempty,url"`
	Exchange       string        `mapstructure:"exchange"        validate:"required"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gt=0"`
	QueueSize      int           `mapstructure:"queue_size"      validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// Issuer and Audience are checked only when set.
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
	// TrustGatewayHeaders authenticates requests from the X-Auth-Request-User
	// and X-Auth-Request-Groups headers set by a forward-auth gateway.
	TrustGatewayHeaders bool `mapstructure:"trust_gateway_headers"`
}
