package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load,
// e.g. PRODUCT_DATABASE_URL or PRODUCT_AUTH_JWT_SECRET.
const EnvPrefix = "PRODUCT"

// keys lists every configuration key so that viper binds it to its
// environment variable before unmarshalling.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.path_prefix",
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",
	"server.readiness_timeout",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime",
	"database.query_timeout",
	"database.auto_migrate",
	"broker.url",
	"broker.exchange",
	"broker.publish_timeout",
	"broker.queue_size",
	"auth.jwt_secret",
	"auth.issuer",
	"auth.audience",
	"auth.trust_gateway_headers",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.path_prefix", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.readiness_timeout", "2s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("broker.exchange", "events")
	v.SetDefault("broker.publish_timeout", "5s")
	v.SetDefault("broker.queue_size", 256)

	v.SetDefault("auth.trust_gateway_headers", false)
}

// Load configuration from environment variables and optionally a
// config.yaml in the working directory.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
