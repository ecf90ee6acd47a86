package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Database holds the tenant store connection.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the pub/sub and report cache connection.
	Redis RedisConfig `mapstructure:",squash"`

	// Sync holds the reconciliation run tuning.
	Sync SyncConfig `mapstructure:",squash"`

	// Couriers holds the courier provider endpoints.
	Couriers CouriersConfig `mapstructure:",squash"`

	// Proxy holds the upstream proxy used by browser based couriers.
	Proxy ProxyConfig `mapstructure:",squash"`
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	// URL is the Postgres DSN of the shared tenant store.
	URL string `mapstructure:"DATABASE_URL" required:"true"`
	// MaxOpenConns caps the connection pool.
	MaxOpenConns int `mapstructure:"DATABASE_MAX_OPEN_CONNS" default:"10"`
}

// RedisConfig holds the Redis connection details.
type RedisConfig struct {
	// URL is optional. Without it change events are only logged and run reports are not kept.
	URL string `mapstructure:"REDIS_URL"`
}

// SyncConfig tunes the delivery status reconciliation runs.
type SyncConfig struct {
	// BatchSize caps eligible orders per tenant per run.
	BatchSize int `mapstructure:"SYNC_BATCH_SIZE" default:"50"`
	// Concurrency caps simultaneous provider calls per tenant.
	Concurrency int `mapstructure:"SYNC_CONCURRENCY" default:"5"`
	// TenantConcurrency caps tenants processed at the same time.
	TenantConcurrency int `mapstructure:"SYNC_TENANT_CONCURRENCY" default:"1"`
	// PacingDelay is slept between chunks of a tenant.
	PacingDelay time.Duration `mapstructure:"SYNC_PACING_DELAY" default:"150ms"`
	// Interval enables the in-process periodic trigger when positive.
	Interval time.Duration `mapstructure:"SYNC_INTERVAL" default:"0s"`
	// TriggerToken, when set, must be sent as X-Sync-Token by trigger callers.
	TriggerToken string `mapstructure:"SYNC_TRIGGER_TOKEN"`
}

// CouriersConfig holds the base URLs and call policy of the courier providers.
type CouriersConfig struct {
	SteadfastURL    string `mapstructure:"COURIER_STEADFAST_URL" default:"https://portal.packzy.com/api/v1"`
	PathaoURL       string `mapstructure:"COURIER_PATHAO_URL" default:"https://api-hermes.pathao.com"`
	PaperflyURL     string `mapstructure:"COURIER_PAPERFLY_URL" default:"https://api.paperfly.com.bd"`
	CoordinadoraURL string `mapstructure:"COURIER_COORDINADORA_URL" default:"https://coordinadora.com/rastreo/rastreo-de-guia/detalle-de-rastreo-de-guia/?guia=%s"`
	// Timeout bounds every single provider call.
	Timeout time.Duration `mapstructure:"COURIER_TIMEOUT" default:"15s"`
	// RateLimit is the allowed requests per second for each provider.
	RateLimit float64 `mapstructure:"COURIER_RATE_LIMIT" default:"5"`
}

// ProxyConfig holds the upstream proxy settings.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USERNAME"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.Sync.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (s SyncConfig) validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("invalid configuration: SYNC_BATCH_SIZE must be positive, got %d", s.BatchSize)
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("invalid configuration: SYNC_CONCURRENCY must be positive, got %d", s.Concurrency)
	}
	if s.TenantConcurrency <= 0 {
		return fmt.Errorf("invalid configuration: SYNC_TENANT_CONCURRENCY must be positive, got %d", s.TenantConcurrency)
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && isZero(val.Field(i)) {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
