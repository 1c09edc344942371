// Package config loads stockcore settings from config.toml and STOCK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig names the deployment
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"` // development, test, production
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format   string `mapstructure:"format" validate:"oneof=json console"`
	Output   string `mapstructure:"output"` // stdout, stderr or a file path
	SQLLevel string `mapstructure:"sql_level" validate:"oneof=silent error warn info debug"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // sqlite file or ":memory:"
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"gte=0"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// LedgerConfig holds stock ledger and pipeline settings
type LedgerConfig struct {
	BatchPolicy        string        `mapstructure:"batch_policy" validate:"oneof=fifo fefo"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
	OperationTimeout   time.Duration `mapstructure:"operation_timeout" validate:"gte=0"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl" validate:"gt=0"`
	IdempotencyBackend string        `mapstructure:"idempotency_backend" validate:"oneof=memory redis"`
}

// TelemetryConfig holds OpenTelemetry export settings
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MetricsEnabled    bool    `mapstructure:"metrics_enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Insecure          bool    `mapstructure:"insecure"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string  `mapstructure:"service_name"`
	// DBLogFullSQL puts statement text with bound values on spans
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults lists every key. Keys must be known to viper for STOCK_* variables to
// reach Unmarshal, so empty values are listed too.
var defaults = map[string]any{
	"app.name": "stockcore",
	"app.env":  "development",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "stockcore",
	"database.sslmode":            "disable",
	"database.path":               "stockcore.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":     "info",
	"log.format":    "console",
	"log.output":    "stdout",
	"log.sql_level": "warn",

	"ledger.batch_policy":        "fifo",
	"ledger.max_retries":         3,
	"ledger.retry_base_delay":    20 * time.Millisecond,
	"ledger.operation_timeout":   5 * time.Second,
	"ledger.idempotency_ttl":     24 * time.Hour,
	"ledger.idempotency_backend": "memory",

	"telemetry.enabled":                 false,
	"telemetry.metrics_enabled":         false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.insecure":                false,
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "stockcore",
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads config.toml from the working directory or /etc/stockcore. Values are
// resolved in order: STOCK_* environment variables (e.g. STOCK_DATABASE_PASSWORD),
// the file, then built-in defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. A missing explicit file is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stockcore")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var checker = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}()

// Validate checks value ranges and the production rules
func (c *Config) Validate() error {
	if err := checker.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, len(fields))
		for i, fe := range fields {
			msgs[i] = describe(fe)
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	switch {
	case c.Database.Driver != "postgres":
		return errors.New("database.driver must be postgres in production")
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be disable in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}

// describe renders one failed rule with the dotted config key, e.g. ledger.batch_policy
func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "ltefield":
		return fmt.Sprintf("%s (%v) cannot exceed %s", key, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}
}

// DSN returns the sqlite path, or a postgres URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
