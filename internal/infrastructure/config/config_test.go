package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stockcore", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "stockcore", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)

		assert.Equal(t, "fifo", cfg.Ledger.BatchPolicy)
		assert.Equal(t, 3, cfg.Ledger.MaxRetries)
		assert.Equal(t, 20*time.Millisecond, cfg.Ledger.RetryBaseDelay)
		assert.Equal(t, 5*time.Second, cfg.Ledger.OperationTimeout)
		assert.Equal(t, 24*time.Hour, cfg.Ledger.IdempotencyTTL)
		assert.Equal(t, "memory", cfg.Ledger.IdempotencyBackend)
	})

	t.Run("loads values from environment variables with STOCK prefix", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STOCK_DATABASE_DRIVER", "sqlite")
		t.Setenv("STOCK_DATABASE_PATH", ":memory:")
		t.Setenv("STOCK_LEDGER_BATCH_POLICY", "fefo")
		t.Setenv("STOCK_LEDGER_MAX_RETRIES", "5")
		t.Setenv("STOCK_LEDGER_OPERATION_TIMEOUT", "2s")
		t.Setenv("STOCK_LEDGER_IDEMPOTENCY_BACKEND", "redis")
		t.Setenv("STOCK_REDIS_PORT", "6380")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.Equal(t, "fefo", cfg.Ledger.BatchPolicy)
		assert.Equal(t, 5, cfg.Ledger.MaxRetries)
		assert.Equal(t, 2*time.Second, cfg.Ledger.OperationTimeout)
		assert.Equal(t, "redis", cfg.Ledger.IdempotencyBackend)
		assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
	})

	t.Run("zero max retries is kept", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STOCK_LEDGER_MAX_RETRIES", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Ledger.MaxRetries)
	})

	t.Run("rejects unknown batch policy", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STOCK_LEDGER_BATCH_POLICY", "lifo")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `ledger.batch_policy must be one of [fifo fefo], got "lifo"`)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STOCK_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STOCK_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("STOCK_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Database: DatabaseConfig{Driver: "sqlite", MaxOpenConns: 1},
			Log:      LogConfig{Level: "info", Format: "json", SQLLevel: "warn"},
			Ledger: LedgerConfig{
				BatchPolicy:        "fefo",
				IdempotencyTTL:     time.Hour,
				IdempotencyBackend: "memory",
			},
		}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reports every failing key", func(t *testing.T) {
		cfg := valid()
		cfg.Log.Format = "xml"
		cfg.Telemetry.SamplingRatio = 1.5
		cfg.Ledger.IdempotencyTTL = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.format")
		assert.Contains(t, err.Error(), "telemetry.sampling_ratio must satisfy lte=1")
		assert.Contains(t, err.Error(), "ledger.idempotency_ttl")
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads toml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "stock.toml")
		content := `
[database]
driver = "sqlite"
path = "ledger.db"

[ledger]
batch_policy = "fefo"
max_retries = 1
retry_base_delay = "5ms"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "ledger.db", cfg.Database.DSN())
		assert.Equal(t, "fefo", cfg.Ledger.BatchPolicy)
		assert.Equal(t, 1, cfg.Ledger.MaxRetries)
		assert.Equal(t, 5*time.Millisecond, cfg.Ledger.RetryBaseDelay)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
		require.Error(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "requires postgres",
			env:     map[string]string{"STOCK_DATABASE_DRIVER": "sqlite"},
			wantErr: "must be postgres in production",
		},
		{
			name:    "requires database password",
			env:     map[string]string{"STOCK_DATABASE_SSLMODE": "require"},
			wantErr: "database.password is required",
		},
		{
			name:    "rejects disabled sslmode",
			env:     map[string]string{"STOCK_DATABASE_PASSWORD": "secret"},
			wantErr: "sslmode",
		},
		{
			name: "rejects full sql logging",
			env: map[string]string{
				"STOCK_DATABASE_PASSWORD":         "secret",
				"STOCK_DATABASE_SSLMODE":          "require",
				"STOCK_TELEMETRY_DB_LOG_FULL_SQL": "true",
			},
			wantErr: "db_log_full_sql",
		},
		{
			name: "accepts valid production config",
			env: map[string]string{
				"STOCK_DATABASE_PASSWORD": "secret",
				"STOCK_DATABASE_SSLMODE":  "require",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("STOCK_APP_ENV", "production")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("escapes postgres credentials", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "db",
			Port:     5432,
			User:     "stock",
			Password: "p@ss word",
			DBName:   "ledger",
			SSLMode:  "disable",
		}
		assert.Equal(t, "postgres://stock:p%40ss%20word@db:5432/ledger?sslmode=disable", cfg.DSN())
	})

	t.Run("sqlite uses path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", Path: "file::memory:?cache=shared"}
		assert.Equal(t, "file::memory:?cache=shared", cfg.DSN())
	})
}
