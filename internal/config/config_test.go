package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "", cfg.Store.DatabaseURL)
	assert.Equal(t, "leads.lock", cfg.Store.LockPath)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 100, cfg.Fetch.PageSize)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentSources)
	assert.Equal(t, 45, cfg.Pipeline.SourceTimeoutSecs)
	assert.Equal(t, 14, cfg.Pipeline.LookbackDays)
	assert.Equal(t, 3, cfg.Pipeline.MinScore)
	assert.True(t, cfg.Pipeline.RefusedOnly)
	assert.False(t, cfg.Pipeline.PersistSynthetic)
	assert.Equal(t, 5, cfg.Digest.TopK)
	assert.Equal(t, 2, cfg.Digest.MinScore)
	assert.Equal(t, 587, cfg.Digest.SMTPPort)
	assert.Equal(t, 0, cfg.Monitoring.BacklogThreshold)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Sources.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
sources:
  enabled: [london, camden]
pipeline:
  lookback_days: 7
  refused_only: false
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, []string{"london", "camden"}, cfg.Sources.Enabled)
	assert.Equal(t, 7, cfg.Pipeline.LookbackDays)
	assert.False(t, cfg.Pipeline.RefusedOnly)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Pipeline.MinScore)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LEADSCOUT_STORE_DRIVER", "memory")
	t.Setenv("LEADSCOUT_LOG_LEVEL", "warn")
	t.Setenv("LEADSCOUT_PIPELINE_MIN_SCORE", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 6, cfg.Pipeline.MinScore)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	env := "LEADSCOUT_DIGEST_SENDER=digest@example.test\nLEADSCOUT_SERVER_PORT=3000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	// godotenv sets process env directly; register cleanup through t.Setenv.
	t.Setenv("LEADSCOUT_DIGEST_SENDER", "")
	require.NoError(t, os.Unsetenv("LEADSCOUT_DIGEST_SENDER"))
	t.Setenv("LEADSCOUT_SERVER_PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "digest@example.test", cfg.Digest.Sender)
	// Real environment wins over .env.
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the loaded defaults for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Pipeline.MaxConcurrentSources = 4
	cfg.Pipeline.LookbackDays = 14
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"sqlite needs nothing", func(*Config) {}, ""},
		{"memory needs nothing", func(c *Config) { c.Store.Driver = "memory" }, ""},
		{"postgres needs url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url is required"},
		{"postgres with url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/leads"
		}, ""},
		{"notion needs token and db", func(c *Config) { c.Store.Driver = "notion" }, "notion.token is required; notion.lead_db is required"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, `store.driver "mongo"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("store")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRun_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.MaxConcurrentSources = 0
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_sources must be between 1 and 32")

	cfg.Pipeline.MaxConcurrentSources = 33
	assert.Error(t, cfg.Validate("run"))

	cfg.Pipeline.MaxConcurrentSources = 32
	assert.NoError(t, cfg.Validate("run"))

	// The store mode does not check pipeline settings.
	cfg.Pipeline.MaxConcurrentSources = 0
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateRun_NegativeLookback(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.LookbackDays = -1

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.lookback_days must be >= 0")
}

func TestValidateDigest(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest.smtp_host is required")
	assert.Contains(t, err.Error(), "digest.sender is required")
	assert.Contains(t, err.Error(), "digest.recipient is required")

	cfg.Digest.SMTPHost = "smtp.example.test"
	cfg.Digest.Sender = "a@example.test"
	cfg.Digest.Recipient = "b@example.test"
	assert.NoError(t, cfg.Validate("digest"))
}

func TestValidateMonitoring(t *testing.T) {
	cfg := validDefaults()
	assert.Error(t, cfg.Validate("monitoring"))

	cfg.Monitoring.WebhookURL = "https://hooks.example.test/alerts"
	assert.NoError(t, cfg.Validate("monitoring"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
