package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Digest     DigestConfig     `yaml:"digest" mapstructure:"digest"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the lead store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	LockPath    string `yaml:"lock_path" mapstructure:"lock_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// NotionConfig configures the Notion lead database.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SourcesConfig points at council descriptors.
type SourcesConfig struct {
	// File is an optional YAML descriptor list replacing the built-ins.
	File string `yaml:"file" mapstructure:"file"`

	// Enabled restricts default runs to these source names.
	Enabled []string `yaml:"enabled" mapstructure:"enabled"`
}

// FetchConfig configures upstream HTTP and FTP access.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
}

// PipelineConfig configures a qualification run.
type PipelineConfig struct {
	MaxConcurrentSources int  `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
	SourceTimeoutSecs    int  `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	LookbackDays         int  `yaml:"lookback_days" mapstructure:"lookback_days"`
	MinScore             int  `yaml:"min_score" mapstructure:"min_score"`
	RefusedOnly          bool `yaml:"refused_only" mapstructure:"refused_only"`
	PersistSynthetic     bool `yaml:"persist_synthetic" mapstructure:"persist_synthetic"`
	BreakerThreshold     int  `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs     int  `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// DigestConfig configures the weekly email digest.
type DigestConfig struct {
	TopK           int    `yaml:"top_k" mapstructure:"top_k"`
	MinScore       int    `yaml:"min_score" mapstructure:"min_score"`
	Origin         string `yaml:"origin" mapstructure:"origin"`
	SMTPHost       string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	Sender         string `yaml:"sender" mapstructure:"sender"`
	Recipient      string `yaml:"recipient" mapstructure:"recipient"`
	KeyringAccount string `yaml:"keyring_account" mapstructure:"keyring_account"`
}

// MonitoringConfig configures degraded-run and backlog alerts.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`

	// AlertOnMalformed also alerts when records were patched with N/A.
	AlertOnMalformed bool `yaml:"alert_on_malformed" mapstructure:"alert_on_malformed"`

	// BacklogThreshold alerts when this many leads sit in "New" longer than
	// BacklogAgeDays. 0 disables the backlog check.
	BacklogThreshold  int `yaml:"backlog_threshold" mapstructure:"backlog_threshold"`
	BacklogAgeDays    int `yaml:"backlog_age_days" mapstructure:"backlog_age_days"`
	CheckIntervalSecs int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`

	// AllowedOrigins lists CORS origins for browser clients. Empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env only seeds variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.lock_path", "leads.lock")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("sources.file", "")
	v.SetDefault("sources.enabled", []string{})
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.page_size", 100)
	v.SetDefault("pipeline.max_concurrent_sources", 4)
	v.SetDefault("pipeline.source_timeout_secs", 45)
	v.SetDefault("pipeline.lookback_days", 14)
	v.SetDefault("pipeline.min_score", 3)
	v.SetDefault("pipeline.refused_only", true)
	v.SetDefault("pipeline.persist_synthetic", false)
	v.SetDefault("pipeline.breaker_threshold", 5)
	v.SetDefault("pipeline.breaker_reset_secs", 300)
	v.SetDefault("digest.top_k", 5)
	v.SetDefault("digest.min_score", 2)
	v.SetDefault("digest.origin", "UK council planning portals")
	v.SetDefault("digest.smtp_host", "")
	v.SetDefault("digest.smtp_port", 587)
	v.SetDefault("digest.sender", "")
	v.SetDefault("digest.recipient", "")
	v.SetDefault("digest.keyring_account", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.alert_on_malformed", false)
	v.SetDefault("monitoring.backlog_threshold", 0)
	v.SetDefault("monitoring.backlog_age_days", 7)
	v.SetDefault("monitoring.check_interval_secs", 3600)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the keys a command mode needs. Modes: "store", "run",
// "digest", "monitoring" and "serve". "run" and "serve" include "store".
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "store", "run", "serve":
		switch c.Store.Driver {
		case "sqlite", "memory":
		case "postgres":
			require(c.Store.DatabaseURL != "", "store.database_url")
		case "notion":
			require(c.Notion.Token != "", "notion.token")
			require(c.Notion.LeadDB != "", "notion.lead_db")
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, notion, memory", c.Store.Driver))
		}
	case "digest":
		require(c.Digest.SMTPHost != "", "digest.smtp_host")
		require(c.Digest.Sender != "", "digest.sender")
		require(c.Digest.Recipient != "", "digest.recipient")
	case "monitoring":
		require(c.Monitoring.WebhookURL != "", "monitoring.webhook_url")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "run" || mode == "serve" {
		if n := c.Pipeline.MaxConcurrentSources; n < 1 || n > 32 {
			errs = append(errs, "pipeline.max_concurrent_sources must be between 1 and 32")
		}
		if c.Pipeline.LookbackDays < 0 {
			errs = append(errs, "pipeline.lookback_days must be >= 0")
		}
	}
	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
