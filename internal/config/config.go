// Package config loads and validates BinBuddy configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	DB            DBConfig            `mapstructure:"db"`
	Storage       StorageConfig       `mapstructure:"storage"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	Scans         ScansConfig         `mapstructure:"scans"`
	Rewards       RewardsConfig       `mapstructure:"rewards"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSecond int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// OpenFoodFactsConfig configures the product catalog client.
type OpenFoodFactsConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	UserAgent           string `mapstructure:"user_agent"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	RatePerMinute       int    `mapstructure:"rate_per_minute"`
	SearchRatePerMinute int    `mapstructure:"search_rate_per_minute"`
	ConnectivityURL     string `mapstructure:"connectivity_url"`
	// Offline skips every remote call and serves stored data only.
	Offline bool `mapstructure:"offline"`
}

// DBConfig controls access to Postgres. An empty DSN selects in-memory stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig selects where raw catalog payloads are archived.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for scan notifications. An empty project keeps
// notifications in memory.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ProgressConfig tunes the scan event hub.
type ProgressConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
}

// ScansConfig sizes the batch scan pipeline.
type ScansConfig struct {
	QueueDepth   int `mapstructure:"queue_depth"`
	Workers      int `mapstructure:"workers"`
	RecentLimit  int `mapstructure:"recent_limit"`
	CacheEntries int `mapstructure:"cache_entries"`
}

// RewardsConfig sets coins and XP awarded per scan.
type RewardsConfig struct {
	CoinsPerScan int `mapstructure:"coins_per_scan"`
	XPPerScan    int `mapstructure:"xp_per_scan"`
	PfandBonus   int `mapstructure:"pfand_bonus"`
}

// TracingConfig toggles OpenTelemetry tracing. Exporter is "none" or "gcp"
// (Cloud Trace in ProjectID).
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Exporter    string `mapstructure:"exporter"`
	ProjectID   string `mapstructure:"project_id"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BINBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org/")
	v.SetDefault("openfoodfacts.user_agent", "BinBuddy/1.0 (https://github.com/JakeFAU/binbuddy)")
	v.SetDefault("openfoodfacts.timeout_seconds", 30)
	v.SetDefault("openfoodfacts.rate_per_minute", 100)
	v.SetDefault("openfoodfacts.search_rate_per_minute", 10)
	v.SetDefault("openfoodfacts.connectivity_url", "https://world.openfoodfacts.org/")
	v.SetDefault("openfoodfacts.offline", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "openfoodfacts")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "binbuddy-scans")
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 100)
	v.SetDefault("progress.max_batch_wait_ms", 500)
	v.SetDefault("scans.queue_depth", 64)
	v.SetDefault("scans.workers", 2)
	v.SetDefault("scans.recent_limit", 10)
	v.SetDefault("scans.cache_entries", 512)
	v.SetDefault("rewards.coins_per_scan", 10)
	v.SetDefault("rewards.xp_per_scan", 20)
	v.SetDefault("rewards.pfand_bonus", 5)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "binbuddy")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.project_id", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.OpenFoodFacts.BaseURL == "" {
		return fmt.Errorf("openfoodfacts.base_url is required")
	}
	if c.OpenFoodFacts.TimeoutSeconds <= 0 {
		return fmt.Errorf("openfoodfacts.timeout_seconds must be > 0")
	}
	if c.OpenFoodFacts.RatePerMinute <= 0 || c.OpenFoodFacts.SearchRatePerMinute <= 0 {
		return fmt.Errorf("openfoodfacts rate limits must be > 0")
	}
	switch c.Storage.Backend {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, local, gcs", c.Storage.Backend)
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if c.Scans.Workers <= 0 {
		return fmt.Errorf("scans.workers must be > 0")
	}
	if c.Scans.QueueDepth <= 0 {
		return fmt.Errorf("scans.queue_depth must be > 0")
	}
	switch c.Tracing.Exporter {
	case "", "none":
	case "gcp":
		if c.Tracing.Enabled && c.Tracing.ProjectID == "" {
			return fmt.Errorf("tracing.project_id must be set for the gcp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter %q is not one of none, gcp", c.Tracing.Exporter)
	}
	return nil
}

// CatalogTimeout is the per-request budget for catalog calls.
func (c Config) CatalogTimeout() time.Duration {
	return time.Duration(c.OpenFoodFacts.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds HTTP handlers.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecond) * time.Second
}

// BatchWait converts the progress batch wait to a duration.
func (c Config) BatchWait() time.Duration {
	return time.Duration(c.Progress.MaxBatchWaitMs) * time.Millisecond
}
