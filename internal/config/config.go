// Package config binds the control plane's configuration surface (sources,
// templates, matching, cryptography, caching) from a YAML document and/or
// environment variables via viper.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/fleetxds/control-plane/internal/loader"
)

// Config is the root configuration object. Field names here follow the
// nested, nameable shape (sources / source_config / matching / templates /
// template_context / modifiers / authentication / discovery_cache); the
// legacy flat spelling some deployments historically accepted is not
// supported (see DESIGN.md Open Questions).
type Config struct {
	Sources         []SourceConfig                        `mapstructure:"sources"`
	SourceConfig    IngestionConfig                       `mapstructure:"source_config"`
	Matching        MatchingConfig                        `mapstructure:"matching"`
	Templates       map[string]map[string]loader.Location `mapstructure:"templates"`
	TemplateContext TemplateContextConfig                 `mapstructure:"template_context"`
	Modifiers       []string                              `mapstructure:"modifiers"`
	GlobalModifiers []string                              `mapstructure:"global_modifiers"`
	Authentication  AuthenticationConfig                  `mapstructure:"authentication"`
	DiscoveryCache  DiscoveryCacheConfig                  `mapstructure:"discovery_cache"`
	Logging         LoggingConfig                         `mapstructure:"logging"`
	Metrics         MetricsConfig                         `mapstructure:"metrics"`
	SentryDSN       string                                `mapstructure:"sentry_dsn"`
	Tracing         TracingConfig                         `mapstructure:"tracing"`
	Debug           bool                                  `mapstructure:"debug"`
	Server          ServerConfig                          `mapstructure:"server"`
}

// SourceConfig describes one ingestion source.
type SourceConfig struct {
	Type   string         `mapstructure:"type"`
	Scope  string         `mapstructure:"scope"`
	Config map[string]any `mapstructure:"config"`
}

// IngestionConfig controls how the source poller runs.
type IngestionConfig struct {
	RefreshRate   time.Duration `mapstructure:"refresh_rate"`
	CacheStrategy string        `mapstructure:"cache_strategy"`
	ExtraKeys     []string      `mapstructure:"extra_keys"`
}

// MatchingConfig controls node-to-instance matching.
type MatchingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SourceKey string `mapstructure:"source_key"`
	NodeKey   string `mapstructure:"node_key"`
}

// TemplateContextConfig controls the shared context injected into every
// template invocation and its refresh cadence.
type TemplateContextConfig struct {
	Context                  map[string]loader.Location `mapstructure:"context"`
	Refresh                  bool                       `mapstructure:"refresh"`
	RefreshRate              time.Duration              `mapstructure:"refresh_rate"`
	RefreshCron              string                     `mapstructure:"refresh_cron"`
	RefreshNumRetries        int                        `mapstructure:"refresh_num_retries"`
	RefreshRetryIntervalSecs int                        `mapstructure:"refresh_retry_interval_secs"`
}

// AuthenticationConfig controls the discovery endpoint's auth gate.
type AuthenticationConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	EncryptionKey EncryptionKeySpec `mapstructure:"encryption_key"`
	AuthPasswords []string          `mapstructure:"auth_passwords"`
}

// EncryptionKeySpec accepts either a single key string or a multi-scheme,
// multi-key spec; internal/cipher interprets the populated fields.
type EncryptionKeySpec struct {
	Single string            `mapstructure:"single"`
	Multi  []CipherKeyConfig `mapstructure:"keys"`
}

// encryptionKeySpecDecodeHook lets authentication.encryption_key be written
// either as a bare string (single AEAD key) or as a structured
// {keys: [{scheme, key}, …]} block.
func encryptionKeySpecDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(EncryptionKeySpec{}) {
			return data, nil
		}
		if from.Kind() == reflect.String {
			return EncryptionKeySpec{Single: data.(string)}, nil
		}
		return data, nil
	}
}

// CipherKeyConfig names one key within a multi-key cipher suite.
type CipherKeyConfig struct {
	Scheme string `mapstructure:"scheme"`
	Key    string `mapstructure:"key"`
}

// DiscoveryCacheConfig controls the two-tier discovery cache.
type DiscoveryCacheConfig struct {
	Enabled         bool               `mapstructure:"enabled"`
	LocalMaxEntries int                `mapstructure:"local_max_entries"`
	TTL             time.Duration      `mapstructure:"ttl"`
	Remote          *RemoteCacheConfig `mapstructure:"remote"`
}

// RemoteCacheConfig describes the optional remote (Redis-compatible) cache
// tier.
type RemoteCacheConfig struct {
	Kind      string   `mapstructure:"kind"`
	Host      string   `mapstructure:"host"`
	Port      int      `mapstructure:"port"`
	Password  string   `mapstructure:"password"`
	ExtraKeys []string `mapstructure:"extra_keys"`
}

// LoggingConfig mirrors internal/logging.Config's field set so it can be
// bound straight off the document.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the /metrics admin surface.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig is a placeholder surface; the core emits no traces itself
// but the field is part of the documented configuration surface.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
	RequestDeadline         time.Duration `mapstructure:"request_deadline"`
	UnchangedStatus         int           `mapstructure:"unchanged_status"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		loader.DecodeHook(),
		encryptionKeySpecDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := viper.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("source_config.refresh_rate", "30s")
	viper.SetDefault("source_config.cache_strategy", "content")

	viper.SetDefault("matching.enabled", true)
	viper.SetDefault("matching.source_key", "service_clusters")
	viper.SetDefault("matching.node_key", "cluster")

	viper.SetDefault("template_context.refresh", false)
	viper.SetDefault("template_context.refresh_rate", "5m")
	viper.SetDefault("template_context.refresh_num_retries", 3)
	viper.SetDefault("template_context.refresh_retry_interval_secs", 5)

	viper.SetDefault("authentication.enabled", false)

	viper.SetDefault("discovery_cache.enabled", true)
	viper.SetDefault("discovery_cache.local_max_entries", 1000)
	viper.SetDefault("discovery_cache.ttl", "1h")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("debug", false)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")
	viper.SetDefault("server.request_deadline", "5s")
	viper.SetDefault("server.unchanged_status", 304)
}

// Validate checks invariants the rest of the system assumes hold.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.SourceConfig.CacheStrategy != "content" && c.SourceConfig.CacheStrategy != "context" {
		return fmt.Errorf("invalid source_config.cache_strategy: %q (must be \"content\" or \"context\")", c.SourceConfig.CacheStrategy)
	}
	if c.Matching.Enabled {
		if c.Matching.SourceKey == "" {
			return fmt.Errorf("matching.source_key cannot be empty when matching is enabled")
		}
		if c.Matching.NodeKey == "" {
			return fmt.Errorf("matching.node_key cannot be empty when matching is enabled")
		}
	}
	if len(c.Templates) == 0 {
		return fmt.Errorf("templates cannot be empty")
	}
	if c.Authentication.Enabled && len(c.Authentication.AuthPasswords) == 0 {
		return fmt.Errorf("authentication.auth_passwords cannot be empty when authentication is enabled")
	}
	if c.DiscoveryCache.LocalMaxEntries <= 0 {
		return fmt.Errorf("discovery_cache.local_max_entries must be positive")
	}
	return nil
}

// IsDebug reports whether debug-mode error bodies should be served.
func (c *Config) IsDebug() bool {
	return c.Debug
}
