package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	PropData   PropDataConfig   `yaml:"propdata" mapstructure:"propdata"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the identity cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres" or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// PropDataConfig holds the property data API settings.
type PropDataConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Host        string  `yaml:"host" mapstructure:"host"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout is the per-request HTTP timeout for the property data API.
func (c PropDataConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichmentConfig configures the identity and dependent lookups.
type EnrichmentConfig struct {
	LookupTimeoutSecs int           `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	ImagesTimeoutSecs int           `yaml:"images_timeout_secs" mapstructure:"images_timeout_secs"`
	GraceMs           int           `yaml:"grace_ms" mapstructure:"grace_ms"`
	CacheTTLHours     int           `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit           CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// LookupTimeout is the uniform bound applied to every dependent lookup.
func (c EnrichmentConfig) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSecs) * time.Second
}

// ImagesTimeout is the explicit bound passed to the images lookup.
func (c EnrichmentConfig) ImagesTimeout() time.Duration {
	return time.Duration(c.ImagesTimeoutSecs) * time.Second
}

// Grace is the debounce interval before data loading is declared complete.
func (c EnrichmentConfig) Grace() time.Duration {
	return time.Duration(c.GraceMs) * time.Millisecond
}

// CacheTTL is how long a fetched identity stays reusable.
func (c EnrichmentConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// RetryConfig configures gateway retries on transient upstream errors.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// AnalysisConfig configures the summary and valuation jobs.
type AnalysisConfig struct {
	Offline        bool   `yaml:"offline" mapstructure:"offline"`
	PreparingMs    int    `yaml:"preparing_ms" mapstructure:"preparing_ms"`
	FetchingDataMs int    `yaml:"fetching_data_ms" mapstructure:"fetching_data_ms"`
	CannedPath     string `yaml:"canned_path" mapstructure:"canned_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPERTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "property-report.db")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("propdata.host", "zillow-com1.p.rapidapi.com")
	v.SetDefault("propdata.base_url", "https://zillow-com1.p.rapidapi.com")
	v.SetDefault("propdata.rate_limit", 2.0)
	v.SetDefault("propdata.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("enrichment.lookup_timeout_secs", 15)
	v.SetDefault("enrichment.images_timeout_secs", 15)
	v.SetDefault("enrichment.grace_ms", 500)
	v.SetDefault("enrichment.cache_ttl_hours", 24)
	v.SetDefault("enrichment.retry.max_attempts", 2)
	v.SetDefault("enrichment.retry.initial_backoff_ms", 250)
	v.SetDefault("enrichment.retry.max_backoff_ms", 2000)
	v.SetDefault("enrichment.circuit.failure_threshold", 5)
	v.SetDefault("enrichment.circuit.reset_timeout_secs", 30)
	v.SetDefault("analysis.offline", false)
	v.SetDefault("analysis.preparing_ms", 800)
	v.SetDefault("analysis.fetching_data_ms", 1200)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks that the settings a command needs are present. mode is
// the command name: "report", "prefetch" or "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.PropData.Key == "" {
		problems = append(problems, "propdata.key is required")
	}
	if c.Enrichment.LookupTimeoutSecs <= 0 {
		problems = append(problems, "enrichment.lookup_timeout_secs must be positive")
	}

	switch c.Store.Driver {
	case "none":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be sqlite, postgres or none")
	}

	switch mode {
	case "prefetch":
		if c.Store.Driver == "none" {
			problems = append(problems, "prefetch needs a store driver")
		}
	case "report", "serve":
		if !c.Analysis.Offline && c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required unless analysis.offline is set")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
