package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Backend    BackendConfig    `yaml:"backend" mapstructure:"backend"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Direct     DirectConfig     `yaml:"direct" mapstructure:"direct"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Company    CompanyConfig    `yaml:"company" mapstructure:"company"`
	FX         FXConfig         `yaml:"fx" mapstructure:"fx"`
	Zipcode    ZipcodeConfig    `yaml:"zipcode" mapstructure:"zipcode"`
	HeatMap    HeatMapConfig    `yaml:"heatmap" mapstructure:"heatmap"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// BackendConfig selects how the remote services are reached.
// Driver is "salesforce" (invocable Apex actions) or "direct" (public APIs).
type BackendConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
}

// SalesforceConfig holds Salesforce JWT auth settings and Apex action names.
// CompanySource is "action" (the company Apex action) or "accounts" (a SOQL
// search over Account records).
type SalesforceConfig struct {
	ClientID      string  `yaml:"client_id" mapstructure:"client_id"`
	Username      string  `yaml:"username" mapstructure:"username"`
	KeyPath       string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL      string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	CompanySource string  `yaml:"company_source" mapstructure:"company_source"`
	CompanyAction string  `yaml:"company_action" mapstructure:"company_action"`
	FXAction      string  `yaml:"fx_action" mapstructure:"fx_action"`
	ZipcodeAction string  `yaml:"zipcode_action" mapstructure:"zipcode_action"`
}

// DirectConfig holds base URLs and keys for the public APIs.
type DirectConfig struct {
	OpenCorporatesURL   string  `yaml:"opencorporates_url" mapstructure:"opencorporates_url"`
	OpenCorporatesToken string  `yaml:"opencorporates_token" mapstructure:"opencorporates_token"`
	FrankfurterURL      string  `yaml:"frankfurter_url" mapstructure:"frankfurter_url"`
	ZipcloudURL         string  `yaml:"zipcloud_url" mapstructure:"zipcloud_url"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CacheConfig configures the response cache in front of the remote services.
// Driver is one of "none", "memory", "redis", "sqlite".
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	TTLSecs       int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	MemorySize    int    `yaml:"memory_size" mapstructure:"memory_size"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// CompanyConfig configures the company suggest panel.
type CompanyConfig struct {
	DebounceMS  int  `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	MinChars    int  `yaml:"min_chars" mapstructure:"min_chars"`
	Limit       int  `yaml:"limit" mapstructure:"limit"`
	MockEnabled bool `yaml:"mock_enabled" mapstructure:"mock_enabled"`
}

// FXConfig configures the FX rate panel.
type FXConfig struct {
	MinGapMS     int    `yaml:"min_gap_ms" mapstructure:"min_gap_ms"`
	DefaultBase  string `yaml:"default_base" mapstructure:"default_base"`
	DefaultQuote string `yaml:"default_quote" mapstructure:"default_quote"`
}

// ZipcodeConfig configures the postal code autofill panel.
type ZipcodeConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// HeatMapConfig configures the activity heat map.
type HeatMapConfig struct {
	Days   int    `yaml:"days" mapstructure:"days"`
	Script string `yaml:"script" mapstructure:"script"`
	Style  string `yaml:"style" mapstructure:"style"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures service metrics and failure alerts.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LatencyThresholdMS   int     `yaml:"latency_threshold_ms" mapstructure:"latency_threshold_ms"`
	MinCalls             int     `yaml:"min_calls" mapstructure:"min_calls"`
}

// ResilienceConfig configures the per-service circuit breakers.
type ResilienceConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int  `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("panels")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PANELS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend.driver", "direct")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("salesforce.company_source", "action")
	v.SetDefault("salesforce.company_action", "CompanySuggestService")
	v.SetDefault("salesforce.fx_action", "FxRateService")
	v.SetDefault("salesforce.zipcode_action", "ZipcodeLookupService")
	v.SetDefault("direct.opencorporates_url", "https://api.opencorporates.com/v0.4")
	v.SetDefault("direct.frankfurter_url", "https://api.frankfurter.app")
	v.SetDefault("direct.zipcloud_url", "https://zipcloud.ibsnet.co.jp")
	v.SetDefault("direct.timeout_secs", 10)
	v.SetDefault("direct.rate_limit", 5.0)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("cache.memory_size", 512)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.sqlite_path", "panels-cache.db")
	v.SetDefault("company.debounce_ms", 350)
	v.SetDefault("company.min_chars", 2)
	v.SetDefault("company.limit", 10)
	v.SetDefault("company.mock_enabled", true)
	v.SetDefault("fx.min_gap_ms", 300)
	v.SetDefault("fx.default_base", "USD")
	v.SetDefault("fx.default_quote", "JPY")
	v.SetDefault("zipcode.debounce_ms", 400)
	v.SetDefault("heatmap.days", 14)
	v.SetDefault("heatmap.script", "CalHeatmap")
	v.SetDefault("heatmap.style", "builtin:default")
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.latency_threshold_ms", 2000)
	v.SetDefault("monitoring.min_calls", 5)
	v.SetDefault("resilience.enabled", true)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

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

// Validate checks the settings required by the given command mode
// ("tui", "serve", "cli").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Backend.Driver {
	case "direct":
	case "salesforce":
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			errs = append(errs, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
		switch c.Salesforce.CompanySource {
		case "", "action", "accounts":
		default:
			errs = append(errs, fmt.Sprintf("salesforce.company_source %q is not supported", c.Salesforce.CompanySource))
		}
	default:
		errs = append(errs, fmt.Sprintf("backend.driver %q is not supported", c.Backend.Driver))
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not supported", c.Cache.Driver))
	}

	if c.Company.MinChars < 1 {
		errs = append(errs, "company.min_chars must be >= 1")
	}
	if c.Company.Limit < 1 {
		errs = append(errs, "company.limit must be >= 1")
	}
	if c.HeatMap.Days < 1 {
		errs = append(errs, "heatmap.days must be >= 1")
	}

	switch mode {
	case "tui", "cli":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Monitoring.Enabled && (c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1) {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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

// Milliseconds converts a millisecond config value to a duration.
func Milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
