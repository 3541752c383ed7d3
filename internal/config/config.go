// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Research ResearchConfig `yaml:"research" mapstructure:"research"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Notion   NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PlacesConfig holds Google Places API settings. A missing key disables
// batch discovery and the structured details lookup; it is not fatal.
type PlacesConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ResearchConfig holds the generative research provider settings. A
// missing key disables streaming discovery and enrichment; not fatal.
type ResearchConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeocodeConfig holds geocoding settings. The key defaults to the Places
// key; the cache path may be empty to disable caching.
type GeocodeConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLH int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// NotionConfig holds the optional Notion sink settings.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// EngineConfig tunes the reconciliation engine.
type EngineConfig struct {
	MaxResults            int `yaml:"max_results" mapstructure:"max_results"`
	MaxConcurrentResearch int `yaml:"max_concurrent_research" mapstructure:"max_concurrent_research"`
	CallTimeoutSecs       int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("places.rate_limit", 10.0)
	v.SetDefault("research.model", "claude-haiku-4-5-20251001")
	v.SetDefault("research.max_tokens", 1024)
	v.SetDefault("geocode.cache_path", "geocode-cache.db")
	v.SetDefault("geocode.cache_ttl_hours", 24*30)
	v.SetDefault("engine.max_results", 60)
	v.SetDefault("engine.max_concurrent_research", 5)
	v.SetDefault("engine.call_timeout_secs", 90)

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

	// The geocoder rides on the Places key unless configured separately.
	if cfg.Geocode.Key == "" {
		cfg.Geocode.Key = cfg.Places.Key
	}

	return &cfg, nil
}

// Validate checks the configuration required by a run mode. Missing API
// keys are deliberately not validation errors: the engine degrades those
// features instead of refusing to start.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Engine.MaxConcurrentResearch < 0 || c.Engine.MaxConcurrentResearch > 50 {
		problems = append(problems, "engine.max_concurrent_research must be between 0 and 50")
	}

	switch mode {
	case "discover":
		if c.Places.Key == "" && c.Research.Key == "" {
			problems = append(problems, "at least one of places.key or research.key is required to discover")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
