// Package config loads application configuration from file, environment,
// and defaults, and installs the global logger.
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
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Notion NotionConfig `yaml:"notion" mapstructure:"notion"`
	FTP    FTPConfig    `yaml:"ftp" mapstructure:"ftp"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EngineConfig holds the statistical thresholds of the discovery engine.
// It is immutable once constructed and passed by value into every component.
type EngineConfig struct {
	MinSampleSize           int     `yaml:"min_sample_size" mapstructure:"min_sample_size"`
	SignificanceAlpha       float64 `yaml:"significance_alpha" mapstructure:"significance_alpha"`
	MinConfidence           float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold" mapstructure:"high_confidence_threshold"`
	WeeklyLimitConfidence   float64 `yaml:"weekly_limit_confidence" mapstructure:"weekly_limit_confidence"`
	CodeRestrictionRatio    float64 `yaml:"code_restriction_ratio" mapstructure:"code_restriction_ratio"`
	AffinityRatio           float64 `yaml:"affinity_ratio" mapstructure:"affinity_ratio"`
	MaxStaffForPairwise     int     `yaml:"max_staff_for_pairwise" mapstructure:"max_staff_for_pairwise"`
	BasicClassifier         bool    `yaml:"basic_classifier" mapstructure:"basic_classifier"`
	Workers                 int     `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds Notion API credentials for rule publishing.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	RuleDB string `yaml:"rule_db" mapstructure:"rule_db"`
}

// FTPConfig configures fetching roster exports from an FTP drop.
type FTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
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
	v.SetEnvPrefix("ROSTERMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.min_sample_size", 5)
	v.SetDefault("engine.significance_alpha", 0.05)
	v.SetDefault("engine.min_confidence", 0.5)
	v.SetDefault("engine.high_confidence_threshold", 0.8)
	v.SetDefault("engine.weekly_limit_confidence", 0.7)
	v.SetDefault("engine.code_restriction_ratio", 0.5)
	v.SetDefault("engine.affinity_ratio", 2.0)
	v.SetDefault("engine.max_staff_for_pairwise", 200)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "rostermine.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("ftp.timeout_secs", 30)
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

// Validate checks that the engine thresholds are usable.
func (c *Config) Validate() error {
	e := c.Engine
	if e.MinSampleSize < 1 {
		return eris.Errorf("config: engine.min_sample_size must be >= 1 (got %d)", e.MinSampleSize)
	}
	if e.SignificanceAlpha <= 0 || e.SignificanceAlpha >= 1 {
		return eris.Errorf("config: engine.significance_alpha must be in (0,1) (got %v)", e.SignificanceAlpha)
	}
	if e.MinConfidence < 0 || e.MinConfidence > 1 {
		return eris.Errorf("config: engine.min_confidence must be in [0,1] (got %v)", e.MinConfidence)
	}
	if e.HighConfidenceThreshold < e.MinConfidence {
		return eris.Errorf("config: engine.high_confidence_threshold %v below engine.min_confidence %v",
			e.HighConfidenceThreshold, e.MinConfidence)
	}
	if e.AffinityRatio < 1 {
		return eris.Errorf("config: engine.affinity_ratio must be >= 1 (got %v)", e.AffinityRatio)
	}
	if e.MaxStaffForPairwise < 0 {
		return eris.Errorf("config: engine.max_staff_for_pairwise must be >= 0 (got %d)", e.MaxStaffForPairwise)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "":
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres (got %q)", c.Store.Driver)
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
