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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Cohere CohereConfig `yaml:"cohere" mapstructure:"cohere"`
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Detect DetectConfig `yaml:"detect" mapstructure:"detect"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CohereConfig holds Cohere embedding API settings.
type CohereConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Model          string  `yaml:"model" mapstructure:"model"`
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs float64 `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	BatchDelaySecs float64 `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	MinDimension   int     `yaml:"min_dimension" mapstructure:"min_dimension"`
}

// MatchConfig holds similarity scoring tunables. Every weight and threshold
// here is a default, not a requirement; the source heuristics diverged and
// operators are expected to tune per catalog.
type MatchConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	CategoryBoost       float64 `yaml:"category_boost" mapstructure:"category_boost"`
	KeywordBoostMax     float64 `yaml:"keyword_boost_max" mapstructure:"keyword_boost_max"`
	PhraseBoostMax      float64 `yaml:"phrase_boost_max" mapstructure:"phrase_boost_max"`
	PhraseBoostStep     float64 `yaml:"phrase_boost_step" mapstructure:"phrase_boost_step"`
	UnitBoost           float64 `yaml:"unit_boost" mapstructure:"unit_boost"`
}

// DetectConfig holds header/column detection tunables.
type DetectConfig struct {
	MaxHeaderRows      int `yaml:"max_header_rows" mapstructure:"max_header_rows"`
	SampleRows         int `yaml:"sample_rows" mapstructure:"sample_rows"`
	MaxSearchColumns   int `yaml:"max_search_columns" mapstructure:"max_search_columns"`
	MinDescQuality     int `yaml:"min_desc_quality" mapstructure:"min_desc_quality"`
	FallbackMinQuality int `yaml:"fallback_min_quality" mapstructure:"fallback_min_quality"`
	MinQtyQuality      int `yaml:"min_qty_quality" mapstructure:"min_qty_quality"`
}

// ServerConfig configures the HTTP job API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PRICEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pricematch.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("cohere.base_url", "https://api.cohere.com")
	v.SetDefault("cohere.model", "embed-v4.0")
	v.SetDefault("cohere.batch_size", 90)
	v.SetDefault("cohere.max_attempts", 3)
	v.SetDefault("cohere.retry_delay_secs", 1.0)
	v.SetDefault("cohere.batch_delay_secs", 2.0)
	v.SetDefault("cohere.min_dimension", 100)
	v.SetDefault("match.similarity_threshold", 0.3)
	v.SetDefault("match.category_boost", 0.10)
	v.SetDefault("match.keyword_boost_max", 0.15)
	v.SetDefault("match.phrase_boost_max", 0.10)
	v.SetDefault("match.phrase_boost_step", 0.05)
	v.SetDefault("match.unit_boost", 0.10)
	v.SetDefault("detect.max_header_rows", 15)
	v.SetDefault("detect.sample_rows", 20)
	v.SetDefault("detect.max_search_columns", 20)
	v.SetDefault("detect.min_desc_quality", 3)
	v.SetDefault("detect.fallback_min_quality", 2)
	v.SetDefault("detect.min_qty_quality", 2)

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

// Validate checks ranges that would otherwise surface as confusing matching
// behavior deep inside a run.
func (c *Config) Validate() error {
	var errs []string
	if c.Match.SimilarityThreshold < 0 || c.Match.SimilarityThreshold > 1 {
		errs = append(errs, "match.similarity_threshold must be in [0,1]")
	}
	for name, w := range map[string]float64{
		"match.category_boost":    c.Match.CategoryBoost,
		"match.keyword_boost_max": c.Match.KeywordBoostMax,
		"match.phrase_boost_max":  c.Match.PhraseBoostMax,
		"match.phrase_boost_step": c.Match.PhraseBoostStep,
		"match.unit_boost":        c.Match.UnitBoost,
	} {
		if w < 0 {
			errs = append(errs, name+" must be >= 0")
		}
	}
	if c.Cohere.BatchSize <= 0 {
		errs = append(errs, "cohere.batch_size must be > 0")
	}
	if c.Cohere.MaxAttempts <= 0 {
		errs = append(errs, "cohere.max_attempts must be > 0")
	}
	if c.Cohere.MinDimension <= 0 {
		errs = append(errs, "cohere.min_dimension must be > 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
