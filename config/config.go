// Package config loads application settings from an optional config file
// and PATHWAYS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/search"
	"github.com/poiesic/pathways/verify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PATHWAYS"

const (
	// StoreFile serves the catalog straight from the flat files.
	StoreFile = "file"
	// StoreBadger serves the catalog imported into BadgerDB.
	StoreBadger = "badger"

	// CacheMemory keeps cached oracle answers in process memory.
	CacheMemory = "memory"
	// CacheBadger keeps cached oracle answers in BadgerDB.
	CacheBadger = "badger"
	// CacheNone disables caching.
	CacheNone = "none"
)

// ErrInvalidConfig is returned when loaded settings fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the whole-application configuration.
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Offline  bool         `mapstructure:"offline"`
	Data     DataConfig   `mapstructure:"data"`
	AI       AIConfig     `mapstructure:"ai"`
	Cache    CacheConfig  `mapstructure:"cache"`
	Search   SearchConfig `mapstructure:"search"`
	Verify   VerifyConfig `mapstructure:"verify"`
	Pool     PoolConfig   `mapstructure:"pool"`
	Server   ServerConfig `mapstructure:"server"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// DataConfig locates the program catalog.
type DataConfig struct {
	Records            string `mapstructure:"records"`
	RegionInstitutions string `mapstructure:"region_institutions"`
	RegionSchools      string `mapstructure:"region_schools"`
	Store              string `mapstructure:"store"`
	Dir                string `mapstructure:"dir"`
}

// AIConfig configures the oracle client.
type AIConfig struct {
	Host              string        `mapstructure:"host"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// CacheConfig selects and sizes the cache backend.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	Dir      string        `mapstructure:"dir"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// SearchConfig mirrors search.Config.
type SearchConfig struct {
	MaxCandidates       int     `mapstructure:"max_candidates"`
	BatchSize           int     `mapstructure:"batch_size"`
	BroadLimit          int     `mapstructure:"broad_limit"`
	OmittedScore        int     `mapstructure:"omitted_score"`
	FailedBatchScore    int     `mapstructure:"failed_batch_score"`
	QualityThreshold    float64 `mapstructure:"quality_threshold"`
	MaxAttempts         int     `mapstructure:"max_attempts"`
	DefaultMaxResults   int     `mapstructure:"default_max_results"`
	DefaultMinRelevance int     `mapstructure:"default_min_relevance"`
	MinRelatedTerms     int     `mapstructure:"min_related_terms"`
	HistoryTurns        int     `mapstructure:"history_turns"`
}

// VerifyConfig mirrors verify.Config.
type VerifyConfig struct {
	BatchSize          int `mapstructure:"batch_size"`
	SampleDescriptions int `mapstructure:"sample_descriptions"`
	HistoryTurns       int `mapstructure:"history_turns"`
}

// PoolConfig sizes the batch worker pool.
type PoolConfig struct {
	Size int `mapstructure:"size"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("offline", false)

	v.SetDefault("data.records", "data/programs.jsonl")
	v.SetDefault("data.region_institutions", "data/region_institutions.json")
	v.SetDefault("data.region_schools", "data/region_schools.json")
	v.SetDefault("data.store", StoreFile)
	v.SetDefault("data.dir", "data/catalog.db")

	aiDefaults := ai.DefaultConfig()
	v.SetDefault("ai.host", aiDefaults.Host)
	v.SetDefault("ai.model", aiDefaults.Model)
	v.SetDefault("ai.api_key", aiDefaults.APIKey)
	v.SetDefault("ai.temperature", aiDefaults.Temperature)
	v.SetDefault("ai.timeout", aiDefaults.Timeout)
	v.SetDefault("ai.max_retries", aiDefaults.MaxRetries)
	v.SetDefault("ai.retry_delay", aiDefaults.RetryDelay)
	v.SetDefault("ai.requests_per_second", aiDefaults.RequestsPerSecond)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.dir", "data/cache.db")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.capacity", 10000)

	s := search.DefaultConfig()
	v.SetDefault("search.max_candidates", s.MaxCandidates)
	v.SetDefault("search.batch_size", s.BatchSize)
	v.SetDefault("search.broad_limit", s.BroadLimit)
	v.SetDefault("search.omitted_score", s.OmittedScore)
	v.SetDefault("search.failed_batch_score", s.FailedBatchScore)
	v.SetDefault("search.quality_threshold", s.QualityThreshold)
	v.SetDefault("search.max_attempts", s.MaxAttempts)
	v.SetDefault("search.default_max_results", s.DefaultMaxResults)
	v.SetDefault("search.default_min_relevance", s.DefaultMinRelevance)
	v.SetDefault("search.min_related_terms", s.MinRelatedTerms)
	v.SetDefault("search.history_turns", s.HistoryTurns)

	vc := verify.DefaultConfig()
	v.SetDefault("verify.batch_size", vc.BatchSize)
	v.SetDefault("verify.sample_descriptions", vc.SampleDescriptions)
	v.SetDefault("verify.history_turns", vc.HistoryTurns)

	v.SetDefault("pool.size", 8)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return cfg
}

// Load reads settings from path, or from pathways.{yaml,json,toml} in the
// working directory when path is empty, then applies PATHWAYS_* environment
// overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pathways")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Data.Store {
	case StoreFile:
		if c.Data.Records == "" {
			return fmt.Errorf("%w: data.records is required for the file store", ErrInvalidConfig)
		}
	case StoreBadger:
		if c.Data.Dir == "" {
			return fmt.Errorf("%w: data.dir is required for the badger store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown data.store %q", ErrInvalidConfig, c.Data.Store)
	}
	switch c.Cache.Backend {
	case CacheMemory:
		if c.Cache.Capacity < 1 {
			return fmt.Errorf("%w: cache.capacity must be positive", ErrInvalidConfig)
		}
	case CacheBadger:
		if c.Cache.Dir == "" {
			return fmt.Errorf("%w: cache.dir is required for the badger cache", ErrInvalidConfig)
		}
	case CacheNone:
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl cannot be negative", ErrInvalidConfig)
	}
	if c.Pool.Size < 0 {
		return fmt.Errorf("%w: pool.size cannot be negative", ErrInvalidConfig)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidConfig)
	}
	if !c.Offline {
		if err := c.OracleConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if err := c.SearchSettings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.VerifySettings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// OracleConfig converts the ai section into an ai.Config.
func (c *Config) OracleConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithModel(c.AI.Model),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithTimeout(c.AI.Timeout),
		ai.WithMaxRetries(c.AI.MaxRetries),
		ai.WithRetryDelay(c.AI.RetryDelay),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
	)
}

// SearchSettings converts the search section into a search.Config.
func (c *Config) SearchSettings() search.Config {
	return search.Config{
		MaxCandidates:       c.Search.MaxCandidates,
		BatchSize:           c.Search.BatchSize,
		BroadLimit:          c.Search.BroadLimit,
		OmittedScore:        c.Search.OmittedScore,
		FailedBatchScore:    c.Search.FailedBatchScore,
		QualityThreshold:    c.Search.QualityThreshold,
		MaxAttempts:         c.Search.MaxAttempts,
		DefaultMaxResults:   c.Search.DefaultMaxResults,
		DefaultMinRelevance: c.Search.DefaultMinRelevance,
		MinRelatedTerms:     c.Search.MinRelatedTerms,
		HistoryTurns:        c.Search.HistoryTurns,
	}
}

// VerifySettings converts the verify section into a verify.Config.
func (c *Config) VerifySettings() verify.Config {
	return verify.Config{
		BatchSize:          c.Verify.BatchSize,
		SampleDescriptions: c.Verify.SampleDescriptions,
		HistoryTurns:       c.Verify.HistoryTurns,
	}
}

// ParseLogLevel maps debug, info, warn or error onto a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}
