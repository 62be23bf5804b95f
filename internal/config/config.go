// Package config loads and validates worker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Render  RenderConfig  `mapstructure:"render"`
	Extract ExtractConfig `mapstructure:"extract"`
	AI      AIConfig      `mapstructure:"ai"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the polite-crawling gates in front of the pipeline.
type CrawlerConfig struct {
	CooldownSeconds       int    `mapstructure:"cooldown_seconds"`
	HostRequestsPerMinute int    `mapstructure:"host_requests_per_minute"`
	RequestTimeoutMs      int    `mapstructure:"request_timeout_ms"`
	RespectRobots         bool   `mapstructure:"respect_robots"`
	UserAgent             string `mapstructure:"user_agent"`
}

// RenderConfig configures the page rendering subsystem.
type RenderConfig struct {
	// Headless selects the chromedp renderer; when false a plain HTTP
	// fetcher is used instead (no JS execution).
	Headless      bool    `mapstructure:"headless"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS     float64 `mapstructure:"domain_qps"`
}

// ExtractConfig carries the tuned token lists used by the HTML heuristic.
// Empty slices keep the built-in defaults; the lists are data, not logic,
// and are tuned for Japanese-language event pages.
type ExtractConfig struct {
	VenueSuffixes []string `mapstructure:"venue_suffixes"`
	VenueLabels   []string `mapstructure:"venue_labels"`
	NoiseWords    []string `mapstructure:"noise_words"`
}

// AIConfig configures the generative-model fallback strategy.
type AIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	MaxChars int    `mapstructure:"max_chars"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores (local development and tests).
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StorageConfig enables raw HTML snapshot archiving when a bucket is set.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig enables run-summary notifications when a topic is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FANFAN")
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
	v.SetDefault("crawler.cooldown_seconds", 10)
	v.SetDefault("crawler.host_requests_per_minute", 6)
	v.SetDefault("crawler.request_timeout_ms", 45000)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.user_agent", "fanfan-bot/1.0")
	v.SetDefault("render.headless", true)
	v.SetDefault("render.nav_timeout_seconds", 45)
	v.SetDefault("render.domain_qps", 1.0)
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_chars", 10000)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.CooldownSeconds < 0 {
		return fmt.Errorf("crawler.cooldown_seconds must be >= 0")
	}
	if c.Crawler.HostRequestsPerMinute <= 0 {
		return fmt.Errorf("crawler.host_requests_per_minute must be > 0")
	}
	if c.Crawler.RequestTimeoutMs <= 0 {
		return fmt.Errorf("crawler.request_timeout_ms must be > 0")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Render.Headless && c.Render.NavTimeoutSec <= 0 {
		return fmt.Errorf("render.nav_timeout_seconds must be > 0 when headless rendering is enabled")
	}
	return nil
}

// RequestTimeout returns the outbound request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.RequestTimeoutMs) * time.Millisecond
}

// Cooldown returns the per-source crawl cooldown as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Crawler.CooldownSeconds) * time.Second
}
