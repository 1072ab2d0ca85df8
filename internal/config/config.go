package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Quotes    QuotesConfig    `yaml:"quotes"`
	Tinkoff   TinkoffConfig   `yaml:"tinkoff"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

const (
	ProviderMOEX    = "moex"
	ProviderTinkoff = "tinkoff"
)

type QuotesConfig struct {
	Provider        string `yaml:"provider"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	CacheSize       int    `yaml:"cache_size"`
	Board           string `yaml:"board"`
}

type TinkoffConfig struct {
	Token     string `yaml:"token"`
	Sandbox   bool   `yaml:"sandbox"`
	AccountID string `yaml:"account_id"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type SchedulerConfig struct {
	Interval         string `yaml:"interval"`
	SessionStart     string `yaml:"session_start"`
	SessionEnd       string `yaml:"session_end"`
	SkipWeekends     bool   `yaml:"skip_weekends"`
	TrackPerformance bool   `yaml:"track_performance"`
}

type OptimizerConfig struct {
	LookbackDays       int     `yaml:"lookback_days"`
	RiskFreeRate       float64 `yaml:"risk_free_rate"`
	Tolerance          float64 `yaml:"tolerance"`
	MaxIterations      int     `yaml:"max_iterations"`
	HistoryConcurrency int     `yaml:"history_concurrency"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/portfolio.db"
	}
	if cfg.Quotes.Provider == "" {
		cfg.Quotes.Provider = ProviderMOEX
	}
	if cfg.Quotes.TimeoutSeconds == 0 {
		cfg.Quotes.TimeoutSeconds = 10
	}
	if cfg.Quotes.CacheSize == 0 {
		cfg.Quotes.CacheSize = 256
	}
	if cfg.Quotes.Board == "" {
		cfg.Quotes.Board = "TQBR"
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "15m"
	}
	if cfg.Scheduler.SessionStart == "" {
		cfg.Scheduler.SessionStart = "10:00"
	}
	if cfg.Scheduler.SessionEnd == "" {
		cfg.Scheduler.SessionEnd = "18:50"
	}
	if cfg.Optimizer.LookbackDays == 0 {
		cfg.Optimizer.LookbackDays = 365
	}
	if cfg.Optimizer.RiskFreeRate == 0 {
		cfg.Optimizer.RiskFreeRate = 0.01
	}
	if cfg.Optimizer.Tolerance == 0 {
		cfg.Optimizer.Tolerance = 1e-9
	}
	if cfg.Optimizer.MaxIterations == 0 {
		cfg.Optimizer.MaxIterations = 1000
	}
	if cfg.Optimizer.HistoryConcurrency == 0 {
		cfg.Optimizer.HistoryConcurrency = 4
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Moscow"
	}
}

func (c *Config) Validate() error {
	switch c.Quotes.Provider {
	case ProviderMOEX:
	case ProviderTinkoff:
		if c.Tinkoff.Token == "" {
			return fmt.Errorf("tinkoff.token is required when quotes.provider is %q", ProviderTinkoff)
		}
	default:
		return fmt.Errorf("unknown quotes.provider %q", c.Quotes.Provider)
	}
	if c.Quotes.TimeoutSeconds < 0 || c.Quotes.CacheTTLSeconds < 0 {
		return fmt.Errorf("quotes timeouts must not be negative")
	}
	if d, err := time.ParseDuration(c.Scheduler.Interval); err != nil {
		return fmt.Errorf("invalid scheduler.interval %q: %w", c.Scheduler.Interval, err)
	} else if d <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if _, err := parseClock(c.Scheduler.SessionStart); err != nil {
		return fmt.Errorf("invalid scheduler.session_start: %w", err)
	}
	if _, err := parseClock(c.Scheduler.SessionEnd); err != nil {
		return fmt.Errorf("invalid scheduler.session_end: %w", err)
	}
	if c.Optimizer.LookbackDays < 2 {
		return fmt.Errorf("optimizer.lookback_days must be at least 2")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) IsSandbox() bool {
	return c.Tinkoff.Sandbox
}

// Location returns the zone used to decide calendar dates and session hours.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

func (c *Config) SchedulerInterval() time.Duration {
	d, _ := time.ParseDuration(c.Scheduler.Interval)
	return d
}

// SessionWindow returns the session bounds as minutes after midnight.
func (c *Config) SessionWindow() (start, end int) {
	start, _ = parseClock(c.Scheduler.SessionStart)
	end, _ = parseClock(c.Scheduler.SessionEnd)
	return start, end
}

func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Quotes.TimeoutSeconds) * time.Second
}

func (c *Config) QuoteCacheTTL() time.Duration {
	return time.Duration(c.Quotes.CacheTTLSeconds) * time.Second
}

func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Optimizer.LookbackDays) * 24 * time.Hour
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
