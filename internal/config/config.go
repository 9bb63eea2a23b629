package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Config holds all configuration for the outreach engine.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Caps          CapsConfig          `yaml:"caps"`
	Pacing        PacingConfig        `yaml:"pacing"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	SES           SESConfig           `yaml:"ses"`
	Feed          FeedConfig          `yaml:"feed"`
	Templates     TemplatesConfig     `yaml:"templates"`
	Notifications NotificationsConfig `yaml:"notifications"`
	API           APIConfig           `yaml:"api"`
}

// DatabaseConfig holds the ledger database connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds the run-lock Redis settings. When Addr is empty the
// engine falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CapsConfig holds the hard sending caps.
type CapsConfig struct {
	Daily             int `yaml:"daily"`
	PerOrganization   int `yaml:"per_organization"`
	MaxFollowups      int `yaml:"max_followups"`
	FollowupAfterDays int `yaml:"followup_after_days"`
}

// Limits converts the configured caps to the domain type.
func (c CapsConfig) Limits() domain.Limits {
	return domain.Limits{
		DailyCap:      c.Daily,
		OrgCap:        c.PerOrganization,
		MaxFollowups:  c.MaxFollowups,
		FollowupAfter: time.Duration(c.FollowupAfterDays) * 24 * time.Hour,
	}
}

// PacingConfig holds the randomized spacing between consecutive sends.
type PacingConfig struct {
	MinSeconds int `yaml:"min_seconds"`
	MaxSeconds int `yaml:"max_seconds"`
}

// Min returns the minimum inter-send gap as a duration.
func (c PacingConfig) Min() time.Duration { return time.Duration(c.MinSeconds) * time.Second }

// Max returns the maximum inter-send gap as a duration.
func (c PacingConfig) Max() time.Duration { return time.Duration(c.MaxSeconds) * time.Second }

// ScheduleConfig holds the send window and the daily trigger.
type ScheduleConfig struct {
	// SendHour is the local hour run-scheduled fires at, 0-23.
	SendHour int `yaml:"send_hour"`
	// WindowStartHour/WindowEndHour bound the wall-clock send window
	// [start, end). A run started outside the window is a no-op.
	WindowStartHour int `yaml:"window_start_hour"`
	WindowEndHour   int `yaml:"window_end_hour"`
	// Timezone is an IANA zone name for the window and trigger; empty
	// means the process-local zone.
	Timezone string `yaml:"timezone"`
	// LockTTLMinutes bounds how long a crashed run can hold the run lock.
	LockTTLMinutes int `yaml:"lock_ttl_minutes"`
}

// LockTTL returns the run-lock TTL as a duration.
func (c ScheduleConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// Location resolves the configured timezone, defaulting to local.
func (c ScheduleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SESConfig holds AWS SES dispatcher configuration.
type SESConfig struct {
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
	ReplyTo     string `yaml:"reply_to"`
}

// FeedConfig selects and parameterizes the target feed.
type FeedConfig struct {
	// Type is "jsonl" or "rss".
	Type string `yaml:"type"`
	// Path is the candidate file for the jsonl feed.
	Path string `yaml:"path"`
	// URLs are the posting feeds for the rss feed.
	URLs []string `yaml:"urls"`
	// TimeoutSeconds bounds a single feed fetch.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the feed fetch timeout as a duration.
func (c FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TemplatesConfig points at the Liquid template directory. When empty, the
// built-in templates are used.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// NotificationsConfig controls the post-run summary message.
type NotificationsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Recipient string `yaml:"recipient"`
}

// APIConfig holds the HTTP surface settings for the serve command.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Caps.Daily == 0 {
		cfg.Caps.Daily = 35
	}
	if cfg.Caps.PerOrganization == 0 {
		cfg.Caps.PerOrganization = 3
	}
	if cfg.Caps.MaxFollowups == 0 {
		cfg.Caps.MaxFollowups = 1
	}
	if cfg.Caps.FollowupAfterDays == 0 {
		cfg.Caps.FollowupAfterDays = 5
	}
	if cfg.Pacing.MinSeconds == 0 {
		cfg.Pacing.MinSeconds = 45
	}
	if cfg.Pacing.MaxSeconds == 0 {
		cfg.Pacing.MaxSeconds = 90
	}
	if cfg.Schedule.SendHour == 0 {
		cfg.Schedule.SendHour = 8
	}
	if cfg.Schedule.WindowStartHour == 0 {
		cfg.Schedule.WindowStartHour = 8
	}
	if cfg.Schedule.WindowEndHour == 0 {
		cfg.Schedule.WindowEndHour = 20
	}
	if cfg.Schedule.LockTTLMinutes == 0 {
		cfg.Schedule.LockTTLMinutes = 120
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Feed.Type == "" {
		cfg.Feed.Type = "jsonl"
	}
	if cfg.Feed.TimeoutSeconds == 0 {
		cfg.Feed.TimeoutSeconds = 30
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "localhost"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (cfg *Config) Validate() error {
	if cfg.Pacing.MinSeconds > cfg.Pacing.MaxSeconds {
		return fmt.Errorf("pacing: min_seconds %d exceeds max_seconds %d",
			cfg.Pacing.MinSeconds, cfg.Pacing.MaxSeconds)
	}
	if cfg.Schedule.WindowStartHour < 0 || cfg.Schedule.WindowStartHour > 23 ||
		cfg.Schedule.WindowEndHour < 1 || cfg.Schedule.WindowEndHour > 24 {
		return fmt.Errorf("schedule: window hours out of range")
	}
	if cfg.Schedule.WindowStartHour >= cfg.Schedule.WindowEndHour {
		return fmt.Errorf("schedule: window_start_hour %d not before window_end_hour %d",
			cfg.Schedule.WindowStartHour, cfg.Schedule.WindowEndHour)
	}
	if _, err := cfg.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars on the host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("OUTREACH_FROM_ADDRESS"); from != "" {
		cfg.SES.FromAddress = from
	}
	if v := os.Getenv("OUTREACH_DAILY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Caps.Daily = n
		}
	}

	return cfg, nil
}
