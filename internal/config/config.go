package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/crewsync/internal/roster"
)

// Config is the crewsync runtime configuration.
type Config struct {
	Endpoint         string
	UserID           string
	CachePath        string
	LogDir           string
	TrackedDay       string
	PollInterval     time.Duration
	BackgroundBudget time.Duration
	MetricsAddr      string
	LogLevel         string
}

const (
	defaultConfigPath       = "~/.config/crewsync/config.toml"
	defaultCachePath        = "~/.local/share/crewsync/schedule.json"
	defaultLogDir           = "~/.local/share/crewsync/logs"
	defaultPollInterval     = 5 * time.Minute
	defaultBackgroundBudget = 25 * time.Second
	defaultLogLevel         = "info"
	minPollInterval         = 10 * time.Second
)

// Environment variables that override file values.
const (
	EnvEndpoint    = "CREWSYNC_ENDPOINT"
	EnvUserID      = "CREWSYNC_USER_ID"
	EnvTrackedDay  = "CREWSYNC_TRACKED_DAY"
	EnvMetricsAddr = "CREWSYNC_METRICS_ADDR"
	EnvLogLevel    = "CREWSYNC_LOG_LEVEL"
)

// ErrIncomplete is returned by Validate when the endpoint or user id is unset.
var ErrIncomplete = errors.New("config incomplete")

type fileConfig struct {
	Endpoint         string `toml:"endpoint"`
	UserID           string `toml:"user_id"`
	CachePath        string `toml:"cache_path"`
	LogDir           string `toml:"log_dir"`
	TrackedDay       string `toml:"tracked_day"`
	PollInterval     string `toml:"poll_interval"`
	BackgroundBudget string `toml:"background_budget"`
	MetricsAddr      string `toml:"metrics_addr"`
	LogLevel         string `toml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		CachePath:        mustExpand(defaultCachePath),
		LogDir:           mustExpand(defaultLogDir),
		PollInterval:     defaultPollInterval,
		BackgroundBudget: defaultBackgroundBudget,
		LogLevel:         defaultLogLevel,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path (or the default location), falling back
// to defaults when it is missing, then applies environment overrides. A .env
// file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	// Variables already in the environment win over .env entries.
	_ = godotenv.Load()

	cfg := Default()

	data, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		var raw fileConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.merge(raw); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func (c *Config) merge(raw fileConfig) error {
	c.Endpoint = strings.TrimSpace(raw.Endpoint)
	c.UserID = strings.TrimSpace(raw.UserID)
	c.TrackedDay = strings.TrimSpace(raw.TrackedDay)
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if v := strings.TrimSpace(raw.CachePath); v != "" {
		c.CachePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		c.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	poll, err := parseDuration("poll_interval", raw.PollInterval, defaultPollInterval)
	if err != nil {
		return err
	}
	if poll < minPollInterval {
		poll = minPollInterval
	}
	c.PollInterval = poll

	budget, err := parseDuration("background_budget", raw.BackgroundBudget, defaultBackgroundBudget)
	if err != nil {
		return err
	}
	c.BackgroundBudget = budget
	return nil
}

func (c *Config) applyEnv() {
	override := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(EnvEndpoint, &c.Endpoint)
	override(EnvUserID, &c.UserID)
	override(EnvTrackedDay, &c.TrackedDay)
	override(EnvMetricsAddr, &c.MetricsAddr)
	override(EnvLogLevel, &c.LogLevel)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: must be positive, got %s", field, value)
	}
	return d, nil
}

// Validate reports whether the config has what a sync cycle needs.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(c.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s in %s or the environment", ErrIncomplete, strings.Join(missing, ", "), defaultConfigPath)
	}
	return nil
}

// TrackedDayFor returns the configured tracked day, or the day key of t when
// none is configured.
func (c Config) TrackedDayFor(t time.Time) string {
	if c.TrackedDay != "" {
		return c.TrackedDay
	}
	return roster.DayKey(t)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
