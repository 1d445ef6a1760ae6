package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the server, bot and assistant.
type Config struct {
	DatabaseURL    string        `yaml:"database_url"`
	HTTPAddr       string        `yaml:"http_addr"`
	TelegramToken  string        `yaml:"telegram_token"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	LogLevel       string        `yaml:"log_level"`
	ReportInterval time.Duration `yaml:"-"`
	ReportHours    int           `yaml:"report_interval_hours"`
	ReportTime     string        `yaml:"report_time"`
	Assistant      Assistant     `yaml:"assistant"`
}

// Assistant tunes the proposal pipeline.
type Assistant struct {
	PendingTTL         time.Duration `yaml:"-"`
	PendingTTLMinutes  int           `yaml:"pending_action_ttl_minutes"`
	PendingCap         int           `yaml:"pending_action_cap"`
	MaxIterations      int           `yaml:"max_iterations"`
	UpcomingWindowDays int           `yaml:"upcoming_window_days"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DatabaseURL: "mechmate.db",
		HTTPAddr:    ":8080",
		GeminiModel: "gemini-2.0-flash",
		LogLevel:    "info",
		ReportHours: 24,
		Assistant: Assistant{
			PendingTTLMinutes:  10,
			PendingCap:         500,
			MaxIterations:      3,
			UpcomingWindowDays: 14,
		},
	}
}

// Load reads a .env file if present, then the YAML file named by
// MECHMATE_CONFIG, then environment variables, which win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("MECHMATE_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.ReportInterval = time.Duration(cfg.ReportHours) * time.Hour
	cfg.Assistant.PendingTTL = time.Duration(cfg.Assistant.PendingTTLMinutes) * time.Minute

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.TelegramToken, "TELEGRAM_TOKEN")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.ReportTime, "REPORT_TIME")

	ints := []struct {
		key string
		dst *int
	}{
		{"REPORT_INTERVAL_HOURS", &c.ReportHours},
		{"PENDING_ACTION_TTL_MINUTES", &c.Assistant.PendingTTLMinutes},
		{"PENDING_ACTION_CAP", &c.Assistant.PendingCap},
		{"ASSISTANT_MAX_ITERATIONS", &c.Assistant.MaxIterations},
		{"UPCOMING_WINDOW_DAYS", &c.Assistant.UpcomingWindowDays},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL must not be empty"))
	}
	if c.ReportHours <= 0 {
		errs = append(errs, errors.New("REPORT_INTERVAL_HOURS must be positive"))
	}
	if c.Assistant.PendingTTLMinutes <= 0 {
		errs = append(errs, errors.New("PENDING_ACTION_TTL_MINUTES must be positive"))
	}
	if c.Assistant.PendingCap <= 0 {
		errs = append(errs, errors.New("PENDING_ACTION_CAP must be positive"))
	}
	if c.Assistant.MaxIterations <= 0 {
		errs = append(errs, errors.New("ASSISTANT_MAX_ITERATIONS must be positive"))
	}
	if c.Assistant.UpcomingWindowDays < 0 {
		errs = append(errs, errors.New("UPCOMING_WINDOW_DAYS must not be negative"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, raw)
	}
	*dst = v
	return nil
}
