package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/criteria"
	"trading-analytics/internal/logger"
	"trading-analytics/internal/num"
)

// Config holds all application configuration. Values come from an optional
// YAML file; environment variables override the file.
type Config struct {
	// Infrastructure
	SQLitePath    string        `yaml:"sqlite_path"`
	ParquetPath   string        `yaml:"parquet_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	ReportTTL     time.Duration `yaml:"report_ttl"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	LogLevel      string        `yaml:"log_level"`

	// Report notifications, disabled when empty.
	WebhookURL     string `yaml:"webhook_url"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	// Numeric backend: "double" or "decimal".
	NumBackend       string `yaml:"num_backend"`
	DecimalPrecision int    `yaml:"decimal_precision"`

	Analysis Analysis `yaml:"analysis"`
}

// Analysis configures the criteria. Enum fields use the names accepted by
// the analysis and criteria Parse functions.
type Analysis struct {
	RiskFreeRate   float64  `yaml:"risk_free_rate"`
	Sampling       string   `yaml:"sampling"`
	Zone           string   `yaml:"zone"`
	Annualization  string   `yaml:"annualization"`
	CashPolicy     string   `yaml:"cash_policy"`
	EquityMode     string   `yaml:"equity_mode"`
	OpenPositions  string   `yaml:"open_positions"`
	Representation string   `yaml:"representation"`
	Confidence     float64  `yaml:"confidence"`
	Threshold      float64  `yaml:"threshold"`
	ExpandLots     bool     `yaml:"expand_lots"`
	Criteria       []string `yaml:"criteria"`
}

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() *Config {
	return &Config{
		SQLitePath:       "data/candles.db",
		RedisAddr:        "localhost:6379",
		ReportTTL:        24 * time.Hour,
		MetricsAddr:      ":9090",
		LogLevel:         "info",
		NumBackend:       "double",
		DecimalPrecision: num.DefaultPrecision,
		Analysis: Analysis{
			Sampling:       "bar",
			Zone:           "UTC",
			Annualization:  "annualized",
			CashPolicy:     "cash-earns-risk-free",
			EquityMode:     "mark-to-market",
			OpenPositions:  "mark-to-market",
			Representation: "decimal",
			Confidence:     0.95,
		},
	}
}

// Load reads path (which may be empty or missing), then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.ParquetPath = getEnv("PARQUET_PATH", cfg.ParquetPath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.NumBackend = getEnv("NUM_BACKEND", cfg.NumBackend)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", cfg.TelegramChatID)
	cfg.Analysis.Sampling = getEnv("ANALYSIS_SAMPLING", cfg.Analysis.Sampling)
	cfg.Analysis.Zone = getEnv("ANALYSIS_ZONE", cfg.Analysis.Zone)
	cfg.Analysis.Representation = getEnv("ANALYSIS_REPRESENTATION", cfg.Analysis.Representation)
	if v := os.Getenv("ANALYSIS_CRITERIA"); v != "" {
		cfg.Analysis.Criteria = splitList(v)
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.DecimalPrecision, err = getEnvInt("DECIMAL_PRECISION", cfg.DecimalPrecision); err != nil {
		return nil, err
	}
	if cfg.Analysis.RiskFreeRate, err = getEnvFloat("ANALYSIS_RISK_FREE_RATE", cfg.Analysis.RiskFreeRate); err != nil {
		return nil, err
	}
	if cfg.Analysis.Confidence, err = getEnvFloat("ANALYSIS_CONFIDENCE", cfg.Analysis.Confidence); err != nil {
		return nil, err
	}
	if v := os.Getenv("REPORT_TTL"); v != "" {
		if cfg.ReportTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("[config] REPORT_TTL: %w", err)
		}
	}

	return cfg, nil
}

// Validate parses every enum and returns the first failure.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := c.Factory(); err != nil {
		return fmt.Errorf("num_backend: %w", err)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("telegram_token and telegram_chat_id must be set together")
	}
	if c.ReportTTL < 0 {
		return fmt.Errorf("report_ttl must not be negative")
	}
	if _, err := c.Settings(); err != nil {
		return err
	}
	return nil
}

// Level is the parsed log level, info when unparseable.
func (c *Config) Level() slog.Level {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}

// Factory returns the configured numeric backend.
func (c *Config) Factory() (num.Factory, error) {
	return num.FactoryByName(c.NumBackend, c.DecimalPrecision)
}

// Settings converts the analysis block into validated criteria settings.
func (c *Config) Settings() (criteria.Settings, error) {
	a := c.Analysis
	s := criteria.DefaultSettings()
	var err error

	if s.Representation, err = analysis.ParseRepresentation(a.Representation); err != nil {
		return s, fmt.Errorf("analysis.representation: %w", err)
	}
	if s.Sampling, err = analysis.ParseSamplingFrequency(a.Sampling); err != nil {
		return s, fmt.Errorf("analysis.sampling: %w", err)
	}
	if s.Annualization, err = criteria.ParseAnnualization(a.Annualization); err != nil {
		return s, fmt.Errorf("analysis.annualization: %w", err)
	}
	if s.CashPolicy, err = analysis.ParseCashReturnPolicy(a.CashPolicy); err != nil {
		return s, fmt.Errorf("analysis.cash_policy: %w", err)
	}
	if s.Mode, err = analysis.ParseEquityCurveMode(a.EquityMode); err != nil {
		return s, fmt.Errorf("analysis.equity_mode: %w", err)
	}
	if s.OpenPositions, err = analysis.ParseOpenPositionHandling(a.OpenPositions); err != nil {
		return s, fmt.Errorf("analysis.open_positions: %w", err)
	}
	if a.Zone != "" {
		if s.Zone, err = time.LoadLocation(a.Zone); err != nil {
			return s, fmt.Errorf("analysis.zone: %w", err)
		}
	}
	s.RiskFreeRate = a.RiskFreeRate
	s.Confidence = a.Confidence
	s.Threshold = a.Threshold
	s.ExpandLots = a.ExpandLots

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("analysis: %w", err)
	}
	for _, name := range a.Criteria {
		if _, err := criteria.ByName(name, s); err != nil {
			return s, fmt.Errorf("analysis.criteria: %w", err)
		}
	}
	return s, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("[config] %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("[config] %s: %w", key, err)
	}
	return f, nil
}
