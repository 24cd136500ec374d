package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/criteria"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SQLitePath != "data/candles.db" || cfg.RedisAddr != "localhost:6379" || cfg.ReportTTL != 24*time.Hour {
		t.Errorf("defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	s, _ := cfg.Settings()
	if s.Representation != analysis.Decimal || s.Zone != time.UTC || s.Confidence != 0.95 {
		t.Errorf("settings: %+v", s)
	}
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	path := writeFile(t, `
sqlite_path: /tmp/bars.db
report_ttl: 2h
num_backend: decimal
analysis:
  risk_free_rate: 0.065
  sampling: day
  zone: Asia/Kolkata
  annualization: period
  cash_policy: zero
  equity_mode: realized
  representation: percentage
  confidence: 0.99
  criteria: [sharpe, mdd, var]
`)
	t.Setenv("SQLITE_PATH", "/data/override.db")
	t.Setenv("ANALYSIS_CONFIDENCE", "0.9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SQLitePath != "/data/override.db" {
		t.Errorf("env should override file, got %s", cfg.SQLitePath)
	}
	if cfg.ReportTTL != 2*time.Hour || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("file values: ttl=%v redis=%s", cfg.ReportTTL, cfg.RedisAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Sampling != analysis.SampleDay || s.Annualization != criteria.PerPeriod ||
		s.CashPolicy != analysis.CashEarnsZero || s.Mode != analysis.Realized ||
		s.Representation != analysis.Percentage {
		t.Errorf("enums: %+v", s)
	}
	if s.Zone.String() != "Asia/Kolkata" || s.RiskFreeRate != 0.065 || s.Confidence != 0.9 {
		t.Errorf("values: zone=%v rf=%v conf=%v", s.Zone, s.RiskFreeRate, s.Confidence)
	}
	if len(cfg.Analysis.Criteria) != 3 {
		t.Errorf("criteria: %v", cfg.Analysis.Criteria)
	}
	if f, _ := cfg.Factory(); f.Name() != "decimal(20)" {
		t.Errorf("factory: %s", f.Name())
	}
}

func TestLoad_EnvCriteriaList(t *testing.T) {
	t.Setenv("ANALYSIS_CRITERIA", " sharpe, ,sortino ")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Analysis.Criteria) != 2 || cfg.Analysis.Criteria[1] != "sortino" {
		t.Errorf("criteria: %q", cfg.Analysis.Criteria)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(writeFile(t, "analysis: [oops")); err == nil {
		t.Error("expected YAML parse error")
	}
	t.Setenv("REDIS_DB", "one")
	if _, err := Load(""); err == nil {
		t.Error("expected REDIS_DB error")
	}
}

func TestValidate_FailsFast(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"backend", func(c *Config) { c.NumBackend = "bigfloat" }},
		{"ttl", func(c *Config) { c.ReportTTL = -time.Second }},
		{"sampling", func(c *Config) { c.Analysis.Sampling = "hourly" }},
		{"zone", func(c *Config) { c.Analysis.Zone = "Mars/Olympus" }},
		{"representation", func(c *Config) { c.Analysis.Representation = "ratio" }},
		{"confidence", func(c *Config) { c.Analysis.Confidence = 1 }},
		{"risk free", func(c *Config) { c.Analysis.RiskFreeRate = -2 }},
		{"criterion", func(c *Config) { c.Analysis.Criteria = []string{"alpha"} }},
		{"telegram chat", func(c *Config) { c.TelegramToken = "token" }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
