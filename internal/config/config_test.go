package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fetch.Provider != "yahoo" || cfg.Fetch.Workers != 4 || cfg.Fetch.MaxAttempts != 3 {
		t.Errorf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Results.KeepRuns != 7 {
		t.Errorf("retention default should be 7, got %d", cfg.Results.KeepRuns)
	}
	if cfg.Criteria.MarketCapFilter {
		t.Error("market-cap filter must default to disabled")
	}
	if cfg.Criteria.MaxPriceToBook != 1.2 || cfg.Criteria.MaxDebtToEquity != 0.4 {
		t.Errorf("unexpected criteria defaults: %+v", cfg.Criteria)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "fetch:\n  workers: 2\ncriteria:\n  market_cap_filter: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCREENER_WORKERS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fetch.Workers != 8 {
		t.Errorf("env should override file, got %d workers", cfg.Fetch.Workers)
	}
	if !cfg.Criteria.MarketCapFilter {
		t.Error("file should enable the market-cap filter")
	}
}

func TestValidate_EmailRequiresCredentials(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Email.Enabled = true
	cfg.Email.To = "a@example.com"
	cfg.Email.From = "b@example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("enabled email without oauth2 credentials must not validate")
	}
}
