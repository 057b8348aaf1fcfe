package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Universe struct {
		File        string   `yaml:"file"`
		Refresh     bool     `yaml:"refresh"`
		RefreshURLs []string `yaml:"refresh_urls"`
	} `yaml:"universe"`
	Fetch struct {
		Provider    string  `yaml:"provider"`
		TimeoutSec  int     `yaml:"timeout_sec"`
		MaxAttempts int     `yaml:"max_attempts"`
		RatePerSec  float64 `yaml:"rate_per_sec"`
		Burst       int     `yaml:"burst"`
		Workers     int     `yaml:"workers"`
	} `yaml:"fetch"`
	Criteria struct {
		MinPrice             float64  `yaml:"min_price"`
		MarketCapFilter      bool     `yaml:"market_cap_filter"`
		MinMarketCap         float64  `yaml:"min_market_cap"`
		MaxDebtToEquity      float64  `yaml:"max_debt_to_equity"`
		MaxPriceToBook       float64  `yaml:"max_price_to_book"`
		MinNetMargin         float64  `yaml:"min_net_margin"`
		MaxAboveThreeYearLow float64  `yaml:"max_above_three_year_low"`
		ExcludedIndustries   []string `yaml:"excluded_industries"`
	} `yaml:"criteria"`
	Results struct {
		Dir       string `yaml:"dir"`
		AuditFile string `yaml:"audit_file"`
		KeepRuns  int    `yaml:"keep_runs"`
		LockFile  string `yaml:"lock_file"`
	} `yaml:"results"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Email struct {
		Enabled      bool   `yaml:"enabled"`
		To           string `yaml:"to"`
		From         string `yaml:"from"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RefreshToken string `yaml:"refresh_token"`
		TokenURL     string `yaml:"token_url"`
	} `yaml:"email"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("UNIVERSE_FILE"); v != "" {
		cfg.Universe.File = v
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.Results.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SCREENER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.Workers = n
		}
	}
	if v := os.Getenv("MARKET_CAP_FILTER"); v != "" {
		cfg.Criteria.MarketCapFilter = v == "true" || v == "1"
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("EMAIL_TO"); v != "" {
		cfg.Email.To = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("GMAIL_CLIENT_ID"); v != "" {
		cfg.Email.ClientID = v
	}
	if v := os.Getenv("GMAIL_CLIENT_SECRET"); v != "" {
		cfg.Email.ClientSecret = v
	}
	if v := os.Getenv("GMAIL_REFRESH_TOKEN"); v != "" {
		cfg.Email.RefreshToken = v
	}

	// Defaults
	if cfg.Universe.File == "" {
		cfg.Universe.File = "data/us_stocks.txt"
	}
	if cfg.Fetch.Provider == "" {
		cfg.Fetch.Provider = "yahoo"
	}
	if cfg.Fetch.TimeoutSec == 0 {
		cfg.Fetch.TimeoutSec = 30
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if cfg.Fetch.RatePerSec == 0 {
		cfg.Fetch.RatePerSec = 2
	}
	if cfg.Fetch.Burst == 0 {
		cfg.Fetch.Burst = 1
	}
	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 4
	}
	if cfg.Criteria.MinPrice == 0 {
		cfg.Criteria.MinPrice = 5
	}
	if cfg.Criteria.MinMarketCap == 0 {
		cfg.Criteria.MinMarketCap = 50e6
	}
	if cfg.Criteria.MaxDebtToEquity == 0 {
		cfg.Criteria.MaxDebtToEquity = 0.4
	}
	if cfg.Criteria.MaxPriceToBook == 0 {
		cfg.Criteria.MaxPriceToBook = 1.2
	}
	if cfg.Criteria.MaxAboveThreeYearLow == 0 {
		cfg.Criteria.MaxAboveThreeYearLow = 0.35
	}
	if len(cfg.Criteria.ExcludedIndustries) == 0 {
		cfg.Criteria.ExcludedIndustries = []string{"financial", "real estate"}
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Results.AuditFile == "" {
		cfg.Results.AuditFile = "all_stocks_results.txt"
	}
	if cfg.Results.KeepRuns == 0 {
		cfg.Results.KeepRuns = 7
	}
	if cfg.Results.LockFile == "" {
		cfg.Results.LockFile = "screener.lock"
	}
	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.TokenURL == "" {
		cfg.Email.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 18 * * 1-5"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Universe.File == "" {
		return fmt.Errorf("universe.file is required")
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if c.Results.KeepRuns < 1 {
		return fmt.Errorf("results.keep_runs must be at least 1")
	}
	if c.Email.Enabled {
		if c.Email.To == "" || c.Email.From == "" {
			return fmt.Errorf("email.to and email.from are required when email is enabled")
		}
		if c.Email.ClientID == "" || c.Email.ClientSecret == "" || c.Email.RefreshToken == "" {
			return fmt.Errorf("email oauth2 credentials are required when email is enabled")
		}
	}
	return nil
}
