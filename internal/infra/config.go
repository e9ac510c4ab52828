package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kchart_go/internal/domain"
)

// Config holds the whole application configuration. Values come from the
// YAML file first, then environment variables (KCHART_*) override them.
type Config struct {
	App struct {
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Upstream struct {
		BaseURL           string   `yaml:"base_url" env:"UPSTREAM_BASE_URL"`
		WSURL             string   `yaml:"ws_url" env:"UPSTREAM_WS_URL"` // empty disables the push channel
		AuthToken         string   `yaml:"auth_token" env:"UPSTREAM_AUTH_TOKEN"`
		Items             []string `yaml:"items" env:"ITEMS" envSeparator:","`
		HistoryDays       int      `yaml:"history_days" env:"HISTORY_DAYS"`
		TimeoutSec        int      `yaml:"timeout_sec" env:"UPSTREAM_TIMEOUT_SEC"`
		MaxRequestsPerSec float64  `yaml:"max_requests_per_sec"`
		DefaultTradeSide  string   `yaml:"default_trade_side" env:"DEFAULT_TRADE_SIDE"`
	} `yaml:"upstream"`

	Refresh struct {
		SummaryIntervalSec   int `yaml:"summary_interval_sec" env:"SUMMARY_INTERVAL_SEC"`
		TradesIntervalSec    int `yaml:"trades_interval_sec" env:"TRADES_INTERVAL_SEC"`
		OrderBookIntervalSec int `yaml:"orderbook_interval_sec" env:"ORDERBOOK_INTERVAL_SEC"`
	} `yaml:"refresh"`

	Server struct {
		Addr           string   `yaml:"addr" env:"SERVER_ADDR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server"`

	Journal struct {
		Enabled bool   `yaml:"enabled" env:"JOURNAL_ENABLED"`
		Path    string `yaml:"path" env:"JOURNAL_PATH"`
	} `yaml:"journal"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"` // "text" or "json"
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, then applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "KCHART_"}); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.HistoryDays <= 0 {
		c.Upstream.HistoryDays = 29
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 10
	}
	if c.Upstream.DefaultTradeSide == "" {
		// Matches observed upstream behavior when direction is omitted.
		c.Upstream.DefaultTradeSide = "buy"
	}
	if c.Refresh.SummaryIntervalSec <= 0 {
		c.Refresh.SummaryIntervalSec = 5
	}
	if c.Refresh.TradesIntervalSec <= 0 {
		c.Refresh.TradesIntervalSec = 2
	}
	if c.Refresh.OrderBookIntervalSec <= 0 {
		c.Refresh.OrderBookIntervalSec = 5
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" ||
		(!strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://")) {
		return fmt.Errorf("invalid upstream base URL: %q", c.Upstream.BaseURL)
	}
	if c.Upstream.WSURL != "" &&
		!strings.HasPrefix(c.Upstream.WSURL, "ws://") && !strings.HasPrefix(c.Upstream.WSURL, "wss://") {
		return fmt.Errorf("invalid upstream WS URL: %q", c.Upstream.WSURL)
	}
	if len(c.Upstream.Items) == 0 {
		return fmt.Errorf("at least one item id is required")
	}
	if side := c.Upstream.DefaultTradeSide; side != "buy" && side != "sell" {
		return fmt.Errorf("default_trade_side must be \"buy\" or \"sell\", got %q", side)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal enabled but no path configured")
	}
	return nil
}

// FallbackSide returns the configured trade-side fallback as a domain value.
// Validate has already guaranteed it is a known side.
func (c *Config) FallbackSide() domain.Side {
	return domain.Side(c.Upstream.DefaultTradeSide)
}

// ResolveConfigPath finds config.yaml: current directory first, then the OS
// user config directory.
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if configRoot, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(configRoot, "kchart", "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	// Let LoadConfig surface the "file not found" error if it's really missing.
	return defaultPath
}
