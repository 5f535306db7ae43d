// Package config loads the ftc configuration: defaults, then TOML files,
// then a .env file, then FTC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for ftc.
type Config struct {
	Environment string          `toml:"environment"`
	Currency    string          `toml:"currency"`
	CustomerID  string          `toml:"customer_id"`
	Backend     BackendConfig   `toml:"backend"`
	Storage     StorageConfig   `toml:"storage"`
	Catalog     CatalogConfig   `toml:"catalog"`
	Logging     LoggingConfig   `toml:"logging"`
	Calendar    CalendarConfig  `toml:"calendar"`
	Estimates   EstimatesConfig `toml:"estimates"`
}

// BackendConfig holds the trade backend client configuration. An empty
// BaseURL means ftc works offline on the local catalog.
type BackendConfig struct {
	BaseURL     string `toml:"base_url"`
	Token       string `toml:"token"`
	SessionFile string `toml:"session_file"`
	Timeout     string `toml:"timeout"`
	RateLimit   int    `toml:"rate_limit"` // requests per second
	MaxRetries  int    `toml:"max_retries"`
	NavCache    bool   `toml:"nav_cache"`
}

// GetTimeout parses and returns the timeout duration.
func (c *BackendConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// StorageConfig locates the local position database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig locates the local fund catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// CalendarConfig lists market holidays, in addition to weekends.
type CalendarConfig struct {
	Holidays []string `toml:"holidays"`
}

// EstimatesConfig tunes the local estimates.
type EstimatesConfig struct {
	RedemptionFeeRate string `toml:"redemption_fee_rate"` // percent
	CostBasis         string `toml:"cost_basis"`          // "recorded" or "average"
	UseSchedule       bool   `toml:"use_schedule"`        // price redemptions with the fund's holding period fees
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Currency:    fundtrade.DefaultCurrency,
		Backend: BackendConfig{
			Timeout:    "30s",
			RateLimit:  5,
			MaxRetries: 3,
		},
		Storage: StorageConfig{Path: "ftc.db"},
		Catalog: CatalogConfig{Path: "funds.toml"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Estimates: EstimatesConfig{
			RedemptionFeeRate: "0.1",
			CostBasis:         fundtrade.AsRecorded.String(),
		},
	}
}

// Load loads configuration from files with environment overrides. Missing
// files are skipped; later files override earlier ones.
func Load(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// A missing .env is fine, the environment alone may be enough.
	_ = godotenv.Load()

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies FTC_* environment variables, reporting every
// malformed value at once.
func applyEnvOverrides(config *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
			return
		}
		*dst = n
	}
	boolean := func(name string, dst *bool) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
			return
		}
		*dst = b
	}

	str("FTC_ENV", &config.Environment)
	str("FTC_CURRENCY", &config.Currency)
	str("FTC_CUSTOMER_ID", &config.CustomerID)
	str("FTC_BACKEND_URL", &config.Backend.BaseURL)
	str("FTC_TOKEN", &config.Backend.Token)
	str("FTC_SESSION_FILE", &config.Backend.SessionFile)
	str("FTC_BACKEND_TIMEOUT", &config.Backend.Timeout)
	integer("FTC_RATE_LIMIT", &config.Backend.RateLimit)
	integer("FTC_MAX_RETRIES", &config.Backend.MaxRetries)
	boolean("FTC_NAV_CACHE", &config.Backend.NavCache)
	str("FTC_DB_PATH", &config.Storage.Path)
	str("FTC_CATALOG", &config.Catalog.Path)
	str("FTC_LOG_LEVEL", &config.Logging.Level)
	str("FTC_LOG_FORMAT", &config.Logging.Format)
	str("FTC_REDEMPTION_FEE_RATE", &config.Estimates.RedemptionFeeRate)
	str("FTC_COST_BASIS", &config.Estimates.CostBasis)
	boolean("FTC_USE_SCHEDULE", &config.Estimates.UseSchedule)
	if v := os.Getenv("FTC_HOLIDAYS"); v != "" {
		config.Calendar.Holidays = strings.Split(v, ",")
	}

	config.Currency = strings.ToUpper(config.Currency)
	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency must be a 3 letter code, got %q", c.Currency))
	}
	if c.Backend.BaseURL != "" && !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL))
	}
	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("backend.timeout: %w", err))
	}
	if c.Backend.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("backend.rate_limit must be positive, got %d", c.Backend.RateLimit))
	}
	if c.Backend.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("backend.max_retries must not be negative, got %d", c.Backend.MaxRetries))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if _, err := c.HolidayCalendar(); err != nil {
		errs = append(errs, fmt.Errorf("calendar.holidays: %w", err))
	}
	if _, err := c.RedemptionRate(); err != nil {
		errs = append(errs, fmt.Errorf("estimates.redemption_fee_rate: %w", err))
	}
	if _, err := c.CostBasisMethod(); err != nil {
		errs = append(errs, fmt.Errorf("estimates.cost_basis: %w", err))
	}
	return errors.Join(errs...)
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Remote reports whether a trade backend is configured.
func (c *Config) Remote() bool { return c.Backend.BaseURL != "" }

// HolidayCalendar returns the business-day calendar.
func (c *Config) HolidayCalendar() (*date.HolidayCalendar, error) {
	days := make([]string, 0, len(c.Calendar.Holidays))
	for _, d := range c.Calendar.Holidays {
		if d = strings.TrimSpace(d); d != "" {
			days = append(days, d)
		}
	}
	return date.ParseHolidayCalendar(days)
}

// RedemptionRate returns the flat redemption fee estimate.
func (c *Config) RedemptionRate() (fundtrade.Rate, error) {
	d, ok := fundtrade.ParseAmount(c.Estimates.RedemptionFeeRate)
	if !ok {
		return fundtrade.Rate{}, fmt.Errorf("invalid percentage %q", c.Estimates.RedemptionFeeRate)
	}
	r := fundtrade.RateFromPercent(d)
	return r, r.Validate()
}

// CostBasisMethod returns the configured cost basis method.
func (c *Config) CostBasisMethod() (fundtrade.CostBasisMethod, error) {
	return fundtrade.ParseCostBasisMethod(c.Estimates.CostBasis)
}

// TrackerOptions returns the Tracker options the configuration implies.
// It must only be called on a validated Config.
func (c *Config) TrackerOptions() []fundtrade.Option {
	cal, _ := c.HolidayCalendar()
	rate, _ := c.RedemptionRate()
	method, _ := c.CostBasisMethod()
	return []fundtrade.Option{
		fundtrade.WithCalendar(cal),
		fundtrade.WithRedemptionEstimate(rate),
		fundtrade.WithCostBasis(method),
		fundtrade.WithScheduledRedemptionFees(c.Estimates.UseSchedule),
	}
}
