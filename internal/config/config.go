// Package config provides configuration management for backtest runs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Defaults applied by normalize before validation.
const (
	defaultWindowSize        = 500
	defaultEquitySampleEvery = 10
	defaultStrikeTolerance   = 0.05
	defaultLadderWidth       = 40
	defaultSeriesCacheSize   = 16
	defaultPremiumCacheSize  = 4096
)

// Config is the complete configuration for one backtest run.
type Config struct {
	Symbol    string `yaml:"symbol"`
	StartDate string `yaml:"start_date"` // YYYY-MM-DD
	EndDate   string `yaml:"end_date"`   // YYYY-MM-DD

	InitialCash   float64 `yaml:"initial_cash"`
	BrokerageRate float64 `yaml:"brokerage_rate"` // fraction of notional, entry and exit
	SlippageRate  float64 `yaml:"slippage_rate"`  // fraction of premium, per leg transaction

	// WindowSize bounds the trailing history slice handed to strategies.
	WindowSize int `yaml:"window_size"`
	// EquitySampleEvery samples the equity curve every k-th bar.
	EquitySampleEvery int `yaml:"equity_sample_every"`
	// StrikeTolerance is the maximum relative distance between a requested
	// strike and the nearest tradable one before entry is aborted.
	StrikeTolerance float64 `yaml:"strike_tolerance"`
	// LadderWidth is how many strike steps each side of ATM to synthesize
	// when the provider has no recorded ladder.
	LadderWidth int `yaml:"ladder_width"`

	Strategy StrategyConfig `yaml:"strategy"`
	Data     DataConfig     `yaml:"data"`

	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// StrategyConfig holds the per-strategy parameters. All shipped strategies
// draw from this one recognized set; unknown keys are rejected at load time.
type StrategyConfig struct {
	Name string `yaml:"name"`

	EntryDay string `yaml:"entry_day"` // weekday name, e.g. "monday"
	HoldDays int    `yaml:"hold_days"`

	ProfitTargetPct float64 `yaml:"profit_target_pct"` // fraction of |net entry cost|
	StopLossPct     float64 `yaml:"stop_loss_pct"`     // fraction of |net entry cost|

	StrikeStep    float64 `yaml:"strike_step"`    // ladder spacing in price units
	StrikeSpacing float64 `yaml:"strike_spacing"` // distance between spread strikes
	OTMPct        float64 `yaml:"otm_pct"`        // strangle OTM offset, fraction of spot
	LotSize       int     `yaml:"lot_size"`

	ATRPeriod           int     `yaml:"atr_period"`
	MomentumLookback    int     `yaml:"momentum_lookback"`
	MomentumThreshold   float64 `yaml:"momentum_threshold"`
	VolatilityThreshold float64 `yaml:"volatility_threshold"`
}

// DataConfig selects and sizes the market data provider.
type DataConfig struct {
	Source string `yaml:"source"` // sqlite | synthetic
	Path   string `yaml:"path"`   // sqlite file path
	Seed   int64  `yaml:"seed"`   // synthetic walk seed

	SeriesCacheSize  int `yaml:"series_cache_size"`
	PremiumCacheSize int `yaml:"premium_cache_size"`
}

// Load reads, strictly parses, and validates the configuration file.
// Unknown keys are a load error, not a warning.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// It normalizes defaults first, so a validated Config is ready to run.
func (c *Config) Validate() error {
	c.normalize()

	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	start, err := c.ParseStartDate()
	if err != nil {
		return fmt.Errorf("start_date invalid: %w", err)
	}
	end, err := c.ParseEndDate()
	if err != nil {
		return fmt.Errorf("end_date invalid: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("start_date (%s) must be before end_date (%s)", c.StartDate, c.EndDate)
	}

	if c.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be > 0")
	}
	if c.BrokerageRate < 0 || c.BrokerageRate >= 1 {
		return fmt.Errorf("brokerage_rate must be in [0,1)")
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return fmt.Errorf("slippage_rate must be in [0,1)")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be > 0")
	}
	if c.EquitySampleEvery <= 0 {
		return fmt.Errorf("equity_sample_every must be > 0")
	}
	if c.StrikeTolerance <= 0 || c.StrikeTolerance >= 1 {
		return fmt.Errorf("strike_tolerance must be in (0,1)")
	}
	if c.LadderWidth <= 0 {
		return fmt.Errorf("ladder_width must be > 0")
	}

	if err := c.Strategy.validate(); err != nil {
		return err
	}
	return c.Data.validate()
}

func (s *StrategyConfig) validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := ParseWeekday(s.EntryDay); err != nil {
		return fmt.Errorf("strategy.entry_day invalid: %w", err)
	}
	if s.HoldDays <= 0 {
		return fmt.Errorf("strategy.hold_days must be > 0")
	}
	if s.ProfitTargetPct <= 0 {
		return fmt.Errorf("strategy.profit_target_pct must be > 0")
	}
	if s.StopLossPct <= 0 {
		return fmt.Errorf("strategy.stop_loss_pct must be > 0")
	}
	if s.StrikeStep <= 0 {
		return fmt.Errorf("strategy.strike_step must be > 0")
	}
	if s.StrikeSpacing <= 0 {
		return fmt.Errorf("strategy.strike_spacing must be > 0")
	}
	if s.OTMPct < 0 || s.OTMPct >= 0.5 {
		return fmt.Errorf("strategy.otm_pct must be in [0,0.5)")
	}
	if s.LotSize <= 0 {
		return fmt.Errorf("strategy.lot_size must be > 0")
	}
	if s.ATRPeriod <= 0 {
		return fmt.Errorf("strategy.atr_period must be > 0")
	}
	if s.MomentumLookback <= 0 {
		return fmt.Errorf("strategy.momentum_lookback must be > 0")
	}
	return nil
}

func (d *DataConfig) validate() error {
	switch d.Source {
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("data.path is required for sqlite source")
		}
	case "synthetic":
		// seed 0 is allowed; it is still deterministic
	default:
		return fmt.Errorf("data.source must be 'sqlite' or 'synthetic'")
	}
	if d.SeriesCacheSize < 0 || d.PremiumCacheSize < 0 {
		return fmt.Errorf("data cache sizes must be >= 0")
	}
	return nil
}

// normalize fills defaults for optional fields.
func (c *Config) normalize() {
	if c.WindowSize == 0 {
		c.WindowSize = defaultWindowSize
	}
	if c.EquitySampleEvery == 0 {
		c.EquitySampleEvery = defaultEquitySampleEvery
	}
	if c.StrikeTolerance == 0 {
		c.StrikeTolerance = defaultStrikeTolerance
	}
	if c.LadderWidth == 0 {
		c.LadderWidth = defaultLadderWidth
	}
	if c.Data.SeriesCacheSize == 0 {
		c.Data.SeriesCacheSize = defaultSeriesCacheSize
	}
	if c.Data.PremiumCacheSize == 0 {
		c.Data.PremiumCacheSize = defaultPremiumCacheSize
	}
	if c.Strategy.EntryDay == "" {
		c.Strategy.EntryDay = "monday"
	}
	if c.Strategy.ATRPeriod == 0 {
		c.Strategy.ATRPeriod = 14
	}
	if c.Strategy.MomentumLookback == 0 {
		c.Strategy.MomentumLookback = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ParseStartDate returns the parsed start date in UTC.
func (c *Config) ParseStartDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", c.StartDate, time.UTC)
}

// ParseEndDate returns the parsed end date in UTC.
func (c *Config) ParseEndDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", c.EndDate, time.UTC)
}

// ParseWeekday maps a lowercase weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
}

// EntryWeekday returns the validated entry day-of-week.
func (s *StrategyConfig) EntryWeekday() time.Weekday {
	d, err := ParseWeekday(s.EntryDay)
	if err != nil {
		return time.Monday
	}
	return d
}
