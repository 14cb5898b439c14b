package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/marketdata"
	"github.com/eddiefleurent/optionsim/internal/pricing"
	"github.com/eddiefleurent/optionsim/internal/strategy"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "optionsim",
	Short: "An options-strategy backtesting engine",
	Long: `Optionsim simulates options strategies against historical or synthetic
price series.

It provides tools for:
  - Backtesting bar-by-bar and batch option strategies
  - Premium estimation when no recorded option prices exist
  - Transaction cost accounting (brokerage and slippage)
  - Importing bar data into a local SQLite store
  - Serving results and live progress over HTTP`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to config file")
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// buildProvider assembles the data provider stack configured for the run:
// the base source wrapped with the LRU cache, wrapped with the lookup
// circuit breaker.
func buildProvider(cfg *config.Config, logger *logrus.Logger) (marketdata.Provider, error) {
	var base marketdata.Provider
	switch cfg.Data.Source {
	case "sqlite":
		p, err := marketdata.NewSQLiteProvider(cfg.Data.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite provider: %w", err)
		}
		base = p
	case "synthetic":
		base = marketdata.NewSyntheticProvider(cfg.Data.Seed)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}

	cached, err := marketdata.NewCachedProvider(base, cfg.Data.SeriesCacheSize, cfg.Data.PremiumCacheSize)
	if err != nil {
		return nil, fmt.Errorf("building provider cache: %w", err)
	}
	return marketdata.NewBreakerProvider(cached, logger), nil
}

// buildTools bundles the pricing services strategies and the engine share.
func buildTools(cfg *config.Config, provider marketdata.Provider, logger *logrus.Logger) *strategy.MarketTools {
	return &strategy.MarketTools{
		Symbol:          cfg.Symbol,
		Quoter:          pricing.NewQuoter(provider, pricing.NewEstimator(), logger),
		Provider:        provider,
		StrikeStep:      cfg.Strategy.StrikeStep,
		StrikeTolerance: cfg.StrikeTolerance,
		LadderWidth:     cfg.LadderWidth,
		Logger:          logger,
	}
}
