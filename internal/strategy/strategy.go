// Package strategy defines the pluggable strategy contract and the shipped
// example strategies. A strategy implements exactly one of two execution
// capabilities: bar-by-bar (BarStrategy) or whole-series batch
// (BatchStrategy). The engine resolves the capability once, up front, by
// explicit type assertion; there is no implicit probing.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/models"
)

// Strategy is the base contract every strategy implements.
type Strategy interface {
	Name() string
}

// PositionView is the read-only snapshot of the open position handed to
// bar-by-bar strategies. Strategies never hold a reference into the live
// Position; the engine owns it and exposes it by value.
type PositionView struct {
	Open          bool
	Kind          string
	DaysHeld      int
	UnrealizedPnL float64
	PnLPercent    float64
}

// BarStrategy is the bar-by-bar capability: called once per bar with a
// bounded trailing window of history (never the full series from the start)
// and the current position snapshot, returning a Signal.
type BarStrategy interface {
	Strategy
	OnBar(bar models.Bar, window []models.Bar, pos PositionView) (models.Signal, error)
}

// BatchStrategy is the whole-series capability: invoked once with the full
// series, producing an internally managed trade log whose timestamps drive
// replay ordering. Entries carry pre-cost P&L; the engine's accountant
// applies brokerage and slippage during replay.
type BatchStrategy interface {
	Strategy
	Run(ctx context.Context, series []models.Bar) ([]models.TradeLogEntry, error)
}

// Factory builds a strategy from validated configuration and market tools.
type Factory func(cfg config.StrategyConfig, tools *MarketTools, logger *logrus.Logger) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a strategy factory under a unique name. Shipped strategies
// register themselves in init; external strategies may register additional
// names before New is called.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("strategy %q registered twice", name))
	}
	registry[name] = factory
}

// New constructs the named strategy.
func New(cfg config.StrategyConfig, tools *MarketTools, logger *logrus.Logger) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %v)", cfg.Name, List())
	}
	return factory(cfg, tools, logger)
}

// List returns the registered strategy names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
