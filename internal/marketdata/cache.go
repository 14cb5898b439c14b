package marketdata

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// CachedProvider wraps a Provider with bounded LRU read caches. Cache
// ownership is explicit: one instance is constructed and passed in, never a
// process-wide singleton. Keys include every query parameter so a hit can
// never serve data for a different symbol or date range.
type CachedProvider struct {
	inner    Provider
	series   *lru.Cache[string, []models.Bar]
	premiums *lru.Cache[string, float64]
	strikes  *lru.Cache[string, []float64]
}

// Compile-time interface check.
var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps inner with caches of the given entry counts.
func NewCachedProvider(inner Provider, seriesEntries, premiumEntries int) (*CachedProvider, error) {
	if seriesEntries <= 0 {
		seriesEntries = 16
	}
	if premiumEntries <= 0 {
		premiumEntries = 4096
	}
	seriesCache, err := lru.New[string, []models.Bar](seriesEntries)
	if err != nil {
		return nil, fmt.Errorf("creating series cache: %w", err)
	}
	premiumCache, err := lru.New[string, float64](premiumEntries)
	if err != nil {
		return nil, fmt.Errorf("creating premium cache: %w", err)
	}
	strikeCache, err := lru.New[string, []float64](seriesEntries)
	if err != nil {
		return nil, fmt.Errorf("creating strike cache: %w", err)
	}
	return &CachedProvider{
		inner:    inner,
		series:   seriesCache,
		premiums: premiumCache,
		strikes:  strikeCache,
	}, nil
}

// GetSeries returns the cached series when the exact query was seen before.
func (c *CachedProvider) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	key := fmt.Sprintf("%s|%d|%d", symbol, start.Unix(), end.Unix())
	if bars, ok := c.series.Get(key); ok {
		return bars, nil
	}
	bars, err := c.inner.GetSeries(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	c.series.Add(key, bars)
	return bars, nil
}

// GetRecordedPremium caches positive lookups only; misses stay misses so a
// later import can fill them.
func (c *CachedProvider) GetRecordedPremium(ctx context.Context, symbol string, strike float64,
	class models.OptionClass, date, expiry time.Time) (float64, error) {
	key := fmt.Sprintf("%s|%.4f|%s|%d|%d", symbol, strike, class, date.Unix(), expiry.Unix())
	if premium, ok := c.premiums.Get(key); ok {
		return premium, nil
	}
	premium, err := c.inner.GetRecordedPremium(ctx, symbol, strike, class, date, expiry)
	if err != nil {
		return 0, err
	}
	c.premiums.Add(key, premium)
	return premium, nil
}

// GetStrikes returns the cached ladder for an expiry when available.
func (c *CachedProvider) GetStrikes(ctx context.Context, symbol string, expiry time.Time,
	class models.OptionClass) ([]float64, error) {
	key := fmt.Sprintf("%s|%d|%s", symbol, expiry.Unix(), class)
	if ladder, ok := c.strikes.Get(key); ok {
		return ladder, nil
	}
	ladder, err := c.inner.GetStrikes(ctx, symbol, expiry, class)
	if err != nil {
		return nil, err
	}
	c.strikes.Add(key, ladder)
	return ladder, nil
}
