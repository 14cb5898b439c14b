package models

import (
	"fmt"
	"time"
)

// Bar is one time step of underlying market data. Bars are produced by the
// data provider and consumed read-only; a series must be strictly increasing
// in time with no duplicate timestamps.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateSeries checks the provider contract on an already-fetched series:
// non-empty, strictly increasing timestamps, no duplicates. The engine calls
// this defensively before consuming any series.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("empty bar series")
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Date.Before(bars[i].Date) {
			return fmt.Errorf("bar series not strictly ordered at index %d: %v >= %v",
				i, bars[i-1].Date, bars[i].Date)
		}
	}
	return nil
}
