// Package util holds small price helpers shared across the simulator.
package util

import "math"

// RoundToTick snaps x to the nearest multiple of tick, so spot prices land
// on real strike rungs and premiums on quotable increments. A non-positive
// tick returns x unchanged.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}
