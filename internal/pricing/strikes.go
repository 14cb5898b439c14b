package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/util"
)

// ErrNoStrike reports that no tradable strike exists within tolerance of the
// requested target. Entry construction treats this as a non-fatal
// "could not enter" outcome.
type ErrNoStrike struct {
	Target    float64
	Tolerance float64
}

func (e *ErrNoStrike) Error() string {
	return fmt.Sprintf("no tradable strike within %.1f%% of target %.2f",
		e.Tolerance*100, e.Target)
}

// ResolveStrike maps a symbolic strike request (ATM/OTM/ITM plus offset) to a
// tradable strike from the ladder. The ladder must be sorted ascending.
// tolerance is the maximum relative distance from the target strike; a
// resolution outside it fails rather than silently picking a far strike.
func ResolveStrike(spec models.LegSpec, spot float64, ladder []float64, tolerance float64) (float64, error) {
	if len(ladder) == 0 {
		return 0, &ErrNoStrike{Target: spot, Tolerance: tolerance}
	}

	target := targetStrike(spec, spot)

	var candidate float64
	switch {
	case spec.Select == models.StrikeATM:
		candidate = nearest(ladder, target)
	case wantsAbove(spec):
		// first ladder strike at or above target
		i := sort.SearchFloat64s(ladder, target)
		if i == len(ladder) {
			i = len(ladder) - 1
		}
		candidate = ladder[i]
	default:
		// last ladder strike at or below target
		i := sort.SearchFloat64s(ladder, target)
		if i == len(ladder) || ladder[min(i, len(ladder)-1)] > target {
			i--
		}
		if i < 0 {
			i = 0
		}
		candidate = ladder[i]
	}

	if target > 0 && math.Abs(candidate-target)/target > tolerance {
		return 0, &ErrNoStrike{Target: target, Tolerance: tolerance}
	}
	return candidate, nil
}

// targetStrike computes the ideal (possibly untradable) strike for a request.
func targetStrike(spec models.LegSpec, spot float64) float64 {
	switch spec.Select {
	case models.StrikeOTM:
		if spec.Class == models.OptionCall {
			return spot * (1 + spec.OffsetPct)
		}
		return spot * (1 - spec.OffsetPct)
	case models.StrikeITM:
		if spec.Class == models.OptionCall {
			return spot * (1 - spec.OffsetPct)
		}
		return spot * (1 + spec.OffsetPct)
	default:
		return spot
	}
}

// wantsAbove reports whether the request resolves upward from target.
// OTM calls and ITM puts sit above spot; their mirror cases sit below.
func wantsAbove(spec models.LegSpec) bool {
	if spec.Class == models.OptionCall {
		return spec.Select == models.StrikeOTM
	}
	return spec.Select == models.StrikeITM
}

// nearest returns the ladder strike closest to target.
func nearest(ladder []float64, target float64) float64 {
	i := sort.SearchFloat64s(ladder, target)
	if i == 0 {
		return ladder[0]
	}
	if i == len(ladder) {
		return ladder[len(ladder)-1]
	}
	if target-ladder[i-1] <= ladder[i]-target {
		return ladder[i-1]
	}
	return ladder[i]
}

// SynthesizeLadder builds a strike ladder around spot when the data provider
// has no recorded ladder: strikes at the given step covering width steps on
// each side of the at-the-money strike.
func SynthesizeLadder(spot, step float64, width int) []float64 {
	if step <= 0 || width <= 0 {
		return nil
	}
	atm := util.RoundToTick(spot, step)
	ladder := make([]float64, 0, 2*width+1)
	for i := -width; i <= width; i++ {
		s := atm + float64(i)*step
		if s > 0 {
			ladder = append(ladder, s)
		}
	}
	return ladder
}
