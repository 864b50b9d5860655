// Package plates computes which plates to load on each side of a barbell.
package plates

import (
	"errors"
	"math"
	"sort"
)

// DefaultBar is the standard Olympic bar weight in kg.
const DefaultBar = 20.0

// DefaultDenominations are the plates available in the gym, in kg.
var DefaultDenominations = []float64{25, 20, 15, 10, 5, 2, 1}

// MaxPlatesPerSide bounds the result; weight beyond it is left in Remainder.
const MaxPlatesPerSide = 64

// ErrInvalidWeight is returned by Check for weights that are negative or not
// finite.
var ErrInvalidWeight = errors.New("weight and bar must be finite and not negative")

// epsilon absorbs float drift from fractional plates such as 1.25.
const epsilon = 1e-9

// Load is the result of a plate calculation.
type Load struct {
	Total     float64   `json:"total"`
	Bar       float64   `json:"bar"`
	PerSide   []float64 `json:"perSide"`
	Remainder float64   `json:"remainder"`
}

// PerSide returns the plates for one side, heaviest first, using a greedy
// pick from denominations. Weight that no plate can cover is dropped.
func PerSide(total, bar float64, denominations []float64) []float64 {
	return Calculate(total, bar, denominations).PerSide
}

// DefaultPerSide is PerSide with the default bar and plates.
func DefaultPerSide(total float64) []float64 {
	return PerSide(total, DefaultBar, DefaultDenominations)
}

// Check validates user-supplied total and bar weights.
func Check(total, bar float64) error {
	for _, v := range []float64{total, bar} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidWeight
		}
	}
	return nil
}

// Calculate is PerSide plus the per-side weight left uncovered. At most
// MaxPlatesPerSide plates are returned. Weights that fail Check yield no
// plates.
func Calculate(total, bar float64, denominations []float64) Load {
	l := Load{Total: total, Bar: bar, PerSide: []float64{}}
	if Check(total, bar) != nil {
		return l
	}
	target := (total - bar) / 2
	if target <= 0 {
		return l
	}

	denoms := append([]float64(nil), denominations...)
	sort.Sort(sort.Reverse(sort.Float64Slice(denoms)))

	remaining := target
	for _, p := range denoms {
		if p <= 0 {
			continue
		}
		for remaining+epsilon >= p && len(l.PerSide) < MaxPlatesPerSide {
			l.PerSide = append(l.PerSide, p)
			remaining -= p
		}
	}
	if remaining > epsilon {
		l.Remainder = remaining
	}
	return l
}
