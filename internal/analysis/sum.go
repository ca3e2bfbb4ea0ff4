package analysis

import (
	"math"
	"slices"
)

// sortedCopy returns vals in ascending order without touching the input.
func sortedCopy(vals []float64) []float64 {
	out := slices.Clone(vals)
	slices.Sort(out)
	return out
}

// exactSum returns the correctly rounded sum of vals using Shewchuk's partials.
// Callers pass sorted input so that an intermediate overflow does not depend on
// row order. An overflow returns ±Inf.
func exactSum(vals []float64) float64 {
	partials := make([]float64, 0, 8)
	for _, x := range vals {
		i := 0
		for _, y := range partials {
			if math.Abs(x) < math.Abs(y) {
				x, y = y, x
			}
			hi := x + y
			if math.IsInf(hi, 0) {
				return hi
			}
			lo := y - (hi - x)
			if lo != 0 {
				partials[i] = lo
				i++
			}
			x = hi
		}
		partials = append(partials[:i], x)
	}

	n := len(partials)
	if n == 0 {
		return 0
	}
	n--
	hi := partials[n]
	lo := 0.0
	for n > 0 {
		x := hi
		n--
		y := partials[n]
		hi = x + y
		lo = y - (hi - x)
		if lo != 0 {
			break
		}
	}
	// half-even rounding when the remaining partials push past the halfway point
	if n > 0 && ((lo < 0 && partials[n-1] < 0) || (lo > 0 && partials[n-1] > 0)) {
		y := lo * 2
		x := hi + y
		if y == x-hi {
			hi = x
		}
	}
	return hi
}

// mean is exactSum over a sorted copy divided by the count.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return exactSum(sortedCopy(vals)) / float64(len(vals))
}
