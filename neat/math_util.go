package neat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// clamp restricts a value to the range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// Mean averages a slice of values, 0.0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return stat.Mean(values, nil)
}

// Median returns the middle value, 0.0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0
}

// speciesFitnessFuncs are the per-species measures stagnation can track,
// selected by the species_fitness_func config value.
var speciesFitnessFuncs = map[string]func([]float64) float64{
	"mean":   Mean,
	"median": Median,
	"max": func(values []float64) float64 {
		if len(values) == 0 {
			return 0.0
		}
		return floats.Max(values)
	},
	"min": func(values []float64) float64 {
		if len(values) == 0 {
			return 0.0
		}
		return floats.Min(values)
	},
}
