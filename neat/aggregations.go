package neat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AggregationFunc combines a node's weighted inputs into one value.
type AggregationFunc func(inputs []float64) float64

// aggregations maps config names to aggregation functions.
var aggregations = map[string]AggregationFunc{
	"sum":     AggregateSum,
	"product": AggregateProduct,
	"min":     AggregateMin,
	"max":     AggregateMax,
	"maxabs":  AggregateMaxAbs,
	"mean":    AggregateMean,
	"median":  AggregateMedian,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationFunc, error) {
	if fn, ok := aggregations[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

// AggregateSum sums the inputs.
func AggregateSum(inputs []float64) float64 {
	return floats.Sum(inputs)
}

// AggregateProduct multiplies the inputs; 1.0 for none, as in neat-python.
func AggregateProduct(inputs []float64) float64 {
	product := 1.0
	for _, v := range inputs {
		product *= v
	}
	return product
}

// AggregateMin returns the smallest input, 0.0 for none.
func AggregateMin(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return floats.Min(inputs)
}

// AggregateMax returns the largest input, 0.0 for none.
func AggregateMax(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return floats.Max(inputs)
}

// AggregateMaxAbs returns the input with the largest magnitude, sign kept.
func AggregateMaxAbs(inputs []float64) float64 {
	maxAbs := 0.0
	for _, v := range inputs {
		if math.Abs(v) > math.Abs(maxAbs) {
			maxAbs = v
		}
	}
	return maxAbs
}

// AggregateMean averages the inputs, 0.0 for none.
func AggregateMean(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return stat.Mean(inputs, nil)
}

// AggregateMedian returns the median input, 0.0 for none.
func AggregateMedian(inputs []float64) float64 {
	return Median(inputs)
}
