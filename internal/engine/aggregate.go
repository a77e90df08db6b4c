package engine

import "sort"

// Aggregate functions supported by group and pivot operations.
var aggFuncs = map[string]func([]float64) float64{
	"sum":    sum,
	"mean":   mean,
	"count":  func(vs []float64) float64 { return float64(len(vs)) },
	"min":    minVal,
	"max":    maxVal,
	"median": median,
}

// applyAgg aggregates the non-missing values of a group. Unknown function
// names fall back to sum, mirroring how loose interpreter output is
// tolerated elsewhere.
func applyAgg(values []float64, fn string) float64 {
	agg, ok := aggFuncs[fn]
	if !ok {
		agg = sum
	}
	return agg(values)
}

func sum(vs []float64) float64 {
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return sum(vs) / float64(len(vs))
}

func minVal(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxVal(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func median(vs []float64) float64 {
	n := len(vs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, vs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
