package internal

import "math"

type Consistency string

const (
	ConsistencyInsufficientData Consistency = "insufficient_data"
	ConsistencyConsistent       Consistency = "consistent"
	ConsistencyModerate         Consistency = "moderate"
	ConsistencyVariable         Consistency = "variable"
)

type TrendDirection string

const (
	TrendInsufficientData TrendDirection = "insufficient_data"
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
)

// Stats summarises a series with population variance.
type Stats struct {
	N        int
	Mean     float64
	Variance float64
	StdDev   float64
}

func Describe(series []float64) Stats {
	s := Stats{N: len(series)}
	if s.N == 0 {
		return s
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	s.Mean = sum / float64(s.N)
	var sq float64
	for _, v := range series {
		d := v - s.Mean
		sq += d * d
	}
	s.Variance = sq / float64(s.N)
	s.StdDev = math.Sqrt(s.Variance)
	return s
}

// ClassifyConsistency labels a series by its standard deviation relative to its mean:
// below 30% consistent, below 60% moderate, otherwise variable.
func ClassifyConsistency(series []float64) Consistency {
	if len(series) < 2 {
		return ConsistencyInsufficientData
	}
	s := Describe(series)
	switch {
	case s.StdDev == 0:
		return ConsistencyConsistent
	case s.StdDev < 0.3*s.Mean:
		return ConsistencyConsistent
	case s.StdDev < 0.6*s.Mean:
		return ConsistencyModerate
	default:
		return ConsistencyVariable
	}
}

// ClassifyTrend compares the mean of the second half against the first half.
// On odd counts the first half is the smaller one.
func ClassifyTrend(series []float64) TrendDirection {
	n := len(series)
	if n < 3 {
		return TrendInsufficientData
	}
	mid := n / 2
	first := Describe(series[:mid]).Mean
	second := Describe(series[mid:]).Mean

	switch {
	case second > first*1.1:
		return TrendIncreasing
	case second < first*0.9:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// consistencyMultiplier scales prediction confidence by how regular the history is.
func consistencyMultiplier(c Consistency) float64 {
	switch c {
	case ConsistencyConsistent:
		return 1.2
	case ConsistencyVariable:
		return 0.8
	default:
		return 1.0
	}
}
