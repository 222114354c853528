package internal

import "math"

// FitTrend returns the ordinary least squares slope of series against x = 1..n.
// Series shorter than two points are flat.
func FitTrend(series []float64) float64 {
	slope, _ := linearRegression(series)
	return slope
}

// RSquared returns the coefficient of determination of the OLS fit, 0 for n < 2.
// A perfectly flat series fits perfectly.
func RSquared(series []float64) float64 {
	_, r2 := linearRegression(series)
	return r2
}

func linearRegression(series []float64) (slope, rSquared float64) {
	n := float64(len(series))
	if len(series) < 2 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range series {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, y := range series {
		predicted := slope*float64(i+1) + intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return slope, 1
	}
	return slope, 1 - ssRes/ssTot
}

// SeasonalFactor is the last value divided by the mean of the series.
// It is 1.0 for an empty series or a zero mean.
func SeasonalFactor(series []float64) float64 {
	if len(series) == 0 {
		return 1.0
	}
	mean := Describe(series).Mean
	if mean == 0 {
		return 1.0
	}
	return series[len(series)-1] / mean
}

// PredictNext projects one period ahead: (last + slope) * seasonal, floored at 0.
func PredictNext(series []float64, slope, seasonal float64) float64 {
	return PredictAhead(series, slope, seasonal, 1)
}

// PredictAhead projects steps periods ahead along the fitted slope, floored at 0.
func PredictAhead(series []float64, slope, seasonal float64, steps int) float64 {
	if len(series) == 0 {
		return 0
	}
	last := series[len(series)-1]
	v := (last + slope*float64(steps)) * seasonal
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
