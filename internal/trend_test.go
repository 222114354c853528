package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitTrend(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single point", []float64{42}, 0},
		{"rising line", []float64{10, 20, 30, 40}, 10},
		{"falling line", []float64{40, 30, 20}, -10},
		{"flat", []float64{5, 5, 5, 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, FitTrend(tt.series), 1e-9)
		})
	}
}

func TestRSquared(t *testing.T) {
	assert.InDelta(t, 1.0, RSquared([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 1.0, RSquared([]float64{7, 7, 7}), 1e-9, "flat series fit perfectly")
	assert.Equal(t, 0.0, RSquared([]float64{3}))

	r2 := RSquared([]float64{1, 5, 2, 6, 3})
	assert.Greater(t, r2, 0.0)
	assert.Less(t, r2, 1.0)
}

func TestSeasonalFactor(t *testing.T) {
	assert.Equal(t, 1.0, SeasonalFactor(nil))
	assert.Equal(t, 1.0, SeasonalFactor([]float64{0, 0, 0}))
	assert.InDelta(t, 1.5, SeasonalFactor([]float64{10, 20, 30}), 1e-9)
}

func TestPredictNext(t *testing.T) {
	series := []float64{100, 110, 120}
	assert.InDelta(t, 130.0, PredictNext(series, 10, 1.0), 1e-9)
	assert.InDelta(t, 140.0, PredictAhead(series, 10, 1.0, 2), 1e-9)
	assert.InDelta(t, 65.0, PredictNext(series, 10, 0.5), 1e-9)
}

func TestPredictNext_FlooredAtZero(t *testing.T) {
	series := []float64{30, 20, 10}
	slope := FitTrend(series)

	assert.Equal(t, 0.0, PredictNext(series, slope, 1.0))
	assert.Equal(t, 0.0, PredictAhead(series, slope, 1.0, 5))
	assert.Equal(t, 0.0, PredictNext(nil, 0, 1.0))
}
