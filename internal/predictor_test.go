package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthly(values ...string) []TimeSeriesPoint {
	points := make([]TimeSeriesPoint, len(values))
	for i, v := range values {
		points[i] = TimeSeriesPoint{PeriodKey: date("2025-01-01").AddDate(0, i, 0).Format(monthLayout), Total: amount(v), Count: 1}
	}
	return points
}

func TestPredict(t *testing.T) {
	history := map[CategoryID][]TimeSeriesPoint{
		2: monthly("100", "110", "120", "130", "140", "150"),
		1: monthly("500", "500", "500"),
		3: monthly("900", "950"),
	}

	predictions, err := Predict(history, 2, date("2025-06-20"))
	require.NoError(t, err)

	// Category 3 has only two months and is skipped
	require.Len(t, predictions, 4)
	assert.Equal(t, CategoryID(1), predictions[0].CategoryID)
	assert.Equal(t, "2025-07", predictions[0].Period)
	assert.Equal(t, "2025-08", predictions[1].Period)
	assert.Equal(t, CategoryID(2), predictions[2].CategoryID)

	// Flat history predicts the same amount
	assert.Equal(t, "500", predictions[0].PredictedAmount.String())

	for _, p := range predictions {
		assert.False(t, p.PredictedAmount.IsNegative())
		assert.LessOrEqual(t, p.Confidence, 0.95)
		assert.Greater(t, p.Confidence, 0.0)
	}
}

func TestPredict_Confidence(t *testing.T) {
	tests := []struct {
		name     string
		series   []TimeSeriesPoint
		expected float64
	}{
		// 3-5 points, consistent: 0.6 * 1.2
		{"three steady months", monthly("100", "100", "100"), 0.72},
		// 6+ points, consistent: 0.8 * 1.2 capped
		{"six steady months", monthly("100", "100", "100", "100", "100", "100"), 0.95},
		// 3-5 points, variable: 0.6 * 0.8
		{"three erratic months", monthly("10", "500", "20"), 0.48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictions, err := Predict(map[CategoryID][]TimeSeriesPoint{1: tt.series}, 1, date("2025-06-01"))
			require.NoError(t, err)
			require.Len(t, predictions, 1)
			assert.InDelta(t, tt.expected, predictions[0].Confidence, 1e-9)
		})
	}
}

func TestPredict_NeverNegative(t *testing.T) {
	history := map[CategoryID][]TimeSeriesPoint{1: monthly("300", "200", "100")}

	predictions, err := Predict(history, 12, date("2025-03-15"))
	require.NoError(t, err)
	require.Len(t, predictions, 12)
	for _, p := range predictions {
		assert.False(t, p.PredictedAmount.IsNegative(), p.Period)
	}
	assert.Equal(t, "2026-03", predictions[11].Period)
}

func TestPredict_InsufficientHistory(t *testing.T) {
	predictions, err := Predict(map[CategoryID][]TimeSeriesPoint{1: monthly("1", "2")}, 3, date("2025-06-01"))
	require.NoError(t, err)
	assert.NotNil(t, predictions)
	assert.Empty(t, predictions)
}

func TestPredict_InvalidMonthsAhead(t *testing.T) {
	for _, n := range []int{0, 13, -1} {
		_, err := Predict(nil, n, date("2025-06-01"))
		assert.True(t, IsInvalidParameter(err), "months ahead %d", n)
	}
}
