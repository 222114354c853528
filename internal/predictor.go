package internal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	minPredictionHistory = 3
	maxConfidence        = 0.95
)

// Predict projects monthly spending per category for the monthsAhead months after now's month.
// Categories with fewer than three monthly totals are skipped entirely. The result is
// ordered by category id, then period, and is empty when no category qualifies.
func Predict(history map[CategoryID][]TimeSeriesPoint, monthsAhead int, now time.Time) ([]Prediction, error) {
	if err := ValidateMonthsAhead(monthsAhead); err != nil {
		return nil, err
	}

	ids := make([]CategoryID, 0, len(history))
	for id := range history {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	base := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	predictions := []Prediction{}

	for _, id := range ids {
		series := seriesValues(history[id])
		if len(series) < minPredictionHistory {
			continue
		}

		slope := FitTrend(series)
		seasonal := SeasonalFactor(series)
		confidence := predictionConfidence(series)

		for step := 1; step <= monthsAhead; step++ {
			amount := PredictAhead(series, slope, seasonal, step)
			predictions = append(predictions, Prediction{
				CategoryID:      id,
				Period:          base.AddDate(0, step, 0).Format(monthLayout),
				PredictedAmount: decimal.NewFromFloat(amount).Round(2),
				Confidence:      confidence,
			})
		}
	}
	return predictions, nil
}

// predictionConfidence combines sample size with series consistency and never asserts certainty.
func predictionConfidence(series []float64) float64 {
	var base float64
	switch n := len(series); {
	case n < 3:
		base = 0.3
	case n < 6:
		base = 0.6
	default:
		base = 0.8
	}
	c := base * consistencyMultiplier(ClassifyConsistency(series))
	return roundTo(clamp(c, 0, maxConfidence), 2)
}

// Forecast wraps predictions with an explicit insufficient-data marker.
type Forecast struct {
	Status      DataStatus   `json:"status"`
	Message     string       `json:"message,omitempty"`
	MonthsAhead int          `json:"months_ahead"`
	Predictions []Prediction `json:"predictions"`
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
