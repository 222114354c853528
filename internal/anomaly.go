package internal

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// assumedDispersion is the relative spread used when no usable standard deviation is known.
const assumedDispersion = 0.3

// Baseline is the historical reference for one category.
type Baseline struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
}

// Baselines maps categories to their historical baseline.
type Baselines map[CategoryID]Baseline

// BuildBaselines computes per-category mean and population standard deviation from history.
func BuildBaselines(history []Transaction) Baselines {
	amounts := make(map[CategoryID][]float64)
	for _, tx := range history {
		amounts[tx.CategoryID] = append(amounts[tx.CategoryID], tx.Amount.InexactFloat64())
	}
	b := make(Baselines, len(amounts))
	for id, values := range amounts {
		s := Describe(values)
		b[id] = Baseline{Mean: s.Mean, StdDev: s.StdDev, Samples: s.N}
	}
	return b
}

// dispersion returns the absolute spread to measure deviations against.
func (b Baseline) dispersion() float64 {
	if b.Samples >= 3 && b.StdDev > 0 {
		return b.StdDev
	}
	return assumedDispersion * b.Mean
}

// ExpectedRange is [max(0, ref - m*d), ref + m*d] where m is the sensitivity multiplier.
func (b Baseline) ExpectedRange(s Sensitivity) (lower, upper float64) {
	width := s.Multiplier() * b.dispersion()
	return math.Max(0, b.Mean-width), b.Mean + width
}

// DetectAnomalies flags transactions outside their category's expected range.
// Baselines missing from the supplied set are computed from txs itself; a category
// seen only once then has its own amount as reference and is never flagged.
// Raising the sensitivity only narrows ranges, so it flags a superset.
func DetectAnomalies(txs []Transaction, sensitivity Sensitivity, baselines Baselines) []Anomaly {
	if len(txs) == 0 {
		return []Anomaly{}
	}

	local := BuildBaselines(txs)
	anomalies := []Anomaly{}

	for _, tx := range txs {
		baseline, ok := baselines[tx.CategoryID]
		if !ok || baseline.Samples == 0 {
			baseline = local[tx.CategoryID]
		}
		if baseline.Mean <= 0 {
			continue
		}

		actual := tx.Amount.InexactFloat64()
		lower, upper := baseline.ExpectedRange(sensitivity)

		var direction Direction
		switch {
		case actual > upper:
			direction = DirectionHigh
		case actual < lower:
			direction = DirectionLow
		default:
			continue
		}

		deviation := math.Abs(actual-baseline.Mean) / baseline.Mean * 100
		anomalies = append(anomalies, Anomaly{
			ID:                  uuid.NewString(),
			TransactionRef:      tx.ID,
			Date:                tx.OccurredOn.Format(dateLayout),
			CategoryID:          tx.CategoryID,
			ExpectedAmount:      decimal.NewFromFloat(baseline.Mean).Round(2),
			ActualAmount:        tx.Amount,
			DeviationPercentage: roundTo(deviation, 1),
			Direction:           direction,
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].DeviationPercentage > anomalies[j].DeviationPercentage
	})
	return anomalies
}

// AnomalyReport is the engine-level result of an anomaly scan.
type AnomalyReport struct {
	Sensitivity Sensitivity `json:"sensitivity"`
	Scanned     int         `json:"scanned"`
	Anomalies   []Anomaly   `json:"anomalies"`
}
