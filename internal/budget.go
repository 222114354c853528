package internal

import (
	"sort"

	"github.com/shopspring/decimal"
)

const minBudgetMonths = 2

var (
	tightenFactor = decimal.RequireFromString("0.9")
	bufferFactor  = decimal.RequireFromString("1.1")
)

// BudgetRecommendation is a suggested monthly limit for one category.
type BudgetRecommendation struct {
	CategoryID     CategoryID      `json:"category_id"`
	Label          string          `json:"label"`
	Months         int             `json:"months"`
	AverageMonthly decimal.Decimal `json:"average_monthly"`
	Recommended    decimal.Decimal `json:"recommended"`
	Trend          TrendDirection  `json:"trend"`
	Consistency    Consistency     `json:"consistency"`
	Reason         string          `json:"reason"`
}

// RecommendBudgets suggests a monthly budget for every category with at least two months
// of history. Rising categories get 90% of their average to push back on the trend,
// variable ones 110% as a buffer, everything else (including histories too short
// for a trend) the plain average. Results are rounded
// up to a whole multiple of unit and ordered by recommended amount, largest first.
func RecommendBudgets(txs []Transaction, categories Categories, unit decimal.Decimal) []BudgetRecommendation {
	history := MonthlySeriesByCategory(txs)
	recs := []BudgetRecommendation{}

	for id, points := range history {
		if len(points) < minBudgetMonths {
			continue
		}
		series := seriesValues(points)
		total := decimal.Zero
		for _, p := range points {
			total = total.Add(p.Total)
		}
		avg := total.Div(decimal.NewFromInt(int64(len(points)))).Round(2)

		rec := BudgetRecommendation{
			CategoryID:     id,
			Label:          categories.Name(id),
			Months:         len(points),
			AverageMonthly: avg,
			Trend:          ClassifyTrend(series),
			Consistency:    ClassifyConsistency(series),
		}
		switch {
		case rec.Trend == TrendInsufficientData:
			rec.Recommended = avg
			rec.Reason = "Only a short history so far; the limit matches the monthly average."
		case rec.Trend == TrendIncreasing:
			rec.Recommended = avg.Mul(tightenFactor)
			rec.Reason = "Spending is rising; a limit below the average helps reverse the trend."
		case rec.Consistency == ConsistencyVariable:
			rec.Recommended = avg.Mul(bufferFactor)
			rec.Reason = "Spending varies a lot month to month; the limit includes a 10% buffer."
		default:
			rec.Recommended = avg
			rec.Reason = "Spending is steady; the limit matches the monthly average."
		}
		rec.Recommended = roundUpTo(rec.Recommended, unit)
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if c := recs[i].Recommended.Cmp(recs[j].Recommended); c != 0 {
			return c > 0
		}
		return recs[i].CategoryID < recs[j].CategoryID
	})
	return recs
}

// roundUpTo rounds v up to a multiple of unit. Non-positive units round to cents.
func roundUpTo(v, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() {
		return v.RoundCeil(2)
	}
	return v.Div(unit).Ceil().Mul(unit)
}
