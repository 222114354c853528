package internal

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregation is the result of grouping a transaction set by time bucket and optionally category.
type Aggregation struct {
	Bucket     Bucket
	Series     []TimeSeriesPoint
	ByCategory []CategoryAggregate
	Total      decimal.Decimal
	Count      int
}

// Empty reports whether the aggregation was built from no transactions.
func (a Aggregation) Empty() bool {
	return a.Count == 0
}

// Aggregate groups transactions into chronological buckets. When groupBy is
// GroupByCategory it also produces per-category aggregates ordered by category id.
// An empty input gives an empty (non-nil) series and mapping.
func Aggregate(txs []Transaction, bucket Bucket, groupBy GroupBy) Aggregation {
	agg := Aggregation{
		Bucket:     bucket,
		Series:     []TimeSeriesPoint{},
		ByCategory: []CategoryAggregate{},
		Total:      decimal.Zero,
	}

	byPeriod := make(map[string]*TimeSeriesPoint)
	byCategory := make(map[CategoryID]*CategoryAggregate)

	for _, tx := range txs {
		agg.Total = agg.Total.Add(tx.Amount)
		agg.Count++

		key := bucket.key(tx.OccurredOn)
		point, ok := byPeriod[key]
		if !ok {
			point = &TimeSeriesPoint{PeriodKey: key, Total: decimal.Zero}
			byPeriod[key] = point
		}
		point.Total = point.Total.Add(tx.Amount)
		point.Count++

		if groupBy == GroupByCategory {
			ca, ok := byCategory[tx.CategoryID]
			if !ok {
				ca = &CategoryAggregate{CategoryID: tx.CategoryID, Total: decimal.Zero}
				byCategory[tx.CategoryID] = ca
			}
			ca.Total = ca.Total.Add(tx.Amount)
			ca.Count++
		}
	}

	for _, p := range byPeriod {
		agg.Series = append(agg.Series, *p)
	}
	// Period keys are zero-padded ISO dates, so lexical order is chronological.
	sort.Slice(agg.Series, func(i, j int) bool {
		return agg.Series[i].PeriodKey < agg.Series[j].PeriodKey
	})

	for _, ca := range byCategory {
		ca.Average = ca.Total.Div(decimal.NewFromInt(int64(ca.Count))).Round(2)
		ca.Percentage = percentageOf(ca.Total, agg.Total)
		agg.ByCategory = append(agg.ByCategory, *ca)
	}
	sort.Slice(agg.ByCategory, func(i, j int) bool {
		return agg.ByCategory[i].CategoryID < agg.ByCategory[j].CategoryID
	})

	return agg
}

// percentageOf returns part/whole*100 rounded to two decimals and clamped to [0,100].
func percentageOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	pct := part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
	return clamp(pct, 0, 100)
}

// TopCategories returns up to n category aggregates ordered by total descending,
// ties broken by category id.
func (a Aggregation) TopCategories(n int) []CategoryAggregate {
	sorted := make([]CategoryAggregate, len(a.ByCategory))
	copy(sorted, a.ByCategory)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Total.Cmp(sorted[j].Total); c != 0 {
			return c > 0
		}
		return sorted[i].CategoryID < sorted[j].CategoryID
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Values returns the series totals as floats, in series order.
func (a Aggregation) Values() []float64 {
	return seriesValues(a.Series)
}

func seriesValues(series []TimeSeriesPoint) []float64 {
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Total.InexactFloat64()
	}
	return values
}

// PaymentShare is the spend attributed to one payment method.
type PaymentShare struct {
	Method     PaymentMethod   `json:"method"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// PaymentMethodShares returns the payment-method distribution ordered by total descending.
func PaymentMethodShares(txs []Transaction) []PaymentShare {
	total := decimal.Zero
	byMethod := make(map[PaymentMethod]*PaymentShare)
	for _, tx := range txs {
		method := tx.PaymentMethod
		if method == "" {
			method = PaymentOther
		}
		s, ok := byMethod[method]
		if !ok {
			s = &PaymentShare{Method: method, Total: decimal.Zero}
			byMethod[method] = s
		}
		s.Total = s.Total.Add(tx.Amount)
		s.Count++
		total = total.Add(tx.Amount)
	}

	shares := make([]PaymentShare, 0, len(byMethod))
	for _, s := range byMethod {
		s.Percentage = percentageOf(s.Total, total)
		shares = append(shares, *s)
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Total.Cmp(shares[j].Total); c != 0 {
			return c > 0
		}
		return shares[i].Method < shares[j].Method
	})
	return shares
}

// MonthlySeriesByCategory builds the per-category monthly history consumed by Predict.
// Months without spending in a category are absent from that category's series.
func MonthlySeriesByCategory(txs []Transaction) map[CategoryID][]TimeSeriesPoint {
	grouped := make(map[CategoryID][]Transaction)
	for _, tx := range txs {
		grouped[tx.CategoryID] = append(grouped[tx.CategoryID], tx)
	}
	history := make(map[CategoryID][]TimeSeriesPoint, len(grouped))
	for id, group := range grouped {
		history[id] = Aggregate(group, BucketMonth, GroupByNone).Series
	}
	return history
}

// FilterByCategories keeps transactions whose category is in ids. An empty filter keeps everything.
func FilterByCategories(txs []Transaction, ids []CategoryID) []Transaction {
	if len(ids) == 0 {
		return txs
	}
	allowed := make(map[CategoryID]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	var filtered []Transaction
	for _, tx := range txs {
		if allowed[tx.CategoryID] {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// FilterWindow keeps transactions that occurred within r.
func FilterWindow(txs []Transaction, r DateRange) []Transaction {
	var filtered []Transaction
	for _, tx := range txs {
		if r.Contains(tx.OccurredOn) {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// DataRange returns the span of occurrence dates in txs. ok is false for an empty set.
func DataRange(txs []Transaction) (r DateRange, ok bool) {
	if len(txs) == 0 {
		return DateRange{}, false
	}
	r = DateRange{Start: txs[0].OccurredOn, End: txs[0].OccurredOn}
	for _, tx := range txs[1:] {
		if tx.OccurredOn.Before(r.Start) {
			r.Start = tx.OccurredOn
		}
		if tx.OccurredOn.After(r.End) {
			r.End = tx.OccurredOn
		}
	}
	return r, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
