package internal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceOptions tunes recurring payment detection.
type RecurrenceOptions struct {
	// Granularity is the unit amounts are rounded to before grouping (e.g. 1000).
	Granularity decimal.Decimal `yaml:"-"`
	// MaxDeviationDays is the largest mean absolute deviation of gaps still considered regular.
	MaxDeviationDays float64 `yaml:"max_deviation_days,omitempty"`
	// HighConfidenceDays is the deviation at or below which a pattern has high confidence.
	HighConfidenceDays float64 `yaml:"high_confidence_days,omitempty"`
	// SubscriptionMinDays and SubscriptionMaxDays bound the monthly interval window.
	SubscriptionMinDays int `yaml:"subscription_min_days,omitempty"`
	SubscriptionMaxDays int `yaml:"subscription_max_days,omitempty"`
	// GraceDays is how late a payment may be before the pattern counts as stopped.
	GraceDays int `yaml:"grace_days,omitempty"`
}

func DefaultRecurrenceOptions() RecurrenceOptions {
	return RecurrenceOptions{
		Granularity:         decimal.NewFromInt(1000),
		MaxDeviationDays:    5,
		HighConfidenceDays:  2,
		SubscriptionMinDays: 25,
		SubscriptionMaxDays: 35,
		GraceDays:           5,
	}
}

// withDefaults fills zero fields from DefaultRecurrenceOptions.
func (o RecurrenceOptions) withDefaults() RecurrenceOptions {
	d := DefaultRecurrenceOptions()
	if !o.Granularity.IsPositive() {
		o.Granularity = d.Granularity
	}
	if o.MaxDeviationDays <= 0 {
		o.MaxDeviationDays = d.MaxDeviationDays
	}
	if o.HighConfidenceDays <= 0 {
		o.HighConfidenceDays = d.HighConfidenceDays
	}
	if o.SubscriptionMinDays <= 0 {
		o.SubscriptionMinDays = d.SubscriptionMinDays
	}
	if o.SubscriptionMaxDays <= 0 {
		o.SubscriptionMaxDays = d.SubscriptionMaxDays
	}
	if o.GraceDays <= 0 {
		o.GraceDays = d.GraceDays
	}
	return o
}

const minRecurrenceOccurrences = 3

// RecurrenceDetector finds groups of similar amounts paid at regular intervals.
type RecurrenceDetector struct {
	opts       RecurrenceOptions
	categories Categories
	classifier Classifier
}

func NewRecurrenceDetector(opts RecurrenceOptions, categories Categories, classifier Classifier) *RecurrenceDetector {
	return &RecurrenceDetector{
		opts:       opts.withDefaults(),
		categories: categories,
		classifier: classifier,
	}
}

// FindRecurring groups transactions by rounded amount and reports every group of three or
// more whose day gaps deviate from their mean by at most MaxDeviationDays. Patterns with a
// monthly interval are annotated as probable subscriptions.
func (d *RecurrenceDetector) FindRecurring(txs []Transaction, now time.Time) []RecurrencePattern {
	groups := make(map[string][]Transaction)
	buckets := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.Amount.IsPositive() {
			continue
		}
		bucket := RoundToGranularity(tx.Amount, d.opts.Granularity)
		key := bucket.String()
		groups[key] = append(groups[key], tx)
		buckets[key] = bucket
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return buckets[keys[i]].LessThan(buckets[keys[j]]) })

	patterns := []RecurrencePattern{}
	for _, key := range keys {
		group := groups[key]
		if len(group) < minRecurrenceOccurrences {
			continue
		}
		if p, ok := d.analyzeGroup(buckets[key], group, now); ok {
			patterns = append(patterns, p)
		}
	}

	// Active first, then by monthly cost (highest first)
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Status != patterns[j].Status {
			return patterns[i].Status == StatusActive
		}
		return patterns[i].MonthlyAmount.GreaterThan(patterns[j].MonthlyAmount)
	})
	return patterns
}

func (d *RecurrenceDetector) analyzeGroup(bucket decimal.Decimal, group []Transaction, now time.Time) (RecurrencePattern, bool) {
	sorted := make([]Transaction, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredOn.Before(sorted[j].OccurredOn)
	})

	gaps := DayGaps(sorted)
	meanGap := Describe(gaps).Mean
	if meanGap < 1 {
		return RecurrencePattern{}, false
	}
	deviation := MeanAbsoluteDeviation(gaps, meanGap)
	if deviation > d.opts.MaxDeviationDays {
		return RecurrencePattern{}, false
	}

	interval := int(math.Round(meanGap))
	amount := CalculateAverageAmount(sorted)
	first := sorted[0].OccurredOn
	last := sorted[len(sorted)-1].OccurredOn

	confidence := PatternConfidenceMedium
	if deviation <= d.opts.HighConfidenceDays {
		confidence = PatternConfidenceHigh
	}

	p := RecurrencePattern{
		AmountBucket:    bucket,
		Amount:          amount,
		IntervalDays:    interval,
		OccurrenceCount: len(sorted),
		CategoryLabel:   d.label(sorted),
		Confidence:      confidence,
		MonthlyAmount:   amount.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(int64(interval))).Round(2),
		FirstSeen:       first,
		LastSeen:        last,
		NextExpected:    last.AddDate(0, 0, interval),
		Status:          DetermineStatus(last, interval, d.opts.GraceDays, now),
	}

	if interval >= d.opts.SubscriptionMinDays && interval <= d.opts.SubscriptionMaxDays {
		annual := amount.Mul(decimal.NewFromInt(12))
		p.Subscription = &SubscriptionInfo{
			AnnualCost: annual,
			Suggestion: fmt.Sprintf("Review whether you still use %s; cancelling it would free up %s a year.",
				p.CategoryLabel, annual.StringFixed(0)),
		}
	}
	return p, true
}

// label prefers the most common category, then a known service matched on the latest description.
func (d *RecurrenceDetector) label(sorted []Transaction) string {
	if id := mostCommonCategory(sorted); id != NoCategory {
		return d.categories.Name(id)
	}
	if d.classifier != nil {
		for i := len(sorted) - 1; i >= 0; i-- {
			if label, ok := d.classifier.Classify(sorted[i].Description); ok {
				return label
			}
		}
	}
	return d.categories.Name(NoCategory)
}

// RoundToGranularity rounds amount to the nearest multiple of unit.
func RoundToGranularity(amount, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() {
		return amount
	}
	return amount.Div(unit).Round(0).Mul(unit)
}

// DayGaps returns the whole-day distances between consecutive, date-sorted transactions.
func DayGaps(sorted []Transaction) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		days := truncateDay(sorted[i].OccurredOn).Sub(truncateDay(sorted[i-1].OccurredOn)).Hours() / 24
		gaps = append(gaps, math.Round(days))
	}
	return gaps
}

// MeanAbsoluteDeviation returns the mean of |v - mean| over values.
func MeanAbsoluteDeviation(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Abs(v - mean)
	}
	return sum / float64(len(values))
}

// CalculateAverageAmount returns the average amount across all transactions.
func CalculateAverageAmount(txs []Transaction) decimal.Decimal {
	if len(txs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(txs)))).Round(2)
}

// DetermineStatus checks whether a recurring payment is still running: it is active while
// now is no later than the next expected payment plus the grace period.
func DetermineStatus(lastPayment time.Time, intervalDays, graceDays int, now time.Time) PatternStatus {
	deadline := truncateDay(lastPayment).AddDate(0, 0, intervalDays+graceDays)
	if truncateDay(now).After(deadline) {
		return StatusStopped
	}
	return StatusActive
}

// mostCommonCategory ignores uncategorized transactions. Ties go to the lower id.
func mostCommonCategory(txs []Transaction) CategoryID {
	counts := make(map[CategoryID]int)
	for _, tx := range txs {
		counts[tx.CategoryID]++
	}
	best := NoCategory
	bestCount := 0
	for id, count := range counts {
		if id == NoCategory {
			continue
		}
		if count > bestCount || (count == bestCount && id < best) {
			best = id
			bestCount = count
		}
	}
	return best
}

// RecurringReport summarises detected recurring payments.
type RecurringReport struct {
	Status            DataStatus          `json:"status"`
	Message           string              `json:"message,omitempty"`
	Patterns          []RecurrencePattern `json:"patterns"`
	SubscriptionCount int                 `json:"subscription_count"`
	MonthlySubscribed decimal.Decimal     `json:"monthly_subscriptions"`
	AnnualSubscribed  decimal.Decimal     `json:"annual_subscriptions"`
	MonthlyRecurring  decimal.Decimal     `json:"monthly_recurring"`
}

// NewRecurringReport totals active patterns; stopped ones are listed but not counted.
func NewRecurringReport(patterns []RecurrencePattern) RecurringReport {
	r := RecurringReport{
		Status:            StatusOK,
		Patterns:          patterns,
		MonthlySubscribed: decimal.Zero,
		AnnualSubscribed:  decimal.Zero,
		MonthlyRecurring:  decimal.Zero,
	}
	if len(patterns) == 0 {
		r.Status = StatusInsufficientData
		r.Message = "No recurring payments found yet; at least three similar payments at regular intervals are needed."
		return r
	}
	for _, p := range patterns {
		if p.IsSubscription() {
			r.SubscriptionCount++
		}
		if p.Status != StatusActive {
			continue
		}
		r.MonthlyRecurring = r.MonthlyRecurring.Add(p.MonthlyAmount)
		if p.IsSubscription() {
			r.MonthlySubscribed = r.MonthlySubscribed.Add(p.Amount)
			r.AnnualSubscribed = r.AnnualSubscribed.Add(p.Subscription.AnnualCost)
		}
	}
	return r
}
