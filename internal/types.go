package internal

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryID identifies a spending category. Zero means the transaction has no category.
type CategoryID int64

const NoCategory CategoryID = 0

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentEWallet  PaymentMethod = "ewallet"
	PaymentOther    PaymentMethod = "other"
)

// ParsePaymentMethod maps free-form export values onto the known methods.
// Anything unrecognised becomes PaymentOther.
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(normalizeLabel(s)) {
	case PaymentCash:
		return PaymentCash
	case PaymentCard, "credit card", "debit card", "credit", "debit":
		return PaymentCard
	case PaymentTransfer, "bank transfer", "bank":
		return PaymentTransfer
	case PaymentEWallet, "e-wallet", "wallet":
		return PaymentEWallet
	default:
		return PaymentOther
	}
}

// Transaction is a single already-validated expense record. The engine never mutates it.
type Transaction struct {
	ID            string
	CategoryID    CategoryID
	Amount        decimal.Decimal
	OccurredOn    time.Time
	PaymentMethod PaymentMethod
	Timestamp     time.Time
	Description   string
}

type Category struct {
	ID    CategoryID `yaml:"id" json:"id"`
	Name  string     `yaml:"name" json:"name"`
	Color string     `yaml:"color,omitempty" json:"color,omitempty"`
}

// Categories is a read-only lookup used for labeling output.
type Categories map[CategoryID]Category

func NewCategories(list []Category) Categories {
	c := make(Categories, len(list))
	for _, cat := range list {
		c[cat.ID] = cat
	}
	return c
}

// Name returns the display name for id, falling back to "Uncategorized" or "Category <id>".
func (c Categories) Name(id CategoryID) string {
	if cat, ok := c[id]; ok && cat.Name != "" {
		return cat.Name
	}
	if id == NoCategory {
		return "Uncategorized"
	}
	return "Category " + strconv.FormatInt(int64(id), 10)
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a day within the range (both ends inclusive).
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(r.Start)) && !d.After(truncateDay(r.End))
}

// Days returns the number of calendar days covered, at least 1.
func (r DateRange) Days() int {
	days := int(truncateDay(r.End).Sub(truncateDay(r.Start)).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// DataStatus marks results whose minimum-sample precondition was not met.
type DataStatus string

const (
	StatusOK               DataStatus = "ok"
	StatusInsufficientData DataStatus = "insufficient_data"
)

type TimeSeriesPoint struct {
	PeriodKey string          `json:"period"`
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
}

type CategoryAggregate struct {
	CategoryID CategoryID      `json:"category_id"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Average    decimal.Decimal `json:"average"`
	Percentage float64         `json:"percentage"`
}

type Prediction struct {
	CategoryID      CategoryID      `json:"category_id"`
	Period          string          `json:"period"`
	PredictedAmount decimal.Decimal `json:"predicted_amount"`
	Confidence      float64         `json:"confidence"`
}

type Direction string

const (
	DirectionHigh Direction = "high"
	DirectionLow  Direction = "low"
)

type Anomaly struct {
	ID                  string          `json:"id"`
	TransactionRef      string          `json:"transaction_ref"`
	Date                string          `json:"date"`
	CategoryID          CategoryID      `json:"category_id"`
	ExpectedAmount      decimal.Decimal `json:"expected_amount"`
	ActualAmount        decimal.Decimal `json:"actual_amount"`
	DeviationPercentage float64         `json:"deviation_percentage"`
	Direction           Direction       `json:"direction"`
}

type PatternConfidence string

const (
	PatternConfidenceHigh   PatternConfidence = "high"
	PatternConfidenceMedium PatternConfidence = "medium"
)

type PatternStatus string

const (
	StatusActive  PatternStatus = "active"
	StatusStopped PatternStatus = "stopped"
)

// SubscriptionInfo is attached to recurrence patterns with a monthly interval.
type SubscriptionInfo struct {
	AnnualCost decimal.Decimal `json:"annual_cost"`
	Suggestion string          `json:"suggestion"`
}

type RecurrencePattern struct {
	AmountBucket    decimal.Decimal   `json:"amount_bucket"`
	Amount          decimal.Decimal   `json:"amount"`
	IntervalDays    int               `json:"interval_days"`
	OccurrenceCount int               `json:"occurrence_count"`
	CategoryLabel   string            `json:"category_label"`
	Confidence      PatternConfidence `json:"confidence"`
	MonthlyAmount   decimal.Decimal   `json:"monthly_amount"`
	FirstSeen       time.Time         `json:"first_seen"`
	LastSeen        time.Time         `json:"last_seen"`
	NextExpected    time.Time         `json:"next_expected"`
	Status          PatternStatus     `json:"status"`
	Subscription    *SubscriptionInfo `json:"subscription,omitempty"`
}

// IsSubscription reports whether the pattern was classified as a probable subscription.
func (p RecurrencePattern) IsSubscription() bool {
	return p.Subscription != nil
}

type TrendSummary struct {
	Direction   TrendDirection `json:"direction"`
	Consistency Consistency    `json:"consistency"`
}

type InsightSource string

const (
	SourceReasoning InsightSource = "reasoning"
	SourceFallback  InsightSource = "fallback"
	SourceEmpty     InsightSource = "empty"
)

type InsightResult struct {
	Timeframe   Timeframe       `json:"timeframe"`
	DateRange   JSONDateRange   `json:"date_range"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
	Narrative   string          `json:"narrative"`
	Suggestions []string        `json:"suggestions"`
	Trend       TrendSummary    `json:"trend"`
	Source      InsightSource   `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// JSONDateRange is the serialisable form of DateRange.
type JSONDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) JSON() JSONDateRange {
	return JSONDateRange{Start: r.Start.Format(dateLayout), End: r.End.Format(dateLayout)}
}

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Clock supplies the single reference time for a request. Tests inject a fixed one.
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}
