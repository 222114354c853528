package internal

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// EngineConfig wires an Engine. Zero values fall back to defaults.
type EngineConfig struct {
	Categories Categories
	Classifier Classifier
	Recurrence RecurrenceOptions
	Narrator   *Narrator
	Clock      Clock
	Logger     *slog.Logger

	// PatternFilter drops recurring patterns the user excluded
	PatternFilter func([]RecurrencePattern) []RecurrencePattern
}

// Engine runs every analysis against one injected clock so all reports in a request
// agree on "now". It holds no per-request state and is safe for concurrent use.
type Engine struct {
	categories    Categories
	recurrence    *RecurrenceDetector
	budgetUnit    decimal.Decimal
	narrator      *Narrator
	clock         Clock
	logger        *slog.Logger
	patternFilter func([]RecurrencePattern) []RecurrencePattern
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Categories == nil {
		cfg.Categories = Categories{}
	}
	if cfg.Narrator == nil {
		cfg.Narrator = NewNarrator(WithClock(cfg.Clock), WithLogger(cfg.Logger))
	}
	opts := cfg.Recurrence.withDefaults()

	return &Engine{
		categories:    cfg.Categories,
		recurrence:    NewRecurrenceDetector(opts, cfg.Categories, cfg.Classifier),
		budgetUnit:    opts.Granularity.Div(decimal.NewFromInt(10)),
		narrator:      cfg.Narrator,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		patternFilter: cfg.PatternFilter,
	}
}

// SpendingSummary is the plain aggregation of one timeframe window.
type SpendingSummary struct {
	Timeframe  Timeframe           `json:"timeframe"`
	DateRange  JSONDateRange       `json:"date_range"`
	Total      decimal.Decimal     `json:"total"`
	Count      int                 `json:"count"`
	ByCategory []CategoryAggregate `json:"by_category"`
	Payments   []PaymentShare      `json:"payment_methods"`
	Daily      []TimeSeriesPoint   `json:"daily"`
}

// Summary aggregates the transactions of the timeframe window containing now.
func (e *Engine) Summary(txs []Transaction, tf Timeframe, filter []CategoryID) (SpendingSummary, error) {
	tf, err := ParseTimeframe(string(tf))
	if err != nil {
		return SpendingSummary{}, err
	}
	window := tf.Window(e.clock())
	scoped := FilterWindow(FilterByCategories(txs, filter), window)
	agg := Aggregate(scoped, BucketDay, GroupByCategory)

	return SpendingSummary{
		Timeframe:  tf,
		DateRange:  window.JSON(),
		Total:      agg.Total,
		Count:      agg.Count,
		ByCategory: agg.ByCategory,
		Payments:   PaymentMethodShares(scoped),
		Daily:      agg.Series,
	}, nil
}

// Insights narrates the timeframe window for one user.
func (e *Engine) Insights(ctx context.Context, userID string, txs []Transaction, tf Timeframe, filter []CategoryID) (InsightResult, error) {
	return e.narrator.Narrate(ctx, InsightRequest{
		UserID:         userID,
		Timeframe:      tf,
		CategoryFilter: filter,
		Transactions:   txs,
		Categories:     e.categories,
	})
}

// Forecast predicts monthly spending per category from the full monthly history.
func (e *Engine) Forecast(txs []Transaction, monthsAhead int, filter []CategoryID) (Forecast, error) {
	history := MonthlySeriesByCategory(FilterByCategories(txs, filter))
	predictions, err := Predict(history, monthsAhead, e.clock())
	if err != nil {
		return Forecast{}, err
	}

	f := Forecast{Status: StatusOK, MonthsAhead: monthsAhead, Predictions: predictions}
	if len(predictions) == 0 {
		f.Status = StatusInsufficientData
		f.Message = "Need at least three months of spending in a category to forecast it."
	}
	return f, nil
}

// Anomalies scans the timeframe window against baselines built from everything before it.
// Categories without earlier history are measured against the window itself.
func (e *Engine) Anomalies(txs []Transaction, tf Timeframe, sensitivity Sensitivity) (AnomalyReport, error) {
	tf, err := ParseTimeframe(string(tf))
	if err != nil {
		return AnomalyReport{}, err
	}
	sensitivity, err = ParseSensitivity(string(sensitivity))
	if err != nil {
		return AnomalyReport{}, err
	}

	window := tf.Window(e.clock())
	var scanned, history []Transaction
	for _, tx := range txs {
		switch {
		case window.Contains(tx.OccurredOn):
			scanned = append(scanned, tx)
		case tx.OccurredOn.Before(window.Start):
			history = append(history, tx)
		}
	}

	anomalies := DetectAnomalies(scanned, sensitivity, BuildBaselines(history))
	e.logger.Debug("anomaly scan", "scanned", len(scanned), "history", len(history), "flagged", len(anomalies))
	return AnomalyReport{Sensitivity: sensitivity, Scanned: len(scanned), Anomalies: anomalies}, nil
}

// Recurring finds recurring payments and probable subscriptions across all transactions.
func (e *Engine) Recurring(txs []Transaction) RecurringReport {
	patterns := e.recurrence.FindRecurring(txs, e.clock())
	if e.patternFilter != nil {
		patterns = e.patternFilter(patterns)
	}
	return NewRecurringReport(patterns)
}

// Budgets recommends monthly limits per category.
func (e *Engine) Budgets(txs []Transaction) []BudgetRecommendation {
	return RecommendBudgets(txs, e.categories, e.budgetUnit)
}

// Categories returns the lookup used for labels.
func (e *Engine) Categories() Categories {
	return e.categories
}
