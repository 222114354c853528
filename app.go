package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gigurra/spend-insights/internal"
)

// request holds the validated report parameters.
type request struct {
	timeframe   internal.Timeframe
	filter      []internal.CategoryID
	monthsAhead int
	sensitivity internal.Sensitivity
	user        string
	now         internal.Clock
}

func parseRequest(params *Params, cfg *internal.Config) (request, error) {
	req := request{
		timeframe:   internal.Timeframe(params.Timeframe),
		monthsAhead: params.MonthsAhead,
		user:        params.User,
		now:         internal.SystemClock,
	}

	filter, err := internal.ParseCategoryFilter(params.Categories)
	if err != nil {
		return request{}, err
	}
	req.filter = filter

	sensitivity := params.Sensitivity
	if sensitivity == "" {
		sensitivity = cfg.Sensitivity
	}
	if sensitivity == "" {
		sensitivity = string(internal.SensitivityMedium)
	}
	req.sensitivity = internal.Sensitivity(sensitivity)

	if params.Now != "" {
		t, err := time.Parse("2006-01-02", params.Now)
		if err != nil {
			return request{}, &internal.ParamError{Param: "now", Value: params.Now, Allowed: []string{"YYYY-MM-DD"}}
		}
		// Midday keeps the fixed date stable in any local zone
		fixed := t.Add(12 * time.Hour).UTC()
		req.now = func() time.Time { return fixed }
	}
	return req, nil
}

// app holds the wired engine and display settings for one run.
type app struct {
	engine *internal.Engine
	out    internal.OutputOptions
	w      io.Writer
}

func newApp(cfg *internal.Config, params *Params, clock internal.Clock, logger *slog.Logger) (*app, func(), error) {
	cleanup := func() {}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, cleanup, err
	}

	var cache internal.InsightCache
	if cfg.Cache.Path != "" {
		sqliteCache, err := internal.OpenSQLiteCache(cfg.Cache.Path, cfg.Cache.MaxEntries, internal.SystemClock)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := sqliteCache.Close(); err != nil {
				logger.Warn("closing insight cache", "error", err)
			}
		}
		cache = sqliteCache
	} else {
		cache = internal.NewMemoryCache(cfg.Cache.MaxEntries, internal.SystemClock)
	}

	currencyCode := params.Currency
	if currencyCode == "" {
		currencyCode = cfg.Currency
	}
	currency := internal.ResolveCurrency(currencyCode, os.Getenv)

	narratorOpts := []internal.NarratorOption{
		internal.WithCache(cache),
		internal.WithClock(clock),
		internal.WithLogger(logger),
		internal.WithMoneyFormatter(currency),
		internal.WithReasoningTimeout(cfg.Reasoning.Timeout),
		internal.WithCacheTTL(cfg.Cache.TTL),
	}
	if reasoner := internal.NewReasoner(cfg.Reasoning, logger); reasoner != nil {
		narratorOpts = append(narratorOpts, internal.WithReasoner(reasoner))
	}
	if cfg.SentryDSN != "" {
		narratorOpts = append(narratorOpts, internal.WithExternalFailureHook(reportExternalFailure))
	}

	categories := cfg.CategoryLookup()
	engine := internal.NewEngine(internal.EngineConfig{
		Categories:    categories,
		Classifier:    classifier,
		Recurrence:    cfg.Recurrence.Options(),
		Narrator:      internal.NewNarrator(narratorOpts...),
		Clock:         clock,
		Logger:        logger,
		PatternFilter: cfg.FilterPatterns,
	})

	return &app{
		engine: engine,
		out: internal.OutputOptions{
			Money:        currency,
			Categories:   categories,
			CurrencyCode: currency.Code,
		},
		w: os.Stdout,
	}, cleanup, nil
}

func (a *app) report(ctx context.Context, report string, txs []internal.Transaction, req request, output string) error {
	var result any
	var printTable func()

	switch strings.ToLower(report) {
	case "summary":
		s, err := a.engine.Summary(txs, req.timeframe, req.filter)
		if err != nil {
			return err
		}
		result, printTable = s, func() { internal.PrintSummaryTable(a.w, s, a.out) }
	case "insights":
		r, err := a.engine.Insights(ctx, req.user, txs, req.timeframe, req.filter)
		if err != nil {
			return err
		}
		result, printTable = r, func() { internal.PrintInsightTable(a.w, r, a.out) }
	case "predict":
		f, err := a.engine.Forecast(txs, req.monthsAhead, req.filter)
		if err != nil {
			return err
		}
		result, printTable = f, func() { internal.PrintForecastTable(a.w, f, a.out) }
	case "anomalies":
		r, err := a.engine.Anomalies(txs, req.timeframe, req.sensitivity)
		if err != nil {
			return err
		}
		result, printTable = r, func() { internal.PrintAnomaliesTable(a.w, r, a.out) }
	case "recurring":
		r := a.engine.Recurring(txs)
		result, printTable = r, func() { internal.PrintRecurringTable(a.w, r, a.out) }
	case "budgets":
		recs := a.engine.Budgets(txs)
		result, printTable = recs, func() { internal.PrintBudgetsTable(a.w, recs, a.out) }
	default:
		return fmt.Errorf("unknown report %q", report)
	}

	if output == "json" {
		return internal.PrintJSON(a.w, report, result, a.out)
	}
	printTable()
	return nil
}
