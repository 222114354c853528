package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReasoningTimeout bounds a single reasoning call.
const DefaultReasoningTimeout = 10 * time.Second

// InsightRequest asks for a narrated summary of one user's spending.
type InsightRequest struct {
	UserID         string
	Timeframe      Timeframe
	CategoryFilter []CategoryID
	Transactions   []Transaction
	Categories     Categories
}

type attemptState int

const (
	attemptSkipped attemptState = iota
	attemptSucceeded
	attemptFailed
)

// attemptOutcome is the result of the single best-effort reasoning call.
type attemptOutcome struct {
	state   attemptState
	text    string
	err     error
	elapsed time.Duration
}

// Narrator produces InsightResults, preferring reasoning-service text and falling back
// to a deterministic narrative. Reasoning failures never reach the caller.
type Narrator struct {
	reasoner          Reasoner
	cache             InsightCache
	clock             Clock
	logger            *slog.Logger
	timeout           time.Duration
	ttl               time.Duration
	money             MoneyFormatter
	onExternalFailure func(ctx context.Context, err error)
}

type NarratorOption func(*Narrator)

// WithReasoner sets the reasoning service. A nil reasoner always uses the fallback.
func WithReasoner(r Reasoner) NarratorOption {
	return func(n *Narrator) { n.reasoner = r }
}

func WithCache(c InsightCache) NarratorOption {
	return func(n *Narrator) { n.cache = c }
}

func WithClock(c Clock) NarratorOption {
	return func(n *Narrator) { n.clock = c }
}

func WithLogger(l *slog.Logger) NarratorOption {
	return func(n *Narrator) { n.logger = l }
}

func WithReasoningTimeout(d time.Duration) NarratorOption {
	return func(n *Narrator) { n.timeout = d }
}

func WithCacheTTL(d time.Duration) NarratorOption {
	return func(n *Narrator) { n.ttl = d }
}

func WithMoneyFormatter(f MoneyFormatter) NarratorOption {
	return func(n *Narrator) { n.money = f }
}

// WithExternalFailureHook is called once for every failed reasoning call, after logging.
func WithExternalFailureHook(fn func(ctx context.Context, err error)) NarratorOption {
	return func(n *Narrator) { n.onExternalFailure = fn }
}

func NewNarrator(opts ...NarratorOption) *Narrator {
	n := &Narrator{
		clock:   SystemClock,
		logger:  slog.Default(),
		timeout: DefaultReasoningTimeout,
		ttl:     DefaultInsightTTL,
		money:   PlainMoney{},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.clock == nil {
		n.clock = SystemClock
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.timeout <= 0 {
		n.timeout = DefaultReasoningTimeout
	}
	if n.ttl <= 0 {
		n.ttl = DefaultInsightTTL
	}
	if n.money == nil {
		n.money = PlainMoney{}
	}
	return n
}

// Narrate summarises the transactions that fall in the timeframe window containing now.
// The only errors are an invalid timeframe and ctx cancellation; in both cases no
// partial result is returned.
func (n *Narrator) Narrate(ctx context.Context, req InsightRequest) (InsightResult, error) {
	if err := ctx.Err(); err != nil {
		return InsightResult{}, err
	}
	tf := req.Timeframe
	if tf == "" {
		tf = TimeframeMonth
	}
	tf, err := ParseTimeframe(string(tf))
	if err != nil {
		return InsightResult{}, err
	}

	now := n.clock()
	window := tf.Window(now)
	key := CacheKey(req.UserID, tf, window.Start, req.CategoryFilter)
	if n.cache != nil {
		cached, ok, err := n.cache.Get(ctx, key)
		switch {
		case err != nil:
			n.logger.Warn("insight cache read failed", "key", key, "error", err)
		case ok:
			n.logger.Debug("insight cache hit", "key", key)
			return cached, nil
		}
	}

	txs := FilterWindow(FilterByCategories(req.Transactions, req.CategoryFilter), window)
	if len(txs) == 0 {
		return emptyInsight(tf, window, now), nil
	}

	ic := buildInsightContext(txs, tf, window, req.Categories, n.money)
	outcome := n.attempt(ctx, ic.reasoningRequest())
	if err := ctx.Err(); err != nil {
		return InsightResult{}, err
	}

	result := InsightResult{
		Timeframe:   tf,
		DateRange:   window.JSON(),
		Total:       ic.Total,
		Count:       ic.Count,
		Trend:       ic.Trend,
		GeneratedAt: now,
	}
	if outcome.state == attemptSucceeded {
		result.Narrative = outcome.text
		result.Suggestions = padSuggestions(ExtractSuggestions(outcome.text), ic)
		result.Source = SourceReasoning
	} else {
		result.Narrative, result.Suggestions = fallbackInsight(ic)
		result.Source = SourceFallback
	}

	if n.cache != nil {
		if err := n.cache.Put(ctx, key, result, n.ttl); err != nil {
			n.logger.Warn("insight cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}

// attempt makes the single reasoning call under the configured timeout. It returns as
// soon as the deadline passes even if the reasoner ignores its context.
func (n *Narrator) attempt(ctx context.Context, req ReasoningRequest) attemptOutcome {
	if n.reasoner == nil {
		n.logger.Debug("no reasoning service configured, using fallback")
		return attemptOutcome{state: attemptSkipped, err: ErrReasonerNotConfigured}
	}

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	start := time.Now()
	go func() {
		text, err := n.reasoner.Generate(callCtx, req)
		done <- reply{text: text, err: err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-callCtx.Done():
		r = reply{err: callCtx.Err()}
	}
	outcome := attemptOutcome{text: r.text, err: r.err, elapsed: time.Since(start)}

	switch {
	case outcome.err == nil && outcome.text != "":
		outcome.state = attemptSucceeded
		n.logger.Debug("reasoning call succeeded", "duration", outcome.elapsed)
		return outcome
	case outcome.err == nil:
		outcome.err = fmt.Errorf("%w: empty response", ErrExternalServiceUnavailable)
	case !errors.Is(outcome.err, ErrExternalServiceUnavailable):
		outcome.err = fmt.Errorf("%w: %w", ErrExternalServiceUnavailable, outcome.err)
	}
	outcome.state = attemptFailed

	// Caller cancellation is not a service failure
	if ctx.Err() != nil {
		return outcome
	}
	n.logger.Warn("reasoning call failed, using fallback", "duration", outcome.elapsed, "error", outcome.err)
	if n.onExternalFailure != nil {
		n.onExternalFailure(ctx, outcome.err)
	}
	return outcome
}

func emptyInsight(tf Timeframe, window DateRange, now time.Time) InsightResult {
	return InsightResult{
		Timeframe:   tf,
		DateRange:   window.JSON(),
		Total:       decimal.Zero,
		Count:       0,
		Narrative:   emptyNarrative,
		Suggestions: append([]string(nil), emptySuggestions...),
		Trend: TrendSummary{
			Direction:   TrendInsufficientData,
			Consistency: ConsistencyInsufficientData,
		},
		Source:      SourceEmpty,
		GeneratedAt: now,
	}
}
