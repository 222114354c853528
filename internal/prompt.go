package internal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// concentrationThreshold is the share of spending above which one category is flagged.
	concentrationThreshold = 40.0
	// cashThreshold is the share of cash payments above which cash usage is flagged.
	cashThreshold = 70.0

	topCategoryCount = 3
	maxSuggestions   = 5
	minSuggestions   = 3
)

// insightContext is the aggregate view of one user's window that both the prompt and
// the fallback narrative are built from.
type insightContext struct {
	Timeframe    Timeframe
	Window       DateRange
	Total        decimal.Decimal
	Count        int
	DailyAverage decimal.Decimal
	ByCategory   []CategoryAggregate
	Top          []CategoryAggregate
	Payments     []PaymentShare
	Daily        []TimeSeriesPoint
	Trend        TrendSummary

	names Categories
	money MoneyFormatter
}

func buildInsightContext(txs []Transaction, tf Timeframe, window DateRange, names Categories, money MoneyFormatter) insightContext {
	agg := Aggregate(txs, BucketDay, GroupByCategory)
	daily := agg.Values()

	return insightContext{
		Timeframe:    tf,
		Window:       window,
		Total:        agg.Total,
		Count:        agg.Count,
		DailyAverage: agg.Total.Div(decimal.NewFromInt(int64(tf.Days()))).Round(2),
		ByCategory:   agg.ByCategory,
		Top:          agg.TopCategories(topCategoryCount),
		Payments:     PaymentMethodShares(txs),
		Daily:        agg.Series,
		Trend: TrendSummary{
			Direction:   ClassifyTrend(daily),
			Consistency: ClassifyConsistency(daily),
		},
		names: names,
		money: money,
	}
}

func (c insightContext) label(id CategoryID) string {
	return c.names.Name(id)
}

// dominant returns the category with the largest total.
func (c insightContext) dominant() (CategoryAggregate, bool) {
	if len(c.Top) == 0 {
		return CategoryAggregate{}, false
	}
	return c.Top[0], true
}

// concentrated returns categories above the concentration threshold, largest first.
func (c insightContext) concentrated() []CategoryAggregate {
	var out []CategoryAggregate
	for _, ca := range c.ByCategory {
		if ca.Percentage > concentrationThreshold {
			out = append(out, ca)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out
}

func (c insightContext) cashShare() float64 {
	for _, p := range c.Payments {
		if p.Method == PaymentCash {
			return p.Percentage
		}
	}
	return 0
}

const reasoningInstructions = `You are a personal finance assistant. Read the spending summary and write a short,
friendly analysis (at most three paragraphs) followed by three to five concrete suggestions.
Write each suggestion on its own line starting with "- ". Do not invent numbers that are not
in the summary.`

// reasoningRequest renders the context as a structured prompt.
func (c insightContext) reasoningRequest() ReasoningRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Spending summary for this %s (%s to %s):\n", c.Timeframe,
		c.Window.Start.Format(dateLayout), c.Window.End.Format(dateLayout))
	fmt.Fprintf(&b, "- Total spent: %s\n", c.money.Format(c.Total))
	fmt.Fprintf(&b, "- Transactions: %d\n", c.Count)
	fmt.Fprintf(&b, "- Average daily spend: %s\n", c.money.Format(c.DailyAverage))

	b.WriteString("\nTop categories:\n")
	for i, ca := range c.Top {
		fmt.Fprintf(&b, "%d. %s: %s (%.1f%%, %d transactions)\n", i+1, c.label(ca.CategoryID),
			c.money.Format(ca.Total), ca.Percentage, ca.Count)
	}

	b.WriteString("\nPayment methods:\n")
	for _, p := range c.Payments {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", p.Method, p.Percentage)
	}

	fmt.Fprintf(&b, "\nDaily spending trend: %s, consistency: %s\n", c.Trend.Direction, c.Trend.Consistency)

	if conc := c.concentrated(); len(conc) > 0 {
		fmt.Fprintf(&b, "Flag: %s takes %.1f%% of all spending (over %.0f%%).\n",
			c.label(conc[0].CategoryID), conc[0].Percentage, concentrationThreshold)
	}
	if cash := c.cashShare(); cash > cashThreshold {
		fmt.Fprintf(&b, "Flag: %.1f%% of spending was paid in cash (over %.0f%%).\n", cash, cashThreshold)
	}

	return ReasoningRequest{Instructions: reasoningInstructions, Prompt: b.String()}
}

var (
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•]|\d{1,2}[.)])\s+(.*\S)\s*$`)
	advisoryLine = regexp.MustCompile(`(?i)^\s*(consider|try|reduce|set|review|track|avoid|cut|limit|plan|save|cancel|compare|automate|keep|aim|switch|create|use|start|stop)\b`)
)

// ExtractSuggestions pulls up to five suggestions out of free text. Bulleted or numbered
// lines are preferred; lines opening with an advisory verb are used only when there are none.
func ExtractSuggestions(text string) []string {
	lines := strings.Split(text, "\n")

	var bullets []string
	for _, line := range lines {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			bullets = appendSuggestion(bullets, m[1])
		}
	}
	if len(bullets) > 0 {
		return capSuggestions(bullets)
	}

	var advisory []string
	for _, line := range lines {
		if advisoryLine.MatchString(line) {
			advisory = appendSuggestion(advisory, line)
		}
	}
	return capSuggestions(advisory)
}

func appendSuggestion(list []string, s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
	if s == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, s) {
			return list
		}
	}
	return append(list, s)
}

func capSuggestions(list []string) []string {
	if len(list) > maxSuggestions {
		return list[:maxSuggestions]
	}
	if list == nil {
		return []string{}
	}
	return list
}

// padSuggestions tops extracted suggestions up to three with deterministic ones.
func padSuggestions(extracted []string, c insightContext) []string {
	out := extracted
	for _, s := range append(contextualSuggestions(c), genericSuggestions...) {
		if len(out) >= minSuggestions {
			break
		}
		out = appendSuggestion(out, s)
	}
	return capSuggestions(out)
}
