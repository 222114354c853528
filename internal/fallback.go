package internal

import (
	"fmt"
	"strings"
)

const emptyNarrative = "Start adding expenses to see insights about your spending habits."

var emptySuggestions = []string{
	"Record every expense as it happens, including small cash purchases.",
	"Assign a category to each expense so spending can be broken down.",
	"Check back after a week of tracking for your first spending summary.",
}

var genericSuggestions = []string{
	"Review your recurring subscriptions and cancel the ones you no longer use.",
	"Set aside a fixed share of your income for savings at the start of each month.",
	"Track your expenses weekly to catch overspending early.",
}

// fallbackInsight is the deterministic narrative used whenever no reasoning text is available.
func fallbackInsight(c insightContext) (string, []string) {
	var parts []string
	parts = append(parts, fmt.Sprintf("You spent %s across %d transactions this %s, about %s per day.",
		c.money.Format(c.Total), c.Count, c.Timeframe, c.money.Format(c.DailyAverage)))

	if top, ok := c.dominant(); ok {
		parts = append(parts, fmt.Sprintf("Your largest category is %s at %.1f%% of spending (%s).",
			c.label(top.CategoryID), top.Percentage, c.money.Format(top.Total)))
	}

	for _, ca := range c.concentrated() {
		parts = append(parts, fmt.Sprintf("Concentration warning: %s accounts for %.1f%% of your spending, above the %.0f%% mark.",
			c.label(ca.CategoryID), ca.Percentage, concentrationThreshold))
	}

	if msg := volatilityComment(c.Trend.Consistency); msg != "" {
		parts = append(parts, msg)
	}

	if cash := c.cashShare(); cash > cashThreshold {
		parts = append(parts, fmt.Sprintf("%.1f%% of your spending was paid in cash, which makes it harder to keep track of.", cash))
	}

	suggestions := capSuggestions(append(contextualSuggestions(c), genericSuggestions...))
	return strings.Join(parts, " "), suggestions
}

func volatilityComment(c Consistency) string {
	switch c {
	case ConsistencyConsistent:
		return "Your day-to-day spending is fairly steady."
	case ConsistencyModerate:
		return "Your day-to-day spending varies moderately."
	case ConsistencyVariable:
		return "Your day-to-day spending is highly variable, with a few heavy days driving the total."
	default:
		return ""
	}
}

// contextualSuggestions derives advice from the same signals the fallback narrative reports.
func contextualSuggestions(c insightContext) []string {
	var out []string
	for _, ca := range c.concentrated() {
		out = append(out, fmt.Sprintf("Set a monthly limit for %s to bring its share of spending down.", c.label(ca.CategoryID)))
	}
	if c.Trend.Consistency == ConsistencyVariable {
		out = append(out, "Plan larger purchases ahead of time to smooth out day-to-day spending.")
	}
	if c.Trend.Direction == TrendIncreasing {
		out = append(out, "Spending is trending up; review recent purchases for ones you could skip.")
	}
	if c.cashShare() > cashThreshold {
		out = append(out, "Pay by card or e-wallet where possible so every expense is recorded automatically.")
	}
	return out
}
