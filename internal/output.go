package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// OutputOptions controls how reports are displayed
type OutputOptions struct {
	Money      MoneyFormatter
	Categories Categories
	// CurrencyCode is reported in JSON output
	CurrencyCode string
}

func (o OutputOptions) money(d decimal.Decimal) string {
	if o.Money == nil {
		return PlainMoney{}.Format(d)
	}
	return o.Money.Format(d)
}

// JSONOutput is the root JSON output object
type JSONOutput struct {
	Report   string          `json:"report"`
	Currency string          `json:"currency,omitempty"`
	Result   json.RawMessage `json:"result"`
}

// PrintJSON writes any report wrapped in a JSONOutput envelope
func PrintJSON(w io.Writer, report string, result any, opts OutputOptions) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding %s report: %w", report, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONOutput{Report: report, Currency: opts.CurrencyCode, Result: raw})
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// alignRight right-aligns the given 1-based columns
func alignRight(t table.Writer, cols ...int) {
	configs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		configs = append(configs, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func PrintSummaryTable(w io.Writer, s SpendingSummary, opts OutputOptions) {
	fmt.Fprintf(w, "Spending this %s (%s to %s): %s across %d transactions\n\n",
		s.Timeframe, s.DateRange.Start, s.DateRange.End, opts.money(s.Total), s.Count)
	if s.Count == 0 {
		fmt.Fprintln(w, "No expenses recorded in this period.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Category", "Count", "Total", "Average", "Share"})
	for _, ca := range s.ByCategory {
		t.AppendRow(table.Row{opts.Categories.Name(ca.CategoryID), ca.Count,
			opts.money(ca.Total), opts.money(ca.Average), percent(ca.Percentage)})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{text.Bold.Sprint("Total"), s.Count, text.Bold.Sprint(opts.money(s.Total)), "", ""})
	alignRight(t, 2, 3, 4, 5)
	t.Render()

	fmt.Fprintln(w)
	pt := newTable(w)
	pt.AppendHeader(table.Row{"Payment method", "Count", "Total", "Share"})
	for _, p := range s.Payments {
		pt.AppendRow(table.Row{string(p.Method), p.Count, opts.money(p.Total), percent(p.Percentage)})
	}
	alignRight(pt, 2, 3, 4)
	pt.Render()
}

func PrintInsightTable(w io.Writer, r InsightResult, opts OutputOptions) {
	fmt.Fprintf(w, "Insights for this %s (%s to %s)\n", r.Timeframe, r.DateRange.Start, r.DateRange.End)
	if r.Count > 0 {
		fmt.Fprintf(w, "Total: %s across %d transactions, trend %s, %s\n",
			opts.money(r.Total), r.Count, r.Trend.Direction, r.Trend.Consistency)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, text.WrapSoft(r.Narrative, 100))
	fmt.Fprintln(w)

	if len(r.Suggestions) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "Suggestion"})
		for i, s := range r.Suggestions {
			t.AppendRow(table.Row{i + 1, s})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 90}})
		t.Render()
	}
	if r.Source != SourceReasoning {
		fmt.Fprintln(w, text.FgHiBlack.Sprintf("(source: %s)", r.Source))
	}
}

func PrintForecastTable(w io.Writer, f Forecast, opts OutputOptions) {
	if f.Status == StatusInsufficientData {
		fmt.Fprintln(w, f.Message)
		return
	}
	fmt.Fprintf(w, "Forecast for the next %d month(s)\n\n", f.MonthsAhead)

	t := newTable(w)
	t.AppendHeader(table.Row{"Category", "Month", "Predicted", "Confidence"})
	for _, p := range f.Predictions {
		t.AppendRow(table.Row{opts.Categories.Name(p.CategoryID), p.Period,
			opts.money(p.PredictedAmount), fmt.Sprintf("%.0f%%", p.Confidence*100)})
	}
	alignRight(t, 3, 4)
	t.Render()
}

func PrintAnomaliesTable(w io.Writer, r AnomalyReport, opts OutputOptions) {
	fmt.Fprintf(w, "Scanned %d transactions at %s sensitivity, %d unusual\n\n", r.Scanned, r.Sensitivity, len(r.Anomalies))
	if len(r.Anomalies) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Category", "Amount", "Expected", "Deviation", ""})
	for _, a := range r.Anomalies {
		dir := text.FgRed.Sprint("HIGH")
		if a.Direction == DirectionLow {
			dir = text.FgYellow.Sprint("LOW")
		}
		t.AppendRow(table.Row{a.Date, opts.Categories.Name(a.CategoryID), opts.money(a.ActualAmount),
			opts.money(a.ExpectedAmount), percent(a.DeviationPercentage), dir})
	}
	alignRight(t, 3, 4, 5)
	t.Render()
}

func PrintRecurringTable(w io.Writer, r RecurringReport, opts OutputOptions) {
	if r.Status == StatusInsufficientData {
		fmt.Fprintln(w, r.Message)
		return
	}

	active := 0
	for _, p := range r.Patterns {
		if p.Status == StatusActive {
			active++
		}
	}
	fmt.Fprintf(w, "Found %d recurring payments (%d active, %d stopped), %d probable subscriptions\n\n",
		len(r.Patterns), active, len(r.Patterns)-active, r.SubscriptionCount)

	t := newTable(w)
	t.AppendHeader(table.Row{"Label", "Status", "Every", "Amount", "Monthly", "Yearly", "Confidence", "Next"})
	for _, p := range r.Patterns {
		status := text.FgGreen.Sprint("ACTIVE")
		if p.Status == StatusStopped {
			status = text.FgRed.Sprint("STOPPED")
		}
		label := p.CategoryLabel
		yearly := text.FgHiBlack.Sprint("-")
		if p.IsSubscription() {
			label += " " + text.FgCyan.Sprint("(subscription)")
			if p.Status == StatusActive {
				yearly = opts.money(p.Subscription.AnnualCost)
			}
		}
		next := p.NextExpected.Format(dateLayout)
		if p.Status == StatusStopped {
			next = text.FgHiBlack.Sprint("-")
		}
		t.AppendRow(table.Row{label, status, fmt.Sprintf("%dd", p.IntervalDays), opts.money(p.Amount),
			opts.money(p.MonthlyAmount), yearly, string(p.Confidence), next})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", text.Bold.Sprint("Total (active)"),
		text.Bold.Sprint(opts.money(r.MonthlyRecurring)), text.Bold.Sprint(opts.money(r.AnnualSubscribed)), "", ""})
	alignRight(t, 3, 4, 5, 6)
	t.Render()

	var tips []string
	for _, p := range r.Patterns {
		if p.IsSubscription() && p.Status == StatusActive {
			tips = append(tips, "- "+p.Subscription.Suggestion)
		}
	}
	if len(tips) > 0 {
		fmt.Fprintf(w, "\n%s\n", strings.Join(tips, "\n"))
	}
}

func PrintBudgetsTable(w io.Writer, recs []BudgetRecommendation, opts OutputOptions) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "Need at least two months of spending in a category to recommend a budget.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Category", "Months", "Average", "Budget", "Trend", "Why"})
	total := decimal.Zero
	for _, r := range recs {
		total = total.Add(r.Recommended)
		t.AppendRow(table.Row{r.Label, r.Months, opts.money(r.AverageMonthly), opts.money(r.Recommended),
			string(r.Trend), r.Reason})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", text.Bold.Sprint("Total"), text.Bold.Sprint(opts.money(total)), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, WidthMax: 60},
	})
	t.Render()
}
