package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutputOptions() OutputOptions {
	return OutputOptions{Money: PlainMoney{}, Categories: testCategories(), CurrencyCode: "VND"}
}

func TestPrintJSON_Envelope(t *testing.T) {
	var buf bytes.Buffer
	report := RecurringReport{Status: StatusInsufficientData, Message: "nothing yet", Patterns: []RecurrencePattern{}}

	require.NoError(t, PrintJSON(&buf, "recurring", report, testOutputOptions()))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "recurring", out.Report)
	assert.Equal(t, "VND", out.Currency)

	var decoded RecurringReport
	require.NoError(t, json.Unmarshal(out.Result, &decoded))
	assert.Equal(t, StatusInsufficientData, decoded.Status)
	assert.Equal(t, "nothing yet", decoded.Message)
}

func TestPrintJSON_Unencodable(t *testing.T) {
	var buf bytes.Buffer
	err := PrintJSON(&buf, "broken", make(chan int), testOutputOptions())
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestPrintSummaryTable(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	s, err := e.Summary(juneExpenses(), TimeframeMonth, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummaryTable(&buf, s, testOutputOptions())
	out := buf.String()

	assert.Contains(t, out, "Spending this month (2025-06-01 to 2025-06-30): 100000.00 across 3 transactions")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "Transport")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "Payment method")
	assert.Contains(t, out, "cash")

	buf.Reset()
	PrintSummaryTable(&buf, SpendingSummary{Timeframe: TimeframeWeek}, testOutputOptions())
	assert.Contains(t, buf.String(), "No expenses recorded in this period.")
}

func TestPrintInsightTable(t *testing.T) {
	var buf bytes.Buffer
	PrintInsightTable(&buf, sampleInsight("Spending held steady."), testOutputOptions())
	out := buf.String()

	assert.Contains(t, out, "Insights for this month (2025-06-01 to 2025-06-30)")
	assert.Contains(t, out, "Total: 1234.50 across 4 transactions")
	assert.Contains(t, out, "Spending held steady.")
	assert.Contains(t, out, "Suggestion")
	assert.Contains(t, out, "three")
	assert.Contains(t, out, "source: fallback")
}

func TestPrintForecastTable(t *testing.T) {
	var buf bytes.Buffer
	PrintForecastTable(&buf, Forecast{Status: StatusInsufficientData, Message: "Need more months."}, testOutputOptions())
	assert.Equal(t, "Need more months.\n", buf.String())

	buf.Reset()
	f := Forecast{
		Status:      StatusOK,
		MonthsAhead: 1,
		Predictions: []Prediction{{CategoryID: 1, Period: "2025-07", PredictedAmount: amount("150"), Confidence: 0.72}},
	}
	PrintForecastTable(&buf, f, testOutputOptions())
	out := buf.String()
	assert.Contains(t, out, "Forecast for the next 1 month(s)")
	assert.Contains(t, out, "2025-07")
	assert.Contains(t, out, "150.00")
	assert.Contains(t, out, "72%")
}

func TestPrintAnomaliesTable(t *testing.T) {
	var buf bytes.Buffer
	r := AnomalyReport{
		Sensitivity: SensitivityHigh,
		Scanned:     5,
		Anomalies: []Anomaly{{
			Date: "2025-06-10", CategoryID: 2, ActualAmount: amount("200"), ExpectedAmount: amount("100"),
			DeviationPercentage: 100, Direction: DirectionHigh,
		}},
	}
	PrintAnomaliesTable(&buf, r, testOutputOptions())
	out := buf.String()

	assert.Contains(t, out, "Scanned 5 transactions at high sensitivity, 1 unusual")
	assert.Contains(t, out, "Transport")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "HIGH")
}

func TestPrintRecurringTable(t *testing.T) {
	d := newTestDetector(nil)
	report := NewRecurringReport(d.FindRecurring(everyNDays("2025-01-01", 30, 6, "25000", 3), narratorNow))
	require.Len(t, report.Patterns, 1)

	var buf bytes.Buffer
	PrintRecurringTable(&buf, report, testOutputOptions())
	out := buf.String()

	assert.Contains(t, out, "Found 1 recurring payments (1 active, 0 stopped), 1 probable subscriptions")
	assert.Contains(t, out, "30d")
	assert.Contains(t, out, "25000.00")
	assert.Contains(t, out, "300000.00")
	assert.Contains(t, out, report.Patterns[0].Subscription.Suggestion)

	buf.Reset()
	PrintRecurringTable(&buf, NewRecurringReport(nil), testOutputOptions())
	assert.Contains(t, buf.String(), "No recurring payments found yet")
}

func TestPrintBudgetsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintBudgetsTable(&buf, nil, testOutputOptions())
	assert.Contains(t, buf.String(), "Need at least two months")

	buf.Reset()
	recs := RecommendBudgets(monthlyExpenses(1, "100", "100", "100"), testCategories(), amount("10"))
	PrintBudgetsTable(&buf, recs, testOutputOptions())
	out := buf.String()
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "stable")

	buf.Reset()
	short := RecommendBudgets(monthlyExpenses(1, "100", "100"), testCategories(), amount("10"))
	PrintBudgetsTable(&buf, short, testOutputOptions())
	assert.Contains(t, buf.String(), "insufficient_data")
}
