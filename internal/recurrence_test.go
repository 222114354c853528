package internal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// everyNDays returns count transactions of amt starting at start, n days apart
func everyNDays(start string, n, count int, amt string, category CategoryID) []Transaction {
	first := date(start)
	txs := make([]Transaction, 0, count)
	for i := 0; i < count; i++ {
		d := first.AddDate(0, 0, i*n)
		txs = append(txs, Transaction{
			ID:         d.Format(dateLayout),
			CategoryID: category,
			Amount:     amount(amt),
			OccurredOn: d,
			Timestamp:  d,
		})
	}
	return txs
}

func newTestDetector(categories Categories) *RecurrenceDetector {
	classifier, err := NewKnownServiceClassifier(DefaultKnownServices)
	if err != nil {
		panic(err)
	}
	return NewRecurrenceDetector(RecurrenceOptions{}, categories, classifier)
}

func TestFindRecurring_MonthlySubscription(t *testing.T) {
	txs := everyNDays("2025-01-01", 30, 10, "25000", 3)
	now := txs[len(txs)-1].OccurredOn.AddDate(0, 0, 1)

	patterns := newTestDetector(NewCategories([]Category{{ID: 3, Name: "Entertainment"}})).FindRecurring(txs, now)

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	p := patterns[0]
	if p.IntervalDays != 30 {
		t.Errorf("expected interval 30, got %d", p.IntervalDays)
	}
	if p.OccurrenceCount != 10 {
		t.Errorf("expected 10 occurrences, got %d", p.OccurrenceCount)
	}
	if p.Confidence != PatternConfidenceHigh {
		t.Errorf("expected high confidence, got %s", p.Confidence)
	}
	if p.Status != StatusActive {
		t.Errorf("expected active, got %s", p.Status)
	}
	if !p.Amount.Equal(amount("25000")) || !p.MonthlyAmount.Equal(amount("25000")) {
		t.Errorf("expected amount and monthly amount 25000, got %s / %s", p.Amount, p.MonthlyAmount)
	}
	if !p.IsSubscription() {
		t.Fatal("expected subscription")
	}
	if !p.Subscription.AnnualCost.Equal(amount("300000")) {
		t.Errorf("expected annual cost 300000, got %s", p.Subscription.AnnualCost)
	}
	if p.CategoryLabel != "Entertainment" {
		t.Errorf("expected Entertainment label, got %q", p.CategoryLabel)
	}
	if !p.NextExpected.Equal(p.LastSeen.AddDate(0, 0, 30)) {
		t.Errorf("expected next payment 30 days after %s, got %s", p.LastSeen, p.NextExpected)
	}
}

func TestFindRecurring_TooFewOccurrences(t *testing.T) {
	txs := everyNDays("2025-01-01", 30, 2, "25000", 3)

	patterns := newTestDetector(nil).FindRecurring(txs, date("2025-02-15"))

	if len(patterns) != 0 {
		t.Errorf("expected no patterns for two payments, got %d", len(patterns))
	}
}

func TestFindRecurring_Confidence(t *testing.T) {
	tests := []struct {
		name       string
		dates      []string
		expected   PatternConfidence
		recurrence bool
	}{
		{
			name:       "regular gaps",
			dates:      []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22"},
			expected:   PatternConfidenceHigh,
			recurrence: true,
		},
		{
			// gaps 4, 10, 4, 10: mean 7, deviation 3
			name:       "uneven gaps",
			dates:      []string{"2025-01-01", "2025-01-05", "2025-01-15", "2025-01-19", "2025-01-29"},
			expected:   PatternConfidenceMedium,
			recurrence: true,
		},
		{
			// gaps 2, 20, 2, 20: mean 11, deviation 9
			name:       "irregular gaps",
			dates:      []string{"2025-01-01", "2025-01-03", "2025-01-23", "2025-01-25", "2025-02-14"},
			recurrence: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txs []Transaction
			for _, d := range tt.dates {
				txs = append(txs, Transaction{ID: d, CategoryID: 1, Amount: amount("50000"), OccurredOn: date(d)})
			}

			patterns := newTestDetector(nil).FindRecurring(txs, date("2025-02-15"))

			if !tt.recurrence {
				if len(patterns) != 0 {
					t.Errorf("expected no pattern, got %+v", patterns)
				}
				return
			}
			if len(patterns) != 1 {
				t.Fatalf("expected 1 pattern, got %d", len(patterns))
			}
			if patterns[0].Confidence != tt.expected {
				t.Errorf("expected %s confidence, got %s", tt.expected, patterns[0].Confidence)
			}
		})
	}
}

func TestFindRecurring_GroupsByGranularity(t *testing.T) {
	// 24600 and 25400 both round to 25000
	txs := []Transaction{
		{ID: "a", Amount: amount("24600"), OccurredOn: date("2025-01-10"), CategoryID: 2},
		{ID: "b", Amount: amount("25400"), OccurredOn: date("2025-02-10"), CategoryID: 2},
		{ID: "c", Amount: amount("25000"), OccurredOn: date("2025-03-10"), CategoryID: 2},
		{ID: "d", Amount: amount("80000"), OccurredOn: date("2025-03-12"), CategoryID: 2},
	}

	patterns := newTestDetector(nil).FindRecurring(txs, date("2025-03-20"))

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if !patterns[0].AmountBucket.Equal(amount("25000")) {
		t.Errorf("expected bucket 25000, got %s", patterns[0].AmountBucket)
	}
	if !patterns[0].Amount.Equal(amount("25000")) {
		t.Errorf("expected average 25000, got %s", patterns[0].Amount)
	}
}

func TestFindRecurring_SkipsNonPositiveAmounts(t *testing.T) {
	txs := everyNDays("2025-01-01", 30, 4, "0", 1)

	if patterns := newTestDetector(nil).FindRecurring(txs, date("2025-04-10")); len(patterns) != 0 {
		t.Errorf("expected zero amounts to be ignored, got %d patterns", len(patterns))
	}
}

func TestFindRecurring_WeeklyIsNotSubscription(t *testing.T) {
	txs := everyNDays("2025-01-06", 7, 6, "12000", 4)

	patterns := newTestDetector(nil).FindRecurring(txs, date("2025-02-12"))

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if patterns[0].IsSubscription() {
		t.Error("weekly payment should not be a subscription")
	}
	// 12000 * 30 / 7
	if !patterns[0].MonthlyAmount.Equal(amount("51428.57")) {
		t.Errorf("expected monthly amount 51428.57, got %s", patterns[0].MonthlyAmount)
	}
}

func TestFindRecurring_Ordering(t *testing.T) {
	var txs []Transaction
	txs = append(txs, everyNDays("2024-01-01", 30, 4, "90000", 1)...) // stopped long ago
	txs = append(txs, everyNDays("2025-01-01", 30, 4, "10000", 2)...)
	txs = append(txs, everyNDays("2025-01-02", 30, 4, "40000", 3)...)

	patterns := newTestDetector(nil).FindRecurring(txs, date("2025-04-05"))

	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
	want := []string{"40000", "10000", "90000"}
	for i, w := range want {
		if !patterns[i].Amount.Equal(amount(w)) {
			t.Errorf("position %d: expected %s, got %s", i, w, patterns[i].Amount)
		}
	}
	if patterns[2].Status != StatusStopped {
		t.Errorf("expected the 2024 pattern to be stopped, got %s", patterns[2].Status)
	}
}

func TestFindRecurring_LabelFromClassifier(t *testing.T) {
	txs := everyNDays("2025-01-05", 30, 3, "79000", NoCategory)
	for i := range txs {
		txs[i].Description = "SPOTIFY AB STOCKHOLM"
	}

	patterns := newTestDetector(nil).FindRecurring(txs, date("2025-03-10"))

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if patterns[0].CategoryLabel != "Spotify" {
		t.Errorf("expected Spotify label, got %q", patterns[0].CategoryLabel)
	}
}

func TestFindRecurring_LabelPrefersCategory(t *testing.T) {
	txs := everyNDays("2025-01-05", 30, 3, "79000", NoCategory)
	txs[0].CategoryID = 7
	txs[1].CategoryID = 7
	txs[2].Description = "NETFLIX"

	patterns := newTestDetector(NewCategories([]Category{{ID: 7, Name: "Streaming"}})).FindRecurring(txs, date("2025-03-10"))

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if patterns[0].CategoryLabel != "Streaming" {
		t.Errorf("expected Streaming label, got %q", patterns[0].CategoryLabel)
	}
}

func TestCalculateAverageAmount(t *testing.T) {
	txs := []Transaction{
		{Amount: amount("100")},
		{Amount: amount("200")},
		{Amount: amount("150.50")},
	}

	avg := CalculateAverageAmount(txs)
	if !avg.Equal(amount("150.17")) {
		t.Errorf("expected average 150.17, got %s", avg)
	}
	if !CalculateAverageAmount(nil).IsZero() {
		t.Error("expected zero average for no transactions")
	}
}

func TestRoundToGranularity(t *testing.T) {
	tests := []struct {
		amount, unit, expected string
	}{
		{"24600", "1000", "25000"},
		{"24400", "1000", "24000"},
		{"99.5", "1", "100"},
		{"123.45", "0", "123.45"},
	}
	for _, tt := range tests {
		got := RoundToGranularity(amount(tt.amount), amount(tt.unit))
		if !got.Equal(amount(tt.expected)) {
			t.Errorf("RoundToGranularity(%s, %s) = %s, want %s", tt.amount, tt.unit, got, tt.expected)
		}
	}
}

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name     string
		last     string
		now      string
		expected PatternStatus
	}{
		{"paid recently", "2025-03-01", "2025-03-10", StatusActive},
		{"due today", "2025-03-01", "2025-03-31", StatusActive},
		{"within grace period", "2025-03-01", "2025-04-05", StatusActive},
		{"past grace period", "2025-03-01", "2025-04-06", StatusStopped},
		{"long gone", "2024-06-01", "2025-04-01", StatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineStatus(date(tt.last), 30, 5, date(tt.now))
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMeanAbsoluteDeviation(t *testing.T) {
	if got := MeanAbsoluteDeviation([]float64{28, 31, 30, 31}, 30); got != 1 {
		t.Errorf("expected deviation 1, got %v", got)
	}
	if got := MeanAbsoluteDeviation(nil, 0); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}

func TestNewRecurringReport(t *testing.T) {
	active := RecurrencePattern{
		Amount:        amount("25000"),
		MonthlyAmount: amount("25000"),
		Status:        StatusActive,
		Subscription:  &SubscriptionInfo{AnnualCost: amount("300000")},
	}
	stopped := RecurrencePattern{
		Amount:        amount("9000"),
		MonthlyAmount: amount("9000"),
		Status:        StatusStopped,
		Subscription:  &SubscriptionInfo{AnnualCost: amount("108000")},
	}
	weekly := RecurrencePattern{
		Amount:        amount("7000"),
		MonthlyAmount: amount("30000"),
		Status:        StatusActive,
	}

	r := NewRecurringReport([]RecurrencePattern{active, stopped, weekly})

	if r.Status != StatusOK {
		t.Errorf("expected ok, got %s", r.Status)
	}
	if r.SubscriptionCount != 2 {
		t.Errorf("expected 2 subscriptions, got %d", r.SubscriptionCount)
	}
	if !r.AnnualSubscribed.Equal(amount("300000")) {
		t.Errorf("stopped subscriptions should not count, got %s", r.AnnualSubscribed)
	}
	if !r.MonthlyRecurring.Equal(amount("55000")) {
		t.Errorf("expected monthly recurring 55000, got %s", r.MonthlyRecurring)
	}

	empty := NewRecurringReport([]RecurrencePattern{})
	if empty.Status != StatusInsufficientData || empty.Message == "" {
		t.Errorf("expected insufficient data with a message, got %+v", empty)
	}
}
