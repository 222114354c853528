package internal

import (
	"strconv"
	"strings"
	"time"
)

type Timeframe string

const (
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return tf, nil
	}
	return "", &ParamError{Param: "timeframe", Value: s, Allowed: []string{"week", "month", "quarter", "year"}}
}

// Window returns the calendar period containing now: the week starting on Sunday,
// the calendar month, the calendar quarter or the calendar year.
func (tf Timeframe) Window(now time.Time) DateRange {
	day := truncateDay(now)
	var start, end time.Time
	switch tf {
	case TimeframeWeek:
		start = day.AddDate(0, 0, -int(day.Weekday()))
		end = start.AddDate(0, 0, 6)
	case TimeframeQuarter:
		quarterStart := time.Month(((int(day.Month())-1)/3)*3 + 1)
		start = time.Date(day.Year(), quarterStart, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 3, -1)
	case TimeframeYear:
		start = time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(day.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	default:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	}
	return DateRange{Start: start, End: end}
}

// Days is the nominal length used for daily averages in prompts.
func (tf Timeframe) Days() int {
	switch tf {
	case TimeframeWeek:
		return 7
	case TimeframeQuarter:
		return 90
	case TimeframeYear:
		return 365
	default:
		return 30
	}
}

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

func ParseSensitivity(s string) (Sensitivity, error) {
	switch sens := Sensitivity(strings.ToLower(strings.TrimSpace(s))); sens {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return sens, nil
	}
	return "", &ParamError{Param: "sensitivity", Value: s, Allowed: []string{"low", "medium", "high"}}
}

// Multiplier is the width of the expected range in units of dispersion.
// Higher sensitivity means a narrower range.
func (s Sensitivity) Multiplier() float64 {
	switch s {
	case SensitivityLow:
		return 2.0
	case SensitivityHigh:
		return 1.2
	default:
		return 1.5
	}
}

const (
	MinMonthsAhead = 1
	MaxMonthsAhead = 12
)

func ValidateMonthsAhead(n int) error {
	if n < MinMonthsAhead || n > MaxMonthsAhead {
		return &ParamError{Param: "months_ahead", Value: strconv.Itoa(n), Allowed: []string{"1..12"}}
	}
	return nil
}

type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
)

func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(strings.ToLower(strings.TrimSpace(s))); b {
	case BucketDay, BucketMonth:
		return b, nil
	}
	return "", &ParamError{Param: "bucket", Value: s, Allowed: []string{"day", "month"}}
}

func (b Bucket) key(t time.Time) string {
	if b == BucketMonth {
		return t.Format(monthLayout)
	}
	return t.Format(dateLayout)
}

type GroupBy string

const (
	GroupByNone     GroupBy = "none"
	GroupByCategory GroupBy = "category"
)

// ParseCategoryFilter parses a comma separated list of category ids ("1,4,7").
func ParseCategoryFilter(s string) ([]CategoryID, error) {
	var ids []CategoryID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return nil, &ParamError{Param: "category", Value: part}
		}
		ids = append(ids, CategoryID(n))
	}
	return ids, nil
}
