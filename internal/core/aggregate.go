package core

import (
	"sort"
	"time"
)

type (
	// Granularity selects the bucket size for chart aggregation.
	Granularity string

	// Period selects the window for insight totals.
	Period string
)

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"

	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// maxBuckets caps chart series at the most recent 30 days or months.
const maxBuckets = 30

type (
	// TimeBucket is one point of a chart series. Total sums amounts
	// numerically across currencies; the chart does not convert.
	TimeBucket struct {
		Key      string
		Total    Money
		Count    int
		Expenses []Expense
	}

	UserAmount struct {
		User   string
		Amount Money
	}

	// CategoryAmount carries a category total. Percent is only filled
	// by the per-currency breakdown, relative to that currency's total.
	CategoryAmount struct {
		Name    string
		Amount  Money
		Percent float64
	}

	// Insight is the period-scoped breakdown for the insights view.
	// ByUser and ByCategory are sorted descending by amount; equal
	// amounts keep first-encountered order.
	Insight struct {
		ByUser     []UserAmount
		ByCategory []CategoryAmount
		Total      Money
	}

	// CurrencyInsight is an Insight restricted to one currency group.
	CurrencyInsight struct {
		Currency string
		Insight
	}
)

// IsValid reports whether g is a known granularity.
func (g Granularity) IsValid() bool {
	return g == GranularityDaily || g == GranularityMonthly
}

// IsValid reports whether p is a known period.
func (p Period) IsValid() bool {
	return p == PeriodWeekly || p == PeriodMonthly
}

// Bucket groups expenses into daily (YYYY-MM-DD) or monthly (YYYY-MM)
// buckets. The result is ascending by key and truncated to the most
// recent 30 buckets. An empty input yields an empty result.
func Bucket(expenses []Expense, g Granularity) []TimeBucket {
	if len(expenses) == 0 {
		return nil
	}

	index := make(map[string]int)
	var buckets []TimeBucket
	for _, e := range expenses {
		key := e.Date.DayKey()
		if g == GranularityMonthly {
			key = e.Date.MonthKey()
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, TimeBucket{Key: key})
		}
		buckets[i].Total.Cents += e.Amount.Cents
		buckets[i].Count++
		buckets[i].Expenses = append(buckets[i].Expenses, e)
	}

	// Zero-padded keys sort chronologically as strings.
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })

	if len(buckets) > maxBuckets {
		buckets = buckets[len(buckets)-maxBuckets:]
	}
	return buckets
}

// PeriodStart computes the inclusive lower bound of an insight window.
// Weekly starts on the most recent Monday at local midnight, counting
// Sunday as day seven of the running week. Monthly starts on the first
// of now's month.
func PeriodStart(p Period, now time.Time) time.Time {
	if p == PeriodWeekly {
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := now.AddDate(0, 0, -(weekday - 1))
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Insights computes per-user and per-category totals for expenses whose
// date falls inside the period ending at now.
func Insights(expenses []Expense, p Period, now time.Time) Insight {
	return buildInsight(filterPeriod(expenses, p, now))
}

// InsightsByCurrency partitions the period's expenses by currency code
// (blank meaning USD) and computes an Insight per group, including
// category percentages relative to the group total. Groups appear in
// first-encountered order.
func InsightsByCurrency(expenses []Expense, p Period, now time.Time) []CurrencyInsight {
	filtered := filterPeriod(expenses, p, now)

	groups := make(map[string][]Expense)
	var order []string
	for _, e := range filtered {
		code := e.CurrencyOrDefault()
		if _, seen := groups[code]; !seen {
			order = append(order, code)
		}
		groups[code] = append(groups[code], e)
	}

	out := make([]CurrencyInsight, 0, len(order))
	for _, code := range order {
		insight := buildInsight(groups[code])
		for i := range insight.ByCategory {
			if insight.Total.Cents != 0 {
				insight.ByCategory[i].Percent = float64(insight.ByCategory[i].Amount.Cents) / float64(insight.Total.Cents) * 100
			}
		}
		out = append(out, CurrencyInsight{Currency: code, Insight: insight})
	}
	return out
}

func filterPeriod(expenses []Expense, p Period, now time.Time) []Expense {
	start := PeriodStart(p, now)
	var out []Expense
	for _, e := range expenses {
		if !e.Date.Before(start) {
			out = append(out, e)
		}
	}
	return out
}

func buildInsight(expenses []Expense) Insight {
	userTotals := make(map[string]int64)
	categoryTotals := make(map[string]int64)
	var userOrder, categoryOrder []string
	var total int64

	for _, e := range expenses {
		if _, seen := userTotals[e.User]; !seen {
			userOrder = append(userOrder, e.User)
		}
		userTotals[e.User] += e.Amount.Cents

		if _, seen := categoryTotals[e.Category]; !seen {
			categoryOrder = append(categoryOrder, e.Category)
		}
		categoryTotals[e.Category] += e.Amount.Cents

		total += e.Amount.Cents
	}

	insight := Insight{
		ByUser:     make([]UserAmount, 0, len(userOrder)),
		ByCategory: make([]CategoryAmount, 0, len(categoryOrder)),
		Total:      Money{Cents: total},
	}
	for _, user := range userOrder {
		insight.ByUser = append(insight.ByUser, UserAmount{User: user, Amount: Money{Cents: userTotals[user]}})
	}
	for _, name := range categoryOrder {
		insight.ByCategory = append(insight.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: categoryTotals[name]}})
	}

	// Stable sort keeps accumulation order for equal amounts.
	sort.SliceStable(insight.ByUser, func(i, j int) bool {
		return insight.ByUser[i].Amount.Cents > insight.ByUser[j].Amount.Cents
	})
	sort.SliceStable(insight.ByCategory, func(i, j int) bool {
		return insight.ByCategory[i].Amount.Cents > insight.ByCategory[j].Amount.Cents
	})
	return insight
}
