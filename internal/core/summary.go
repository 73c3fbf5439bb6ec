package core

import "sort"

// OtherCategory collects every category past the top ones in a summary.
const OtherCategory = "Other"

// topCategories is how many categories a summary lists by name.
const topCategories = 3

// PeriodTotals are the raw sums of one date window, in miliunits.
type PeriodTotals struct {
	Income    int64
	Expenses  int64
	Remaining int64
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// DayAmount is the income and (absolute) expenses of one calendar day.
type DayAmount struct {
	Date     Date  `json:"date"`
	Income   int64 `json:"income"`
	Expenses int64 `json:"expenses"`
}

// Summary is the spending overview of a window compared to the previous one.
type Summary struct {
	RemainingAmount int64            `json:"remainingAmount"`
	RemainingChange float64          `json:"remainingChange"`
	IncomeAmount    int64            `json:"incomeAmount"`
	IncomeChange    float64          `json:"incomeChange"`
	ExpensesAmount  int64            `json:"expensesAmount"`
	ExpensesChange  float64          `json:"expensesChange"`
	Categories      []CategoryAmount `json:"categories"`
	Days            []DayAmount      `json:"days"`
}

// PercentageChange of current against previous. A zero previous period counts
// as a 100% change unless current is zero too.
func PercentageChange(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}

// BuildSummary assembles a Summary from the aggregates of the current and
// previous windows. byCategory holds absolute expense totals; byDay is sparse.
func BuildSummary(r DateRange, current, previous PeriodTotals, byCategory []CategoryAmount, byDay []DayAmount) Summary {
	return Summary{
		RemainingAmount: current.Remaining,
		RemainingChange: PercentageChange(current.Remaining, previous.Remaining),
		IncomeAmount:    current.Income,
		IncomeChange:    PercentageChange(current.Income, previous.Income),
		ExpensesAmount:  current.Expenses,
		ExpensesChange:  PercentageChange(current.Expenses, previous.Expenses),
		Categories:      FoldCategories(byCategory),
		Days:            FillDays(r, byDay),
	}
}

// FoldCategories sorts by value descending (name ascending on ties) and folds
// everything past the top three into a single OtherCategory entry.
func FoldCategories(in []CategoryAmount) []CategoryAmount {
	out := make([]CategoryAmount, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) <= topCategories {
		return out
	}
	var other int64
	for _, c := range out[topCategories:] {
		other += c.Value
	}
	return append(out[:topCategories:topCategories], CategoryAmount{Name: OtherCategory, Value: other})
}

// FillDays returns one entry per day of r, taking values from sparse and
// zero-filling the gaps.
func FillDays(r DateRange, sparse []DayAmount) []DayAmount {
	byDate := make(map[string]DayAmount, len(sparse))
	for _, d := range sparse {
		byDate[d.Date.String()] = d
	}
	days := make([]DayAmount, 0, r.Days())
	r.Each(func(d Date) {
		if v, ok := byDate[d.String()]; ok {
			v.Date = d
			days = append(days, v)
			return
		}
		days = append(days, DayAmount{Date: d})
	})
	return days
}
