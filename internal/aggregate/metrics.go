package aggregate

import "sort"

// Metric derives a scalar from one accumulator.
type Metric func(Accumulator) float64

var (
	MetricIncome = func(a Accumulator) float64 { return float64(a.IncomeSum) }

	MetricExpense = func(a Accumulator) float64 { return float64(a.ExpenseSum) }

	MetricNet = func(a Accumulator) float64 { return float64(NetBalance(a)) }

	MetricSavingsRate = func(a Accumulator) float64 { return SavingsRate(a) }
)

// SavingsRate returns the saved share of income as a percentage. Zero income
// yields 0, never NaN, even when savings were recorded.
func SavingsRate(a Accumulator) float64 {
	if a.IncomeSum == 0 {
		return 0
	}
	return float64(a.SavingsSum) / float64(a.IncomeSum) * 100
}

// NetBalance is income minus expenses. Savings are already inside ExpenseSum
// and must not be subtracted again.
func NetBalance(a Accumulator) int64 {
	return a.IncomeSum - a.ExpenseSum
}

// BestPeriod returns the key whose accumulator maximizes the metric. Ties go
// to the lexicographically smallest key so the result is deterministic.
// ok is false for an empty group map.
func BestPeriod(groups Groups, m Metric) (string, bool) {
	best := ""
	var bestVal float64
	found := false
	for _, k := range SortedKeys(groups) {
		v := m(groups[k])
		if !found || v > bestVal {
			best, bestVal, found = k, v, true
		}
	}
	return best, found
}

// AveragePerGroup is the arithmetic mean of the metric across groups with at
// least one transaction. Zero-count groups are left out of the denominator,
// not treated as zero contributions.
func AveragePerGroup(groups Groups, m Metric) float64 {
	var sum float64
	n := 0
	for _, acc := range groups {
		if acc.Count == 0 {
			continue
		}
		sum += m(acc)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Totals folds every group into one accumulator, used for overall summaries
// and reconciliation checks.
func Totals(groups Groups) Accumulator {
	var total Accumulator
	for _, acc := range groups {
		total.IncomeSum += acc.IncomeSum
		total.ExpenseSum += acc.ExpenseSum
		total.SavingsSum += acc.SavingsSum
		total.Count += acc.Count
	}
	return total
}

// SortedKeys returns the group keys in lexicographic order, the deterministic
// presentation order for callers (chronological for YYYY-MM keys).
func SortedKeys(groups Groups) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
