// Package aggregate is the transaction aggregation engine: a pure, stateless
// computation that turns canonical transactions (plus a user join) into
// grouped accumulators and derived metrics. It holds no backend dependency
// and no shared state; every call is independent and idempotent.
package aggregate

import (
	"strconv"
	"time"

	"finawise/internal/core"
)

type (
	// Accumulator is the running total for one group. SavingsSum is a subset
	// of ExpenseSum: savings-category amounts are counted in both, and must
	// never be subtracted twice from a net balance.
	Accumulator struct {
		IncomeSum  int64
		ExpenseSum int64
		SavingsSum int64
		Count      int
	}

	// Groups maps a group key to its accumulator. Iteration order is
	// unspecified; callers sort keys themselves for presentation
	// (lexicographic order on YYYY-MM keys is chronological by construction).
	Groups map[string]Accumulator

	// KeyFunc extracts the grouping key for a transaction. user is nil when
	// the owning user record is missing; implementations return
	// core.UnknownKey rather than dropping the transaction.
	KeyFunc func(tx core.Transaction, user *core.User) string
)

func (a *Accumulator) add(tx core.Transaction) {
	switch tx.Type {
	case core.Income:
		a.IncomeSum += tx.Amount.Pesos
	case core.Expense:
		a.ExpenseSum += tx.Amount.Pesos
	}
	if tx.IsSavings() {
		a.SavingsSum += tx.Amount.Pesos
	}
	a.Count++
}

// ByMonth groups by the transaction's own calendar month, never the query
// wall clock.
func ByMonth() KeyFunc {
	return func(tx core.Transaction, _ *core.User) string {
		return tx.Date.Format("2006-01")
	}
}

func ByCategory() KeyFunc {
	return func(tx core.Transaction, _ *core.User) string {
		if tx.Category == "" {
			return core.UnknownKey
		}
		return tx.Category
	}
}

func BySubCategory() KeyFunc {
	return func(tx core.Transaction, _ *core.User) string {
		if tx.SubCategory == "" {
			return core.UnknownKey
		}
		return tx.SubCategory
	}
}

func ByCommune() KeyFunc {
	return func(_ core.Transaction, user *core.User) string {
		if user == nil || user.Commune == "" {
			return core.UnknownKey
		}
		return user.Commune
	}
}

func ByRegion() KeyFunc {
	return func(_ core.Transaction, user *core.User) string {
		if user == nil || user.Region == "" {
			return core.UnknownKey
		}
		return user.Region
	}
}

func ByFinancialHealth() KeyFunc {
	return func(_ core.Transaction, user *core.User) string {
		if user == nil || user.FinancialHealth == "" {
			return core.UnknownKey
		}
		return string(user.FinancialHealth)
	}
}

// ByAge groups by the user's age in whole years at the given query instant.
func ByAge(now time.Time) KeyFunc {
	return func(_ core.Transaction, user *core.User) string {
		if user == nil {
			return core.UnknownKey
		}
		age, ok := user.AgeAt(now)
		if !ok {
			return core.UnknownKey
		}
		return strconv.Itoa(age)
	}
}

// Group folds transactions into per-key accumulators in a single pass.
//
// Excluded (simulation) transactions never contribute. Transactions whose
// join key is unavailable land in the Unknown bucket, so the sum over all
// groups always reconciles with the sum over all included transactions.
func Group(txs []core.Transaction, users map[string]core.User, key KeyFunc) Groups {
	groups := make(Groups)
	for _, tx := range txs {
		if tx.Excluded {
			continue
		}
		k := key(tx, lookupUser(users, tx.UserID))
		if k == "" {
			k = core.UnknownKey
		}
		acc := groups[k]
		acc.add(tx)
		groups[k] = acc
	}
	return groups
}

func lookupUser(users map[string]core.User, id string) *core.User {
	if id == "" {
		return nil
	}
	if u, ok := users[id]; ok {
		return &u
	}
	return nil
}
