package aggregate

import (
	"strings"
	"time"

	"finawise/internal/core"
)

// AllValues is the sentinel meaning "no constraint" for a criteria field.
// An empty field means the same thing.
const AllValues = "all"

type (
	// Criteria describes the filters a report request may carry. Every field
	// defaults to "no constraint"; values the engine does not recognize also
	// degrade to no constraint, because criteria originate from UI selections
	// and must never turn into an error.
	Criteria struct {
		Region     string
		Commune    string
		Gender     string
		HealthTier string
		AgeMin     int
		AgeMax     int // 0 means unbounded
		DateFrom   time.Time
		DateTo     time.Time
	}

	// Predicate decides whether a transaction (with its joined user, nil when
	// missing) passes a filter. Predicates are pure; composition order never
	// changes the result.
	Predicate func(tx core.Transaction, user *core.User) bool
)

// BuildFilter composes the criteria into a single AND predicate.
//
// Constraints on user dimensions (region, commune, gender, tier, age) exclude
// transactions with no joined user: an exact-match filter cannot be satisfied
// by an unknown value.
func BuildFilter(c Criteria) Predicate {
	var preds []Predicate

	if v, ok := constraintValue(c.Region); ok {
		preds = append(preds, userMatch(func(u core.User) bool {
			return strings.EqualFold(u.Region, v)
		}))
	}
	if v, ok := constraintValue(c.Commune); ok {
		preds = append(preds, userMatch(func(u core.User) bool {
			return strings.EqualFold(u.Commune, v)
		}))
	}
	if v, ok := constraintValue(c.Gender); ok {
		preds = append(preds, userMatch(func(u core.User) bool {
			return strings.EqualFold(u.Gender, v)
		}))
	}
	if v, ok := constraintValue(c.HealthTier); ok {
		if tier, valid := core.ParseHealthTier(v); valid {
			preds = append(preds, userMatch(func(u core.User) bool {
				return u.FinancialHealth == tier
			}))
		}
		// A tier outside the closed set is treated as "all".
	}
	if c.AgeMin > 0 || c.AgeMax > 0 {
		min, max := c.AgeMin, c.AgeMax
		if max > 0 && max < min {
			// Malformed range from the UI; degrade to no constraint.
			min, max = 0, 0
		}
		if min > 0 || max > 0 {
			now := time.Now()
			preds = append(preds, userMatch(func(u core.User) bool {
				age, ok := u.AgeAt(now)
				if !ok {
					return false
				}
				if age < min {
					return false
				}
				return max == 0 || age <= max
			}))
		}
	}
	if !c.DateFrom.IsZero() {
		from := c.DateFrom
		preds = append(preds, func(tx core.Transaction, _ *core.User) bool {
			return !tx.Date.Before(from)
		})
	}
	if !c.DateTo.IsZero() {
		to := c.DateTo
		preds = append(preds, func(tx core.Transaction, _ *core.User) bool {
			return !tx.Date.After(to)
		})
	}

	if len(preds) == 0 {
		return func(core.Transaction, *core.User) bool { return true }
	}
	return func(tx core.Transaction, user *core.User) bool {
		for _, p := range preds {
			if !p(tx, user) {
				return false
			}
		}
		return true
	}
}

// Apply filters the transaction list through the predicate, joining each
// transaction to its user record.
func Apply(txs []core.Transaction, users map[string]core.User, pred Predicate) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if pred(tx, lookupUser(users, tx.UserID)) {
			out = append(out, tx)
		}
	}
	return out
}

func constraintValue(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, AllValues) {
		return "", false
	}
	return v, true
}

func userMatch(match func(core.User) bool) Predicate {
	return func(_ core.Transaction, user *core.User) bool {
		if user == nil {
			return false
		}
		return match(*user)
	}
}
