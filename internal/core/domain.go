package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// SavingsCategory is the category whose amounts count both as an expense
// and as a saved amount for savings-rate calculations.
const SavingsCategory = "Ahorro"

// UnknownKey is the group bucket for transactions whose join key is
// unavailable (missing user record, empty commune, unknown birth date).
const UnknownKey = "Unknown"

const (
	HealthVeryBad HealthTier = "muy_mal"
	HealthBad     HealthTier = "mal"
	HealthMedium  HealthTier = "media"
	HealthSemiMax HealthTier = "semimaxima"
	HealthMax     HealthTier = "maxima"
)

type (
	TransactionType string

	// HealthTier is the closed set of financial-health labels assigned to users.
	HealthTier string

	// RawRecord is a loosely-typed document as returned by the storage layer.
	// The normalizer turns these into canonical Transactions and Users.
	RawRecord map[string]any

	// Transaction is a canonical, validated record ready for aggregation.
	Transaction struct {
		ID          string
		UserID      string
		Type        TransactionType
		Category    string
		SubCategory string
		Amount      Money
		Date        time.Time
		Description string
		// Excluded marks simulation/preview records. They are carried through
		// for auditing but never contribute to any aggregate.
		Excluded bool
	}

	// User is consumed as a join source for grouping dimensions only;
	// the engine never mutates user records.
	User struct {
		ID               string
		Region           string
		Commune          string
		BirthDate        time.Time
		Gender           string
		FinancialHealth  HealthTier
		RegistrationDate time.Time
	}
)

var (
	ErrInvalidType   = errors.New("unknown transaction type")
	ErrInvalidDate   = errors.New("invalid transaction date")
	ErrInvalidAmount = errors.New("invalid amount")
)

var healthTiers = map[HealthTier]struct{}{
	HealthVeryBad: {},
	HealthBad:     {},
	HealthMedium:  {},
	HealthSemiMax: {},
	HealthMax:     {},
}

// ParseHealthTier matches s against the closed tier set, ignoring case and
// surrounding whitespace. ok is false for anything outside the set.
func ParseHealthTier(s string) (HealthTier, bool) {
	tier := HealthTier(strings.ToLower(strings.TrimSpace(s)))
	_, ok := healthTiers[tier]
	return tier, ok
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// IsSavings reports whether the transaction belongs to the savings category.
// Matching ignores case: source data mixes "Ahorro" and "ahorro".
func (tx Transaction) IsSavings() bool {
	return strings.EqualFold(strings.TrimSpace(tx.Category), SavingsCategory)
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	return tx.Amount.Validate()
}

// AgeAt returns the user's age in whole calendar years at the given instant.
// The year is not counted until the birthday has passed: if now's month/day
// precedes the birth month/day, one year is subtracted. ok is false when the
// birth date is unknown.
func (u User) AgeAt(now time.Time) (int, bool) {
	if u.BirthDate.IsZero() {
		return 0, false
	}
	age := now.Year() - u.BirthDate.Year()
	if now.Month() < u.BirthDate.Month() ||
		(now.Month() == u.BirthDate.Month() && now.Day() < u.BirthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}
