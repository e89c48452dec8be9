// Package normalize converts loosely-typed raw records from the document
// store into canonical domain values. Nothing in this package panics or
// returns a fatal error: a record that cannot be canonicalized becomes a
// typed Rejection and the batch continues.
package normalize

import (
	"fmt"
	"strings"

	"finawise/internal/core"
)

const (
	ReasonUnknownType   Reason = "unknown_type"
	ReasonInvalidDate   Reason = "invalid_date"
	ReasonInvalidAmount Reason = "invalid_amount"
)

type (
	// Reason classifies why a record was rejected.
	Reason string

	// Rejection records one raw record that could not be canonicalized.
	Rejection struct {
		RecordID string
		Reason   Reason
		Detail   string
	}
)

func (r Rejection) String() string {
	return fmt.Sprintf("record %q rejected (%s): %s", r.RecordID, r.Reason, r.Detail)
}

// typeSynonyms maps the inconsistent type spellings found in stored records
// onto the closed transaction type set. Lookup is done on the lower-cased,
// trimmed value.
var typeSynonyms = map[string]core.TransactionType{
	"ingreso":  core.Income,
	"ingresos": core.Income,
	"income":   core.Income,
	"gasto":    core.Expense,
	"gastos":   core.Expense,
	"egreso":   core.Expense,
	"expense":  core.Expense,
}

// Transaction canonicalizes one raw transaction record.
//
// Records flagged simulation=true are not rejected: they come back as valid
// transactions tagged Excluded, so callers can audit them while keeping them
// out of every aggregate.
func Transaction(raw core.RawRecord) (core.Transaction, *Rejection) {
	id := stringField(raw, "id")

	typ, ok := parseType(raw["type"])
	if !ok {
		return core.Transaction{}, &Rejection{
			RecordID: id,
			Reason:   ReasonUnknownType,
			Detail:   fmt.Sprintf("type %v not in synonym table", raw["type"]),
		}
	}

	date, ok := parseDate(dateField(raw))
	if !ok {
		return core.Transaction{}, &Rejection{
			RecordID: id,
			Reason:   ReasonInvalidDate,
			Detail:   fmt.Sprintf("unparseable date %v", dateField(raw)),
		}
	}

	amount, err := core.ParseAmount(raw["amount"])
	if err != nil {
		return core.Transaction{}, &Rejection{
			RecordID: id,
			Reason:   ReasonInvalidAmount,
			Detail:   err.Error(),
		}
	}

	return core.Transaction{
		ID:          id,
		UserID:      stringField(raw, "userId"),
		Type:        typ,
		Category:    categoryField(raw),
		SubCategory: firstString(raw, "subCategory", "subcategory"),
		Amount:      amount,
		Date:        date,
		Description: stringField(raw, "description"),
		Excluded:    boolField(raw, "simulation"),
	}, nil
}

// Transactions canonicalizes a whole batch, splitting it into valid
// transactions and per-record rejections. Order of the valid slice follows
// input order.
func Transactions(raws []core.RawRecord) ([]core.Transaction, []Rejection) {
	txs := make([]core.Transaction, 0, len(raws))
	var rejected []Rejection
	for _, raw := range raws {
		tx, rej := Transaction(raw)
		if rej != nil {
			rejected = append(rejected, *rej)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, rejected
}

// User canonicalizes one raw user record. Users are a join source only, so
// parsing is lenient: fields that cannot be interpreted become zero values
// and the aggregation engine groups the affected transactions under Unknown.
func User(raw core.RawRecord) core.User {
	u := core.User{
		ID:      stringField(raw, "id"),
		Region:  stringField(raw, "region"),
		Commune: stringField(raw, "commune"),
		Gender:  stringField(raw, "gender"),
	}
	if tier, ok := core.ParseHealthTier(stringField(raw, "financialHealth")); ok {
		u.FinancialHealth = tier
	}
	if birth, ok := parseDate(raw["birthDate"]); ok {
		u.BirthDate = birth
	}
	if reg, ok := parseDate(raw["registrationDate"]); ok {
		u.RegistrationDate = reg
	}
	return u
}

// Users canonicalizes a batch of raw user records into an ID-keyed map for
// joining. Records without an id are dropped: they can never be joined.
func Users(raws []core.RawRecord) map[string]core.User {
	users := make(map[string]core.User, len(raws))
	for _, raw := range raws {
		u := User(raw)
		if u.ID == "" {
			continue
		}
		users[u.ID] = u
	}
	return users
}

func parseType(v any) (core.TransactionType, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	typ, ok := typeSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return typ, ok
}

// categoryField resolves the category label. Older clients wrote the label
// under "categoryName" instead of "category"; both are accepted, and when
// either one names the savings category that one wins so savings membership
// is never lost to the field-name drift.
func categoryField(raw core.RawRecord) string {
	cat := stringField(raw, "category")
	alt := stringField(raw, "categoryName")
	if cat == "" {
		return alt
	}
	if !strings.EqualFold(cat, core.SavingsCategory) && strings.EqualFold(alt, core.SavingsCategory) {
		return alt
	}
	return cat
}

// dateField returns the raw date value. Mobile clients wrote "selectedDate",
// backend writes used "date".
func dateField(raw core.RawRecord) any {
	if v, ok := raw["selectedDate"]; ok && v != nil {
		return v
	}
	return raw["date"]
}

func stringField(raw core.RawRecord, key string) string {
	s, _ := raw[key].(string)
	return strings.TrimSpace(s)
}

func firstString(raw core.RawRecord, keys ...string) string {
	for _, k := range keys {
		if s := stringField(raw, k); s != "" {
			return s
		}
	}
	return ""
}

func boolField(raw core.RawRecord, key string) bool {
	b, _ := raw[key].(bool)
	return b
}
