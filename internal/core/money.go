// Package core provides the canonical Finawise domain types.
//
// This file contains amount parsing and handling. Amounts are Chilean pesos,
// integer-valued with no fractional units, so Money carries whole pesos.
package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in whole Chilean pesos.
type Money struct {
	Pesos int64
}

// Validate rejects negative amounts. Zero is a legal amount: the source data
// contains zero-amount placeholder transactions that must still be counted.
func (m Money) Validate() error {
	if m.Pesos < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Float64 returns the amount as a float64 for display purposes only.
// Use Pesos for calculations.
func (m Money) Float64() float64 {
	return float64(m.Pesos)
}

// ParseAmount coerces a raw amount value into Money.
//
// The document store delivers amounts in whatever shape the client wrote:
// JSON numbers decode as float64, some records carry numeric strings, a few
// carry int64 from backend-side writes. Parsing goes through decimal to avoid
// float drift on large peso values, then rounds half-up to whole pesos.
// Negative or non-numeric values yield ErrInvalidAmount.
func ParseAmount(v any) (Money, error) {
	var d decimal.Decimal
	switch a := v.(type) {
	case nil:
		return Money{}, ErrInvalidAmount
	case float64:
		d = decimal.NewFromFloat(a)
	case float32:
		d = decimal.NewFromFloat32(a)
	case int:
		d = decimal.NewFromInt(int64(a))
	case int64:
		d = decimal.NewFromInt(a)
	case json.Number:
		var err error
		if d, err = decimal.NewFromString(a.String()); err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, a)
		}
	case string:
		var err error
		if d, err = decimal.NewFromString(a); err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, a)
		}
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Pesos: d.Round(0).IntPart()}, nil
}
