package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseHealthTier(t *testing.T) {
	tests := []struct {
		input  string
		want   HealthTier
		wantOK bool
	}{
		{"media", HealthMedium, true},
		{"MEDIA", HealthMedium, true},
		{"  maxima  ", HealthMax, true},
		{"muy_mal", HealthVeryBad, true},
		{"semimaxima", HealthSemiMax, true},
		{"regular", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseHealthTier(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseHealthTier(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseHealthTier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTransactionIsSavings(t *testing.T) {
	tests := []struct {
		category string
		want     bool
	}{
		{"Ahorro", true},
		{"ahorro", true},
		{" AHORRO ", true},
		{"Comida", false},
		{"", false},
	}

	for _, tt := range tests {
		tx := Transaction{Category: tt.category}
		if got := tx.IsSavings(); got != tt.want {
			t.Errorf("IsSavings() with category %q = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Type:   Income,
		Amount: Money{Pesos: 100000},
		Date:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	badType := valid
	badType.Type = "transferencia"
	if err := badType.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}

	badDate := valid
	badDate.Date = time.Time{}
	if err := badDate.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}

	badAmount := valid
	badAmount.Amount = Money{Pesos: -1}
	if err := badAmount.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestUserAgeAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		birth  time.Time
		want   int
		wantOK bool
	}{
		{"birthday passed this year", time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC), 34, true},
		{"birthday later this year", time.Date(1990, 9, 10, 0, 0, 0, 0, time.UTC), 33, true},
		{"birthday today", time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), 34, true},
		{"birthday tomorrow", time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC), 33, true},
		{"unknown birth date", time.Time{}, 0, false},
		{"birth date in the future", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{BirthDate: tt.birth}
			got, ok := u.AgeAt(now)
			if ok != tt.wantOK {
				t.Fatalf("AgeAt ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("AgeAt = %d, want %d", got, tt.want)
			}
		})
	}
}
