package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{"float64 from json", float64(150000), 150000, false},
		{"int64 from backend write", int64(20000), 20000, false},
		{"int", 500, 500, false},
		{"numeric string", "75000", 75000, false},
		{"string with decimals rounds half-up", "100.5", 101, false},
		{"json number", json.Number("42000"), 42000, false},
		{"zero is legal", float64(0), 0, false},
		{"negative float", float64(-100), 0, true},
		{"negative string", "-5000", 0, true},
		{"non-numeric string", "mil pesos", 0, true},
		{"nil", nil, 0, true},
		{"unsupported type", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%v) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%v) unexpected error: %v", tt.input, err)
			}
			if got.Pesos != tt.want {
				t.Errorf("ParseAmount(%v) = %d pesos, want %d", tt.input, got.Pesos, tt.want)
			}
		})
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Pesos: 0}).Validate(); err != nil {
		t.Errorf("zero amount should be valid: %v", err)
	}
	if err := (Money{Pesos: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount should be invalid, got %v", err)
	}
}
