package google

import (
	"os"
	"path/filepath"
	"testing"

	"finawise/internal/services"
)

func TestRowsFromPoints(t *testing.T) {
	points := []services.SeriesPoint{
		{Key: "2024-01", Income: 100000, Expense: 20000, Savings: 20000, Net: 80000, SavingsRate: 20, Count: 2},
		{Key: "2024-02", Income: 50000, Expense: 50000, Savings: 0, Net: 0, SavingsRate: 0, Count: 3},
	}

	rows := rowsFromPoints(points)

	if len(rows) != 3 {
		t.Fatalf("rowsFromPoints() returned %d rows, want 3 (header + 2)", len(rows))
	}
	if rows[0][0] != "Month" {
		t.Errorf("header first cell = %v, want Month", rows[0][0])
	}
	if rows[1][0] != "2024-01" || rows[1][1] != int64(100000) {
		t.Errorf("first data row = %v, want [2024-01 100000 ...]", rows[1])
	}
	if rows[2][5] != float64(0) {
		t.Errorf("savings rate cell = %v, want 0", rows[2][5])
	}
}

func TestRowsFromPoints_Empty(t *testing.T) {
	rows := rowsFromPoints(nil)
	if len(rows) != 1 {
		t.Fatalf("rowsFromPoints(nil) returned %d rows, want header only", len(rows))
	}
}

func TestReadCredential(t *testing.T) {
	tmpDir := t.TempDir()
	credFile := filepath.Join(tmpDir, "token.json")
	if err := os.WriteFile(credFile, []byte(`{"access_token":"x"}`), 0600); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr bool
	}{
		{name: "inline JSON wins", inline: `{"a":1}`, file: credFile, want: `{"a":1}`},
		{name: "file fallback", inline: "", file: credFile, want: `{"access_token":"x"}`},
		{name: "neither configured", inline: "", file: "", wantErr: true},
		{name: "missing file", inline: "", file: "/non/existent.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readCredential(tt.inline, tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readCredential() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(got) != tt.want {
				t.Errorf("readCredential() = %q, want %q", got, tt.want)
			}
		})
	}
}
