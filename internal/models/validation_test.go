package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeWeight(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2,5", "2.5"},
		{"2.5", "2.5"},
		{" 60 ", "60"},
		{"12,50", "12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeWeight(tt.in); got != tt.want {
				t.Errorf("NormalizeWeight(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"comma decimal", "2,5", "2.5", false},
		{"dot decimal", "7.5", "7.5", false},
		{"integer", "100", "100", false},
		{"rounded to cents", "10.126", "10.13", false},
		{"zero allowed", "0", "0", false},
		{"negative", "-5", "", true},
		{"garbage", "abc", "", true},
		{"empty", "  ", "", true},
		{"too heavy", "1000", "", true},
		{"exponent", "1e2", "", true},
		{"upper exponent", "2E1", "", true},
		{"comma exponent", "2,5e1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeight(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeight(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				var verr ValidationError
				if !errors.As(err, &verr) || verr.Field != "weight" {
					t.Errorf("ParseWeight(%q) error = %#v, want ValidationError on weight", tt.in, err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseWeight(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// A comma weight from the ladder must compare equal to the NUMERIC(5,2) value read back.
func TestParseWeightMatchesStoredValue(t *testing.T) {
	got, err := ParseWeight("2,5")
	if err != nil {
		t.Fatal(err)
	}
	stored := decimal.RequireFromString("2.50")
	if !got.Equal(stored) {
		t.Errorf("ParseWeight(2,5) = %s, want equal to %s", got, stored)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"trimmed", "  Chest  ", "Chest", false},
		{"blank", "   ", "", true},
		{"empty", "", "", true},
		{"too long", strings.Repeat("a", MaxNameBytes+1), "", true},
		{"separator", "Bench|press", "", true},
		{"cyrillic fits", "Жим лёжа", "Жим лёжа", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName("muscle", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateReps(t *testing.T) {
	tests := []struct {
		reps    int
		wantErr bool
	}{
		{10, false},
		{1, false},
		{0, true},
		{-3, true},
		{1000, true},
	}

	for _, tt := range tests {
		if err := ValidateReps(tt.reps); (err != nil) != tt.wantErr {
			t.Errorf("ValidateReps(%d) error = %v, wantErr %v", tt.reps, err, tt.wantErr)
		}
	}
}

func TestPersonalRecordBeats(t *testing.T) {
	pr := &PersonalRecord{Weight: decimal.RequireFromString("60.00"), Reps: 8, Date: time.Now()}

	tests := []struct {
		name   string
		weight string
		reps   int
		want   bool
	}{
		{"heavier", "62.5", 1, true},
		{"same weight more reps", "60", 9, true},
		{"same weight same reps", "60", 8, false},
		{"lighter", "57.5", 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pr.Beats(decimal.RequireFromString(tt.weight), tt.reps); got != tt.want {
				t.Errorf("Beats(%s, %d) = %v, want %v", tt.weight, tt.reps, got, tt.want)
			}
		})
	}

	var none *PersonalRecord
	if none.Beats(decimal.NewFromInt(1), 1) {
		t.Error("nil record must not be beaten")
	}
}
