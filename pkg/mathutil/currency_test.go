package mathutil

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Round up at midpoint", "1.235", "1.24"},
		{"Round down below midpoint", "1.234", "1.23"},
		{"No rounding needed", "1.23", "1.23"},
		{"Large number", "12345.678", "12345.68"},
		{"Negative number round up", "-1.235", "-1.24"},
		{"Negative number round down", "-1.234", "-1.23"},
		{"Zero", "0", "0"},
		{"Very small positive", "0.001", "0"},
		{"Repeating third", "311.6666666666666667", "311.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(d(tt.input))
			if !result.Equal(d(tt.expected)) {
				t.Errorf("Round(%s) = %s, expected %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Exactly zero", "0", true},
		{"Very small positive", "0.001", true},
		{"Very small negative", "-0.001", true},
		{"Exactly tolerance", "0.01", true},
		{"Just above tolerance", "0.02", false},
		{"Large negative", "-100", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(d(tt.input)); result != tt.expected {
				t.Errorf("IsZero(%s) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(d("210"), d("210.004"), d("0.005")) {
		t.Error("expected 210 and 210.004 to be within 0.005")
	}
	if WithinTolerance(d("210"), d("210.02"), d("0.01")) {
		t.Error("expected 210 and 210.02 to differ by more than 0.01")
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{"No values", nil, "0"},
		{"Single value", []string{"42.5"}, "42.5"},
		{"Three quotes", []string{"240", "210", "270"}, "240"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]decimal.Decimal, 0, len(tt.values))
			for _, v := range tt.values {
				values = append(values, d(v))
			}
			if result := Mean(values...); !result.Equal(d(tt.expected)) {
				t.Errorf("Mean(%v) = %s, expected %s", tt.values, result, tt.expected)
			}
		})
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		total    string
		expected string
	}{
		{"Quarter", "25", "100", "25"},
		{"Savings over average", "30", "240", "12.5"},
		{"Zero total", "10", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculatePercentage(d(tt.value), d(tt.total))
			if !result.Equal(d(tt.expected)) {
				t.Errorf("CalculatePercentage(%s, %s) = %s, expected %s", tt.value, tt.total, result, tt.expected)
			}
		})
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-12.5", "0"},
		{"0", "0"},
		{"55.55", "55.55"},
		{"100", "100"},
		{"140", "100"},
	}

	for _, tt := range tests {
		if result := ClampPercent(d(tt.input)); !result.Equal(d(tt.expected)) {
			t.Errorf("ClampPercent(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestNonNegative(t *testing.T) {
	if result := NonNegative(d("-3.2")); !result.IsZero() {
		t.Errorf("NonNegative(-3.2) = %s, expected 0", result)
	}
	if result := NonNegative(d("3.2")); !result.Equal(d("3.2")) {
		t.Errorf("NonNegative(3.2) = %s, expected 3.2", result)
	}
}
