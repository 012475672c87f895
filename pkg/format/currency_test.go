package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		symbol   string
		expected string
	}{
		{"Zero", "0", "R", "R0.00"},
		{"Small", "210", "R", "R210.00"},
		{"Thousands", "1234.5", "R", "R1,234.50"},
		{"Millions", "1234567.891", "$", "$1,234,567.89"},
		{"Negative", "-831", "R", "-R831.00"},
		{"No symbol", "86", "", "86.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Currency(decimal.RequireFromString(tt.amount), tt.symbol)
			if result != tt.expected {
				t.Errorf("Currency(%s) = %q, expected %q", tt.amount, result, tt.expected)
			}
		})
	}
}

func TestNumericCurrency(t *testing.T) {
	if result := NumericCurrency(decimal.RequireFromString("-12345.6")); result != "-12,345.60" {
		t.Errorf("NumericCurrency(-12345.6) = %q, expected %q", result, "-12,345.60")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"12.5", "12.5%"},
		{"8.56", "8.6%"},
		{"0", "0.0%"},
	}

	for _, tt := range tests {
		if result := Percent(decimal.RequireFromString(tt.value)); result != tt.expected {
			t.Errorf("Percent(%s) = %q, expected %q", tt.value, result, tt.expected)
		}
	}
}
