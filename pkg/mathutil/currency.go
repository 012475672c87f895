// Package mathutil provides common mathematical utility functions for money.
package mathutil

import (
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/shopspring/decimal"
)

var (
	hundred           = decimal.NewFromInt(constants.PercentageMultiplier)
	currencyTolerance = decimal.RequireFromString(constants.CurrencyTolerance)
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.CurrencyPlaces)
}

// RoundPercent rounds a percentage to its display precision.
func RoundPercent(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.PercentPlaces)
}

// IsZero checks if a value is effectively zero (within one cent)
func IsZero(val decimal.Decimal) bool {
	return val.Abs().LessThanOrEqual(currencyTolerance)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance decimal.Decimal) bool {
	return val1.Sub(val2).Abs().LessThanOrEqual(tolerance)
}

// Sum adds all values; the sum of no values is zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Mean returns the arithmetic mean of values, or zero when there are none.
func Mean(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Sum(values...).Div(decimal.NewFromInt(int64(len(values))))
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred)
}

// Clamp bounds val to [lower, upper].
func Clamp(val, lower, upper decimal.Decimal) decimal.Decimal {
	if val.LessThan(lower) {
		return lower
	}
	if val.GreaterThan(upper) {
		return upper
	}
	return val
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(val decimal.Decimal) decimal.Decimal {
	return Clamp(val, decimal.Zero, hundred)
}

// NonNegative returns val, or zero when val is negative.
func NonNegative(val decimal.Decimal) decimal.Decimal {
	return decimal.Max(val, decimal.Zero)
}
