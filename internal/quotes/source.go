// Package quotes provides depot quote sources consulted during requisition
// analysis.
package quotes

import (
	"context"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// Source supplies depot quotes for a medication at a quantity.
type Source interface {
	GetQuotes(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error)

// GetQuotes calls f.
func (f SourceFunc) GetQuotes(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error) {
	return f(ctx, medicationName, genericName, quantity)
}

// matchKey normalizes medication names for lookups.
func matchKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
