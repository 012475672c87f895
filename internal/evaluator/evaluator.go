// Package evaluator compares depot quotes for a single requisition line item.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/iwvelando/requisition-analyzer/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// AverageScope selects which quotes contribute to the average price.
type AverageScope int

const (
	// AverageAllQuotes averages every quote, in stock or not.
	AverageAllQuotes AverageScope = iota
	// AverageInStockOnly averages in-stock quotes, or every quote when none is in stock.
	AverageInStockOnly
)

// String method for AverageScope enum
func (s AverageScope) String() string {
	switch s {
	case AverageAllQuotes:
		return "all"
	case AverageInStockOnly:
		return "in-stock"
	default:
		return "unknown"
	}
}

// ParseAverageScope parses the configuration name of an AverageScope.
func ParseAverageScope(value string) (AverageScope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return AverageAllQuotes, nil
	case "in-stock", "instock", "in_stock":
		return AverageInStockOnly, nil
	}
	return AverageAllQuotes, fmt.Errorf("unknown average scope %q", value)
}

// Policy holds the tunable parts of quote evaluation.
type Policy struct {
	AverageScope AverageScope
	// AllowOutOfStockFallback picks the cheapest quote regardless of stock
	// when no depot has the item; otherwise evaluation fails.
	AllowOutOfStockFallback bool
	// PriceTolerance is the minimum allowed gap between a quote's total
	// price and unit price times quantity.
	PriceTolerance decimal.Decimal
}

// DefaultPolicy averages all quotes, falls back to out-of-stock quotes and
// tolerates one cent of rounding.
func DefaultPolicy() Policy {
	return Policy{
		AverageScope:            AverageAllQuotes,
		AllowOutOfStockFallback: true,
		PriceTolerance:          decimal.RequireFromString(constants.CurrencyTolerance),
	}
}

// Evaluator turns an item and its quotes into an AnalysisResult.
type Evaluator struct {
	policy Policy
}

// New creates an Evaluator for policy.
func New(policy Policy) *Evaluator {
	if policy.PriceTolerance.IsNegative() {
		policy.PriceTolerance = decimal.Zero
	}
	return &Evaluator{policy: policy}
}

// Policy returns the evaluator's policy.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate selects the cheapest quote for item and computes its average
// price and savings. It does not modify quotes.
func (e *Evaluator) Evaluate(item model.RequisitionItem, quotes []model.DepotQuote) (model.AnalysisResult, error) {
	fail := func(err error) (model.AnalysisResult, error) {
		return model.AnalysisResult{}, &model.ItemError{ItemID: item.ID, MedicationName: item.MedicationName, Err: err}
	}

	if item.Quantity <= 0 {
		return fail(fmt.Errorf("%w: quantity must be positive, got %d", model.ErrInvalidQuoteData, item.Quantity))
	}
	if len(quotes) == 0 {
		return fail(model.ErrNoQuotesAvailable)
	}
	if err := e.validateQuotes(item.Quantity, quotes); err != nil {
		return fail(err)
	}

	var inStock []model.DepotQuote
	for _, q := range quotes {
		if q.InStock {
			inStock = append(inStock, q)
		}
	}

	outOfStockOnly := len(inStock) == 0
	candidates := inStock
	if outOfStockOnly {
		if !e.policy.AllowOutOfStockFallback {
			return fail(model.ErrNoStockAvailable)
		}
		candidates = quotes
	}
	cheapest := selectCheapest(candidates)

	averaged := quotes
	if e.policy.AverageScope == AverageInStockOnly && !outOfStockOnly {
		averaged = inStock
	}
	totals := make([]decimal.Decimal, len(averaged))
	for i, q := range averaged {
		totals[i] = q.TotalPrice
	}
	average := mathutil.Mean(totals...)
	roundedAverage := mathutil.Round(average)

	savingsPercent := decimal.Zero
	if roundedAverage.IsPositive() {
		savingsPercent = mathutil.RoundPercent(mathutil.ClampPercent(
			mathutil.CalculatePercentage(average.Sub(cheapest.TotalPrice), average)))
	}

	return model.AnalysisResult{
		ItemID:               item.ID,
		MedicationName:       item.MedicationName,
		GenericName:          item.GenericName,
		Quantity:             item.Quantity,
		Unit:                 item.Unit,
		Priority:             item.Priority,
		Quotes:               append([]model.DepotQuote(nil), quotes...),
		CheapestDepot:        cheapest.DepotName,
		CheapestUnitPrice:    cheapest.UnitPrice,
		CheapestPrice:        cheapest.TotalPrice,
		CheapestDeliveryDays: cheapest.DeliveryDays,
		AveragePrice:         roundedAverage,
		Savings:              mathutil.NonNegative(roundedAverage.Sub(cheapest.TotalPrice)),
		SavingsPercent:       savingsPercent,
		OutOfStockOnly:       outOfStockOnly,
	}, nil
}

func (e *Evaluator) validateQuotes(quantity int, quotes []model.DepotQuote) error {
	qty := decimal.NewFromInt(int64(quantity))
	tolerance := decimal.Max(e.policy.PriceTolerance,
		decimal.RequireFromString(constants.PerUnitRoundingTolerance).Mul(qty))

	for i, q := range quotes {
		if strings.TrimSpace(q.DepotName) == "" {
			return fmt.Errorf("%w: quote %d has no depot name", model.ErrInvalidQuoteData, i+1)
		}
		if q.UnitPrice.IsNegative() || q.TotalPrice.IsNegative() {
			return fmt.Errorf("%w: %s quoted a negative price", model.ErrInvalidQuoteData, q.DepotName)
		}
		if q.DeliveryDays < 0 {
			return fmt.Errorf("%w: %s quoted a negative delivery time", model.ErrInvalidQuoteData, q.DepotName)
		}
		expected := q.UnitPrice.Mul(qty)
		if !mathutil.WithinTolerance(q.TotalPrice, expected, tolerance) {
			return fmt.Errorf("%w: %s total %s does not match %s x %d",
				model.ErrInvalidQuoteData, q.DepotName, q.TotalPrice, q.UnitPrice, quantity)
		}
	}
	return nil
}

// selectCheapest returns the lowest total price, breaking ties by shorter
// delivery and then by list order. quotes must be non-empty.
func selectCheapest(quotes []model.DepotQuote) model.DepotQuote {
	best := quotes[0]
	for _, q := range quotes[1:] {
		switch q.TotalPrice.Cmp(best.TotalPrice) {
		case -1:
			best = q
		case 0:
			if q.DeliveryDays < best.DeliveryDays {
				best = q
			}
		}
	}
	return best
}
