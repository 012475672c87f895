package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisResult is the price comparison for one line item.
type AnalysisResult struct {
	ItemID               string          `json:"itemId"`
	MedicationName       string          `json:"medicationName"`
	GenericName          string          `json:"genericName"`
	Quantity             int             `json:"quantity"`
	Unit                 string          `json:"unit"`
	Priority             Priority        `json:"priority"`
	Quotes               []DepotQuote    `json:"quotes"`
	CheapestDepot        string          `json:"cheapestDepot"`
	CheapestUnitPrice    decimal.Decimal `json:"cheapestUnitPrice"`
	CheapestPrice        decimal.Decimal `json:"cheapestPrice"`
	CheapestDeliveryDays int             `json:"cheapestDeliveryDays"`
	AveragePrice         decimal.Decimal `json:"averagePrice"`
	Savings              decimal.Decimal `json:"savings"`
	SavingsPercent       decimal.Decimal `json:"savingsPercent"`
	// OutOfStockOnly is set when no depot had the item in stock and the
	// cheapest quote was picked regardless of availability.
	OutOfStockOnly bool `json:"outOfStockOnly"`
}

// Clone returns a deep copy.
func (r AnalysisResult) Clone() AnalysisResult {
	r.Quotes = append([]DepotQuote(nil), r.Quotes...)
	return r
}

// DepotAllocation lists the items a report recommends buying from one depot.
type DepotAllocation struct {
	Depot           string          `json:"depot"`
	ItemIDs         []string        `json:"itemIds"`
	Items           []string        `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	MaxDeliveryDays int             `json:"maxDeliveryDays"`
}

// AnalysisReport is the requisition-level outcome of one analysis run.
type AnalysisReport struct {
	ID                    string            `json:"id"`
	RequisitionID         string            `json:"requisitionId"`
	Results               []AnalysisResult  `json:"results"`
	TotalCost             decimal.Decimal   `json:"totalCost"`
	TotalSavings          decimal.Decimal   `json:"totalSavings"`
	AverageSavingsPercent decimal.Decimal   `json:"averageSavingsPercent"`
	BestStrategy          string            `json:"bestStrategy"`
	Strategy              []DepotAllocation `json:"strategy"`
	CreatedAt             time.Time         `json:"createdAt"`
}

// Clone returns a deep copy.
func (r *AnalysisReport) Clone() *AnalysisReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Results = make([]AnalysisResult, len(r.Results))
	for i, result := range r.Results {
		c.Results[i] = result.Clone()
	}
	c.Strategy = make([]DepotAllocation, len(r.Strategy))
	for i, alloc := range r.Strategy {
		alloc.ItemIDs = append([]string(nil), alloc.ItemIDs...)
		alloc.Items = append([]string(nil), alloc.Items...)
		c.Strategy[i] = alloc
	}
	return &c
}
