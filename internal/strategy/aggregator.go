// Package strategy folds per-item analysis results into a requisition report
// and recommends which depot to buy each item from.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Weighting selects how the report's average savings percent is computed.
type Weighting int

const (
	// WeightingMeanOfPercents averages the per-item savings percentages.
	WeightingMeanOfPercents Weighting = iota
	// WeightingCostWeighted divides total savings by the total average price.
	WeightingCostWeighted
)

// String method for Weighting enum
func (w Weighting) String() string {
	switch w {
	case WeightingMeanOfPercents:
		return "mean"
	case WeightingCostWeighted:
		return "cost-weighted"
	default:
		return "unknown"
	}
}

// ParseWeighting parses the configuration name of a Weighting.
func ParseWeighting(value string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "mean":
		return WeightingMeanOfPercents, nil
	case "cost-weighted", "weighted":
		return WeightingCostWeighted, nil
	}
	return WeightingMeanOfPercents, fmt.Errorf("unknown savings weighting %q", value)
}

// Aggregator builds AnalysisReports.
type Aggregator struct {
	Weighting Weighting
	NewID     func() string
	Now       func() time.Time
}

// NewAggregator returns an Aggregator using random report ids and the wall clock.
func NewAggregator(weighting Weighting) *Aggregator {
	return &Aggregator{
		Weighting: weighting,
		NewID:     uuid.NewString,
		Now:       time.Now,
	}
}

// Aggregate combines results, which must be in requisition order, into a report.
func (a *Aggregator) Aggregate(requisitionID string, results []model.AnalysisResult) (*model.AnalysisReport, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("requisition %s: %w", requisitionID, model.ErrEmptyAnalysis)
	}

	totalCost := decimal.Zero
	totalSavings := decimal.Zero
	totalAverage := decimal.Zero
	percents := make([]decimal.Decimal, len(results))
	copied := make([]model.AnalysisResult, len(results))
	for i, r := range results {
		totalCost = totalCost.Add(r.CheapestPrice)
		totalSavings = totalSavings.Add(r.Savings)
		totalAverage = totalAverage.Add(r.AveragePrice)
		percents[i] = r.SavingsPercent
		copied[i] = r.Clone()
	}

	var averagePercent decimal.Decimal
	switch a.Weighting {
	case WeightingCostWeighted:
		averagePercent = mathutil.CalculatePercentage(totalSavings, totalAverage)
	default:
		averagePercent = mathutil.Mean(percents...)
	}

	allocations := Allocations(results)

	return &model.AnalysisReport{
		ID:                    a.newID(),
		RequisitionID:         requisitionID,
		Results:               copied,
		TotalCost:             mathutil.Round(totalCost),
		TotalSavings:          mathutil.Round(totalSavings),
		AverageSavingsPercent: mathutil.RoundPercent(averagePercent),
		BestStrategy:          Narrative(allocations),
		Strategy:              allocations,
		CreatedAt:             a.now(),
	}, nil
}

func (a *Aggregator) newID() string {
	if a.NewID == nil {
		return uuid.NewString()
	}
	return a.NewID()
}

func (a *Aggregator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
