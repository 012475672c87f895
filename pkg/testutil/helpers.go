// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// FindResult finds an item's analysis result by medication name.
// Returns a pointer into results if found, nil otherwise.
func FindResult(results []model.AnalysisResult, medicationName string) *model.AnalysisResult {
	for i := range results {
		if results[i].MedicationName == medicationName {
			return &results[i]
		}
	}
	return nil
}

// FindOrder finds the purchase order placed with depot.
func FindOrder(orders []model.PurchaseOrder, depot string) *model.PurchaseOrder {
	for i := range orders {
		if orders[i].Depot == depot {
			return &orders[i]
		}
	}
	return nil
}
