package strategy

import (
	"fmt"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// Allocations groups results by their cheapest depot. Depots appear in the
// order they are first chosen; items keep requisition order.
func Allocations(results []model.AnalysisResult) []model.DepotAllocation {
	var allocations []model.DepotAllocation
	index := make(map[string]int)

	for _, r := range results {
		i, ok := index[r.CheapestDepot]
		if !ok {
			i = len(allocations)
			index[r.CheapestDepot] = i
			allocations = append(allocations, model.DepotAllocation{Depot: r.CheapestDepot})
		}
		alloc := &allocations[i]
		alloc.ItemIDs = append(alloc.ItemIDs, r.ItemID)
		alloc.Items = append(alloc.Items, r.MedicationName)
		alloc.Subtotal = alloc.Subtotal.Add(r.CheapestPrice)
		if r.CheapestDeliveryDays > alloc.MaxDeliveryDays {
			alloc.MaxDeliveryDays = r.CheapestDeliveryDays
		}
	}

	return allocations
}

// Narrative describes allocations as a purchasing recommendation.
func Narrative(allocations []model.DepotAllocation) string {
	switch len(allocations) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Use %s for entire order", allocations[0].Depot)
	}

	parts := make([]string, len(allocations))
	for i, alloc := range allocations {
		parts[i] = fmt.Sprintf("source %s from %s", joinItems(alloc.Items), alloc.Depot)
	}
	return "Split order: " + strings.Join(parts, "; ")
}

// joinItems renders "A", "A & B" or "A, B & C".
func joinItems(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " & " + items[len(items)-1]
}
