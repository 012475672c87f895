package testutil

import (
	"testing"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/shopspring/decimal"
)

func TestFindResult(t *testing.T) {
	results := []model.AnalysisResult{
		{MedicationName: "Ibuprofen 400mg", CheapestDepot: "PharmaCo"},
		{MedicationName: "Metformin 850mg", CheapestDepot: "MedSupply SA"},
	}

	tests := []struct {
		name        string
		medication  string
		expectFound bool
		wantDepot   string
	}{
		{"first result", "Ibuprofen 400mg", true, "PharmaCo"},
		{"second result", "Metformin 850mg", true, "MedSupply SA"},
		{"missing result", "Omeprazole 20mg", false, ""},
		{"names are exact", "ibuprofen 400mg", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindResult(results, tt.medication)
			if !tt.expectFound {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a result, got nil")
			}
			if got.CheapestDepot != tt.wantDepot {
				t.Errorf("expected depot %s, got %s", tt.wantDepot, got.CheapestDepot)
			}
		})
	}

	// The pointer refers to the caller's slice.
	FindResult(results, "Metformin 850mg").CheapestDepot = "QuickMeds"
	if results[1].CheapestDepot != "QuickMeds" {
		t.Error("expected FindResult to return a pointer into the slice")
	}
}

func TestFindOrder(t *testing.T) {
	orders := []model.PurchaseOrder{
		{Depot: "PharmaCo", TotalAmount: decimal.NewFromInt(210)},
		{Depot: "MedSupply SA", TotalAmount: decimal.NewFromInt(621)},
	}

	if got := FindOrder(orders, "MedSupply SA"); got == nil || !got.TotalAmount.Equal(decimal.NewFromInt(621)) {
		t.Fatalf("unexpected order %+v", got)
	}
	if got := FindOrder(orders, "QuickMeds"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := FindOrder(nil, "PharmaCo"); got != nil {
		t.Fatalf("expected nil for no orders, got %+v", got)
	}
}
