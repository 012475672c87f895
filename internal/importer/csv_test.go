package importer

import (
	"strings"
	"testing"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := "\ufeffMedication Name,Generic,Qty,Unit,Priority,Note\n" +
		"Ibuprofen 400mg,Ibuprofen,200,tablets,medium,\n" +
		"Metformin 850mg,,100,,HIGH,chronic patients\n" +
		"\n" +
		"Omeprazole 20mg,Omeprazole,,capsules,,\n"

	items, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, model.RequisitionItem{
		MedicationName: "Ibuprofen 400mg", GenericName: "Ibuprofen", Quantity: 200,
		Unit: "tablets", Priority: model.PriorityMedium,
	}, items[0])
	assert.Equal(t, model.RequisitionItem{
		MedicationName: "Metformin 850mg", GenericName: "Metformin 850mg", Quantity: 100,
		Unit: "tablets", Priority: model.PriorityHigh, Notes: "chronic patients",
	}, items[1])
	assert.Equal(t, model.RequisitionItem{
		MedicationName: "Omeprazole 20mg", GenericName: "Omeprazole", Quantity: 1,
		Unit: "capsules", Priority: model.PriorityMedium,
	}, items[2])
}

func TestParseCSVHeaderAliases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		medName string
		generic string
		qty     int
	}{
		{"name column doubles as generic", "name,quantity\nAspirin,30\n", "Aspirin", "Aspirin", 30},
		{"medication column", "medication,qty\nAspirin 81mg,10\n", "Aspirin 81mg", "Aspirin 81mg", 10},
		{"snake case", "medication_name,generic_name,qty\nAspirin 81mg,Aspirin,10\n", "Aspirin 81mg", "Aspirin", 10},
		{"name and medication prefers name", "medication,name,qty\nBrand,Listed,4\n", "Listed", "Listed", 4},
		{"short rows", "name,generic,qty\nAspirin\n", "Aspirin", "Aspirin", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.medName, items[0].MedicationName)
			assert.Equal(t, tt.generic, items[0].GenericName)
			assert.Equal(t, tt.qty, items[0].Quantity)
		})
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty file", "", "empty"},
		{"no name column", "generic,qty\nAspirin,1\n", "name or medication column"},
		{"header only", "name,qty\n", "no medication rows"},
		{"blank name", "name,qty\nAspirin,1\n,4\n", "line 3"},
		{"zero quantity", "name,qty\nAspirin,0\n", "line 2"},
		{"text quantity", "name,qty\nAspirin,ten\n", "not a whole number"},
		{"fractional quantity", "name,qty\nAspirin,2.5\n", "not a whole number"},
		{"bad priority", "name,qty,priority\nAspirin,1,urgent\n", "unknown priority"},
		{"broken quoting", "name,qty\n\"Aspirin,1\n", "line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrInvalidRequisition)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseCSVSkipsSeparatorOnlyRows(t *testing.T) {
	items, err := ParseCSV(strings.NewReader("name,qty\n,,\nAspirin,2\n , \n"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}
