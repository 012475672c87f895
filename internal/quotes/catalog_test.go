package quotes

import (
	"context"
	"strings"
	"testing"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wantQuote struct {
	depot   string
	total   string
	days    int
	inStock bool
}

func assertQuotes(t *testing.T, want []wantQuote, got []model.DepotQuote) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.depot, got[i].DepotName, "quote %d depot", i)
		assert.True(t, decimal.RequireFromString(w.total).Equal(got[i].TotalPrice),
			"quote %d total: want %s, got %s", i, w.total, got[i].TotalPrice)
		assert.Equal(t, w.days, got[i].DeliveryDays, "quote %d delivery days", i)
		assert.Equal(t, w.inStock, got[i].InStock, "quote %d stock", i)
	}
}

func TestCatalogGetQuotes(t *testing.T) {
	catalog, err := LoadCatalog("testdata/catalog.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"MedSupply SA", "PharmaCo", "QuickMeds", "DiabCare", "GastroMed"}, catalog.Depots())

	tests := []struct {
		name       string
		medication string
		generic    string
		quantity   int
		want       []wantQuote
	}{
		{
			name:       "brand name across depots",
			medication: "Ibuprofen 400mg",
			generic:    "Ibuprofen",
			quantity:   200,
			want: []wantQuote{
				{"MedSupply SA", "240", 3, true},
				{"PharmaCo", "210", 5, true},
				{"QuickMeds", "270", 2, true},
			},
		},
		{
			name:       "generic fallback and out of stock",
			medication: "Metformin 850mg",
			generic:    "Metformin",
			quantity:   100,
			want: []wantQuote{
				{"MedSupply SA", "285", 3, true},
				{"PharmaCo", "340", 5, false},
				{"DiabCare", "310", 4, true},
			},
		},
		{
			name:       "per price delivery override",
			medication: "Omeprazole 20mg",
			generic:    "Omeprazole",
			quantity:   80,
			want: []wantQuote{
				{"MedSupply SA", "336", 3, true},
				{"QuickMeds", "400", 1, true},
				{"GastroMed", "360", 2, true},
			},
		},
		{
			name:       "case and spacing insensitive",
			medication: "  IBUPROFEN   400mg ",
			generic:    "",
			quantity:   1,
			want: []wantQuote{
				{"MedSupply SA", "1.2", 3, true},
				{"PharmaCo", "1.05", 5, true},
				{"QuickMeds", "1.35", 2, true},
			},
		},
		{
			name:       "unknown medication",
			medication: "Atorvastatin 20mg",
			generic:    "Atorvastatin",
			quantity:   30,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.GetQuotes(context.Background(), tt.medication, tt.generic, tt.quantity)
			require.NoError(t, err)
			assertQuotes(t, tt.want, got)
		})
	}
}

func TestCatalogCancelledContext(t *testing.T) {
	catalog, err := LoadCatalog("testdata/catalog.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = catalog.GetQuotes(ctx, "Ibuprofen 400mg", "Ibuprofen", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogRoundsTotals(t *testing.T) {
	catalog, err := ReadCatalog(strings.NewReader(`
depots:
  - name: Rounding Depot
    deliveryDays: 1
    prices:
      - medication: Paracetamol 500mg
        unitPrice: "0.333"
`))
	require.NoError(t, err)

	got, err := catalog.GetQuotes(context.Background(), "Paracetamol 500mg", "Paracetamol", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1.00", got[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "0.333", got[0].UnitPrice.String())
}

func TestReadCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "depots: [\n"},
		{"missing depot name", "depots:\n  - deliveryDays: 2\n"},
		{"duplicate depot", "depots:\n  - name: A\n  - name: A\n"},
		{"negative delivery", "depots:\n  - name: A\n    deliveryDays: -1\n"},
		{"missing medication", "depots:\n  - name: A\n    prices:\n      - unitPrice: \"1\"\n"},
		{"bad price", "depots:\n  - name: A\n    prices:\n      - medication: X\n        unitPrice: abc\n"},
		{"negative price", "depots:\n  - name: A\n    prices:\n      - medication: X\n        unitPrice: \"-1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCatalog(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestReadCatalogEmpty(t *testing.T) {
	catalog, err := ReadCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, catalog.Depots())
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
