package quotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/mathutil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML layout of a depot price catalog.
type CatalogFile struct {
	Depots []DepotEntry `yaml:"depots"`
}

// DepotEntry is one depot's price list.
type DepotEntry struct {
	Name         string       `yaml:"name"`
	DeliveryDays int          `yaml:"deliveryDays"`
	Prices       []PriceEntry `yaml:"prices"`
}

// PriceEntry prices one medication at a depot. Medication may be a brand
// or a generic name.
type PriceEntry struct {
	Medication   string `yaml:"medication"`
	UnitPrice    string `yaml:"unitPrice"`
	InStock      *bool  `yaml:"inStock"`
	DeliveryDays *int   `yaml:"deliveryDays"`
}

type price struct {
	unit         decimal.Decimal
	inStock      bool
	deliveryDays int
}

type depotPrices struct {
	name   string
	prices map[string]price
}

// Catalog quotes from static depot price lists.
type Catalog struct {
	depots []depotPrices
}

var _ Source = (*Catalog)(nil)

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	file, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(file)
}

// LoadCatalogFile reads the YAML catalog at path without validating it.
func LoadCatalogFile(path string) (CatalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return CatalogFile{}, fmt.Errorf("failed to open quote catalog: %w", err)
	}
	defer f.Close()
	return decodeCatalog(f)
}

// ReadCatalog decodes a YAML catalog from r.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	file, err := decodeCatalog(r)
	if err != nil {
		return nil, err
	}
	return NewCatalog(file)
}

func decodeCatalog(r io.Reader) (CatalogFile, error) {
	var file CatalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return CatalogFile{}, fmt.Errorf("failed to parse quote catalog: %w", err)
	}
	return file, nil
}

// NewCatalog validates file and builds a Catalog from it.
func NewCatalog(file CatalogFile) (*Catalog, error) {
	c := &Catalog{}
	seen := make(map[string]struct{})
	for _, depot := range file.Depots {
		name := strings.TrimSpace(depot.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog depot without a name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("catalog depot %s listed twice", name)
		}
		seen[name] = struct{}{}
		if depot.DeliveryDays < 0 {
			return nil, fmt.Errorf("catalog depot %s has negative delivery days", name)
		}

		dp := depotPrices{name: name, prices: make(map[string]price, len(depot.Prices))}
		for _, entry := range depot.Prices {
			key := matchKey(entry.Medication)
			if key == "" {
				return nil, fmt.Errorf("catalog depot %s has a price without a medication", name)
			}
			unit, err := decimal.NewFromString(strings.TrimSpace(entry.UnitPrice))
			if err != nil {
				return nil, fmt.Errorf("catalog depot %s, %s: invalid unit price %q: %w", name, entry.Medication, entry.UnitPrice, err)
			}
			if unit.IsNegative() {
				return nil, fmt.Errorf("catalog depot %s, %s: negative unit price", name, entry.Medication)
			}
			p := price{unit: unit, inStock: true, deliveryDays: depot.DeliveryDays}
			if entry.InStock != nil {
				p.inStock = *entry.InStock
			}
			if entry.DeliveryDays != nil {
				p.deliveryDays = *entry.DeliveryDays
			}
			dp.prices[key] = p
		}
		c.depots = append(c.depots, dp)
	}
	return c, nil
}

// Depots returns the depot names in catalog order.
func (c *Catalog) Depots() []string {
	names := make([]string, len(c.depots))
	for i, d := range c.depots {
		names[i] = d.name
	}
	return names
}

// GetQuotes returns one quote per depot that prices the medication, by its
// own name first and then by generic name. Depots keep catalog order.
func (c *Catalog) GetQuotes(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := []string{matchKey(medicationName), matchKey(genericName)}
	var out []model.DepotQuote
	for _, depot := range c.depots {
		for _, key := range keys {
			if key == "" {
				continue
			}
			if p, ok := depot.prices[key]; ok {
				out = append(out, newQuote(depot.name, p.unit, quantity, p.deliveryDays, p.inStock))
				break
			}
		}
	}
	return out, nil
}

func newQuote(depot string, unit decimal.Decimal, quantity, deliveryDays int, inStock bool) model.DepotQuote {
	return model.DepotQuote{
		DepotName:    depot,
		UnitPrice:    unit,
		TotalPrice:   mathutil.Round(unit.Mul(decimal.NewFromInt(int64(quantity)))),
		DeliveryDays: deliveryDays,
		InStock:      inStock,
	}
}
