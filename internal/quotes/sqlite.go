package quotes

import (
	"context"
	"fmt"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const quoteSchema = `
CREATE TABLE IF NOT EXISTS depots (
	depot_name    TEXT PRIMARY KEY,
	delivery_days INTEGER NOT NULL DEFAULT 0,
	sort_order    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS depot_prices (
	depot_name     TEXT NOT NULL REFERENCES depots(depot_name),
	medication_key TEXT NOT NULL,
	unit_price     TEXT NOT NULL,
	in_stock       INTEGER NOT NULL DEFAULT 1,
	delivery_days  INTEGER,
	PRIMARY KEY (depot_name, medication_key)
);
`

// DepotPrice is a row of the depot_prices table joined with its depot.
type DepotPrice struct {
	DepotName     string          `db:"depot_name"`
	MedicationKey string          `db:"medication_key"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	InStock       bool            `db:"in_stock"`
	DeliveryDays  int             `db:"delivery_days"`
}

// SQLSource quotes from depot price tables in a SQL database.
type SQLSource struct {
	db *sqlx.DB
}

var _ Source = (*SQLSource)(nil)

// NewSQLSource wraps db, which must already hold the quote schema.
func NewSQLSource(db *sqlx.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Migrate creates the depot tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, quoteSchema); err != nil {
		return fmt.Errorf("failed to create quote tables: %w", err)
	}
	return nil
}

// UpsertDepot inserts or updates a depot. Depots are quoted in sortOrder.
func UpsertDepot(ctx context.Context, db *sqlx.DB, name string, deliveryDays, sortOrder int) error {
	const q = `
		INSERT INTO depots (depot_name, delivery_days, sort_order) VALUES (?, ?, ?)
		ON CONFLICT(depot_name) DO UPDATE SET
			delivery_days = excluded.delivery_days,
			sort_order = excluded.sort_order
	`
	if _, err := db.ExecContext(ctx, q, name, deliveryDays, sortOrder); err != nil {
		return fmt.Errorf("UpsertDepot (%s) failed: %w", name, err)
	}
	return nil
}

// PriceRow describes one depot price to store. A nil DeliveryDays falls
// back to the depot's delivery time.
type PriceRow struct {
	Depot        string
	Medication   string
	UnitPrice    decimal.Decimal
	InStock      bool
	DeliveryDays *int
}

// UpsertPrice inserts or updates a depot's price for a medication.
func UpsertPrice(ctx context.Context, db *sqlx.DB, row PriceRow) error {
	const q = `
		INSERT INTO depot_prices (depot_name, medication_key, unit_price, in_stock, delivery_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(depot_name, medication_key) DO UPDATE SET
			unit_price = excluded.unit_price,
			in_stock = excluded.in_stock,
			delivery_days = excluded.delivery_days
	`
	if row.UnitPrice.IsNegative() {
		return fmt.Errorf("UpsertPrice (%s, %s): negative unit price", row.Depot, row.Medication)
	}
	var days any
	if row.DeliveryDays != nil {
		days = *row.DeliveryDays
	}
	_, err := db.ExecContext(ctx, q, row.Depot, matchKey(row.Medication), row.UnitPrice.String(), row.InStock, days)
	if err != nil {
		return fmt.Errorf("UpsertPrice (%s, %s) failed: %w", row.Depot, row.Medication, err)
	}
	return nil
}

// ImportCatalog copies every depot and price from file into db.
func ImportCatalog(ctx context.Context, db *sqlx.DB, file CatalogFile) error {
	catalog, err := NewCatalog(file)
	if err != nil {
		return err
	}
	for i, depot := range catalog.depots {
		if err := UpsertDepot(ctx, db, depot.name, file.Depots[i].DeliveryDays, i); err != nil {
			return err
		}
		for key, p := range depot.prices {
			row := PriceRow{Depot: depot.name, Medication: key, UnitPrice: p.unit, InStock: p.inStock}
			if p.deliveryDays != file.Depots[i].DeliveryDays {
				days := p.deliveryDays
				row.DeliveryDays = &days
			}
			if err := UpsertPrice(ctx, db, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetQuotes returns one quote per depot pricing the medication by name, or
// by generic name when the depot has no brand price.
func (s *SQLSource) GetQuotes(ctx context.Context, medicationName, genericName string, quantity int) ([]model.DepotQuote, error) {
	const q = `
		SELECT p.depot_name, p.medication_key, p.unit_price, p.in_stock,
			COALESCE(p.delivery_days, d.delivery_days) AS delivery_days
		FROM depot_prices p
		JOIN depots d ON d.depot_name = p.depot_name
		WHERE p.medication_key IN (?, ?)
		ORDER BY d.sort_order, d.depot_name, p.medication_key
	`
	nameKey := matchKey(medicationName)
	genericKey := matchKey(genericName)

	var rows []DepotPrice
	if err := s.db.SelectContext(ctx, &rows, q, nameKey, genericKey); err != nil {
		return nil, fmt.Errorf("failed to query depot prices for %s: %w", medicationName, err)
	}

	var out []model.DepotQuote
	index := make(map[string]int)
	for _, row := range rows {
		i, seen := index[row.DepotName]
		if seen {
			// a brand-name price takes precedence over the generic one
			if row.MedicationKey == nameKey {
				out[i] = newQuote(row.DepotName, row.UnitPrice, quantity, row.DeliveryDays, row.InStock)
			}
			continue
		}
		index[row.DepotName] = len(out)
		out = append(out, newQuote(row.DepotName, row.UnitPrice, quantity, row.DeliveryDays, row.InStock))
	}
	return out, nil
}
