// Package output renders analysis reports for people and for other tools.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/iwvelando/requisition-analyzer/pkg/format"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CSVHeader is the first row written by CsvFormat.
var CSVHeader = []string{
	"item_id", "medication", "generic", "quantity", "unit", "priority",
	"cheapest_depot", "cheapest_unit_price", "cheapest_price", "delivery_days",
	"average_price", "savings", "savings_percent", "out_of_stock_only",
}

// PrettyFormat writes a human-readable rather than machine-readable table.
// Items bought although no depot had them in stock are marked with *.
func PrettyFormat(w io.Writer, report *model.AnalysisReport, symbol string) error {
	ew := &errWriter{w: w}
	w = ew
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "--- Analysis %s for requisition %s ---\n", report.ID, report.RequisitionID)
	p.Fprintf(w, "%-24s | %8s | %-16s | %12s | %12s | %12s | %7s\n",
		"Medication", "Qty", "Best depot", "Best price", "Avg price", "Savings", "Saving")
	p.Fprintf(w, "%-24s | %8s | %-16s | %12s | %12s | %12s | %7s\n",
		"__________", "___", "__________", "__________", "_________", "_______", "______")

	stockNote := false
	for _, r := range report.Results {
		name := r.MedicationName
		if r.OutOfStockOnly {
			name += " *"
			stockNote = true
		}
		p.Fprintf(w, "%-24s | %8d | %-16s | %12s | %12s | %12s | %7s\n",
			name, r.Quantity, r.CheapestDepot,
			format.Currency(r.CheapestPrice, symbol),
			format.Currency(r.AveragePrice, symbol),
			format.Currency(r.Savings, symbol),
			format.Percent(r.SavingsPercent))
	}
	if stockNote {
		p.Fprintf(w, "* no depot has this item in stock\n")
	}

	p.Fprintf(w, "\nTotal cost:      %s\n", format.Currency(report.TotalCost, symbol))
	p.Fprintf(w, "Total savings:   %s\n", format.Currency(report.TotalSavings, symbol))
	p.Fprintf(w, "Average savings: %s\n", format.Percent(report.AverageSavingsPercent))
	p.Fprintf(w, "Recommendation:  %s\n", report.BestStrategy)

	if len(report.Strategy) > 1 {
		p.Fprintf(w, "\nDepot plan:\n")
		for _, alloc := range report.Strategy {
			p.Fprintf(w, "  %s: %d item(s), %s, up to %d day(s)\n",
				alloc.Depot, len(alloc.Items), format.Currency(alloc.Subtotal, symbol), alloc.MaxDeliveryDays)
		}
	}

	return ew.err
}

// errWriter keeps the first write error so formatting can run unchecked.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(b)
	e.err = err
	return n, err
}

// CsvFormat writes one row per line item followed by a TOTAL row.
func CsvFormat(w io.Writer, report *model.AnalysisReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	money := func(v decimal.Decimal) string {
		return v.StringFixed(constants.CurrencyPlaces)
	}
	for _, r := range report.Results {
		row := []string{
			r.ItemID, r.MedicationName, r.GenericName, strconv.Itoa(r.Quantity), r.Unit, string(r.Priority),
			r.CheapestDepot, r.CheapestUnitPrice.String(), money(r.CheapestPrice), strconv.Itoa(r.CheapestDeliveryDays),
			money(r.AveragePrice), money(r.Savings), r.SavingsPercent.StringFixed(constants.PercentPlaces),
			strconv.FormatBool(r.OutOfStockOnly),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	total := make([]string, len(CSVHeader))
	total[1] = "TOTAL"
	total[8] = money(report.TotalCost)
	total[11] = money(report.TotalSavings)
	total[12] = report.AverageSavingsPercent.StringFixed(constants.PercentPlaces)
	if err := cw.Write(total); err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	return nil
}

// JSONFormat writes the report as indented JSON.
func JSONFormat(w io.Writer, report *model.AnalysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
