package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport() *model.AnalysisReport {
	return &model.AnalysisReport{
		ID:            "rep-1",
		RequisitionID: "req-1",
		Results: []model.AnalysisResult{
			{
				ItemID: "item-1", MedicationName: "Ibuprofen 400mg", GenericName: "Ibuprofen",
				Quantity: 1200, Unit: "tablets", Priority: model.PriorityMedium,
				CheapestDepot: "PharmaCo", CheapestUnitPrice: d("1.05"), CheapestPrice: d("1260"),
				CheapestDeliveryDays: 5, AveragePrice: d("1440"), Savings: d("180"), SavingsPercent: d("12.5"),
			},
			{
				ItemID: "item-2", MedicationName: "Metformin 850mg", GenericName: "Metformin",
				Quantity: 100, Unit: "tablets", Priority: model.PriorityHigh,
				CheapestDepot: "MedSupply SA", CheapestUnitPrice: d("2.85"), CheapestPrice: d("285"),
				CheapestDeliveryDays: 3, AveragePrice: d("311.67"), Savings: d("26.67"), SavingsPercent: d("8.56"),
				OutOfStockOnly: true,
			},
		},
		TotalCost:             d("1545"),
		TotalSavings:          d("206.67"),
		AverageSavingsPercent: d("10.53"),
		BestStrategy:          "Split order: source Ibuprofen 400mg from PharmaCo; source Metformin 850mg from MedSupply SA",
		Strategy: []model.DepotAllocation{
			{Depot: "PharmaCo", ItemIDs: []string{"item-1"}, Items: []string{"Ibuprofen 400mg"}, Subtotal: d("1260"), MaxDeliveryDays: 5},
			{Depot: "MedSupply SA", ItemIDs: []string{"item-2"}, Items: []string{"Metformin 850mg"}, Subtotal: d("285"), MaxDeliveryDays: 3},
		},
		CreatedAt: time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC),
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyFormat(&buf, sampleReport(), "R"); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	output := buf.String()

	expected := []string{
		"--- Analysis rep-1 for requisition req-1 ---",
		"Ibuprofen 400mg",
		"1,200",
		"R1,260.00",
		"R1,440.00",
		"12.5%",
		"Metformin 850mg *",
		"* no depot has this item in stock",
		"Total cost:      R1,545.00",
		"Total savings:   R206.67",
		"Average savings: 10.5%",
		"Recommendation:  Split order:",
		"PharmaCo: 1 item(s), R1,260.00, up to 5 day(s)",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat() output missing %q\n%s", want, output)
		}
	}
}

func TestPrettyFormatSingleDepot(t *testing.T) {
	report := sampleReport()
	report.Results = report.Results[:1]
	report.Strategy = report.Strategy[:1]
	report.BestStrategy = "Use PharmaCo for entire order"

	var buf bytes.Buffer
	if err := PrettyFormat(&buf, report, "$"); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "Depot plan") {
		t.Errorf("single depot report should not print a depot plan\n%s", output)
	}
	if strings.Contains(output, "no depot has this item in stock") {
		t.Errorf("stock note printed without out-of-stock items\n%s", output)
	}
	if !strings.Contains(output, "$1,260.00") {
		t.Errorf("expected currency symbol $ in output\n%s", output)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrettyFormatWriteError(t *testing.T) {
	if err := PrettyFormat(failingWriter{}, sampleReport(), "R"); err == nil {
		t.Errorf("PrettyFormat() expected write error")
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, sampleReport()); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header, 2 items and a total row, got %d rows", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(CSVHeader, ",") {
		t.Errorf("header = %v", records[0])
	}

	tests := []struct {
		row, col int
		want     string
	}{
		{1, 0, "item-1"},
		{1, 3, "1200"},
		{1, 7, "1.05"},
		{1, 8, "1260.00"},
		{1, 12, "12.50"},
		{1, 13, "false"},
		{2, 5, "high"},
		{2, 10, "311.67"},
		{2, 13, "true"},
		{3, 1, "TOTAL"},
		{3, 8, "1545.00"},
		{3, 11, "206.67"},
		{3, 12, "10.53"},
	}
	for _, tt := range tests {
		if got := records[tt.row][tt.col]; got != tt.want {
			t.Errorf("row %d column %s = %q, want %q", tt.row, CSVHeader[tt.col], got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, sampleReport()); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var decoded model.AnalysisReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != "rep-1" || len(decoded.Results) != 2 {
		t.Errorf("decoded report = %+v", decoded)
	}
	if !decoded.TotalCost.Equal(d("1545")) {
		t.Errorf("TotalCost = %s, want 1545", decoded.TotalCost)
	}
	if !decoded.Results[1].OutOfStockOnly {
		t.Errorf("OutOfStockOnly lost in JSON output")
	}
	if !strings.Contains(buf.String(), "\n  \"id\": \"rep-1\"") {
		t.Errorf("expected indented JSON, got %s", buf.String())
	}
}
