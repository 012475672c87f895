// Package importer turns uploaded medication lists into requisition items.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Columns are matched on lower-cased headers with spaces, underscores and
// hyphens removed. Earlier aliases win.
var columnAliases = map[string][]string{
	"name":     {"name", "medication", "medicationname"},
	"generic":  {"genericname", "generic", "name"},
	"quantity": {"quantity", "qty"},
	"unit":     {"unit"},
	"priority": {"priority"},
	"notes":    {"notes", "note"},
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func columnIndex(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	index := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := positions[alias]; ok {
				index[field] = i
				break
			}
		}
	}
	return index
}

// ParseCSV reads a medication list with a header row. Blank rows are
// skipped. Items come back normalized and without ids. A row with no
// medication name, a non-positive quantity or an unknown priority fails
// the whole import with its line number.
func ParseCSV(r io.Reader) ([]model.RequisitionItem, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty", model.ErrInvalidRequisition)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", model.ErrInvalidRequisition, err)
	}

	index := columnIndex(header)
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("%w: CSV header needs a name or medication column", model.ErrInvalidRequisition)
	}

	var items []model.RequisitionItem
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidRequisition, err)
		}
		line, _ := reader.FieldPos(0)

		get := func(field string) string {
			if i, ok := index[field]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		if blank(rec) {
			continue
		}

		item, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", model.ErrInvalidRequisition, line, err)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: CSV file has no medication rows", model.ErrInvalidRequisition)
	}
	return items, nil
}

func parseRow(get func(string) string) (model.RequisitionItem, error) {
	item := model.RequisitionItem{
		MedicationName: get("name"),
		GenericName:    get("generic"),
		Quantity:       constants.DefaultImportQuantity,
		Unit:           get("unit"),
		Notes:          get("notes"),
	}
	if item.MedicationName == "" {
		return item, fmt.Errorf("medication name is empty")
	}

	if raw := get("quantity"); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return item, fmt.Errorf("quantity %q is not a whole number", raw)
		}
		item.Quantity = qty
	}

	if raw := get("priority"); raw != "" {
		p, err := model.ParsePriority(raw)
		if err != nil {
			return item, err
		}
		item.Priority = p
	}

	item = item.Normalize()
	return item, item.Validate()
}

func blank(rec []string) bool {
	for _, field := range rec {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
