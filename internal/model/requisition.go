// Package model defines the requisition, quote and analysis records shared by
// the evaluator, aggregator, lifecycle manager and their collaborators.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/requisition-analyzer/pkg/constants"
)

// RequisitionItem is one medication line on a requisition.
type RequisitionItem struct {
	ID             string   `json:"id"`
	MedicationName string   `json:"medicationName"`
	GenericName    string   `json:"genericName"`
	Quantity       int      `json:"quantity"`
	Unit           string   `json:"unit"`
	Priority       Priority `json:"priority"`
	Notes          string   `json:"notes,omitempty"`
}

// Normalize trims text fields and fills the generic name and unit defaults.
func (i RequisitionItem) Normalize() RequisitionItem {
	i.MedicationName = strings.TrimSpace(i.MedicationName)
	i.GenericName = strings.TrimSpace(i.GenericName)
	i.Unit = strings.TrimSpace(i.Unit)
	i.Notes = strings.TrimSpace(i.Notes)
	if i.GenericName == "" {
		i.GenericName = i.MedicationName
	}
	if i.Unit == "" {
		i.Unit = constants.DefaultUnit
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
	return i
}

// Validate checks the item's own fields.
func (i RequisitionItem) Validate() error {
	if strings.TrimSpace(i.MedicationName) == "" {
		return fmt.Errorf("medication name cannot be empty")
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("quantity for %s must be positive, got %d", i.MedicationName, i.Quantity)
	}
	if !i.Priority.Valid() {
		return fmt.Errorf("priority for %s must be one of low, medium, high, critical, got %q", i.MedicationName, i.Priority)
	}
	return nil
}

// Requisition is a purchase request for a set of medications.
type Requisition struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	OwnerID        string            `json:"ownerId"`
	Items          []RequisitionItem `json:"items"`
	Status         Status            `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	TotalItems     int               `json:"totalItems"`
	LatestReportID string            `json:"latestReportId,omitempty"`
}

// NewRequisition creates a validated draft requisition. Items are normalized
// and must already carry identifiers.
func NewRequisition(id, ownerID, title string, items []RequisitionItem, now time.Time) (*Requisition, error) {
	title = strings.TrimSpace(title)
	if id == "" {
		return nil, fmt.Errorf("%w: id cannot be empty", ErrInvalidRequisition)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidRequisition)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidRequisition)
	}

	normalized := make([]RequisitionItem, len(items))
	seen := make(map[string]struct{}, len(items))
	for n, item := range items {
		item = item.Normalize()
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidRequisition, n+1, err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrInvalidRequisition, n+1)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %s", ErrInvalidRequisition, item.ID)
		}
		seen[item.ID] = struct{}{}
		normalized[n] = item
	}

	return &Requisition{
		ID:         id,
		Title:      title,
		OwnerID:    ownerID,
		Items:      normalized,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
		TotalItems: len(normalized),
	}, nil
}

// Clone returns a deep copy.
func (r *Requisition) Clone() *Requisition {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = append([]RequisitionItem(nil), r.Items...)
	return &c
}
