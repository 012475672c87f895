package model

import (
	"errors"
	"fmt"
)

// Analysis errors.
var (
	// ErrNoQuotesAvailable reports that a quote source returned nothing for an item.
	ErrNoQuotesAvailable = errors.New("no quotes available")
	// ErrInvalidQuoteData reports negative prices or quantities, or a total
	// price that does not match unit price times quantity.
	ErrInvalidQuoteData = errors.New("invalid quote data")
	// ErrNoStockAvailable reports that no quote is in stock while the
	// out-of-stock fallback is disabled.
	ErrNoStockAvailable = errors.New("no depot has the item in stock")
	// ErrEmptyAnalysis reports an aggregation over zero results.
	ErrEmptyAnalysis = errors.New("analysis has no results")
)

// Lifecycle errors.
var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidRequisition     = errors.New("invalid requisition")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
)

// ItemError ties an analysis failure to one requisition line item.
type ItemError struct {
	ItemID         string
	MedicationName string
	Err            error
}

func (e *ItemError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("item %q: %v", e.MedicationName, e.Err)
	}
	return fmt.Sprintf("item %s (%s): %v", e.ItemID, e.MedicationName, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// TransitionError is returned when an operation is attempted from a status
// that does not allow it.
type TransitionError struct {
	RequisitionID string
	From          Status
	To            Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("requisition %s: cannot move from %s to %s", e.RequisitionID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
