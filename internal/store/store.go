// Package store persists requisitions and their analysis reports.
package store

import (
	"context"
	"slices"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// Repository holds requisitions and reports. Implementations return copies,
// so callers may not mutate stored records through returned values.
type Repository interface {
	// Create stores a new requisition.
	Create(ctx context.Context, req *model.Requisition) error
	// Get returns the requisition with id or model.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Requisition, error)
	// List returns requisitions ordered by creation time. A blank ownerID
	// lists every requisition.
	List(ctx context.Context, ownerID string) ([]*model.Requisition, error)
	// Transition atomically moves a requisition to status to if its current
	// status is one of from, and returns the status it left.
	Transition(ctx context.Context, id string, from []model.Status, to model.Status, at time.Time) (model.Status, error)
	// CompleteAnalysis stores report and moves the requisition from analyzing
	// to analyzed in one step.
	CompleteAnalysis(ctx context.Context, id string, report *model.AnalysisReport, at time.Time) error
	// Reports returns every report for a requisition, oldest first.
	Reports(ctx context.Context, requisitionID string) ([]*model.AnalysisReport, error)
	// Report returns one report by id or model.ErrNotFound.
	Report(ctx context.Context, reportID string) (*model.AnalysisReport, error)
}

func transitionError(id string, current, to model.Status) error {
	return &model.TransitionError{RequisitionID: id, From: current, To: to}
}

func allowed(current model.Status, from []model.Status) bool {
	return slices.Contains(from, current)
}

func sortRequisitions(reqs []*model.Requisition) {
	slices.SortStableFunc(reqs, func(a, b *model.Requisition) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
