package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// Memory is an in-process Repository.
type Memory struct {
	mu           sync.RWMutex
	requisitions map[string]*model.Requisition
	reports      map[string]*model.AnalysisReport
	byRequest    map[string][]string
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		requisitions: make(map[string]*model.Requisition),
		reports:      make(map[string]*model.AnalysisReport),
		byRequest:    make(map[string][]string),
	}
}

func (m *Memory) Create(ctx context.Context, req *model.Requisition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req == nil || req.ID == "" {
		return fmt.Errorf("%w: requisition id cannot be empty", model.ErrInvalidRequisition)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requisitions[req.ID]; exists {
		return fmt.Errorf("%w: requisition %s already exists", model.ErrInvalidRequisition, req.ID)
	}
	m.requisitions[req.ID] = req.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Requisition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requisitions[id]
	if !ok {
		return nil, fmt.Errorf("requisition %s: %w", id, model.ErrNotFound)
	}
	return req.Clone(), nil
}

func (m *Memory) List(ctx context.Context, ownerID string) ([]*model.Requisition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]*model.Requisition, 0, len(m.requisitions))
	for _, req := range m.requisitions {
		if ownerID == "" || req.OwnerID == ownerID {
			out = append(out, req.Clone())
		}
	}
	m.mu.RUnlock()

	sortRequisitions(out)
	return out, nil
}

func (m *Memory) Transition(ctx context.Context, id string, from []model.Status, to model.Status, at time.Time) (model.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requisitions[id]
	if !ok {
		return "", fmt.Errorf("requisition %s: %w", id, model.ErrNotFound)
	}
	prior := req.Status
	if !allowed(prior, from) {
		return prior, transitionError(id, prior, to)
	}
	req.Status = to
	req.UpdatedAt = at
	return prior, nil
}

func (m *Memory) CompleteAnalysis(ctx context.Context, id string, report *model.AnalysisReport, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report == nil || report.ID == "" {
		return fmt.Errorf("requisition %s: report id cannot be empty", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requisitions[id]
	if !ok {
		return fmt.Errorf("requisition %s: %w", id, model.ErrNotFound)
	}
	if req.Status != model.StatusAnalyzing {
		return transitionError(id, req.Status, model.StatusAnalyzed)
	}
	if _, exists := m.reports[report.ID]; exists {
		return fmt.Errorf("report %s already exists", report.ID)
	}

	m.reports[report.ID] = report.Clone()
	m.byRequest[id] = append(m.byRequest[id], report.ID)
	req.Status = model.StatusAnalyzed
	req.LatestReportID = report.ID
	req.UpdatedAt = at
	return nil
}

func (m *Memory) Reports(ctx context.Context, requisitionID string) ([]*model.AnalysisReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.requisitions[requisitionID]; !ok {
		return nil, fmt.Errorf("requisition %s: %w", requisitionID, model.ErrNotFound)
	}
	ids := m.byRequest[requisitionID]
	out := make([]*model.AnalysisReport, len(ids))
	for i, reportID := range ids {
		out[i] = m.reports[reportID].Clone()
	}
	return out, nil
}

func (m *Memory) Report(ctx context.Context, reportID string) (*model.AnalysisReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", reportID, model.ErrNotFound)
	}
	return report.Clone(), nil
}
