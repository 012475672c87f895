// Package lifecycle drives requisitions from draft through analysis to
// ordering.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/requisition-analyzer/internal/evaluator"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/internal/quotes"
	"github.com/iwvelando/requisition-analyzer/internal/store"
	"github.com/iwvelando/requisition-analyzer/internal/strategy"
	"go.uber.org/zap"
)

// Manager owns requisition state changes. Status moves go through the
// store's compare-and-set, so two analyses of one requisition cannot
// overlap while different requisitions proceed in parallel.
type Manager struct {
	repo       store.Repository
	source     quotes.Source
	evaluator  *evaluator.Evaluator
	aggregator *strategy.Aggregator
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock sets the time source used for status timestamps and order dates.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator sets how requisition and item ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithEvaluator replaces the default evaluator.
func WithEvaluator(e *evaluator.Evaluator) Option {
	return func(m *Manager) { m.evaluator = e }
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *strategy.Aggregator) Option {
	return func(m *Manager) { m.aggregator = a }
}

// NewManager returns a Manager storing requisitions in repo and pricing items
// from source.
func NewManager(repo store.Repository, source quotes.Source, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		repo:       repo,
		source:     source,
		evaluator:  evaluator.New(evaluator.DefaultPolicy()),
		aggregator: strategy.NewAggregator(strategy.WeightingMeanOfPercents),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func forbidden(p model.Principal, action, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %q (%s) may not %s", model.ErrForbidden, p.UserID, p.Role, action)
	}
	return fmt.Errorf("%w: %q (%s) may not %s requisition %s", model.ErrForbidden, p.UserID, p.Role, action, id)
}

// Create stores a new draft requisition owned by p. Items without an id
// are given one.
func (m *Manager) Create(ctx context.Context, p model.Principal, title string, items []model.RequisitionItem) (*model.Requisition, error) {
	if !p.CanCreate() {
		return nil, forbidden(p, "create", "")
	}

	withIDs := make([]model.RequisitionItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = m.newID()
		}
		withIDs[i] = item
	}

	req, err := model.NewRequisition(m.newID(), p.UserID, title, withIDs, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to store requisition: %w", err)
	}

	m.logger.Info("requisition created",
		zap.String("op", "lifecycle.Create"),
		zap.String("requisition", req.ID),
		zap.String("owner", req.OwnerID),
		zap.Int("items", req.TotalItems),
	)
	return req, nil
}

// Get returns a requisition to any known principal.
func (m *Manager) Get(ctx context.Context, p model.Principal, id string) (*model.Requisition, error) {
	if !p.CanView() {
		return nil, forbidden(p, "view", id)
	}
	return m.repo.Get(ctx, id)
}

// List returns the requisitions p works with. Pharmacists see their own,
// admins and viewers see all of them.
func (m *Manager) List(ctx context.Context, p model.Principal) ([]*model.Requisition, error) {
	if !p.CanView() {
		return nil, forbidden(p, "list requisitions", "")
	}
	owner := ""
	if p.Role == model.RolePharmacist {
		owner = p.UserID
	}
	return m.repo.List(ctx, owner)
}

// modifiable loads a requisition p is allowed to change.
func (m *Manager) modifiable(ctx context.Context, p model.Principal, id, action string) (*model.Requisition, error) {
	if !p.CanView() {
		return nil, forbidden(p, action, id)
	}
	req, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanModify(req.OwnerID) {
		return nil, forbidden(p, action, id)
	}
	return req, nil
}

func (m *Manager) transition(ctx context.Context, p model.Principal, id string, to model.Status, action string) (*model.Requisition, error) {
	if _, err := m.modifiable(ctx, p, id, action); err != nil {
		return nil, err
	}
	prior, err := m.repo.Transition(ctx, id, model.SourcesFor(to), to, m.now())
	if err != nil {
		return nil, err
	}

	m.logger.Info("requisition status changed",
		zap.String("op", "lifecycle."+action),
		zap.String("requisition", id),
		zap.String("from", string(prior)),
		zap.String("to", string(to)),
		zap.String("user", p.UserID),
	)
	return m.repo.Get(ctx, id)
}

// Submit moves a draft requisition to submitted.
func (m *Manager) Submit(ctx context.Context, p model.Principal, id string) (*model.Requisition, error) {
	return m.transition(ctx, p, id, model.StatusSubmitted, "Submit")
}

// MarkOrdered moves an analyzed requisition to ordered.
func (m *Manager) MarkOrdered(ctx context.Context, p model.Principal, id string) (*model.Requisition, error) {
	return m.transition(ctx, p, id, model.StatusOrdered, "MarkOrdered")
}

// SubmitForAnalysis prices every item of a draft or submitted requisition
// and attaches the resulting report. On any failure, cancellation included,
// the requisition returns to the status it had before and no report is
// kept.
func (m *Manager) SubmitForAnalysis(ctx context.Context, p model.Principal, id string) (*model.AnalysisReport, error) {
	req, err := m.modifiable(ctx, p, id, "SubmitForAnalysis")
	if err != nil {
		return nil, err
	}

	prior, err := m.repo.Transition(ctx, id, model.SourcesFor(model.StatusAnalyzing), model.StatusAnalyzing, m.now())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := m.analyze(ctx, req)
	if err == nil {
		err = m.repo.CompleteAnalysis(ctx, id, report, m.now())
	}
	if err != nil {
		m.rollback(ctx, id, prior, err)
		return nil, err
	}

	m.logger.Info("requisition analyzed",
		zap.String("op", "lifecycle.SubmitForAnalysis"),
		zap.String("requisition", id),
		zap.String("report", report.ID),
		zap.String("totalCost", report.TotalCost.StringFixed(2)),
		zap.String("totalSavings", report.TotalSavings.StringFixed(2)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report.Clone(), nil
}

func (m *Manager) analyze(ctx context.Context, req *model.Requisition) (*model.AnalysisReport, error) {
	results := make([]model.AnalysisResult, 0, len(req.Items))
	for _, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := m.source.GetQuotes(ctx, item.MedicationName, item.GenericName, item.Quantity)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, err
			}
			return nil, &model.ItemError{ItemID: item.ID, MedicationName: item.MedicationName, Err: err}
		}

		result, err := m.evaluator.Evaluate(item, found)
		if err != nil {
			return nil, err
		}
		m.logger.Debug("item evaluated",
			zap.String("op", "lifecycle.analyze"),
			zap.String("requisition", req.ID),
			zap.String("item", item.ID),
			zap.String("medication", item.MedicationName),
			zap.Int("quotes", len(found)),
			zap.String("cheapestDepot", result.CheapestDepot),
			zap.Bool("outOfStockOnly", result.OutOfStockOnly),
		)
		results = append(results, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.aggregator.Aggregate(req.ID, results)
}

// rollback returns a requisition stuck in analyzing to prior. It runs even
// when ctx is already cancelled.
func (m *Manager) rollback(ctx context.Context, id string, prior model.Status, cause error) {
	rctx := context.WithoutCancel(ctx)
	if _, err := m.repo.Transition(rctx, id, []model.Status{model.StatusAnalyzing}, prior, m.now()); err != nil {
		m.logger.Error("failed to roll back requisition",
			zap.String("op", "lifecycle.SubmitForAnalysis"),
			zap.String("requisition", id),
			zap.String("to", string(prior)),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	m.logger.Warn("analysis failed, requisition rolled back",
		zap.String("op", "lifecycle.SubmitForAnalysis"),
		zap.String("requisition", id),
		zap.String("to", string(prior)),
		zap.Error(cause),
	)
}

// LatestReport returns the most recent analysis of a requisition.
func (m *Manager) LatestReport(ctx context.Context, p model.Principal, id string) (*model.AnalysisReport, error) {
	req, err := m.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if req.LatestReportID == "" {
		return nil, fmt.Errorf("requisition %s has no analysis report: %w", id, model.ErrNotFound)
	}
	return m.repo.Report(ctx, req.LatestReportID)
}

// Reports returns every analysis of a requisition, oldest first.
func (m *Manager) Reports(ctx context.Context, p model.Principal, id string) ([]*model.AnalysisReport, error) {
	if !p.CanView() {
		return nil, forbidden(p, "view", id)
	}
	return m.repo.Reports(ctx, id)
}

// OrderPlan drafts the purchase orders the latest report recommends, dated
// now.
func (m *Manager) OrderPlan(ctx context.Context, p model.Principal, id string) ([]model.PurchaseOrder, error) {
	report, err := m.LatestReport(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return strategy.PlanOrders(report, m.now(), m.newID), nil
}
