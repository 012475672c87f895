package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS requisitions (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	owner_id         TEXT NOT NULL,
	status           TEXT NOT NULL,
	items            TEXT NOT NULL,
	total_items      INTEGER NOT NULL,
	latest_report_id TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requisitions_owner ON requisitions (owner_id);
CREATE TABLE IF NOT EXISTS analysis_reports (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	requisition_id TEXT NOT NULL REFERENCES requisitions(id),
	body           TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_requisition ON analysis_reports (requisition_id);
`

// casAttempts bounds how often Transition re-reads a status that changed
// between its read and its conditional update.
const casAttempts = 5

type requisitionRow struct {
	ID             string `db:"id"`
	Title          string `db:"title"`
	OwnerID        string `db:"owner_id"`
	Status         string `db:"status"`
	Items          string `db:"items"`
	TotalItems     int    `db:"total_items"`
	LatestReportID string `db:"latest_report_id"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

const requisitionColumns = `id, title, owner_id, status, items, total_items, latest_report_id, created_at, updated_at`

// SQLite is a Repository backed by a SQLite database.
type SQLite struct {
	db *sqlx.DB
}

var _ Repository = (*SQLite)(nil)

// Migrate creates the requisition tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create requisition tables: %w", err)
	}
	return nil
}

// NewSQLite migrates db and returns a store using it.
func NewSQLite(ctx context.Context, db *sqlx.DB) (*SQLite, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func toRow(req *model.Requisition) (requisitionRow, error) {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return requisitionRow{}, fmt.Errorf("failed to encode items of requisition %s: %w", req.ID, err)
	}
	return requisitionRow{
		ID:             req.ID,
		Title:          req.Title,
		OwnerID:        req.OwnerID,
		Status:         string(req.Status),
		Items:          string(items),
		TotalItems:     req.TotalItems,
		LatestReportID: req.LatestReportID,
		CreatedAt:      formatTime(req.CreatedAt),
		UpdatedAt:      formatTime(req.UpdatedAt),
	}, nil
}

func (r requisitionRow) requisition() (*model.Requisition, error) {
	req := &model.Requisition{
		ID:             r.ID,
		Title:          r.Title,
		OwnerID:        r.OwnerID,
		Status:         model.Status(r.Status),
		TotalItems:     r.TotalItems,
		LatestReportID: r.LatestReportID,
	}
	if err := json.Unmarshal([]byte(r.Items), &req.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of requisition %s: %w", r.ID, err)
	}
	var err error
	if req.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("requisition %s: bad created_at: %w", r.ID, err)
	}
	if req.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("requisition %s: bad updated_at: %w", r.ID, err)
	}
	return req, nil
}

func (s *SQLite) Create(ctx context.Context, req *model.Requisition) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("%w: requisition id cannot be empty", model.ErrInvalidRequisition)
	}
	row, err := toRow(req)
	if err != nil {
		return err
	}

	const q = `INSERT INTO requisitions (` + requisitionColumns + `)
		VALUES (:id, :title, :owner_id, :status, :items, :total_items, :latest_report_id, :created_at, :updated_at)
		ON CONFLICT(id) DO NOTHING`
	res, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("failed to insert requisition %s: %w", req.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: requisition %s already exists", model.ErrInvalidRequisition, req.ID)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*model.Requisition, error) {
	var row requisitionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requisition %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requisition %s: %w", id, err)
	}
	return row.requisition()
}

func (s *SQLite) List(ctx context.Context, ownerID string) ([]*model.Requisition, error) {
	var rows []requisitionRow
	var err error
	if ownerID == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT `+requisitionColumns+` FROM requisitions`)
	} else {
		err = s.db.SelectContext(ctx, &rows, `SELECT `+requisitionColumns+` FROM requisitions WHERE owner_id = ?`, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}

	out := make([]*model.Requisition, 0, len(rows))
	for _, row := range rows {
		req, err := row.requisition()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	sortRequisitions(out)
	return out, nil
}

func (s *SQLite) status(ctx context.Context, id string) (model.Status, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM requisitions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("requisition %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status of requisition %s: %w", id, err)
	}
	return model.Status(status), nil
}

// Transition reads the current status and then updates only if it is still
// unchanged, so concurrent callers cannot both leave the same status.
func (s *SQLite) Transition(ctx context.Context, id string, from []model.Status, to model.Status, at time.Time) (model.Status, error) {
	for range casAttempts {
		prior, err := s.status(ctx, id)
		if err != nil {
			return "", err
		}
		if !allowed(prior, from) {
			return prior, transitionError(id, prior, to)
		}

		res, err := s.db.ExecContext(ctx,
			`UPDATE requisitions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), formatTime(at), id, string(prior))
		if err != nil {
			return "", fmt.Errorf("failed to update status of requisition %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("failed to update status of requisition %s: %w", id, err)
		}
		if n == 1 {
			return prior, nil
		}
	}
	return "", fmt.Errorf("requisition %s: status kept changing during update", id)
}

func (s *SQLite) CompleteAnalysis(ctx context.Context, id string, report *model.AnalysisReport, at time.Time) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("requisition %s: report id cannot be empty", id)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE requisitions SET status = ?, latest_report_id = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusAnalyzed), report.ID, formatTime(at), id, string(model.StatusAnalyzing))
	if err != nil {
		return fmt.Errorf("failed to complete analysis of requisition %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		tx.Rollback()
		current, serr := s.status(ctx, id)
		if serr != nil {
			return serr
		}
		return transitionError(id, current, model.StatusAnalyzed)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_reports (id, requisition_id, body, created_at) VALUES (?, ?, ?, ?)`,
		report.ID, id, string(body), formatTime(report.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis of requisition %s: %w", id, err)
	}
	return nil
}

func decodeReport(body string) (*model.AnalysisReport, error) {
	var report model.AnalysisReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

func (s *SQLite) Reports(ctx context.Context, requisitionID string) ([]*model.AnalysisReport, error) {
	if _, err := s.status(ctx, requisitionID); err != nil {
		return nil, err
	}

	var bodies []string
	err := s.db.SelectContext(ctx, &bodies,
		`SELECT body FROM analysis_reports WHERE requisition_id = ? ORDER BY seq`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports of requisition %s: %w", requisitionID, err)
	}

	out := make([]*model.AnalysisReport, 0, len(bodies))
	for _, body := range bodies {
		report, err := decodeReport(body)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, nil
}

func (s *SQLite) Report(ctx context.Context, reportID string) (*model.AnalysisReport, error) {
	var body string
	err := s.db.GetContext(ctx, &body, `SELECT body FROM analysis_reports WHERE id = ?`, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", reportID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	return decodeReport(body)
}
