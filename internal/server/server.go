// Package server exposes the requisition lifecycle over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/importer"
	"github.com/iwvelando/requisition-analyzer/internal/lifecycle"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/iwvelando/requisition-analyzer/pkg/output"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	manager       *lifecycle.Manager
	maxUploadSize int64
	jwtSecret     []byte
	version       string
}

// NewHandler constructs the HTTP handler for the requisition API.
func NewHandler(logger *zap.Logger, manager *lifecycle.Manager, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		manager:       manager,
		maxUploadSize: maxUploadSize,
		jwtSecret:     []byte(cfg.JWTSecret),
		version:       trimmedVersion,
	}

	mux := http.NewServeMux()

	// Version endpoint, no authentication
	mux.HandleFunc("GET /api/version", h.handleVersion)

	mux.HandleFunc("POST /api/requisitions", h.requireAuth(h.handleCreate))
	mux.HandleFunc("POST /api/requisitions/import", h.requireAuth(h.handleImport))
	mux.HandleFunc("GET /api/requisitions", h.requireAuth(h.handleList))
	mux.HandleFunc("GET /api/requisitions/{id}", h.requireAuth(h.handleGet))
	mux.HandleFunc("POST /api/requisitions/{id}/submit", h.requireAuth(h.handleSubmit))
	mux.HandleFunc("POST /api/requisitions/{id}/analyze", h.requireAuth(h.handleAnalyze))
	mux.HandleFunc("POST /api/requisitions/{id}/order", h.requireAuth(h.handleOrder))
	mux.HandleFunc("GET /api/requisitions/{id}/report", h.requireAuth(h.handleReport))
	mux.HandleFunc("GET /api/requisitions/{id}/reports", h.requireAuth(h.handleReports))
	mux.HandleFunc("GET /api/requisitions/{id}/orders", h.requireAuth(h.handleOrders))

	return mux
}

type itemRequest struct {
	ID             string `json:"id,omitempty"`
	MedicationName string `json:"medicationName"`
	GenericName    string `json:"genericName,omitempty"`
	Quantity       int    `json:"quantity"`
	Unit           string `json:"unit,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type createRequest struct {
	Title string        `json:"title"`
	Items []itemRequest `json:"items"`
}

func (c createRequest) items() ([]model.RequisitionItem, error) {
	items := make([]model.RequisitionItem, len(c.Items))
	for i, in := range c.Items {
		item := model.RequisitionItem{
			ID:             strings.TrimSpace(in.ID),
			MedicationName: in.MedicationName,
			GenericName:    in.GenericName,
			Quantity:       in.Quantity,
			Unit:           in.Unit,
			Notes:          in.Notes,
		}
		if strings.TrimSpace(in.Priority) != "" {
			p, err := model.ParsePriority(in.Priority)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d: %v", model.ErrInvalidRequisition, i+1, err)
			}
			item.Priority = p
		}
		items[i] = item
	}
	return items, nil
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreate"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var payload createRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode requisition: %v", err), op)
		return
	}

	items, err := payload.items()
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	p, _ := PrincipalFromContext(r.Context())
	req, err := h.manager.Create(r.Context(), p, payload.Title, items)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, req)
}

func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImport"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing medication list file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	items, err := importer.ParseCSV(file)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	p, _ := PrincipalFromContext(r.Context())
	req, err := h.manager.Create(r.Context(), p, title, items)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	h.logger.Info("requisition imported",
		zap.String("op", op),
		zap.String("requisition", req.ID),
		zap.String("file", header.Filename),
		zap.Int("items", req.TotalItems),
	)
	h.writeJSON(w, http.StatusCreated, req)
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	reqs, err := h.manager.List(r.Context(), p)
	if err != nil {
		h.respondFailure(w, err, "server.handleList")
		return
	}
	if reqs == nil {
		reqs = []*model.Requisition{}
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	req, err := h.manager.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleGet")
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	req, err := h.manager.Submit(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleSubmit")
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	report, err := h.manager.SubmitForAnalysis(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleAnalyze")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	req, err := h.manager.MarkOrdered(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleOrder")
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReport"
	p, _ := PrincipalFromContext(r.Context())
	report, err := h.manager.LatestReport(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", constants.OutputFormatJSON:
		h.writeJSON(w, http.StatusOK, report)
	case constants.OutputFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.csv"`, report.ID))
		w.WriteHeader(http.StatusOK)
		if err := output.CsvFormat(w, report); err != nil {
			h.logger.Error("failed to write CSV report", zap.String("op", op), zap.Error(err))
		}
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported report format %q, expected json or csv", format), op)
	}
}

func (h *handler) handleReports(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	reports, err := h.manager.Reports(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleReports")
		return
	}
	if reports == nil {
		reports = []*model.AnalysisReport{}
	}
	h.writeJSON(w, http.StatusOK, reports)
}

func (h *handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	orders, err := h.manager.OrderPlan(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleOrders")
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// statusFor maps lifecycle and analysis errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidRequisition):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoQuotesAvailable),
		errors.Is(err, model.ErrInvalidQuoteData),
		errors.Is(err, model.ErrNoStockAvailable),
		errors.Is(err, model.ErrEmptyAnalysis):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	var itemErr *model.ItemError
	if errors.As(err, &itemErr) {
		// the quote source itself failed
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	log := h.logger.Warn
	if status >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("requisition request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
