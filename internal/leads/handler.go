package leads

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/wolfman30/leadradar/internal/apperror"
	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// Handler serves lead submission, listing and export.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PublicRoutes mounts the submission endpoint under /api/leads.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/", h.CreateLead)
}

// AdminRoutes mounts list and export under /api/admin/leads.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.ListLeads)
	r.Get("/export", h.ExportCSV)
}

// CreateLead handles POST /api/leads.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ListLeadsResponse is the response for listing leads.
type ListLeadsResponse struct {
	Items  []*ListItem `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListLeads handles GET /api/admin/leads.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	formID, err := parseFormIDQuery(query.Get("formId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parsePaginationParam(query.Get("limit"), "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := parsePaginationParam(query.Get("offset"), "offset")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := ListFilter{FormID: formID, Limit: limit, Offset: offset}
	filter.Normalize()
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*ListItem{}
	}
	render.JSON(w, r, ListLeadsResponse{Items: items, Limit: filter.Limit, Offset: filter.Offset})
}

// ExportCSV handles GET /api/admin/leads/export.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	formID, err := parseFormIDQuery(r.URL.Query().Get("formId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	export, err := h.service.Export(r.Context(), formID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, export); err != nil {
		h.fail(w, r, fmt.Errorf("leads: write csv: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(formID)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write csv export", "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apperror.Write(w, r, h.logger, err)
}

func parseFormIDQuery(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, ok := forms.ParseID(raw)
	if !ok {
		return nil, ErrInvalidFormID.WithMessage("formId must be a positive integer")
	}
	return &id, nil
}

func parsePaginationParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrInvalidPagination.WithMessage("%s must be a non-negative integer", name)
	}
	return n, nil
}
