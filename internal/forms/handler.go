package forms

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/wolfman30/leadradar/internal/apperror"
	"github.com/wolfman30/leadradar/pkg/logging"
)

var (
	// ErrInvalidFormID is returned when the {id} path segment is not a positive integer.
	ErrInvalidFormID = apperror.Validation("INVALID_FORM_ID", "Form id must be a positive integer")

	// ErrInvalidFieldID is returned when the {fieldId} path segment is not a positive integer.
	ErrInvalidFieldID = apperror.Validation("INVALID_FIELD_ID", "Field id must be a positive integer")
)

// Handler serves the admin form and field endpoints.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new forms handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the handler under /api/admin/forms.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListForms)
	r.Post("/", h.CreateForm)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetForm)
		r.Put("/", h.UpdateForm)
		r.Patch("/", h.UpdateForm)
		r.Delete("/", h.ArchiveForm)
		r.Post("/fields", h.CreateField)
		r.Post("/fields/reorder", h.ReorderFields)
		r.Put("/fields/{fieldId}", h.UpdateField)
		r.Delete("/fields/{fieldId}", h.DeleteField)
	})
}

type itemsResponse struct {
	Items []*Form `json:"items"`
}

type itemResponse struct {
	Item *Form `json:"item"`
}

type fieldResponse struct {
	Field *Field `json:"field"`
}

type fieldsResponse struct {
	Fields []*Field `json:"fields"`
}

// ReorderRequest is the body of POST /api/admin/forms/{id}/fields/reorder.
type ReorderRequest struct {
	FieldOrder []int64 `json:"fieldOrder"`
}

// ListForms handles GET /api/admin/forms.
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := Status(strings.ToUpper(raw))
		if !status.Valid() {
			h.fail(w, r, ErrInvalidStatus.WithMessage("Status %q is not one of DRAFT, ACTIVE, ARCHIVED", raw))
			return
		}
		filter.Status = status
	}

	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, itemsResponse{Items: items})
}

// CreateForm handles POST /api/admin/forms.
func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req CreateFormRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}

	form, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("form created", "form_id", form.ID, "status", form.Status)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, itemResponse{Item: form})
}

// GetForm handles GET /api/admin/forms/{id}.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formID(w, r)
	if !ok {
		return
	}
	form, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, itemResponse{Item: form})
}

// UpdateForm handles PUT and PATCH /api/admin/forms/{id}.
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formID(w, r)
	if !ok {
		return
	}
	var req UpdateFormRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}

	form, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("form updated", "form_id", form.ID, "status", form.Status)
	render.JSON(w, r, itemResponse{Item: form})
}

// ArchiveForm handles DELETE /api/admin/forms/{id}. Forms are never removed.
func (h *Handler) ArchiveForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formID(w, r)
	if !ok {
		return
	}
	form, err := h.repo.Archive(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("form archived", "form_id", form.ID)
	render.JSON(w, r, itemResponse{Item: form})
}

// CreateField handles POST /api/admin/forms/{id}/fields.
func (h *Handler) CreateField(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formID(w, r)
	if !ok {
		return
	}
	var req CreateFieldRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}

	field, err := h.repo.CreateField(r.Context(), id, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("field created", "form_id", id, "field_id", field.ID, "key", field.Key)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, fieldResponse{Field: field})
}

// UpdateField handles PUT /api/admin/forms/{id}/fields/{fieldId}.
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	formID, fieldID, ok := h.formAndFieldID(w, r)
	if !ok {
		return
	}
	var req UpdateFieldRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}

	field, err := h.repo.UpdateField(r.Context(), formID, fieldID, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, fieldResponse{Field: field})
}

// DeleteField handles DELETE /api/admin/forms/{id}/fields/{fieldId}.
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	formID, fieldID, ok := h.formAndFieldID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteField(r.Context(), formID, fieldID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("field deleted", "form_id", formID, "field_id", fieldID)
	render.JSON(w, r, map[string]bool{"success": true})
}

// ReorderFields handles POST /api/admin/forms/{id}/fields/reorder.
func (h *Handler) ReorderFields(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formID(w, r)
	if !ok {
		return
	}
	var req ReorderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, apperror.ErrInvalidJSON)
		return
	}
	if req.FieldOrder == nil {
		h.fail(w, r, ErrInvalidFieldOrder.WithMessage("fieldOrder must be an array of field ids"))
		return
	}

	fields, err := h.repo.ReorderFields(r.Context(), id, req.FieldOrder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, fieldsResponse{Fields: fields})
}

func (h *Handler) formID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.fail(w, r, ErrInvalidFormID)
	}
	return id, ok
}

func (h *Handler) formAndFieldID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	formID, ok := h.formID(w, r)
	if !ok {
		return 0, 0, false
	}
	fieldID, ok := ParseID(chi.URLParam(r, "fieldId"))
	if !ok {
		h.fail(w, r, ErrInvalidFieldID)
		return 0, 0, false
	}
	return formID, fieldID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apperror.Write(w, r, h.logger, err)
}

// ParseID parses a positive integer id from a path or query value.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
