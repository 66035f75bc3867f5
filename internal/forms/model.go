package forms

import (
	"strings"
	"time"

	"github.com/wolfman30/leadradar/internal/sanitize"
)

// Status is the lifecycle state of a form.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// AcceptsLeads reports whether new leads may be submitted against a form in
// this status.
func (s Status) AcceptsLeads() bool {
	return s != StatusArchived
}

// CanTransitionTo implements DRAFT <-> ACTIVE -> ARCHIVED. ARCHIVED is
// terminal; staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	return s != StatusArchived
}

// FieldType tags the kind of input a field collects.
type FieldType string

const (
	FieldText         FieldType = "TEXT"
	FieldTextarea     FieldType = "TEXTAREA"
	FieldSingleSelect FieldType = "SINGLE_SELECT"
	FieldMultiSelect  FieldType = "MULTI_SELECT"
	FieldNumber       FieldType = "NUMBER"
	FieldEmail        FieldType = "EMAIL"
	FieldPhone        FieldType = "PHONE"
	FieldDate         FieldType = "DATE"
	FieldDateTime     FieldType = "DATETIME"
	FieldBoolean      FieldType = "BOOLEAN"
)

var fieldTypes = map[FieldType]struct{}{
	FieldText: {}, FieldTextarea: {}, FieldSingleSelect: {}, FieldMultiSelect: {},
	FieldNumber: {}, FieldEmail: {}, FieldPhone: {}, FieldDate: {}, FieldDateTime: {},
	FieldBoolean: {},
}

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Form is an admin-defined questionnaire schema.
type Form struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Fields      []*Field  `json:"fields"`
}

// FieldByKey indexes the form's fields by key.
func (f *Form) FieldByKey() map[string]*Field {
	out := make(map[string]*Field, len(f.Fields))
	for _, field := range f.Fields {
		out[field.Key] = field
	}
	return out
}

// Field is one typed, ordered question within a form.
type Field struct {
	ID       int64     `json:"id"`
	FormID   int64     `json:"formId"`
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options"`
	Order    int       `json:"order"`
}

// CreateFormRequest is the body of POST /api/admin/forms.
type CreateFormRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      Status  `json:"status"`
}

// Normalize trims input, sanitises the description and applies defaults.
func (r *CreateFormRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = normalizeDescription(r.Description)
	if r.Status == "" {
		r.Status = StatusDraft
	}
}

// Validate checks a normalized create request.
func (r *CreateFormRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus.WithMessage("Status %q is not one of DRAFT, ACTIVE, ARCHIVED", r.Status)
	}
	return nil
}

// UpdateFormRequest is a partial update; nil members are left unchanged.
type UpdateFormRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *Status `json:"status"`
}

// Normalize trims input and sanitises the description.
func (r *UpdateFormRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Description != nil {
		desc := sanitize.HTML(*r.Description)
		r.Description = &desc
	}
}

// Validate checks a normalized update request.
func (r *UpdateFormRequest) Validate() error {
	if r.Name == nil && r.Description == nil && r.Status == nil {
		return ErrNoUpdateFields
	}
	if r.Name != nil && *r.Name == "" {
		return ErrNameRequired
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus.WithMessage("Status %q is not one of DRAFT, ACTIVE, ARCHIVED", *r.Status)
	}
	return nil
}

// Apply merges the update into form, enforcing the status state machine.
func (r *UpdateFormRequest) Apply(form *Form) error {
	if r.Status != nil && !form.Status.CanTransitionTo(*r.Status) {
		return ErrInvalidTransition.WithMessage("Form status cannot change from %s to %s", form.Status, *r.Status)
	}
	if r.Name != nil {
		form.Name = *r.Name
	}
	if r.Description != nil {
		if *r.Description == "" {
			form.Description = nil
		} else {
			desc := *r.Description
			form.Description = &desc
		}
	}
	if r.Status != nil {
		form.Status = *r.Status
	}
	return nil
}

func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	clean := sanitize.HTML(*desc)
	if clean == "" {
		return nil
	}
	return &clean
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
}
