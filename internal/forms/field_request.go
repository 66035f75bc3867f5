package forms

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CreateFieldRequest is the body of POST /api/admin/forms/{id}/fields.
type CreateFieldRequest struct {
	Label    string          `json:"label"`
	Key      string          `json:"key"`
	Type     FieldType       `json:"type"`
	Required bool            `json:"required"`
	Options  json.RawMessage `json:"options"`
	Order    *int            `json:"order"`

	options []string
}

// Normalize trims label and key and parses options. It returns a validation
// error when options is not an array of strings.
func (r *CreateFieldRequest) Normalize() error {
	r.Label = strings.TrimSpace(r.Label)
	r.Key = strings.TrimSpace(r.Key)
	opts, err := parseOptions(r.Options)
	if err != nil {
		return err
	}
	r.options = opts
	return nil
}

// Validate checks a normalized create request.
func (r *CreateFieldRequest) Validate() error {
	if r.Label == "" {
		return ErrFieldValidation.WithMessage(`The field "label" must not be empty`)
	}
	if r.Key == "" {
		return ErrFieldValidation.WithMessage(`The field "key" must not be empty`)
	}
	if r.Type == "" {
		return ErrFieldValidation.WithMessage(`The field "type" must not be empty`)
	}
	if !r.Type.Valid() {
		return ErrInvalidFieldType.WithMessage("Field type %q is not supported", r.Type)
	}
	return nil
}

// ParsedOptions returns the options decoded by Normalize.
func (r *CreateFieldRequest) ParsedOptions() []string {
	return r.options
}

// UpdateFieldRequest is a partial field update; nil members are unchanged.
type UpdateFieldRequest struct {
	Label    *string         `json:"label"`
	Key      *string         `json:"key"`
	Type     *FieldType      `json:"type"`
	Required *bool           `json:"required"`
	Options  json.RawMessage `json:"options"`
	Order    *int            `json:"order"`

	options    []string
	hasOptions bool
}

// Normalize trims label and key and parses options when present.
func (r *UpdateFieldRequest) Normalize() error {
	if r.Label != nil {
		label := strings.TrimSpace(*r.Label)
		r.Label = &label
	}
	if r.Key != nil {
		key := strings.TrimSpace(*r.Key)
		r.Key = &key
	}
	if len(r.Options) > 0 {
		if bytes.Equal(bytes.TrimSpace(r.Options), []byte("null")) {
			return ErrFieldValidation.WithMessage(`The field "options" must be an array of strings`)
		}
		opts, err := parseOptions(r.Options)
		if err != nil {
			return err
		}
		r.options = opts
		r.hasOptions = true
	}
	return nil
}

// Validate checks a normalized update request.
func (r *UpdateFieldRequest) Validate() error {
	if r.Label == nil && r.Key == nil && r.Type == nil && r.Required == nil && !r.hasOptions && r.Order == nil {
		return ErrNoUpdateFields
	}
	if r.Label != nil && *r.Label == "" {
		return ErrFieldValidation.WithMessage(`The field "label" must not be empty`)
	}
	if r.Key != nil && *r.Key == "" {
		return ErrFieldValidation.WithMessage(`The field "key" must not be empty`)
	}
	if r.Type != nil && !r.Type.Valid() {
		return ErrInvalidFieldType.WithMessage("Field type %q is not supported", *r.Type)
	}
	return nil
}

// Apply merges the update into field.
func (r *UpdateFieldRequest) Apply(field *Field) {
	if r.Label != nil {
		field.Label = *r.Label
	}
	if r.Key != nil {
		field.Key = *r.Key
	}
	if r.Type != nil {
		field.Type = *r.Type
	}
	if r.Required != nil {
		field.Required = *r.Required
	}
	if r.hasOptions {
		field.Options = r.options
	}
	if r.Order != nil {
		field.Order = *r.Order
	}
}

func parseOptions(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, ErrFieldValidation.WithMessage(`The field "options" must be an array of strings`)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, ErrFieldValidation.WithMessage(`Every entry in "options" must be a string`)
		}
		out = append(out, s)
	}
	return out, nil
}
