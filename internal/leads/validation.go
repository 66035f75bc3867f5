package leads

import (
	"github.com/wolfman30/leadradar/internal/forms"
)

// ValidateSubmission checks values against the form's current schema and
// returns one Value per field in field order. Unknown keys and missing
// required fields are collected in full before any error is returned.
func ValidateSubmission(form *forms.Form, values SubmittedValues) ([]*Value, error) {
	if !form.Status.AcceptsLeads() {
		return nil, ErrFormArchived
	}

	byKey := form.FieldByKey()
	var unknown []string
	for _, key := range values.Keys() {
		if _, ok := byKey[key]; !ok {
			unknown = append(unknown, key)
		}
	}

	var missing []string
	for _, field := range form.Fields {
		if !field.Required {
			continue
		}
		if v, _ := values.Get(field.Key); v == "" {
			missing = append(missing, field.Key)
		}
	}

	if len(unknown) > 0 {
		details := map[string][]string{"unknownFieldKeys": unknown}
		if len(missing) > 0 {
			details["missingRequired"] = missing
		}
		return nil, ErrUnknownFieldKey.WithDetails(details)
	}
	if len(missing) > 0 {
		return nil, ErrMissingRequiredField.WithDetails(map[string][]string{"missingRequired": missing})
	}

	out := make([]*Value, 0, len(form.Fields))
	for _, field := range form.Fields {
		v, _ := values.Get(field.Key)
		fieldID := field.ID
		out = append(out, &Value{
			FieldID:    &fieldID,
			FieldKey:   field.Key,
			FieldLabel: field.Label,
			Value:      v,
		})
	}
	return out, nil
}
