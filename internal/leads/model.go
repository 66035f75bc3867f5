package leads

import "time"

// Lead is one visitor submission against a form. Leads are immutable.
type Lead struct {
	ID               int64     `json:"id"`
	FormID           int64     `json:"formId"`
	EventID          *int64    `json:"eventId"`
	CapturedByUserID *int64    `json:"capturedByUserId"`
	CreatedAt        time.Time `json:"createdAt"`
	Form             *FormRef  `json:"form,omitempty"`
	Event            *EventRef `json:"event,omitempty"`
	Values           []*Value  `json:"values"`
}

// Value is the captured answer for one field of a lead. FieldID is nil once
// the field has been deleted; FieldKey and FieldLabel keep the snapshot taken
// at submission time.
type Value struct {
	ID         int64  `json:"id"`
	LeadID     int64  `json:"leadId"`
	FieldID    *int64 `json:"fieldId"`
	FieldKey   string `json:"fieldKey"`
	FieldLabel string `json:"fieldLabel"`
	Value      string `json:"value"`
}

// CreateLeadRequest is the body of POST /api/leads.
type CreateLeadRequest struct {
	FormID           FlexibleID      `json:"formId"`
	EventID          FlexibleID      `json:"eventId"`
	CapturedByUserID FlexibleID      `json:"capturedByUserId"`
	Values           SubmittedValues `json:"values"`
}

// Validate checks the request envelope. Schema checks happen against the
// loaded form in ValidateSubmission.
func (r *CreateLeadRequest) Validate() error {
	if !r.FormID.Valid {
		return ErrInvalidFormID
	}
	if r.EventID.Set && !r.EventID.Valid {
		return ErrInvalidReference.WithMessage("eventId must be a positive integer")
	}
	if r.CapturedByUserID.Set && !r.CapturedByUserID.Valid {
		return ErrInvalidReference.WithMessage("capturedByUserId must be a positive integer")
	}
	return r.Values.Err()
}

// NewLead is a validated lead ready to be written: one value per form field.
type NewLead struct {
	FormID           int64
	EventID          *int64
	CapturedByUserID *int64
	Values           []*Value
}

// FormRef is the denormalised form shown with a lead.
type FormRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EventRef is the denormalised event shown with a lead.
type EventRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserRef is the denormalised capturing user shown with a lead.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListItem is a lead with its form, event and capturing user resolved.
type ListItem struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Form       FormRef   `json:"form"`
	Event      *EventRef `json:"event"`
	CapturedBy *UserRef  `json:"capturedBy"`
	Values     []*Value  `json:"values"`
}

// Pagination defaults for the lead list.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ListFilter narrows lead queries.
type ListFilter struct {
	FormID *int64
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limit.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
