package forms

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the storage operations for forms and their fields.
// Implementations validate normalized requests before writing.
type Repository interface {
	Create(ctx context.Context, req *CreateFormRequest) (*Form, error)
	List(ctx context.Context, filter ListFilter) ([]*Form, error)
	Get(ctx context.Context, id int64) (*Form, error)
	Update(ctx context.Context, id int64, req *UpdateFormRequest) (*Form, error)
	Archive(ctx context.Context, id int64) (*Form, error)

	CreateField(ctx context.Context, formID int64, req *CreateFieldRequest) (*Field, error)
	UpdateField(ctx context.Context, formID, fieldID int64, req *UpdateFieldRequest) (*Field, error)
	DeleteField(ctx context.Context, formID, fieldID int64) error
	ReorderFields(ctx context.Context, formID int64, order []int64) ([]*Field, error)
}

// InMemoryRepository keeps forms in process memory. It backs local
// development without DATABASE_URL and the handler tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	forms       map[int64]*Form
	nextFormID  int64
	nextFieldID int64
	now         func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		forms: make(map[int64]*Form),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new form.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateFormRequest) (*Form, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFormID++
	now := r.now()
	form := &Form{
		ID:          r.nextFormID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		Fields:      []*Field{},
	}
	r.forms[form.ID] = form
	return cloneForm(form), nil
}

// List returns forms newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Form, 0, len(r.forms))
	for _, f := range r.forms {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, cloneForm(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns a form with its ordered fields.
func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	form, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	return cloneForm(form), nil
}

// Update applies a partial update.
func (r *InMemoryRepository) Update(ctx context.Context, id int64, req *UpdateFormRequest) (*Form, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	updated := cloneForm(form)
	if err := req.Apply(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = r.now()
	r.forms[id] = updated
	return cloneForm(updated), nil
}

// Archive sets the form to ARCHIVED. Archiving twice is a no-op.
func (r *InMemoryRepository) Archive(ctx context.Context, id int64) (*Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	form, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	if form.Status != StatusArchived {
		form.Status = StatusArchived
		form.UpdatedAt = r.now()
	}
	return cloneForm(form), nil
}

// CreateField appends a field, defaulting its order to the end of the form.
func (r *InMemoryRepository) CreateField(ctx context.Context, formID int64, req *CreateFieldRequest) (*Field, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[formID]
	if !ok {
		return nil, ErrFormNotFound
	}
	maxOrder := 0
	for _, f := range form.Fields {
		if f.Key == req.Key {
			return nil, ErrDuplicateFieldKey.WithMessage("The field key %q is already used in this form", req.Key)
		}
		if f.Order > maxOrder {
			maxOrder = f.Order
		}
	}
	order := maxOrder + 1
	if req.Order != nil {
		order = *req.Order
	}
	options := req.ParsedOptions()
	if options == nil {
		options = []string{}
	}
	r.nextFieldID++
	field := &Field{
		ID:       r.nextFieldID,
		FormID:   formID,
		Key:      req.Key,
		Label:    req.Label,
		Type:     req.Type,
		Required: req.Required,
		Options:  options,
		Order:    order,
	}
	form.Fields = append(form.Fields, field)
	SortFields(form.Fields)
	form.UpdatedAt = r.now()
	return cloneField(field), nil
}

// UpdateField applies a partial update to a field of the form.
func (r *InMemoryRepository) UpdateField(ctx context.Context, formID, fieldID int64, req *UpdateFieldRequest) (*Field, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[formID]
	if !ok {
		return nil, ErrFieldNotFound
	}
	var target *Field
	for _, f := range form.Fields {
		if f.ID == fieldID {
			target = f
			break
		}
	}
	if target == nil {
		return nil, ErrFieldNotFound
	}
	if req.Key != nil {
		for _, f := range form.Fields {
			if f.ID != fieldID && f.Key == *req.Key {
				return nil, ErrDuplicateFieldKey
			}
		}
	}
	req.Apply(target)
	SortFields(form.Fields)
	form.UpdatedAt = r.now()
	return cloneField(target), nil
}

// DeleteField removes a field from the form.
func (r *InMemoryRepository) DeleteField(ctx context.Context, formID, fieldID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	form, ok := r.forms[formID]
	if !ok {
		return ErrFieldNotFound
	}
	for i, f := range form.Fields {
		if f.ID == fieldID {
			form.Fields = append(form.Fields[:i], form.Fields[i+1:]...)
			form.UpdatedAt = r.now()
			return nil
		}
	}
	return ErrFieldNotFound
}

// ReorderFields assigns order 1..N following the supplied permutation. The
// write lock makes the change atomic for readers.
func (r *InMemoryRepository) ReorderFields(ctx context.Context, formID int64, order []int64) ([]*Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	form, ok := r.forms[formID]
	if !ok {
		return nil, ErrFormNotFound
	}
	if err := ValidateFieldOrder(fieldIDs(form.Fields), order); err != nil {
		return nil, err
	}
	form.Fields = ApplyFieldOrder(form.Fields, order)
	form.UpdatedAt = r.now()
	return cloneFields(form.Fields), nil
}

func cloneForm(f *Form) *Form {
	cp := *f
	if f.Description != nil {
		desc := *f.Description
		cp.Description = &desc
	}
	cp.Fields = cloneFields(f.Fields)
	return &cp
}

func cloneFields(fields []*Field) []*Field {
	out := make([]*Field, len(fields))
	for i, f := range fields {
		out[i] = cloneField(f)
	}
	return out
}

func cloneField(f *Field) *Field {
	cp := *f
	if f.Options != nil {
		cp.Options = append([]string(nil), f.Options...)
	}
	return &cp
}
