package leads

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/leadradar/internal/forms"
)

// Repository writes leads. Create stores the lead and all of its values
// atomically.
type Repository interface {
	Create(ctx context.Context, lead *NewLead) (*Lead, error)
}

// QueryRepository reads leads with their form, event and user resolved.
// List returns newest first; Export returns every matching lead oldest first.
type QueryRepository interface {
	List(ctx context.Context, filter ListFilter) ([]*ListItem, error)
	Export(ctx context.Context, formID *int64) ([]*ListItem, error)
}

// FormLookup resolves forms for denormalisation.
type FormLookup interface {
	Get(ctx context.Context, id int64) (*forms.Form, error)
}

// InMemoryRepository keeps leads, events and users in process memory. It
// implements both Repository and QueryRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	forms       FormLookup
	leads       []*Lead
	events      map[int64]EventRef
	users       map[int64]UserRef
	nextLeadID  int64
	nextValueID int64
	nextEventID int64
	nextUserID  int64
	now         func() time.Time
}

// NewInMemoryRepository creates an empty repository resolving forms via lookup.
func NewInMemoryRepository(lookup FormLookup) *InMemoryRepository {
	return &InMemoryRepository{
		forms:  lookup,
		events: make(map[int64]EventRef),
		users:  make(map[int64]UserRef),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddEvent registers a reference event and returns it.
func (r *InMemoryRepository) AddEvent(name string) EventRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextEventID++
	ev := EventRef{ID: r.nextEventID, Name: name}
	r.events[ev.ID] = ev
	return ev
}

// AddUser registers a reference user and returns it.
func (r *InMemoryRepository) AddUser(name, email string) UserRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextUserID++
	u := UserRef{ID: r.nextUserID, Name: name, Email: email}
	r.users[u.ID] = u
	return u
}

// Create stores a lead with its values. The form is re-read so a form
// archived after validation rejects the lead.
func (r *InMemoryRepository) Create(ctx context.Context, in *NewLead) (*Lead, error) {
	if r.forms != nil {
		form, err := r.forms.Get(ctx, in.FormID)
		if err != nil {
			return nil, err
		}
		if form.Status == forms.StatusArchived {
			return nil, ErrFormArchived
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var event *EventRef
	if in.EventID != nil {
		ev, ok := r.events[*in.EventID]
		if !ok {
			return nil, ErrInvalidReference.WithMessage("Event %d does not exist", *in.EventID)
		}
		event = &ev
	}
	if in.CapturedByUserID != nil {
		if _, ok := r.users[*in.CapturedByUserID]; !ok {
			return nil, ErrInvalidReference.WithMessage("User %d does not exist", *in.CapturedByUserID)
		}
	}

	r.nextLeadID++
	lead := &Lead{
		ID:               r.nextLeadID,
		FormID:           in.FormID,
		EventID:          in.EventID,
		CapturedByUserID: in.CapturedByUserID,
		CreatedAt:        r.now(),
		Event:            event,
		Values:           make([]*Value, 0, len(in.Values)),
	}
	for _, v := range in.Values {
		r.nextValueID++
		cp := *v
		cp.ID = r.nextValueID
		cp.LeadID = lead.ID
		lead.Values = append(lead.Values, &cp)
	}
	r.leads = append(r.leads, lead)
	return cloneLead(lead), nil
}

// List returns leads newest first with limit and offset applied.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*ListItem, error) {
	filter.Normalize()
	items, err := r.collect(ctx, filter.FormID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if filter.Offset >= len(items) {
		return []*ListItem{}, nil
	}
	items = items[filter.Offset:]
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

// Export returns every matching lead oldest first.
func (r *InMemoryRepository) Export(ctx context.Context, formID *int64) ([]*ListItem, error) {
	items, err := r.collect(ctx, formID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *InMemoryRepository) collect(ctx context.Context, formID *int64) ([]*ListItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formCache := make(map[int64]*forms.Form)
	items := make([]*ListItem, 0, len(r.leads))
	for _, lead := range r.leads {
		if formID != nil && lead.FormID != *formID {
			continue
		}
		form, ok := formCache[lead.FormID]
		if !ok {
			f, err := r.forms.Get(ctx, lead.FormID)
			if err != nil && !errors.Is(err, forms.ErrFormNotFound) {
				return nil, err
			}
			form = f
			formCache[lead.FormID] = form
		}
		items = append(items, r.toListItem(lead, form))
	}
	return items, nil
}

func (r *InMemoryRepository) toListItem(lead *Lead, form *forms.Form) *ListItem {
	item := &ListItem{
		ID:        lead.ID,
		CreatedAt: lead.CreatedAt,
		Form:      FormRef{ID: lead.FormID},
		Values:    make([]*Value, 0, len(lead.Values)),
	}
	fieldsByID := make(map[int64]*forms.Field)
	if form != nil {
		item.Form.Name = form.Name
		for _, f := range form.Fields {
			fieldsByID[f.ID] = f
		}
	}
	if lead.EventID != nil {
		if ev, ok := r.events[*lead.EventID]; ok {
			item.Event = &ev
		}
	}
	if lead.CapturedByUserID != nil {
		if u, ok := r.users[*lead.CapturedByUserID]; ok {
			item.CapturedBy = &u
		}
	}
	for _, v := range lead.Values {
		cp := *v
		if v.FieldID != nil {
			if f, ok := fieldsByID[*v.FieldID]; ok {
				cp.FieldKey = f.Key
				cp.FieldLabel = f.Label
			} else {
				cp.FieldID = nil
			}
		}
		item.Values = append(item.Values, &cp)
	}
	return item
}

func cloneLead(l *Lead) *Lead {
	cp := *l
	cp.Values = make([]*Value, len(l.Values))
	for i, v := range l.Values {
		vc := *v
		cp.Values[i] = &vc
	}
	return &cp
}
