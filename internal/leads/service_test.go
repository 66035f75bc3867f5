package leads

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/internal/notify"
	"github.com/wolfman30/leadradar/internal/observability/metrics"
	"github.com/wolfman30/leadradar/pkg/logging"
)

type recordingNotifier struct {
	outcome   notify.Outcome
	summaries []notify.LeadSummary
}

func (n *recordingNotifier) LeadCreated(_ context.Context, summary notify.LeadSummary) notify.Outcome {
	n.summaries = append(n.summaries, summary)
	return n.outcome
}

type serviceFixture struct {
	service  *Service
	forms    *forms.InMemoryRepository
	leads    *InMemoryRepository
	notifier *recordingNotifier
	registry *prometheus.Registry
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	formRepo := forms.NewInMemoryRepository()
	leadRepo := NewInMemoryRepository(formRepo)
	notifier := &recordingNotifier{outcome: notify.OutcomeOK}
	reg := prometheus.NewRegistry()
	svc := NewService(formRepo, leadRepo, leadRepo, notifier, metrics.NewLeadMetrics(reg), logging.Discard())
	return &serviceFixture{service: svc, forms: formRepo, leads: leadRepo, notifier: notifier, registry: reg}
}

func decodeRequest(t *testing.T, body string) *CreateLeadRequest {
	t.Helper()
	var req CreateLeadRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestService_Submit(t *testing.T) {
	fx := newServiceFixture(t)
	form := seedForm(t, fx.forms, "Expo",
		`{"label":"Email","key":"email","type":"EMAIL","required":true}`,
		`{"label":"Name","key":"name","type":"TEXT"}`,
	)
	event := fx.leads.AddEvent("Swiss Expo")

	body := `{"formId":"` + itoa(form.ID) + `","eventId":` + itoa(event.ID) + `,"values":{"email":"a@b.com"}}`
	res, err := fx.service.Submit(context.Background(), decodeRequest(t, body))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.FieldCount)
	assert.Equal(t, 0, res.Summary.RequiredFieldsMissing)
	assert.Equal(t, notify.OutcomeOK, res.Mail.Status)
	require.NotNil(t, res.Lead.Form)
	assert.Equal(t, "Expo", res.Lead.Form.Name)

	require.Len(t, fx.notifier.summaries, 1)
	summary := fx.notifier.summaries[0]
	assert.Equal(t, res.Lead.ID, summary.LeadID)
	assert.Equal(t, "Swiss Expo", summary.EventName)
	require.Len(t, summary.Fields, 2)
	assert.Equal(t, forms.FieldEmail, summary.Fields[0].Type)
	assert.Equal(t, "a@b.com", summary.Fields[0].Value)

	assert.Equal(t, 1.0, counterValue(t, fx.registry, "leadradar_leads_submissions_total", "created"))
}

func TestService_SubmitRejected(t *testing.T) {
	fx := newServiceFixture(t)
	form := seedForm(t, fx.forms, "Expo", `{"label":"Email","key":"email","type":"EMAIL","required":true}`)

	_, err := fx.service.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":{}}`))
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = fx.service.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":{"email":"a@b.com","fax":"1"}}`))
	assert.ErrorIs(t, err, ErrUnknownFieldKey)

	_, err = fx.service.Submit(context.Background(), decodeRequest(t, `{"formId":999,"values":{}}`))
	assert.ErrorIs(t, err, forms.ErrFormNotFound)

	_, err = fx.service.Submit(context.Background(), decodeRequest(t, `{"values":{}}`))
	assert.ErrorIs(t, err, ErrInvalidFormID)

	_, err = fx.forms.Archive(context.Background(), form.ID)
	require.NoError(t, err)
	_, err = fx.service.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":{"email":"a@b.com"}}`))
	assert.ErrorIs(t, err, ErrFormArchived)

	assert.Empty(t, fx.notifier.summaries, "rejected submissions never notify")
	items, err := fx.service.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "rejected submissions never store a lead")
	export, err := fx.service.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, export.Rows, "rejected submissions never store values")

	assert.Equal(t, 1.0, counterValue(t, fx.registry, "leadradar_leads_submissions_total", "MISSING_REQUIRED_FIELD"))
	assert.Equal(t, 1.0, counterValue(t, fx.registry, "leadradar_leads_submissions_total", "UNKNOWN_FIELD_KEY"))
	assert.Equal(t, 1.0, counterValue(t, fx.registry, "leadradar_leads_submissions_total", "FORM_ARCHIVED"))
}

func TestService_SubmitNotificationFailureKeepsLead(t *testing.T) {
	fx := newServiceFixture(t)
	fx.notifier.outcome = notify.OutcomeError
	form := seedForm(t, fx.forms, "Expo", `{"label":"Email","key":"email","type":"EMAIL"}`)

	res, err := fx.service.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":{"email":"a@b.com"}}`))
	require.NoError(t, err)
	assert.Equal(t, notify.OutcomeError, res.Mail.Status)

	items, err := fx.service.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_SubmitWithoutNotifier(t *testing.T) {
	formRepo := forms.NewInMemoryRepository()
	leadRepo := NewInMemoryRepository(formRepo)
	svc := NewService(formRepo, leadRepo, leadRepo, nil, nil, logging.Discard())
	form := seedForm(t, formRepo, "Expo", `{"label":"Name","key":"name","type":"TEXT"}`)

	res, err := svc.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":[{"fieldKey":"name","value":"Ada"}]}`))
	require.NoError(t, err)
	assert.Equal(t, notify.OutcomeDisabled, res.Mail.Status)
}

type failingLeadRepo struct{}

func (failingLeadRepo) Create(context.Context, *NewLead) (*Lead, error) {
	return nil, errors.New("disk full")
}

func TestService_SubmitRepositoryError(t *testing.T) {
	formRepo := forms.NewInMemoryRepository()
	svc := NewService(formRepo, failingLeadRepo{}, NewInMemoryRepository(formRepo), nil, nil, logging.Discard())
	form := seedForm(t, formRepo, "Expo", `{"label":"Name","key":"name","type":"TEXT"}`)

	_, err := svc.Submit(context.Background(), decodeRequest(t, `{"formId":`+itoa(form.ID)+`,"values":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestService_Export(t *testing.T) {
	fx := newServiceFixture(t)
	a := seedForm(t, fx.forms, "A", `{"label":"Email","key":"email","type":"EMAIL"}`)
	b := seedForm(t, fx.forms, "B", `{"label":"Phone","key":"phone","type":"PHONE"}`)
	ctx := context.Background()

	_, err := fx.service.Submit(ctx, decodeRequest(t, `{"formId":`+itoa(a.ID)+`,"values":{"email":"a@b.com"}}`))
	require.NoError(t, err)
	_, err = fx.service.Submit(ctx, decodeRequest(t, `{"formId":`+itoa(b.ID)+`,"values":{"phone":"123"}}`))
	require.NoError(t, err)

	all, err := fx.service.Export(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, BaseHeaders...), "Email (email)", "Phone (phone)"), all.Headers)
	assert.Len(t, all.Rows, 2)

	one, err := fx.service.Export(ctx, &b.ID)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, BaseHeaders...), "Phone (phone)"), one.Headers)
	require.Len(t, one.Rows, 1)
	assert.Equal(t, "123", one.Rows[0][6])

	missing := int64(999)
	none, err := fx.service.Export(ctx, &missing)
	require.NoError(t, err)
	assert.Equal(t, BaseHeaders, none.Headers)
	assert.Empty(t, none.Rows)

	assert.Equal(t, 1.0, counterValue(t, fx.registry, "leadradar_leads_exports_total", "all"))
	assert.Equal(t, 2.0, counterValue(t, fx.registry, "leadradar_leads_exports_total", "form"))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// counterValue reads a labelled counter from the fixture registry.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}
