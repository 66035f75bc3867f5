package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/leadradar/internal/apperror"
	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/internal/notify"
	"github.com/wolfman30/leadradar/internal/observability/metrics"
	"github.com/wolfman30/leadradar/pkg/logging"
)

var leadsTracer = otel.Tracer("leadradar/leads")

// FormStore is the read access the lead service needs on forms.
type FormStore interface {
	FormLookup
	List(ctx context.Context, filter forms.ListFilter) ([]*forms.Form, error)
}

// Notifier is told about every committed lead.
type Notifier interface {
	LeadCreated(ctx context.Context, summary notify.LeadSummary) notify.Outcome
}

// SubmitSummary describes what was stored for a submission.
type SubmitSummary struct {
	FieldCount            int `json:"fieldCount"`
	RequiredFieldsMissing int `json:"requiredFieldsMissing"`
}

// MailStatus reports the notification outcome of a submission.
type MailStatus struct {
	Status notify.Outcome `json:"status"`
}

// SubmitResult is the response body of a successful submission.
type SubmitResult struct {
	Lead    *Lead         `json:"lead"`
	Summary SubmitSummary `json:"summary"`
	Mail    MailStatus    `json:"mail"`
}

// Service validates and stores leads, then dispatches notifications.
type Service struct {
	forms    FormStore
	repo     Repository
	query    QueryRepository
	notifier Notifier
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
}

// NewService wires the lead service. notifier and m may be nil.
func NewService(formStore FormStore, repo Repository, query QueryRepository, notifier Notifier, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		forms:    formStore,
		repo:     repo,
		query:    query,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Submit validates req against the current form schema and stores the lead
// with one value per field. Notifications run after the commit and never
// fail the submission.
func (s *Service) Submit(ctx context.Context, req *CreateLeadRequest) (*SubmitResult, error) {
	start := time.Now()
	ctx, span := leadsTracer.Start(ctx, "leads.submit")
	defer span.End()

	result, err := s.submit(ctx, req)
	s.metrics.ObserveSubmission(resultLabel(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("leadradar.lead_id", result.Lead.ID),
		attribute.String("leadradar.mail_status", string(result.Mail.Status)),
	)
	return result, nil
}

func (s *Service) submit(ctx context.Context, req *CreateLeadRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	formID := req.FormID.Value
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("leadradar.form_id", formID))

	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	values, err := ValidateSubmission(form, req.Values)
	if err != nil {
		return nil, err
	}

	lead, err := s.repo.Create(ctx, &NewLead{
		FormID:           formID,
		EventID:          req.EventID.Ptr(),
		CapturedByUserID: req.CapturedByUserID.Ptr(),
		Values:           values,
	})
	if err != nil {
		return nil, err
	}
	lead.Form = &FormRef{ID: form.ID, Name: form.Name}
	s.logger.Info("lead created", "lead_id", lead.ID, "form_id", formID, "values", len(lead.Values))

	outcome := notify.OutcomeDisabled
	if s.notifier != nil {
		outcome = s.notifier.LeadCreated(ctx, summaryFor(form, lead))
	}
	s.metrics.ObserveNotification(string(outcome))
	if outcome == notify.OutcomeError || outcome == notify.OutcomePartial {
		s.logger.Warn("lead notification incomplete", "lead_id", lead.ID, "outcome", outcome)
	}

	return &SubmitResult{
		Lead:    lead,
		Summary: SubmitSummary{FieldCount: len(lead.Values)},
		Mail:    MailStatus{Status: outcome},
	}, nil
}

// List returns leads for the admin list.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*ListItem, error) {
	filter.Normalize()
	return s.query.List(ctx, filter)
}

// Export builds the CSV export for one form or, with a nil formID, for all
// forms. An unknown form yields an export with only the base columns.
func (s *Service) Export(ctx context.Context, formID *int64) (*Export, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.export")
	defer span.End()

	selected, err := s.exportForms(ctx, formID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load forms failed")
		return nil, err
	}
	items, err := s.query.Export(ctx, formID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load leads failed")
		return nil, fmt.Errorf("leads: export: %w", err)
	}
	span.SetAttributes(attribute.Int("leads.count", len(items)))

	s.metrics.ObserveExport(formID != nil)
	return BuildExport(selected, items), nil
}

func (s *Service) exportForms(ctx context.Context, formID *int64) ([]*forms.Form, error) {
	if formID == nil {
		return s.forms.List(ctx, forms.ListFilter{})
	}
	form, err := s.forms.Get(ctx, *formID)
	if errors.Is(err, forms.ErrFormNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*forms.Form{form}, nil
}

func summaryFor(form *forms.Form, lead *Lead) notify.LeadSummary {
	byKey := form.FieldByKey()
	summary := notify.LeadSummary{
		LeadID:    lead.ID,
		FormName:  form.Name,
		CreatedAt: lead.CreatedAt,
		Fields:    make([]notify.FieldValue, 0, len(lead.Values)),
	}
	if lead.Event != nil {
		summary.EventName = lead.Event.Name
	}
	for _, v := range lead.Values {
		fv := notify.FieldValue{Key: v.FieldKey, Label: v.FieldLabel, Value: v.Value}
		if f, ok := byKey[v.FieldKey]; ok {
			fv.Type = f.Type
		}
		summary.Fields = append(summary.Fields, fv)
	}
	return summary
}

func resultLabel(err error) string {
	if err == nil {
		return "created"
	}
	return apperror.As(err).Code
}
