package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// Outcome classifies a dispatch attempt.
type Outcome string

const (
	OutcomeDisabled Outcome = "disabled"
	OutcomeOK       Outcome = "ok"
	OutcomePartial  Outcome = "partial"
	OutcomeError    Outcome = "error"
)

const defaultSendTimeout = 10 * time.Second

// Config controls lead notification dispatch.
type Config struct {
	Enabled     bool
	NotifyTo    string
	CompanyName string
	Timeout     time.Duration
}

// FieldValue is one submitted value with its field metadata.
type FieldValue struct {
	Key   string
	Label string
	Type  forms.FieldType
	Value string
}

// LeadSummary carries what the mails need about a freshly stored lead.
type LeadSummary struct {
	LeadID    int64
	FormName  string
	EventName string
	CreatedAt time.Time
	Fields    []FieldValue
}

// Service sends the visitor acknowledgement and the internal lead
// notification.
type Service struct {
	sender EmailSender
	cfg    Config
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(sender EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	cfg.NotifyTo = strings.TrimSpace(cfg.NotifyTo)
	return &Service{sender: sender, cfg: cfg, logger: logger}
}

// LeadCreated dispatches both mails concurrently and waits for them. Send
// failures are logged and folded into the returned Outcome.
func (s *Service) LeadCreated(ctx context.Context, summary LeadSummary) (outcome Outcome) {
	if s == nil || !s.cfg.Enabled || s.sender == nil {
		return OutcomeDisabled
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notify: dispatch panicked", "lead_id", summary.LeadID, "panic", r)
			outcome = OutcomeError
		}
	}()

	messages, err := s.compose(summary)
	if err != nil {
		s.logger.Error("notify: compose failed", "error", err, "lead_id", summary.LeadID)
		return OutcomeError
	}
	if len(messages) == 0 {
		return OutcomeDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	errs := make([]error, len(messages))
	var wg sync.WaitGroup
	for i, msg := range messages {
		wg.Add(1)
		go func(i int, msg EmailMessage) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("notify: send panicked: %v", r)
				}
			}()
			errs[i] = s.sender.Send(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			s.logger.Warn("notify: send failed", "error", err, "lead_id", summary.LeadID, "subject", messages[i].Subject)
		}
	}
	switch {
	case failed == 0:
		return OutcomeOK
	case failed == len(messages):
		return OutcomeError
	default:
		return OutcomePartial
	}
}

func (s *Service) compose(summary LeadSummary) ([]EmailMessage, error) {
	var messages []EmailMessage
	if to := VisitorEmail(summary.Fields); to != "" {
		msg, err := ThankYouMessage(to, VisitorName(summary.Fields), s.cfg.CompanyName, summary)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if s.cfg.NotifyTo != "" {
		msg, err := LeadNotifyMessage(s.cfg.NotifyTo, summary)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

var emailFieldNames = map[string]struct{}{
	"email":  {},
	"e-mail": {},
	"mail":   {},
}

// VisitorEmail picks the acknowledgement recipient: the first free-text
// field named like an email field whose value holds an address. EMAIL-typed
// fields are ignored.
func VisitorEmail(fields []FieldValue) string {
	for _, f := range fields {
		if !isFreeText(f.Type) || !looksLikeEmail(f.Value) {
			continue
		}
		if isEmailFieldName(f.Key) || isEmailFieldName(f.Label) {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// VisitorName builds the greeting name from firstName/lastName or name.
func VisitorName(fields []FieldValue) string {
	byKey := make(map[string]string, len(fields))
	for _, f := range fields {
		k := strings.ToLower(f.Key)
		if _, ok := byKey[k]; !ok {
			byKey[k] = strings.TrimSpace(f.Value)
		}
	}
	full := strings.TrimSpace(byKey["firstname"] + " " + byKey["lastname"])
	if full != "" {
		return full
	}
	return byKey["name"]
}

func isFreeText(t forms.FieldType) bool {
	return t == forms.FieldText || t == forms.FieldTextarea
}

func looksLikeEmail(v string) bool {
	return strings.Contains(v, "@")
}

func isEmailFieldName(name string) bool {
	_, ok := emailFieldNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
