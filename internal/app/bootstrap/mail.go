package bootstrap

import (
	appconfig "github.com/wolfman30/leadradar/internal/config"
	"github.com/wolfman30/leadradar/internal/notify"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// BuildEmailSender selects the mail transport named by MAIL_PROVIDER. It
// returns the sender, the provider actually used and, when no sender could be
// built, the reason. ses needs a client; pass nil for the other providers.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) (notify.EmailSender, string, string) {
	if cfg == nil {
		return nil, "", "missing config"
	}
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.MailEnabled {
		return nil, "", "MAIL_ENABLED is not true"
	}

	switch cfg.MailProvider {
	case appconfig.MailProviderSMTP:
		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.MailSMTPHost,
			Port:      cfg.MailSMTPPort,
			Username:  cfg.MailSMTPUser,
			Password:  cfg.MailSMTPPass,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger)
		if sender == nil {
			return nil, appconfig.MailProviderSMTP, "MAIL_SMTP_HOST not set"
		}
		return sender, appconfig.MailProviderSMTP, ""
	case appconfig.MailProviderSendGrid:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger)
		if sender == nil {
			return nil, appconfig.MailProviderSendGrid, "SENDGRID_API_KEY not set"
		}
		return sender, appconfig.MailProviderSendGrid, ""
	case appconfig.MailProviderSES:
		sender := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger)
		if sender == nil {
			return nil, appconfig.MailProviderSES, "SES client unavailable"
		}
		return sender, appconfig.MailProviderSES, ""
	case appconfig.MailProviderStub:
		return notify.NewStubEmailSender(logger), appconfig.MailProviderStub, ""
	default:
		return nil, cfg.MailProvider, "unknown MAIL_PROVIDER"
	}
}

// BuildNotifier wires the lead notification service. A nil sender yields a
// service that reports every dispatch as disabled.
func BuildNotifier(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) *notify.Service {
	if cfg == nil {
		return nil
	}
	return notify.NewService(sender, notify.Config{
		Enabled:     cfg.MailEnabled && sender != nil,
		NotifyTo:    cfg.MailLeadsNotify,
		CompanyName: cfg.MailCompanyName,
		Timeout:     cfg.MailSendTimeout,
	}, logger)
}
