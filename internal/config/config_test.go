package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("MAIL_ENABLED", "")
	t.Setenv("MAIL_PROVIDER", "")
	t.Setenv("MAIL_SEND_TIMEOUT", "")
	t.Setenv("LEAD_RATE_LIMIT_PER_MINUTE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.UsesDatabase() {
		t.Fatalf("expected in-memory mode without DATABASE_URL")
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Fatalf("expected wildcard cors default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MailEnabled {
		t.Fatalf("expected mail disabled by default")
	}
	if cfg.MailProvider != MailProviderSMTP {
		t.Fatalf("expected smtp provider default, got %s", cfg.MailProvider)
	}
	if cfg.MailSMTPPort != 587 {
		t.Fatalf("expected default smtp port, got %d", cfg.MailSMTPPort)
	}
	if cfg.MailSendTimeout != 10*time.Second {
		t.Fatalf("expected default mail timeout, got %s", cfg.MailSendTimeout)
	}
	if cfg.LeadRateLimitPerMinute != 30 {
		t.Fatalf("expected default rate limit, got %d", cfg.LeadRateLimitPerMinute)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, ,https://app.example.com")
	t.Setenv("MAIL_ENABLED", "true")
	t.Setenv("MAIL_PROVIDER", " SES ")
	t.Setenv("MAIL_SMTP_PORT", "465")
	t.Setenv("MAIL_LEADS_NOTIFY", "sales@example.com")
	t.Setenv("MAIL_SEND_TIMEOUT", "3s")
	t.Setenv("LEAD_RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if !cfg.UsesDatabase() {
		t.Fatalf("expected database mode")
	}
	want := []string{"https://admin.example.com", "https://app.example.com"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("expected cors override %v, got %v", want, cfg.CORSAllowedOrigins)
	}
	if !cfg.MailEnabled {
		t.Fatalf("expected mail enabled")
	}
	if cfg.MailProvider != MailProviderSES {
		t.Fatalf("expected provider normalised to ses, got %q", cfg.MailProvider)
	}
	if cfg.MailSMTPPort != 465 {
		t.Fatalf("expected smtp port override, got %d", cfg.MailSMTPPort)
	}
	if cfg.MailLeadsNotify != "sales@example.com" {
		t.Fatalf("expected notify override, got %s", cfg.MailLeadsNotify)
	}
	if cfg.MailSendTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.MailSendTimeout)
	}
	if cfg.LeadRateLimitPerMinute != 5 {
		t.Fatalf("expected rate limit override, got %d", cfg.LeadRateLimitPerMinute)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAIL_ENABLED", "sometimes")
	t.Setenv("MAIL_SMTP_PORT", "abc")
	t.Setenv("MAIL_SEND_TIMEOUT", "soon")
	cfg := Load()
	if cfg.MailEnabled {
		t.Fatalf("expected malformed bool to fall back to false")
	}
	if cfg.MailSMTPPort != 587 {
		t.Fatalf("expected malformed port to fall back, got %d", cfg.MailSMTPPort)
	}
	if cfg.MailSendTimeout != 10*time.Second {
		t.Fatalf("expected malformed duration to fall back, got %s", cfg.MailSendTimeout)
	}
}
