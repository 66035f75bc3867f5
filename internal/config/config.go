package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	RedisAddr              string
	RedisPassword          string
	RedisTLS               bool
	LeadRateLimitPerMinute int

	// Mail Configuration
	MailEnabled     bool
	MailProvider    string
	MailSMTPHost    string
	MailSMTPPort    int
	MailSMTPUser    string
	MailSMTPPass    string
	MailFrom        string
	MailFromName    string
	MailLeadsNotify string
	MailCompanyName string
	MailSendTimeout time.Duration
	SendGridAPIKey  string

	// AWS Configuration (SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Mail providers accepted by MAIL_PROVIDER.
const (
	MailProviderSMTP     = "smtp"
	MailProviderSendGrid = "sendgrid"
	MailProviderSES      = "ses"
	MailProviderStub     = "stub"
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisTLS:               getEnvAsBool("REDIS_TLS", false),
		LeadRateLimitPerMinute: getEnvAsInt("LEAD_RATE_LIMIT_PER_MINUTE", 30),

		// Mail Configuration
		MailEnabled:     getEnvAsBool("MAIL_ENABLED", false),
		MailProvider:    strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", MailProviderSMTP))),
		MailSMTPHost:    getEnv("MAIL_SMTP_HOST", ""),
		MailSMTPPort:    getEnvAsInt("MAIL_SMTP_PORT", 587),
		MailSMTPUser:    getEnv("MAIL_SMTP_USER", ""),
		MailSMTPPass:    getEnv("MAIL_SMTP_PASS", ""),
		MailFrom:        getEnv("MAIL_FROM", ""),
		MailFromName:    getEnv("MAIL_FROM_NAME", "LeadRadar"),
		MailLeadsNotify: getEnv("MAIL_LEADS_NOTIFY", ""),
		MailCompanyName: getEnv("MAIL_COMPANY_NAME", ""),
		MailSendTimeout: getEnvAsDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),

		// AWS Configuration (SES)
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// UsesDatabase reports whether a Postgres connection is configured. Without
// one the API runs on in-memory repositories.
func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
