package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/leadradar/pkg/logging"
)

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewSMTPSender creates an SMTP sender. It returns nil without a host.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Host == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger, now: time.Now}
}

// Send delivers msg as multipart/alternative with text and HTML parts.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}
	body, err := buildMIMEMessage(from, msg, s.now())
	if err != nil {
		return fmt.Errorf("notify: build message: %w", err)
	}

	client, conn, err := s.dial(ctx)
	if err != nil {
		s.logger.Error("smtp connect failed", "error", err, "host", s.cfg.Host)
		return fmt.Errorf("notify: smtp connect: %w", err)
	}
	defer conn.Close()
	defer client.Close()

	if err := s.deliver(client, from.Address, msg.To, body); err != nil {
		s.logger.Error("smtp send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: smtp send: %w", err)
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("creating smtp client: %w", err)
	}
	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				conn.Close()
				return nil, nil, fmt.Errorf("starting TLS: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("authenticating: %w", err)
		}
	}
	return client, conn, nil
}

func (s *SMTPSender) deliver(client *smtp.Client, from, to string, body []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// buildMIMEMessage renders an RFC 5322 message with a multipart/alternative
// body. The HTML part is omitted when msg.HTML is empty.
func buildMIMEMessage(from mail.Address, msg EmailMessage, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	writeHeader := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	writeHeader("From", from.String())
	writeHeader("To", to.String())
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now.UTC().Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@leadradar>", uuid.NewString()))
	writeHeader("MIME-Version", "1.0")

	mw := multipart.NewWriter(&buf)
	writeHeader("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	if err := writePart(mw, "text/plain; charset=UTF-8", msg.Body); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(mw, "text/html; charset=UTF-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return err
	}
	return qp.Close()
}

var _ EmailSender = (*SMTPSender)(nil)
