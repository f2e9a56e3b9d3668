package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrSMTPNotConfigured is returned by SMTPDispatcher.Send when no SMTP host
// or sender address is configured.
var ErrSMTPNotConfigured = errors.New("smtp not configured")

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultSMTPConfig returns STARTTLS on the submission port.
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Port:    587,
		UseTLS:  true,
		Timeout: 10 * time.Second,
	}
}

// Configured reports whether enough is set to attempt delivery.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

var _ Dispatcher = (*SMTPDispatcher)(nil)

// SMTPDispatcher delivers alerts as multipart/alternative email.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewSMTPDispatcher creates an SMTPDispatcher.
func NewSMTPDispatcher(cfg SMTPConfig, logger *zap.Logger) *SMTPDispatcher {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPDispatcher{cfg: cfg, now: time.Now, logger: logger}
}

// Send delivers n.Message to n.Recipient.
func (d *SMTPDispatcher) Send(ctx context.Context, n Notification) error {
	if !d.cfg.Configured() {
		d.logger.Warn("smtp not configured, alert not delivered",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Message.Subject),
		)
		return ErrSMTPNotConfigured
	}

	body, err := d.buildMessage(n)
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if d.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: d.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if d.cfg.Username != "" {
		auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(d.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(n.Recipient); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end data: %w", err)
	}
	if err := client.Quit(); err != nil {
		d.logger.Debug("smtp quit failed", zap.Error(err))
	}

	d.logger.Info("alert email sent",
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Message.Subject),
	)
	return nil
}

// buildMessage renders headers and a multipart/alternative body. The HTML
// part is omitted when the message has none.
func (d *SMTPDispatcher) buildMessage(n Notification) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", d.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", n.Message.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", d.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if n.Message.HTML == "" {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(n.Message.Plain)
		return buf.Bytes(), nil
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	for _, p := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", n.Message.Plain},
		{"text/html; charset=utf-8", n.Message.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}
