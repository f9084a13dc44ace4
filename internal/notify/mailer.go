// Package notify delivers report results to schedule receivers over SMTP.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
)

// DeliveryError indicates an email could not be handed to the SMTP server.
type DeliveryError struct {
	Recipients []string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver mail to %s: %v", strings.Join(e.Recipients, ", "), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Message is one outgoing email.
type Message struct {
	To          []string
	CC          []string
	Subject     string
	HTMLBody    string
	Attachments []string // file paths
}

// Mailer sends messages through the configured SMTP relay.
type Mailer struct {
	cfg config.EmailConfig
	// email_domain appended to receivers given as bare usernames
	domain string
	log    *zap.Logger
}

// NewMailer creates a mailer from the email section of the configuration.
func NewMailer(cfg *config.Config, log *zap.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg.Email,
		domain: cfg.Workflow.EmailDomain,
		log:    log,
	}
}

// CompleteAddress appends the configured mail domain to addresses that were
// given as bare usernames. Addresses already containing "@" pass through.
func (m *Mailer) CompleteAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.Contains(addr, "@") {
		return addr
	}
	return addr + m.domain
}

// CompleteAddresses applies CompleteAddress to every entry, dropping blanks.
func (m *Mailer) CompleteAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if completed := m.CompleteAddress(a); completed != "" {
			out = append(out, completed)
		}
	}
	return out
}

// Send delivers the message. Recipient addresses are completed with the mail
// domain before sending.
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	to := m.CompleteAddresses(msg.To)
	cc := m.CompleteAddresses(msg.CC)
	recipients := append(append([]string{}, to...), cc...)
	if len(recipients) == 0 {
		return &DeliveryError{Err: fmt.Errorf("no recipients")}
	}

	content, err := m.buildMessage(to, cc, msg)
	if err != nil {
		return &DeliveryError{Recipients: recipients, Err: err}
	}

	if err := m.sendSMTP(ctx, recipients, content); err != nil {
		return &DeliveryError{Recipients: recipients, Err: err}
	}

	m.log.Info("Mail delivered",
		zap.Strings("to", to),
		zap.Strings("cc", cc),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// buildMessage renders the RFC 2045 multipart payload: an HTML body part
// followed by one base64 part per attachment.
func (m *Mailer) buildMessage(to, cc []string, msg *Message) ([]byte, error) {
	var builder strings.Builder

	from := m.CompleteAddress(m.cfg.Username)
	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	if len(cc) > 0 {
		builder.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(cc, ", ")))
	}
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	builder.WriteString("MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&builder)
	builder.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", writer.Boundary()))
	builder.WriteString("\r\n")

	body, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, err
	}

	for _, path := range msg.Attachments {
		if err := attach(writer, path); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}

func attach(writer *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}

	name := filepath.Base(path)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
	})
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	// wrap at 76 columns per RFC 2045
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

// sendSMTP hands the rendered message to the relay.
func (m *Mailer) sendSMTP(ctx context.Context, recipients []string, content []byte) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.UseTLS {
		tlsConfig := &tls.Config{ServerName: m.cfg.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.CompleteAddress(m.cfg.Username)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	data, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := data.Write(content); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := data.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
