package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"goldsmith-supplies/internal/config"
)

// ErrNotConfigured is returned when SMTP credentials are absent.
var ErrNotConfigured = errors.New("email service is not configured")

// ContactMessage is a contact-form submission forwarded to the shop mailbox.
type ContactMessage struct {
	Name    string
	Email   string
	Company string
	Subject string
	Message string
}

// Mailer forwards contact messages to a fixed mailbox.
type Mailer interface {
	SendContactMessage(msg ContactMessage) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

// New creates an SMTP-backed mailer from configuration.
func New(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{cfg: cfg}
}

// SendContactMessage sends the message to the configured mailbox with the
// sender's address as Reply-To.
func (m *smtpMailer) SendContactMessage(msg ContactMessage) error {
	if m.cfg.User == "" || m.cfg.Password == "" {
		return ErrNotConfigured
	}

	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "New Inquiry"
	}
	company := strings.TrimSpace(msg.Company)
	if company == "" {
		company = "N/A"
	}

	body := strings.Join([]string{
		"From: " + m.cfg.User,
		"To: " + m.cfg.To,
		"Reply-To: " + msg.Email,
		"Subject: Contact Form: " + subject,
		"",
		"Name: " + strings.TrimSpace(msg.Name),
		"Email: " + strings.TrimSpace(msg.Email),
		"Company: " + company,
		"",
		"Message:",
		strings.TrimSpace(msg.Message),
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.User, []string{m.cfg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send contact message: %w", err)
	}

	return nil
}
