package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// SMTPMailer delivers messages through a plain SMTP relay
type SMTPMailer struct {
	cfg *config.NotificationConfig
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(cfg *config.NotificationConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers a single message. Context cancellation is honored only
// before dialing; net/smtp does not support mid-session cancellation.
func (m *SMTPMailer) Send(ctx context.Context, msg *types.EmailMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.FromAddress, msg.To, msg.Subject, msg.Body)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	return nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development and test environments where no SMTP relay is configured.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a log-backed mailer
func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(_ context.Context, msg *types.EmailMessage) error {
	m.logger.WithFields(map[string]interface{}{
		"to":       msg.To,
		"subject":  msg.Subject,
		"grant_id": msg.GrantID,
	}).Info("Email delivery skipped (no SMTP relay configured)")
	return nil
}
