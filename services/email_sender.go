package services

import (
	"context"
	"fmt"
	"strconv"

	"admissions-crm/config"
	"admissions-crm/logger"
	"admissions-crm/services/kafka"

	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers queued emails over SMTP.
type SMTPSender struct {
	from   string
	dialer mailDialer
}

// NewSMTPSender builds a sender from the SMTP_* settings. A missing sender
// address or credentials is reported when sending, not here.
func NewSMTPSender(cfg config.Config) *SMTPSender {
	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil || port == 0 {
		port = 587
	}

	s := &SMTPSender{from: from}
	if cfg.SMTPUser != "" && cfg.SMTPPass != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	}
	return s
}

// SendEmailDirect sends one email synchronously.
func (s *SMTPSender) SendEmailDirect(to, subject, body string, attachment ...string) error {
	if s.from == "" {
		return fmt.Errorf("email sender not configured (set EMAIL_FROM or SMTP_USER)")
	}
	if s.dialer == nil {
		return fmt.Errorf("smtp credentials not configured (set SMTP_USER and SMTP_PASS)")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	if len(attachment) > 0 && attachment[0] != "" {
		m.Attach(attachment[0])
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		logger.Error("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	logger.Info("Email sent to: %s", to)
	return nil
}

// HandleEmailEvent is the consumer handler for email.send events.
func (s *SMTPSender) HandleEmailEvent(_ context.Context, msg kafka.Message) error {
	var p EmailPayload
	if err := msg.Decode(&p); err != nil {
		return fmt.Errorf("decoding email event: %w", err)
	}
	if p.Recipient == "" {
		return fmt.Errorf("invalid recipient in email event")
	}
	if p.Subject == "" {
		return fmt.Errorf("invalid subject in email event")
	}
	if p.Body == "" {
		return fmt.Errorf("invalid body in email event")
	}
	return s.SendEmailDirect(p.Recipient, p.Subject, p.Body, p.Attachment)
}
