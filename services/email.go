package services

import (
	"context"
	"fmt"

	"admissions-crm/logger"
	"admissions-crm/services/kafka"
)

// EmailPayload is the data of an email.send event.
type EmailPayload struct {
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
}

// Mailer queues emails as events. Delivery happens in the email consumer,
// see SMTPSender.HandleEmailEvent.
type Mailer struct {
	publisher  kafka.Publisher
	topic      string
	adminEmail string
}

func NewMailer(publisher kafka.Publisher, topic, adminEmail string) *Mailer {
	return &Mailer{publisher: publisher, topic: topic, adminEmail: adminEmail}
}

// SendEmail publishes an email.send event for async delivery.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string, attachment ...string) error {
	if to == "" {
		return fmt.Errorf("email recipient is required")
	}
	logger.Debug("Publishing email event. Recipient: %s, Subject: %s", to, subject)

	payload := EmailPayload{Recipient: to, Subject: subject, Body: body}
	if len(attachment) > 0 {
		payload.Attachment = attachment[0]
	}

	if err := m.publisher.Publish(ctx, m.topic, "email-"+to, kafka.NewEvent(kafka.EventEmailSend, payload)); err != nil {
		logger.Warn("Failed to publish email event: %v", err)
		return fmt.Errorf("failed to queue email: %w", err)
	}
	return nil
}
