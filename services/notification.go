package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"admissions-crm/logger"
	"admissions-crm/models"
)

const emailLayout = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: %s; color: white; padding: 20px; text-align: center; border-radius: 5px; }
        .content { background-color: #f9f9f9; padding: 20px; margin-top: 20px; border-radius: 5px; }
        .info { background-color: #e8f5e9; padding: 15px; margin: 15px 0; border-left: 4px solid #4CAF50; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h2>%s</h2></div>
        <div class="content">%s
            <p>Best regards,<br/><strong>University Admissions Team</strong></p>
        </div>
    </div>
</body>
</html>`

func renderEmail(color, title, content string) string {
	return fmt.Sprintf(emailLayout, color, html.EscapeString(title), content)
}

// LeadAssigned queues the counselor-assigned email to the student and the
// lead-assigned email to the counselor. Failures are logged, never returned.
func (m *Mailer) LeadAssigned(ctx context.Context, lead *models.Lead, counselor *models.Counselor) {
	if lead == nil || counselor == nil {
		return
	}
	e := html.EscapeString

	if lead.Email != "" {
		body := renderEmail("#4CAF50", "Your Assigned Counselor", fmt.Sprintf(`
            <p>Dear <strong>%s</strong>,</p>
            <p>Your enquiry has been assigned to a counselor who will guide you through admission.</p>
            <div class="info">
                <p><strong>Counselor:</strong> %s</p>
                <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
                <p><strong>Phone:</strong> %s</p>
            </div>`, e(lead.Name), e(counselor.Name), e(counselor.Email), e(counselor.Email), e(counselor.Phone)))
		subject := fmt.Sprintf("Welcome %s - Your Counselor Assignment", lead.Name)
		if err := m.SendEmail(ctx, lead.Email, subject, body); err != nil {
			logger.Warn("Failed to queue welcome email to %s: %v", lead.Email, err)
		}
	}

	if counselor.Email != "" {
		body := renderEmail("#2196F3", "New Lead Assigned", fmt.Sprintf(`
            <p>Dear <strong>%s</strong>,</p>
            <p>A new lead has been assigned to you.</p>
            <div class="info">
                <p><strong>Name:</strong> %s</p>
                <p><strong>Email:</strong> %s</p>
                <p><strong>Phone:</strong> %s</p>
                <p><strong>Source:</strong> %s</p>
                <p><strong>Reason:</strong> %s</p>
            </div>`, e(counselor.Name), e(lead.Name), e(lead.Email), e(lead.Phone), e(lead.LeadSource), e(lead.AssignmentReason)))
		subject := fmt.Sprintf("New Lead Assigned: %s", lead.Name)
		if err := m.SendEmail(ctx, counselor.Email, subject, body); err != nil {
			logger.Warn("Failed to queue lead notification to %s: %v", counselor.Email, err)
		}
	}
}

// SessionsReleased tells the admissions mailbox which sessions were
// cancelled because the counselor went offline.
func (m *Mailer) SessionsReleased(ctx context.Context, counselor *models.Counselor, sessions []*models.CounselingSession) {
	if m.adminEmail == "" || counselor == nil || len(sessions) == 0 {
		return
	}

	var rows strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&rows, "<li>Session #%d for lead #%d at %s</li>", s.ID, s.LeadID, s.ScheduledDate.Format(time.RFC1123))
	}
	body := renderEmail("#f44336", "Sessions Need Reassignment", fmt.Sprintf(`
            <p><strong>%s</strong> went offline with %d upcoming session(s).</p>
            <ul>%s</ul>
            <p>The leads were released and are waiting for a new counselor.</p>`,
		html.EscapeString(counselor.Name), len(sessions), rows.String()))

	subject := fmt.Sprintf("%d session(s) released by %s", len(sessions), counselor.Name)
	if err := m.SendEmail(ctx, m.adminEmail, subject, body); err != nil {
		logger.Warn("Failed to queue release notification: %v", err)
	}
}
