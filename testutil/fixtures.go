package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"admissions-crm/models"

	"github.com/google/uuid"
)

var testPhoneCounter atomic.Int64

func uniqueEmail(name string) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return fmt.Sprintf("%s.%s@example.test", local, uuid.NewString()[:8])
}

func uniquePhone() string {
	return fmt.Sprintf("+9190000%05d", testPhoneCounter.Add(1))
}

// Counselor options
type CounselorOption func(*models.Counselor)

func WithExpertise(e ...string) CounselorOption {
	return func(c *models.Counselor) {
		c.Expertise = e
	}
}

func WithLanguages(l ...string) CounselorOption {
	return func(c *models.Counselor) {
		c.Languages = l
	}
}

func WithLoad(current, max int) CounselorOption {
	return func(c *models.Counselor) {
		c.CurrentLoad = current
		c.MaxCapacity = max
	}
}

func WithAvailability(a string) CounselorOption {
	return func(c *models.Counselor) {
		c.Availability = a
	}
}

func NewTestCounselor(name string, opts ...CounselorOption) *models.Counselor {
	c := &models.Counselor{
		Name:         name,
		Email:        uniqueEmail(name),
		Phone:        uniquePhone(),
		Expertise:    []string{},
		Languages:    []string{},
		Availability: models.AvailabilityActive,
		MaxCapacity:  10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewTestCourse(name string) *models.Course {
	return &models.Course{
		Name:        name,
		Description: name + " programme",
		Duration:    "12 months",
		IsActive:    true,
	}
}

// Lead options
type LeadOption func(*models.Lead)

func WithCourse(id int64) LeadOption {
	return func(l *models.Lead) {
		l.CourseID = &id
	}
}

func WithLanguage(lang string) LeadOption {
	return func(l *models.Lead) {
		l.PreferredLanguage = lang
	}
}

func WithCounselor(id int64, auto bool) LeadOption {
	return func(l *models.Lead) {
		l.AssignedCounselorID = &id
		l.AutoAssigned = auto
	}
}

func WithLeadStatus(s string) LeadOption {
	return func(l *models.Lead) {
		l.Status = s
	}
}

func NewTestLead(name string, opts ...LeadOption) *models.Lead {
	l := &models.Lead{
		Name:       name,
		Email:      uniqueEmail(name),
		Phone:      uniquePhone(),
		Education:  "B.Sc",
		LeadSource: "website",
		Status:     models.LeadNew,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func NewTestSession(leadID, counselorID int64, at time.Time) *models.CounselingSession {
	return &models.CounselingSession{
		LeadID:        leadID,
		CounselorID:   counselorID,
		ScheduledDate: at,
		Status:        models.SessionScheduled,
	}
}
