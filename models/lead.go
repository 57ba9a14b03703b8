package models

import (
	"time"
)

// Lead status
const (
	LeadNew       = "NEW"
	LeadContacted = "CONTACTED"
	LeadFollowUp  = "FOLLOW_UP"
	LeadEnrolled  = "ENROLLED"
	LeadRejected  = "REJECTED"
	LeadOnHold    = "ON_HOLD"
)

// Lead represents an admissions inquiry
type Lead struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	Education           string    `json:"education"`
	LeadSource          string    `json:"lead_source"`
	PreferredLanguage   string    `json:"preferred_language"`
	CourseID            *int64    `json:"course_id,omitempty"`
	AssignedCounselorID *int64    `json:"assigned_counselor_id,omitempty"`
	AutoAssigned        bool      `json:"auto_assigned"`
	AssignmentReason    string    `json:"assignment_reason"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// LeadResponse is the structured response for API responses
type LeadResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Education           string `json:"education"`
	LeadSource          string `json:"lead_source"`
	PreferredLanguage   string `json:"preferred_language"`
	CourseID            *int64 `json:"course_id,omitempty"`
	AssignedCounselorID *int64 `json:"assigned_counselor_id,omitempty"`
	CounselorName       string `json:"counselor_name"`
	AutoAssigned        bool   `json:"auto_assigned"`
	AssignmentReason    string `json:"assignment_reason"`
	Status              string `json:"status"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// ToResponse converts Lead to LeadResponse with formatted timestamps
func (l *Lead) ToResponse() LeadResponse {
	return LeadResponse{
		ID:                  l.ID,
		Name:                l.Name,
		Email:               l.Email,
		Phone:               l.Phone,
		Education:           l.Education,
		LeadSource:          l.LeadSource,
		PreferredLanguage:   l.PreferredLanguage,
		CourseID:            l.CourseID,
		AssignedCounselorID: l.AssignedCounselorID,
		CounselorName:       "", // Will be populated by handler
		AutoAssigned:        l.AutoAssigned,
		AssignmentReason:    l.AssignmentReason,
		Status:              l.Status,
		CreatedAt:           l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           l.UpdatedAt.Format(time.RFC3339),
	}
}
