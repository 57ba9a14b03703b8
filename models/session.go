package models

import "time"

// Counseling session status
const (
	SessionScheduled   = "SCHEDULED"
	SessionCompleted   = "COMPLETED"
	SessionCancelled   = "CANCELLED"
	SessionRescheduled = "RESCHEDULED"
)

// ReassignmentMarker is matched as a substring of session remarks by the
// operations dashboard to find sessions waiting for a new counselor.
const ReassignmentMarker = "requires reassignment"

// ReleasedSessionRemark is written to sessions cancelled because their
// counselor went offline.
const ReleasedSessionRemark = "Counselor went offline - " + ReassignmentMarker

// CounselingSession is a scheduled meeting between a lead and a counselor.
type CounselingSession struct {
	ID            int64     `json:"id"`
	LeadID        int64     `json:"lead_id"`
	CounselorID   int64     `json:"counselor_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
	Remarks       string    `json:"remarks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
