package models

import "time"

// Presence status
const (
	PresenceActive  = "ACTIVE"
	PresenceAway    = "AWAY"
	PresenceOffline = "OFFLINE"
)

// CounselorPresence is the live activity state of one counselor.
type CounselorPresence struct {
	CounselorID        int64      `json:"counselor_id"`
	Status             string     `json:"status"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	LastActivityAt     *time.Time `json:"last_activity_at,omitempty"`
	LastStatusChange   *time.Time `json:"last_status_change,omitempty"`
	ActiveMinutesToday int        `json:"active_minutes_today"`
	TotalActiveMinutes int        `json:"total_active_minutes"`
}

// LastSeen is the last activity timestamp, or the last login when no
// heartbeat has been recorded.
func (p *CounselorPresence) LastSeen() *time.Time {
	if p.LastActivityAt != nil {
		return p.LastActivityAt
	}
	return p.LastLoginAt
}

// PresenceStatus is the read model returned by status queries. A counselor
// without a presence row reads as OFFLINE.
type PresenceStatus struct {
	CounselorID        int64      `json:"counselor_id"`
	Status             string     `json:"status"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	LastActivityAt     *time.Time `json:"last_activity_at,omitempty"`
	ActiveMinutesToday int        `json:"active_minutes_today"`
	TotalActiveMinutes int        `json:"total_active_minutes"`
}
