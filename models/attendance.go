package models

import "time"

// Attendance status
const (
	AttendancePresent = "PRESENT"
	AttendancePartial = "PARTIAL"
	AttendanceAbsent  = "ABSENT"
)

// DateLayout is the calendar-day key format of DailyAttendance.
const DateLayout = "2006-01-02"

// DailyAttendance is one counselor's record for one calendar day.
type DailyAttendance struct {
	ID            int64      `json:"id"`
	CounselorID   int64      `json:"counselor_id"`
	CounselorName string     `json:"counselor_name,omitempty"`
	Date          string     `json:"date"`
	LoginTime     *time.Time `json:"login_time,omitempty"`
	LogoutTime    *time.Time `json:"logout_time,omitempty"`
	ActiveMinutes int        `json:"active_minutes"`
	Status        string     `json:"status"`
}
