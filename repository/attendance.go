package repository

import (
	"context"
	"fmt"
	"time"

	"admissions-crm/db"
	"admissions-crm/models"
)

// AttendanceRepo is the daily_attendance table, one row per counselor per day.
type AttendanceRepo struct {
	q db.DBTX
}

func NewAttendanceRepo(q db.DBTX) *AttendanceRepo {
	return &AttendanceRepo{q: q}
}

// UpsertLogin records a login on date: login_time = at, status = PRESENT.
func (r *AttendanceRepo) UpsertLogin(ctx context.Context, counselorID int64, date string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO daily_attendance (counselor_id, attendance_date, login_time, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (counselor_id, attendance_date) DO UPDATE SET
			login_time = excluded.login_time,
			status = excluded.status`,
		counselorID, date, db.FormatTime(at), models.AttendancePresent)
	if err != nil {
		return fmt.Errorf("upserting attendance login: %w", err)
	}
	return nil
}

// RecordLogout closes the day: logout_time, active minutes and a PARTIAL
// status. A missing row (login on an earlier day) is created.
func (r *AttendanceRepo) RecordLogout(ctx context.Context, counselorID int64, date string, at time.Time, activeMinutes int) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO daily_attendance (counselor_id, attendance_date, logout_time, active_minutes, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (counselor_id, attendance_date) DO UPDATE SET
			logout_time = excluded.logout_time,
			active_minutes = excluded.active_minutes,
			status = excluded.status`,
		counselorID, date, db.FormatTime(at), activeMinutes, models.AttendancePartial)
	if err != nil {
		return fmt.Errorf("recording attendance logout: %w", err)
	}
	return nil
}

// ListByDate returns the attendance rows of a day with counselor names.
func (r *AttendanceRepo) ListByDate(ctx context.Context, date string) ([]*models.DailyAttendance, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT a.id, a.counselor_id, c.name, a.attendance_date,
		a.login_time, a.logout_time, a.active_minutes, a.status
		FROM daily_attendance a
		JOIN counselors c ON c.id = a.counselor_id
		WHERE a.attendance_date = $1
		ORDER BY a.counselor_id ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	out := []*models.DailyAttendance{}
	for rows.Next() {
		var (
			a             models.DailyAttendance
			day           db.DateString
			login, logout db.NullTime
		)
		if err := rows.Scan(&a.ID, &a.CounselorID, &a.CounselorName, &day,
			&login, &logout, &a.ActiveMinutes, &a.Status); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		a.Date, a.LoginTime, a.LogoutTime = string(day), login.Ptr(), logout.Ptr()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attendance: %w", err)
	}
	return out, nil
}
