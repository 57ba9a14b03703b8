package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"admissions-crm/db"
	"admissions-crm/models"
)

type SessionRepo struct {
	q db.DBTX
}

func NewSessionRepo(q db.DBTX) *SessionRepo {
	return &SessionRepo{q: q}
}

// PendingReassignment is a cancelled session flagged for a new counselor,
// joined with the current state of its lead.
type PendingReassignment struct {
	Session             models.CounselingSession `json:"session"`
	LeadName            string                   `json:"lead_name"`
	LeadEmail           string                   `json:"lead_email"`
	LeadStatus          string                   `json:"lead_status"`
	AssignedCounselorID *int64                   `json:"assigned_counselor_id,omitempty"`
}

const sessionColumns = `s.id, s.lead_id, s.counselor_id, s.scheduled_date, s.status, s.remarks, s.created_at, s.updated_at`

func (r *SessionRepo) Create(ctx context.Context, s *models.CounselingSession) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Status == "" {
		s.Status = models.SessionScheduled
	}
	err := r.q.QueryRowContext(ctx, `INSERT INTO counseling_sessions (lead_id, counselor_id, scheduled_date,
		status, remarks, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.LeadID, s.CounselorID, db.FormatTime(s.ScheduledDate), s.Status, s.Remarks,
		db.FormatTime(now), db.FormatTime(now),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("inserting counseling session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id int64) (*models.CounselingSession, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM counseling_sessions s WHERE s.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("counseling session %d: %w", id, ErrNotFound)
	}
	return s, err
}

func (r *SessionRepo) ListByLead(ctx context.Context, leadID int64) ([]*models.CounselingSession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM counseling_sessions s
		WHERE s.lead_id = $1 ORDER BY s.scheduled_date ASC`, leadID)
}

// ListScheduledBefore returns the counselor's SCHEDULED sessions starting at
// or before cutoff, overdue ones included.
func (r *SessionRepo) ListScheduledBefore(ctx context.Context, counselorID int64, cutoff time.Time) ([]*models.CounselingSession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM counseling_sessions s
		WHERE s.counselor_id = $1 AND s.status = $2 AND s.scheduled_date <= $3
		ORDER BY s.scheduled_date ASC`,
		counselorID, models.SessionScheduled, db.FormatTime(cutoff))
}

// Cancel marks a SCHEDULED session CANCELLED with the given remarks. A
// session that is missing or no longer SCHEDULED gives ErrNotFound.
func (r *SessionRepo) Cancel(ctx context.Context, id int64, remarks string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE counseling_sessions SET status = $1, remarks = $2, updated_at = $3
		WHERE id = $4 AND status = $5`, models.SessionCancelled, remarks, db.FormatTime(time.Now()), id, models.SessionScheduled)
	if err != nil {
		return fmt.Errorf("cancelling counseling session: %w", err)
	}
	return requireRow(result, "counseling session", id)
}

// ListPendingReassignment returns cancelled sessions whose remarks carry
// models.ReassignmentMarker, newest first.
func (r *SessionRepo) ListPendingReassignment(ctx context.Context) ([]*PendingReassignment, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+sessionColumns+`, l.name, l.email, l.status, l.assigned_counselor_id
		FROM counseling_sessions s
		JOIN leads l ON l.id = s.lead_id
		WHERE s.status = $1 AND s.remarks LIKE $2
		ORDER BY s.updated_at DESC, s.id DESC`,
		models.SessionCancelled, "%"+models.ReassignmentMarker+"%")
	if err != nil {
		return nil, fmt.Errorf("listing pending reassignments: %w", err)
	}
	defer rows.Close()

	pending := []*PendingReassignment{}
	for rows.Next() {
		var (
			p                               PendingReassignment
			scheduled, createdAt, updatedAt db.NullTime
			counselor                       sql.NullInt64
		)
		err := rows.Scan(&p.Session.ID, &p.Session.LeadID, &p.Session.CounselorID, &scheduled,
			&p.Session.Status, &p.Session.Remarks, &createdAt, &updatedAt,
			&p.LeadName, &p.LeadEmail, &p.LeadStatus, &counselor)
		if err != nil {
			return nil, fmt.Errorf("scanning pending reassignment: %w", err)
		}
		p.Session.ScheduledDate, p.Session.CreatedAt, p.Session.UpdatedAt = scheduled.Time, createdAt.Time, updatedAt.Time
		if counselor.Valid {
			p.AssignedCounselorID = &counselor.Int64
		}
		pending = append(pending, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending reassignments: %w", err)
	}
	return pending, nil
}

func (r *SessionRepo) list(ctx context.Context, query string, args ...any) ([]*models.CounselingSession, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing counseling sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.CounselingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counseling sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s rowScanner) (*models.CounselingSession, error) {
	var (
		cs                              models.CounselingSession
		scheduled, createdAt, updatedAt db.NullTime
	)
	err := s.Scan(&cs.ID, &cs.LeadID, &cs.CounselorID, &scheduled, &cs.Status, &cs.Remarks, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning counseling session: %w", err)
	}
	cs.ScheduledDate, cs.CreatedAt, cs.UpdatedAt = scheduled.Time, createdAt.Time, updatedAt.Time
	return &cs, nil
}
