package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"admissions-crm/db"
	"admissions-crm/models"
)

type PresenceRepo struct {
	q db.DBTX
}

func NewPresenceRepo(q db.DBTX) *PresenceRepo {
	return &PresenceRepo{q: q}
}

const presenceColumns = `counselor_id, status, last_login_at, last_activity_at, last_status_change,
	active_minutes_today, total_active_minutes`

func (r *PresenceRepo) Get(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	p, err := scanPresence(r.q.QueryRowContext(ctx,
		`SELECT `+presenceColumns+` FROM counselor_presence WHERE counselor_id = $1`, counselorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("presence for counselor %d: %w", counselorID, ErrNotFound)
	}
	return p, err
}

// GetForUpdate reads the row and locks it until the surrounding
// transaction ends. Every read-modify-write of presence goes through it.
func (r *PresenceRepo) GetForUpdate(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	p, err := scanPresence(r.q.QueryRowContext(ctx,
		`SELECT `+presenceColumns+` FROM counselor_presence WHERE counselor_id = $1 FOR UPDATE`, counselorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("presence for counselor %d: %w", counselorID, ErrNotFound)
	}
	return p, err
}

// Save inserts or replaces the presence row of p.CounselorID.
func (r *PresenceRepo) Save(ctx context.Context, p *models.CounselorPresence) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO counselor_presence (`+presenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (counselor_id) DO UPDATE SET
			status = excluded.status,
			last_login_at = excluded.last_login_at,
			last_activity_at = excluded.last_activity_at,
			last_status_change = excluded.last_status_change,
			active_minutes_today = excluded.active_minutes_today,
			total_active_minutes = excluded.total_active_minutes`,
		p.CounselorID, p.Status, db.NullableTime(p.LastLoginAt), db.NullableTime(p.LastActivityAt),
		db.NullableTime(p.LastStatusChange), p.ActiveMinutesToday, p.TotalActiveMinutes)
	if err != nil {
		return fmt.Errorf("saving presence: %w", err)
	}
	return nil
}

// ListByStatus returns presence rows in any of the given statuses.
func (r *PresenceRepo) ListByStatus(ctx context.Context, statuses ...string) ([]*models.CounselorPresence, error) {
	if len(statuses) == 0 {
		return []*models.CounselorPresence{}, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+presenceColumns+` FROM counselor_presence
		WHERE status IN (`+strings.Join(placeholders, ", ")+`) ORDER BY counselor_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing presence: %w", err)
	}
	defer rows.Close()

	out := []*models.CounselorPresence{}
	for rows.Next() {
		p, err := scanPresence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presence: %w", err)
	}
	return out, nil
}

// CountByStatus counts presence rows per status.
func (r *PresenceRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM counselor_presence GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting presence: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		models.PresenceActive:  0,
		models.PresenceAway:    0,
		models.PresenceOffline: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning presence count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanPresence(s rowScanner) (*models.CounselorPresence, error) {
	var (
		p                          models.CounselorPresence
		login, activity, changedAt db.NullTime
	)
	err := s.Scan(&p.CounselorID, &p.Status, &login, &activity, &changedAt,
		&p.ActiveMinutesToday, &p.TotalActiveMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning presence: %w", err)
	}
	p.LastLoginAt, p.LastActivityAt, p.LastStatusChange = login.Ptr(), activity.Ptr(), changedAt.Ptr()
	return &p, nil
}
