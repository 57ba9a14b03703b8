package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions-crm/db"
	"admissions-crm/models"
)

// LeadRepo is the leads table. The assignment columns are written only
// through UpdateAssignment and Release.
type LeadRepo struct {
	q db.DBTX
}

func NewLeadRepo(q db.DBTX) *LeadRepo {
	return &LeadRepo{q: q}
}

// LeadFilter narrows List. Zero values mean "no filter".
type LeadFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Status        string
	CounselorID   *int64
	Unassigned    bool
	Limit         int
}

const leadColumns = `l.id, l.name, l.email, l.phone, l.education, l.lead_source, l.preferred_language,
	l.course_id, l.assigned_counselor_id, l.auto_assigned, l.assignment_reason, l.status,
	l.created_at, l.updated_at`

func (r *LeadRepo) Create(ctx context.Context, l *models.Lead) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	if l.Status == "" {
		l.Status = models.LeadNew
	}
	if l.AssignedCounselorID == nil {
		l.AutoAssigned = false
	}

	query := `INSERT INTO leads (name, email, phone, education, lead_source, preferred_language,
		course_id, assigned_counselor_id, auto_assigned, assignment_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		l.Name, l.Email, l.Phone, l.Education, l.LeadSource, l.PreferredLanguage,
		nullableInt64(l.CourseID), nullableInt64(l.AssignedCounselorID), l.AutoAssigned,
		l.AssignmentReason, l.Status, db.FormatTime(now), db.FormatTime(now),
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("inserting lead: %w", err)
	}
	return nil
}

func (r *LeadRepo) GetByID(ctx context.Context, id int64) (*models.Lead, error) {
	l, err := scanLead(r.q.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
	}
	return l, err
}

// ExistsByEmailOrPhone checks for a duplicate inquiry.
func (r *LeadRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE email = $1 OR phone = $2`, email, phone).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking duplicate lead: %w", err)
	}
	return count > 0, nil
}

func (r *LeadRepo) List(ctx context.Context, f LeadFilter) ([]*models.Lead, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CreatedAfter != nil {
		add("l.created_at >= $%d", db.FormatTime(*f.CreatedAfter))
	}
	if f.CreatedBefore != nil {
		add("l.created_at <= $%d", db.FormatTime(*f.CreatedBefore))
	}
	if f.Status != "" {
		add("l.status = $%d", f.Status)
	}
	if f.CounselorID != nil {
		add("l.assigned_counselor_id = $%d", *f.CounselorID)
	}
	if f.Unassigned {
		conds = append(conds, "l.assigned_counselor_id IS NULL")
	}

	query := `SELECT ` + leadColumns + ` FROM leads l`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY l.id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}
	return r.list(ctx, query, args...)
}

// ListStranded returns open leads still pointing at a counselor who is
// INACTIVE or whose presence is OFFLINE or has never been recorded.
func (r *LeadRepo) ListStranded(ctx context.Context) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads l
		JOIN counselors c ON c.id = l.assigned_counselor_id
		LEFT JOIN counselor_presence p ON p.counselor_id = c.id
		WHERE l.status IN ($1, $2, $3)
		AND (c.availability <> $4 OR p.counselor_id IS NULL OR p.status = $5)
		ORDER BY l.id ASC`
	return r.list(ctx, query,
		models.LeadNew, models.LeadContacted, models.LeadFollowUp,
		models.AvailabilityActive, models.PresenceOffline)
}

// CountUnassigned counts leads without a counselor.
func (r *LeadRepo) CountUnassigned(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE assigned_counselor_id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unassigned leads: %w", err)
	}
	return n, nil
}

func (r *LeadRepo) list(ctx context.Context, query string, args ...any) ([]*models.Lead, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	leads := []*models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leads: %w", err)
	}
	return leads, nil
}

// UpdateAssignment writes the counselor pointer, auto flag and reason.
// A nil counselor always stores auto_assigned = false.
func (r *LeadRepo) UpdateAssignment(ctx context.Context, id int64, counselorID *int64, autoAssigned bool, reason string) error {
	if counselorID == nil {
		autoAssigned = false
	}
	result, err := r.q.ExecContext(ctx, `UPDATE leads SET assigned_counselor_id = $1, auto_assigned = $2,
		assignment_reason = $3, updated_at = $4 WHERE id = $5`,
		nullableInt64(counselorID), autoAssigned, reason, db.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating lead assignment: %w", err)
	}
	return requireRow(result, "lead", id)
}

// Release clears the counselor pointer and puts the lead back to NEW.
func (r *LeadRepo) Release(ctx context.Context, id int64, reason string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE leads SET assigned_counselor_id = NULL, auto_assigned = $1,
		assignment_reason = $2, status = $3, updated_at = $4 WHERE id = $5`,
		false, reason, models.LeadNew, db.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("releasing lead: %w", err)
	}
	return requireRow(result, "lead", id)
}

// UpdateStatus changes the pipeline status of a lead.
func (r *LeadRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`,
		status, db.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating lead status: %w", err)
	}
	return requireRow(result, "lead", id)
}

func scanLead(s rowScanner) (*models.Lead, error) {
	var (
		l                    models.Lead
		courseID, counselor  sql.NullInt64
		createdAt, updatedAt db.NullTime
	)
	err := s.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Education, &l.LeadSource, &l.PreferredLanguage,
		&courseID, &counselor, &l.AutoAssigned, &l.AssignmentReason, &l.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning lead: %w", err)
	}
	if courseID.Valid {
		l.CourseID = &courseID.Int64
	}
	if counselor.Valid {
		l.AssignedCounselorID = &counselor.Int64
	}
	l.CreatedAt, l.UpdatedAt = createdAt.Time, updatedAt.Time
	return &l, nil
}
