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

// CounselorRepo is the counselor table. Load counters are only changed with
// single UPDATE statements so concurrent transactions never lose an update.
type CounselorRepo struct {
	q db.DBTX
}

func NewCounselorRepo(q db.DBTX) *CounselorRepo {
	return &CounselorRepo{q: q}
}

const counselorColumns = `c.id, c.name, c.email, c.phone, c.expertise, c.languages,
	c.availability, c.current_load, c.max_capacity, c.created_at, c.updated_at`

func (r *CounselorRepo) Create(ctx context.Context, c *models.Counselor) error {
	expertise, err := encodeStrings(c.Expertise)
	if err != nil {
		return err
	}
	languages, err := encodeStrings(c.Languages)
	if err != nil {
		return err
	}
	if c.Availability == "" {
		c.Availability = models.AvailabilityActive
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `INSERT INTO counselors (name, email, phone, expertise, languages, availability,
		current_load, max_capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err = r.q.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, expertise, languages, c.Availability,
		c.CurrentLoad, c.MaxCapacity, db.FormatTime(c.CreatedAt), db.FormatTime(c.UpdatedAt),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("inserting counselor: %w", err)
	}
	return nil
}

func (r *CounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+counselorColumns+` FROM counselors c WHERE c.id = $1`, id)
	c, err := scanCounselor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("counselor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every counselor ordered by id.
func (r *CounselorRepo) List(ctx context.Context) ([]*models.Counselor, error) {
	return r.list(ctx, `SELECT `+counselorColumns+` FROM counselors c ORDER BY c.id ASC`)
}

// ListActive returns counselors with availability ACTIVE, least loaded first.
func (r *CounselorRepo) ListActive(ctx context.Context) ([]*models.Counselor, error) {
	return r.list(ctx, `SELECT `+counselorColumns+` FROM counselors c
		WHERE c.availability = $1 ORDER BY c.current_load ASC, c.id ASC`, models.AvailabilityActive)
}

// ListAbsentOn returns counselors without a PRESENT or PARTIAL attendance
// row for the given YYYY-MM-DD date.
func (r *CounselorRepo) ListAbsentOn(ctx context.Context, date string) ([]*models.Counselor, error) {
	return r.list(ctx, `SELECT `+counselorColumns+` FROM counselors c
		WHERE NOT EXISTS (
			SELECT 1 FROM daily_attendance a
			WHERE a.counselor_id = c.id AND a.attendance_date = $1 AND a.status IN ($2, $3)
		)
		ORDER BY c.id ASC`, date, models.AttendancePresent, models.AttendancePartial)
}

func (r *CounselorRepo) list(ctx context.Context, query string, args ...any) ([]*models.Counselor, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing counselors: %w", err)
	}
	defer rows.Close()

	counselors := []*models.Counselor{}
	for rows.Next() {
		c, err := scanCounselor(rows)
		if err != nil {
			return nil, err
		}
		counselors = append(counselors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counselors: %w", err)
	}
	return counselors, nil
}

// Update writes the admin-editable fields. Load is left untouched.
func (r *CounselorRepo) Update(ctx context.Context, c *models.Counselor) error {
	expertise, err := encodeStrings(c.Expertise)
	if err != nil {
		return err
	}
	languages, err := encodeStrings(c.Languages)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()

	result, err := r.q.ExecContext(ctx, `UPDATE counselors SET name = $1, email = $2, phone = $3,
		expertise = $4, languages = $5, availability = $6, max_capacity = $7, updated_at = $8
		WHERE id = $9`,
		c.Name, c.Email, c.Phone, expertise, languages, c.Availability, c.MaxCapacity,
		db.FormatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("updating counselor: %w", err)
	}
	return requireRow(result, "counselor", c.ID)
}

// IncrementLoad adds one lead to the counselor without a capacity check.
func (r *CounselorRepo) IncrementLoad(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE counselors SET current_load = current_load + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementing counselor load: %w", err)
	}
	return requireRow(result, "counselor", id)
}

// IncrementLoadWithinCapacity adds one lead only while current_load is below
// max_capacity, evaluated by the database at write time.
func (r *CounselorRepo) IncrementLoadWithinCapacity(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE counselors SET current_load = current_load + 1
		WHERE id = $1 AND current_load < max_capacity`, id)
	if err != nil {
		return fmt.Errorf("incrementing counselor load: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking load update: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("counselor %d: %w", id, ErrAtCapacity)
}

// DecrementLoad removes one lead, never going below zero. It reports whether
// the stored load was already zero, which means the counters had drifted.
func (r *CounselorRepo) DecrementLoad(ctx context.Context, id int64) (wasZero bool, err error) {
	var current int
	err = r.q.QueryRowContext(ctx, `SELECT current_load FROM counselors WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("counselor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("reading counselor load: %w", err)
	}

	_, err = r.q.ExecContext(ctx, `UPDATE counselors
		SET current_load = CASE WHEN current_load > 0 THEN current_load - 1 ELSE 0 END
		WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("decrementing counselor load: %w", err)
	}
	return current <= 0, nil
}

func scanCounselor(s rowScanner) (*models.Counselor, error) {
	var (
		c                    models.Counselor
		expertise, languages string
		createdAt, updatedAt db.NullTime
	)
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &expertise, &languages,
		&c.Availability, &c.CurrentLoad, &c.MaxCapacity, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning counselor: %w", err)
	}
	if c.Expertise, err = decodeStrings(expertise); err != nil {
		return nil, err
	}
	if c.Languages, err = decodeStrings(languages); err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = createdAt.Time, updatedAt.Time
	return &c, nil
}

func requireRow(result sql.Result, entity string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s update: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}
