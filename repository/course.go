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

type CourseRepo struct {
	q db.DBTX
}

func NewCourseRepo(q db.DBTX) *CourseRepo {
	return &CourseRepo{q: q}
}

const courseColumns = `id, name, description, duration, is_active, created_at, updated_at`

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	err := r.q.QueryRowContext(ctx, `INSERT INTO courses (name, description, duration, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Name, c.Description, c.Duration, c.IsActive, db.FormatTime(now), db.FormatTime(now),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func (r *CourseRepo) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	c, err := scanCourse(r.q.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c, err
}

// List returns courses ordered by id, optionally only the active ones.
func (r *CourseRepo) List(ctx context.Context, activeOnly bool) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating courses: %w", err)
	}
	return courses, nil
}

func (r *CourseRepo) Update(ctx context.Context, c *models.Course) error {
	c.UpdatedAt = time.Now().UTC()
	result, err := r.q.ExecContext(ctx, `UPDATE courses SET name = $1, description = $2, duration = $3,
		is_active = $4, updated_at = $5 WHERE id = $6`,
		c.Name, c.Description, c.Duration, c.IsActive, db.FormatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("updating course: %w", err)
	}
	return requireRow(result, "course", c.ID)
}

func scanCourse(s rowScanner) (*models.Course, error) {
	var (
		c                    models.Course
		createdAt, updatedAt db.NullTime
	)
	err := s.Scan(&c.ID, &c.Name, &c.Description, &c.Duration, &c.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning course: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = createdAt.Time, updatedAt.Time
	return &c, nil
}
