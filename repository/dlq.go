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

// DLQRepo stores events that could not be published or processed.
type DLQRepo struct {
	q db.DBTX
}

func NewDLQRepo(q db.DBTX) *DLQRepo {
	return &DLQRepo{q: q}
}

const dlqColumns = `id, topic, message_key, payload, error_message, retry_count, resolved, notes, created_at, resolved_at`

func (r *DLQRepo) Insert(ctx context.Context, m *models.DLQMessage) error {
	m.CreatedAt = time.Now().UTC()
	err := r.q.QueryRowContext(ctx, `INSERT INTO dlq_messages (topic, message_key, payload, error_message,
		retry_count, resolved, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		m.Topic, m.MessageKey, m.Payload, m.ErrorMessage, m.RetryCount, false, m.Notes, db.FormatTime(m.CreatedAt),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("inserting dlq message: %w", err)
	}
	return nil
}

func (r *DLQRepo) GetByID(ctx context.Context, id int64) (*models.DLQMessage, error) {
	m, err := scanDLQ(r.q.QueryRowContext(ctx, `SELECT `+dlqColumns+` FROM dlq_messages WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dlq message %d: %w", id, ErrNotFound)
	}
	return m, err
}

// ListUnresolved returns up to limit unresolved messages, oldest first.
func (r *DLQRepo) ListUnresolved(ctx context.Context, limit int) ([]*models.DLQMessage, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+dlqColumns+` FROM dlq_messages
		WHERE resolved = $1 ORDER BY id ASC LIMIT $2`, false, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dlq messages: %w", err)
	}
	defer rows.Close()

	out := []*models.DLQMessage{}
	for rows.Next() {
		m, err := scanDLQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dlq messages: %w", err)
	}
	return out, nil
}

// RecordRetry bumps retry_count and stores the latest error, if any.
func (r *DLQRepo) RecordRetry(ctx context.Context, id int64, lastErr string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE dlq_messages SET retry_count = retry_count + 1,
		error_message = CASE WHEN $1 = '' THEN error_message ELSE $2 END WHERE id = $3`, lastErr, lastErr, id)
	if err != nil {
		return fmt.Errorf("recording dlq retry: %w", err)
	}
	return requireRow(result, "dlq message", id)
}

// Resolve marks a message handled.
func (r *DLQRepo) Resolve(ctx context.Context, id int64, notes string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE dlq_messages SET resolved = $1, notes = $2, resolved_at = $3
		WHERE id = $4`, true, notes, db.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("resolving dlq message: %w", err)
	}
	return requireRow(result, "dlq message", id)
}

// DLQStats summarises the dead letter table.
type DLQStats struct {
	Total      int            `json:"total"`
	Unresolved int            `json:"unresolved"`
	ByTopic    map[string]int `json:"unresolved_by_topic"`
}

func (r *DLQRepo) Stats(ctx context.Context) (*DLQStats, error) {
	stats := &DLQStats{ByTopic: map[string]int{}}
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM dlq_messages`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("counting dlq messages: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT topic, COUNT(*) FROM dlq_messages
		WHERE resolved = $1 GROUP BY topic`, false)
	if err != nil {
		return nil, fmt.Errorf("grouping dlq messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			topic string
			n     int
		)
		if err := rows.Scan(&topic, &n); err != nil {
			return nil, fmt.Errorf("scanning dlq stats: %w", err)
		}
		stats.ByTopic[topic] = n
		stats.Unresolved += n
	}
	return stats, rows.Err()
}

func scanDLQ(s rowScanner) (*models.DLQMessage, error) {
	var (
		m                     models.DLQMessage
		createdAt, resolvedAt db.NullTime
	)
	err := s.Scan(&m.ID, &m.Topic, &m.MessageKey, &m.Payload, &m.ErrorMessage, &m.RetryCount,
		&m.Resolved, &m.Notes, &createdAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning dlq message: %w", err)
	}
	m.CreatedAt, m.ResolvedAt = createdAt.Time, resolvedAt.Ptr()
	return &m, nil
}
