// Package repository holds the SQL-backed stores for the CRM aggregates.
// Every repo runs over db.DBTX so a service can compose several of them in
// one transaction; entities reference each other only by id.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"admissions-crm/db"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAtCapacity is returned by the capacity-guarded load increment when
	// the counselor is already at max capacity.
	ErrAtCapacity = errors.New("counselor at capacity")
)

// Repos bundles the repositories bound to one DBTX.
type Repos struct {
	Counselors *CounselorRepo
	Courses    *CourseRepo
	Leads      *LeadRepo
	Sessions   *SessionRepo
	Presence   *PresenceRepo
	Attendance *AttendanceRepo
	DLQ        *DLQRepo
}

// New binds all repositories to q, which may be a pool or a transaction.
func New(q db.DBTX) *Repos {
	return &Repos{
		Counselors: NewCounselorRepo(q),
		Courses:    NewCourseRepo(q),
		Leads:      NewLeadRepo(q),
		Sessions:   NewSessionRepo(q),
		Presence:   NewPresenceRepo(q),
		Attendance: NewAttendanceRepo(q),
		DLQ:        NewDLQRepo(q),
	}
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding string set: %w", err)
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decoding string set %q: %w", raw, err)
	}
	return values, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
