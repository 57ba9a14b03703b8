package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout is fixed width so text comparisons order like time comparisons
// on backends that store timestamps as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const dateLayout = "2006-01-02"

var parseLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	dateLayout,
}

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// NullableTime renders t for storage, or nil.
func NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// FormatDate renders the calendar day of t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// NullTime scans a timestamp stored either as a driver time.Time or as text.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func (n *NullTime) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into NullTime", src)
	}
}

func (n *NullTime) parse(s string) error {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// Value implements driver.Valuer so NullTime can be passed as an argument.
func (n NullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return FormatTime(n.Time), nil
}

// Ptr returns a pointer to the time, or nil.
func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// DateString scans a DATE column (time.Time on postgres, text on sqlite)
// into its YYYY-MM-DD form.
type DateString string

func (d *DateString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = DateString(v.Format(dateLayout))
	case string:
		*d = DateString(truncateDate(v))
	case []byte:
		*d = DateString(truncateDate(string(v)))
	default:
		return fmt.Errorf("cannot scan %T into DateString", src)
	}
	return nil
}

func truncateDate(s string) string {
	if len(s) > len(dateLayout) {
		return s[:len(dateLayout)]
	}
	return s
}
