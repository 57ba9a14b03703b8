package models

import "time"

// Counselor availability
const (
	AvailabilityActive   = "ACTIVE"
	AvailabilityInactive = "INACTIVE"
)

// Counselor is an admissions counselor with expertise, languages and a lead budget.
type Counselor struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Expertise    []string  `json:"expertise"`
	Languages    []string  `json:"languages"`
	Availability string    `json:"availability"`
	CurrentLoad  int       `json:"current_load"`
	MaxCapacity  int       `json:"max_capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the counselor accepts new leads.
func (c *Counselor) IsActive() bool {
	return c.Availability == AvailabilityActive
}

// LoadPercentage is currentLoad / maxCapacity * 100. A non-positive capacity
// counts as full.
func (c *Counselor) LoadPercentage() float64 {
	if c.MaxCapacity <= 0 {
		return 100
	}
	return float64(c.CurrentLoad) / float64(c.MaxCapacity) * 100
}
