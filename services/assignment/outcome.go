package assignment

import "admissions-crm/models"

// OutcomeKind says whether a counselor was found.
type OutcomeKind int

const (
	Unassigned OutcomeKind = iota
	Assigned
)

func (k OutcomeKind) String() string {
	if k == Assigned {
		return "ASSIGNED"
	}
	return "UNASSIGNED"
}

// Outcome is the always-successful result of counselor selection. An
// Unassigned outcome carries no counselor and a reason saying why.
type Outcome struct {
	Kind         OutcomeKind       `json:"kind"`
	Counselor    *models.Counselor `json:"counselor,omitempty"`
	AutoAssigned bool              `json:"auto_assigned"`
	Reason       string            `json:"assignment_reason"`
	Score        int               `json:"score"`
}

func assigned(c *models.Counselor, auto bool, reason string, score int) Outcome {
	return Outcome{Kind: Assigned, Counselor: c, AutoAssigned: auto, Reason: reason, Score: score}
}

func unassigned(reason string) Outcome {
	return Outcome{Kind: Unassigned, Reason: reason}
}

// CounselorID returns the chosen counselor id, or nil.
func (o Outcome) CounselorID() *int64 {
	if o.Kind != Assigned || o.Counselor == nil {
		return nil
	}
	id := o.Counselor.ID
	return &id
}
