package assignment

import (
	"fmt"
	"strings"

	"admissions-crm/models"
)

// Score weights
const (
	expertiseMatchPoints = 40
	languageMatchPoints  = 30
	lowWorkloadPoints    = 20
	moderateLoadPoints   = 10
	noLoadPoints         = 10
)

// Reason labels
const (
	ReasonExpertise    = "Expertise match"
	ReasonLanguage     = "Language match"
	ReasonLowWorkload  = "Low workload"
	ReasonModerateLoad = "Moderate workload"
	ReasonNoLoad       = "No current load"
)

// ScoreCard is the result of scoring one counselor for one lead.
type ScoreCard struct {
	CounselorID    int64
	Score          int
	Reasons        []string
	LoadPercentage float64
	// Eligible is false for inactive counselors and counselors at or over
	// capacity; such cards carry no score.
	Eligible bool
}

// Score rates counselor c for lead given the name of the course the lead
// asked about. It has no side effects.
func Score(lead *models.Lead, c *models.Counselor, courseName string) ScoreCard {
	card := ScoreCard{CounselorID: c.ID, LoadPercentage: c.LoadPercentage()}
	if !c.IsActive() || card.LoadPercentage >= 100 {
		return card
	}
	card.Eligible = true

	if expertiseMatches(c.Expertise, courseName) {
		card.add(expertiseMatchPoints, ReasonExpertise)
	}
	if languageMatches(c.Languages, lead.PreferredLanguage) {
		card.add(languageMatchPoints, ReasonLanguage)
	}

	switch {
	case card.LoadPercentage < 50:
		card.add(lowWorkloadPoints, ReasonLowWorkload)
	case card.LoadPercentage < 80:
		card.add(moderateLoadPoints, ReasonModerateLoad)
	}
	if c.CurrentLoad == 0 {
		card.add(noLoadPoints, ReasonNoLoad)
	}
	return card
}

func (s *ScoreCard) add(points int, reason string) {
	s.Score += points
	s.Reasons = append(s.Reasons, reason)
}

// Reason renders the card as an assignment reason.
func (s ScoreCard) Reason() string {
	if len(s.Reasons) == 0 {
		return fmt.Sprintf("Auto-assigned (Score: %d)", s.Score)
	}
	return fmt.Sprintf("Auto-assigned: %s (Score: %d)", strings.Join(s.Reasons, ", "), s.Score)
}

// expertiseMatches is a case-insensitive substring match in either direction.
func expertiseMatches(expertise []string, courseName string) bool {
	course := strings.ToLower(strings.TrimSpace(courseName))
	if course == "" {
		return false
	}
	for _, e := range expertise {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if strings.Contains(course, e) || strings.Contains(e, course) {
			return true
		}
	}
	return false
}

func languageMatches(languages []string, preferred string) bool {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return false
	}
	for _, l := range languages {
		if strings.EqualFold(strings.TrimSpace(l), preferred) {
			return true
		}
	}
	return false
}
