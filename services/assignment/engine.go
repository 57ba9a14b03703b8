// Package assignment picks a counselor for each lead and keeps counselor
// load counters in step with lead assignments.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"admissions-crm/db"
	apperrors "admissions-crm/errors"
	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/kafka"
)

// Fallback causes
const (
	CauseCourseNotFound     = "Course not found"
	CauseNoActiveCounselors = "No active counselors available"
	CauseNoneMeetCriteria   = "No counselors meet the criteria"
)

// CourseLookup resolves a course id, typically through cache.CourseCache.
type CourseLookup interface {
	Get(ctx context.Context, id int64) (*models.Course, error)
}

// Notifier is told about new assignments after they commit.
type Notifier interface {
	LeadAssigned(ctx context.Context, lead *models.Lead, counselor *models.Counselor)
}

// LeadAssignedEvent is published on the lead topic after AssignLead.
type LeadAssignedEvent struct {
	LeadID       int64  `json:"lead_id"`
	CounselorID  *int64 `json:"counselor_id"`
	AutoAssigned bool   `json:"auto_assigned"`
	Reason       string `json:"assignment_reason"`
	Score        int    `json:"score"`
}

// LeadReassignedEvent is published on the lead topic after ReassignLead.
type LeadReassignedEvent struct {
	LeadID          int64  `json:"lead_id"`
	FromCounselorID *int64 `json:"from_counselor_id"`
	ToCounselorID   *int64 `json:"to_counselor_id"`
	Reason          string `json:"assignment_reason"`
}

// Engine scores counselors and applies assignments. Reads go through pool;
// every write runs inside uow.
type Engine struct {
	pool      db.DBTX
	uow       db.UnitOfWork
	courses   CourseLookup
	publisher kafka.Publisher
	topic     string
	notifier  Notifier
}

type Option func(*Engine)

// WithCourses replaces the default uncached course lookup.
func WithCourses(c CourseLookup) Option {
	return func(e *Engine) { e.courses = c }
}

func WithPublisher(p kafka.Publisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = p
		e.topic = topic
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func NewEngine(pool db.DBTX, uow db.UnitOfWork, opts ...Option) *Engine {
	e := &Engine{
		pool:      pool,
		uow:       uow,
		publisher: kafka.NopPublisher{},
		topic:     "lead-events",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.courses == nil {
		e.courses = courseRepoLookup{repository.NewCourseRepo(pool)}
	}
	return e
}

type courseRepoLookup struct {
	repo *repository.CourseRepo
}

func (l courseRepoLookup) Get(ctx context.Context, id int64) (*models.Course, error) {
	return l.repo.GetByID(ctx, id)
}

// FindBestCounselor selects a counselor for lead. It never fails: lookup
// errors and panics become a default assignment with the cause in the
// reason. It only reads, so it must not be called inside a transaction.
func (e *Engine) FindBestCounselor(ctx context.Context, lead *models.Lead) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Counselor scoring panicked for lead %d: %v", lead.ID, r)
			out = e.fallback(ctx, fmt.Sprint(r))
		}
	}()

	if lead.CourseID == nil {
		return e.fallback(ctx, CauseCourseNotFound)
	}
	course, err := e.courses.Get(ctx, *lead.CourseID)
	if errors.Is(err, repository.ErrNotFound) {
		return e.fallback(ctx, CauseCourseNotFound)
	}
	if err != nil {
		return e.fallback(ctx, err.Error())
	}

	counselors, err := repository.NewCounselorRepo(e.pool).ListActive(ctx)
	if err != nil {
		return e.fallback(ctx, err.Error())
	}
	if len(counselors) == 0 {
		return e.fallback(ctx, CauseNoActiveCounselors)
	}

	byID := make(map[int64]*models.Counselor, len(counselors))
	var cards []ScoreCard
	for _, c := range counselors {
		card := Score(lead, c, course.Name)
		if !card.Eligible {
			continue
		}
		byID[c.ID] = c
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		return e.fallback(ctx, CauseNoneMeetCriteria)
	}

	rank(cards)
	best := cards[0]
	return assigned(byID[best.CounselorID], true, best.Reason(), best.Score)
}

// rank orders cards by score, highest first, then by load percentage,
// lowest first. Equal cards keep their input order.
func rank(cards []ScoreCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Score != cards[j].Score {
			return cards[i].Score > cards[j].Score
		}
		return cards[i].LoadPercentage < cards[j].LoadPercentage
	})
}

// fallback picks the least loaded ACTIVE counselor that still has capacity.
func (e *Engine) fallback(ctx context.Context, cause string) Outcome {
	counselors, err := repository.NewCounselorRepo(e.pool).ListActive(ctx)
	if err != nil {
		logger.Error("Default assignment lookup failed: %v", err)
		return unassigned("No counselors available: " + cause)
	}
	for _, c := range counselors {
		if c.CurrentLoad < c.MaxCapacity {
			return assigned(c, false, "Default assignment: "+cause, 0)
		}
	}
	return unassigned("No counselors available: " + cause)
}

// AssignLead applies out to the lead. For an Assigned outcome the lead
// update and the capacity-guarded load increment commit together; losing a
// race for the last slot returns a Conflict error and changes nothing.
func (e *Engine) AssignLead(ctx context.Context, lead *models.Lead, out Outcome) (*models.Lead, error) {
	counselorID := out.CounselorID()

	var updated *models.Lead
	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		if counselorID != nil {
			if err := repos.Counselors.IncrementLoadWithinCapacity(ctx, *counselorID); err != nil {
				return translate(err, "assigning lead")
			}
		}
		if err := repos.Leads.UpdateAssignment(ctx, lead.ID, counselorID, out.AutoAssigned && counselorID != nil, out.Reason); err != nil {
			return translate(err, "assigning lead")
		}
		var err error
		updated, err = repos.Leads.GetByID(ctx, lead.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if counselorID != nil {
		logger.WithFields(map[string]interface{}{"lead_id": lead.ID, "counselor_id": *counselorID}).
			Info("lead assigned: %s", out.Reason)
	} else {
		logger.WithFields(map[string]interface{}{"lead_id": lead.ID}).Warn("lead left unassigned: %s", out.Reason)
	}

	e.publish(ctx, updated.ID, kafka.EventLeadAssigned, LeadAssignedEvent{
		LeadID:       updated.ID,
		CounselorID:  updated.AssignedCounselorID,
		AutoAssigned: updated.AutoAssigned,
		Reason:       updated.AssignmentReason,
		Score:        out.Score,
	})
	if e.notifier != nil && out.Counselor != nil && counselorID != nil {
		e.notifier.LeadAssigned(ctx, updated, out.Counselor)
	}
	return updated, nil
}

// ReassignLead moves a lead to counselorID, or clears its assignment when
// counselorID is nil. Capacity is not checked; the former counselor's load
// is decremented and never goes below zero.
func (e *Engine) ReassignLead(ctx context.Context, leadID int64, counselorID *int64, reason string) (*models.Lead, error) {
	var (
		updated  *models.Lead
		previous *int64
		target   *models.Counselor
	)
	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		lead, err := repos.Leads.GetByID(ctx, leadID)
		if err != nil {
			return translate(err, "reassigning lead")
		}
		previous = lead.AssignedCounselorID

		if previous != nil {
			wasZero, err := repos.Counselors.DecrementLoad(ctx, *previous)
			if err != nil {
				return translate(err, "releasing previous counselor")
			}
			if wasZero {
				logger.Warn("Counselor %d load was already 0 when lead %d was reassigned", *previous, leadID)
			}
		}

		stored := "Unassigned: " + reason
		if counselorID != nil {
			target, err = repos.Counselors.GetByID(ctx, *counselorID)
			if err != nil {
				return translate(err, "reassigning lead")
			}
			if err := repos.Counselors.IncrementLoad(ctx, target.ID); err != nil {
				return translate(err, "reassigning lead")
			}
			stored = "Manually reassigned: " + reason
		}

		if err := repos.Leads.UpdateAssignment(ctx, leadID, counselorID, false, stored); err != nil {
			return translate(err, "reassigning lead")
		}
		updated, err = repos.Leads.GetByID(ctx, leadID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{"lead_id": leadID}).Info("%s", updated.AssignmentReason)
	e.publish(ctx, leadID, kafka.EventLeadReassigned, LeadReassignedEvent{
		LeadID:          leadID,
		FromCounselorID: previous,
		ToCounselorID:   counselorID,
		Reason:          updated.AssignmentReason,
	})
	if e.notifier != nil && target != nil {
		e.notifier.LeadAssigned(ctx, updated, target)
	}
	return updated, nil
}

// AutoAssign finds and applies the best counselor. If the chosen counselor
// fills up before the write lands, the lead is stored unassigned with the
// reason, so intake never fails on capacity.
func (e *Engine) AutoAssign(ctx context.Context, lead *models.Lead) (*models.Lead, Outcome, error) {
	out := e.FindBestCounselor(ctx, lead)
	updated, err := e.AssignLead(ctx, lead, out)
	if apperrors.IsKind(err, apperrors.Conflict) {
		out = unassigned("No counselors available: " + err.Error())
		updated, err = e.AssignLead(ctx, lead, out)
	}
	if err != nil {
		return nil, out, err
	}
	return updated, out, nil
}

// Intake stores a new lead and auto-assigns it.
func (e *Engine) Intake(ctx context.Context, lead *models.Lead) (*models.Lead, Outcome, error) {
	lead.AssignedCounselorID = nil
	lead.AutoAssigned = false
	if err := repository.NewLeadRepo(e.pool).Create(ctx, lead); err != nil {
		return nil, Outcome{}, apperrors.E(apperrors.Internal, "creating lead", err)
	}
	return e.AutoAssign(ctx, lead)
}

func (e *Engine) publish(ctx context.Context, leadID int64, name string, data any) {
	key := strconv.FormatInt(leadID, 10)
	if err := e.publisher.Publish(ctx, e.topic, key, kafka.NewEvent(name, data)); err != nil {
		logger.Warn("Failed to publish %s for lead %d: %v", name, leadID, err)
	}
}

// translate maps repository sentinels onto error kinds.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.E(apperrors.NotFound, op, err)
	case errors.Is(err, repository.ErrAtCapacity):
		return apperrors.E(apperrors.Conflict, op, err)
	default:
		return err
	}
}
