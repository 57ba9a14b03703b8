// Package presence tracks counselor activity (ACTIVE, AWAY, OFFLINE) from
// login, heartbeat and logout signals, keeps daily attendance, and releases
// a counselor's imminent sessions when they go offline.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"admissions-crm/db"
	apperrors "admissions-crm/errors"
	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/kafka"
)

// Thresholds of the presence state machine.
const (
	AwayAfter        = 15 * time.Minute
	OfflineAfter     = 30 * time.Minute
	ReleaseWindow    = 30 * time.Minute
	MaxHeartbeatGap  = 5
	releasedLeadNote = "Released: counselor went offline"
)

// Notifier is told about released sessions after the release commits.
type Notifier interface {
	SessionsReleased(ctx context.Context, counselor *models.Counselor, sessions []*models.CounselingSession)
}

// StatusChangedEvent is published whenever a counselor changes state.
type StatusChangedEvent struct {
	CounselorID int64     `json:"counselor_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	At          time.Time `json:"at"`
}

// SessionsReleasedEvent lists the sessions and leads freed by a release.
type SessionsReleasedEvent struct {
	CounselorID int64   `json:"counselor_id"`
	SessionIDs  []int64 `json:"session_ids"`
	LeadIDs     []int64 `json:"lead_ids"`
}

// SweepResult summarizes one SweepInactive run.
type SweepResult struct {
	Checked          int `json:"checked"`
	Away             int `json:"away"`
	Offline          int `json:"offline"`
	ReleasedSessions int `json:"released_sessions"`
}

type Tracker struct {
	pool      db.DBTX
	uow       db.UnitOfWork
	now       func() time.Time
	loc       *time.Location
	publisher kafka.Publisher
	topic     string
	notifier  Notifier
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone that decides where a day starts.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

func WithPublisher(p kafka.Publisher, topic string) Option {
	return func(t *Tracker) {
		t.publisher = p
		t.topic = topic
	}
}

func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

func NewTracker(pool db.DBTX, uow db.UnitOfWork, opts ...Option) *Tracker {
	t := &Tracker{
		pool:      pool,
		uow:       uow,
		now:       time.Now,
		loc:       time.UTC,
		publisher: kafka.NopPublisher{},
		topic:     "presence-events",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) clock() time.Time {
	return t.now().UTC()
}

func (t *Tracker) day(at time.Time) string {
	return db.FormatDate(at.In(t.loc))
}

func (t *Tracker) midnight(at time.Time) time.Time {
	local := at.In(t.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.loc).UTC()
}

// RecordLogin makes the counselor ACTIVE from any state and marks today's
// attendance PRESENT. The first login of a new day resets the daily minutes.
func (t *Tracker) RecordLogin(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	now := t.clock()
	var (
		saved *models.CounselorPresence
		from  string
	)
	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		if _, err := repos.Counselors.GetByID(ctx, counselorID); err != nil {
			return err
		}

		p, err := repos.Presence.GetForUpdate(ctx, counselorID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			p = &models.CounselorPresence{CounselorID: counselorID}
		case err != nil:
			return err
		}
		from = p.Status

		if p.LastLoginAt != nil && t.day(*p.LastLoginAt) != t.day(now) {
			p.ActiveMinutesToday = 0
		}
		p.Status = models.PresenceActive
		p.LastLoginAt = &now
		p.LastActivityAt = &now
		p.LastStatusChange = &now

		if err := repos.Presence.Save(ctx, p); err != nil {
			return err
		}
		if err := repos.Attendance.UpsertLogin(ctx, counselorID, t.day(now), now); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.E(apperrors.NotFound, fmt.Sprintf("counselor %d not found", counselorID), err)
	}
	if err != nil {
		return nil, fmt.Errorf("recording login for counselor %d: %w", counselorID, err)
	}

	logger.WithFields(map[string]interface{}{"counselor_id": counselorID}).Info("counselor logged in")
	t.statusChanged(ctx, counselorID, from, models.PresenceActive, now)
	return saved, nil
}

// UpdateActivity records a heartbeat. OFFLINE counselors and counselors
// that never logged in are left unchanged; only RecordLogin brings them
// back. An AWAY counselor becomes ACTIVE but accrues nothing this tick.
func (t *Tracker) UpdateActivity(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	now := t.clock()
	var (
		saved *models.CounselorPresence
		from  string
	)
	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		p, err := repos.Presence.GetForUpdate(ctx, counselorID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		saved, from = p, p.Status
		if p.Status == models.PresenceOffline {
			return nil
		}

		if p.Status == models.PresenceActive {
			minutes := accrual(p.LastSeen(), now)
			p.ActiveMinutesToday += minutes
			p.TotalActiveMinutes += minutes
		} else {
			p.Status = models.PresenceActive
			p.LastStatusChange = &now
		}
		p.LastActivityAt = &now
		return repos.Presence.Save(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("updating activity for counselor %d: %w", counselorID, err)
	}

	if from == models.PresenceAway {
		t.statusChanged(ctx, counselorID, from, models.PresenceActive, now)
	}
	return saved, nil
}

// accrual is the whole minutes between heartbeats, or 0 when the gap is
// longer than one heartbeat interval.
func accrual(last *time.Time, now time.Time) int {
	if last == nil {
		return 0
	}
	elapsed := int(now.Sub(*last) / time.Minute)
	if elapsed < 0 || elapsed > MaxHeartbeatGap {
		return 0
	}
	return elapsed
}

// CheckInactivity moves an idle counselor to AWAY after 15 minutes and to
// OFFLINE after 30. OFFLINE and unknown counselors are left alone.
func (t *Tracker) CheckInactivity(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	p, _, err := t.checkInactivity(ctx, counselorID)
	return p, err
}

func (t *Tracker) checkInactivity(ctx context.Context, counselorID int64) (*models.CounselorPresence, int, error) {
	p, err := repository.NewPresenceRepo(t.pool).Get(ctx, counselorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("checking inactivity for counselor %d: %w", counselorID, err)
	}
	if p.Status == models.PresenceOffline {
		return p, 0, nil
	}

	idle, ok := idleMinutes(p, t.clock())
	if !ok {
		return p, 0, nil
	}
	switch {
	case idle > offlineMinutes:
		return t.markAsOffline(ctx, counselorID, offlineMinutes)
	case idle > awayMinutes:
		p, err := t.markAsAway(ctx, counselorID, awayMinutes)
		return p, 0, err
	}
	return p, 0, nil
}

const (
	awayMinutes    = int(AwayAfter / time.Minute)
	offlineMinutes = int(OfflineAfter / time.Minute)
	// anyIdle skips the idle re-check for explicit transitions.
	anyIdle = -1
)

// idleMinutes is the whole minutes since the counselor was last seen.
func idleMinutes(p *models.CounselorPresence, now time.Time) (int, bool) {
	last := p.LastSeen()
	if last == nil {
		return 0, false
	}
	return int(now.Sub(*last) / time.Minute), true
}

// idleEnough re-checks, under the row lock, that p has been idle for more
// than minIdle minutes. A heartbeat that committed after the unlocked read
// wins over the transition.
func idleEnough(p *models.CounselorPresence, now time.Time, minIdle int) bool {
	if minIdle == anyIdle {
		return true
	}
	idle, ok := idleMinutes(p, now)
	return ok && idle > minIdle
}

// MarkAsAway sets AWAY unless the counselor is OFFLINE or already AWAY.
func (t *Tracker) MarkAsAway(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	return t.markAsAway(ctx, counselorID, anyIdle)
}

func (t *Tracker) markAsAway(ctx context.Context, counselorID int64, minIdle int) (*models.CounselorPresence, error) {
	now := t.clock()
	var (
		saved   *models.CounselorPresence
		changed bool
	)
	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		p, err := repos.Presence.GetForUpdate(ctx, counselorID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		saved = p
		if p.Status == models.PresenceOffline || p.Status == models.PresenceAway || !idleEnough(p, now, minIdle) {
			return nil
		}
		p.Status = models.PresenceAway
		p.LastStatusChange = &now
		changed = true
		return repos.Presence.Save(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("marking counselor %d away: %w", counselorID, err)
	}
	if changed {
		logger.WithFields(map[string]interface{}{"counselor_id": counselorID}).Info("counselor is away")
		t.statusChanged(ctx, counselorID, models.PresenceActive, models.PresenceAway, now)
	}
	return saved, nil
}

// MarkAsOffline finalizes the day's active minutes, closes attendance and
// releases the counselor's imminent sessions, all in one transaction.
func (t *Tracker) MarkAsOffline(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	p, _, err := t.markAsOffline(ctx, counselorID, anyIdle)
	return p, err
}

// RecordLogout is an explicit MarkAsOffline.
func (t *Tracker) RecordLogout(ctx context.Context, counselorID int64) (*models.CounselorPresence, error) {
	return t.MarkAsOffline(ctx, counselorID)
}

func (t *Tracker) markAsOffline(ctx context.Context, counselorID int64, minIdle int) (*models.CounselorPresence, int, error) {
	now := t.clock()
	var (
		saved    *models.CounselorPresence
		from     string
		changed  bool
		released []*models.CounselingSession
		leadIDs  []int64
	)
	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		p, err := repos.Presence.GetForUpdate(ctx, counselorID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		saved, from = p, p.Status
		if p.Status == models.PresenceOffline || !idleEnough(p, now, minIdle) {
			return nil
		}
		changed = true

		p.ActiveMinutesToday = t.minutesToday(p, now)
		p.Status = models.PresenceOffline
		p.LastStatusChange = &now
		if err := repos.Presence.Save(ctx, p); err != nil {
			return err
		}
		if err := repos.Attendance.RecordLogout(ctx, counselorID, t.day(now), now, p.ActiveMinutesToday); err != nil {
			return err
		}

		released, leadIDs, err = t.releaseAppointments(ctx, repos, counselorID, now)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("marking counselor %d offline: %w", counselorID, err)
	}
	if !changed {
		return saved, 0, nil
	}

	logger.WithFields(map[string]interface{}{
		"counselor_id":      counselorID,
		"active_minutes":    saved.ActiveMinutesToday,
		"released_sessions": len(released),
	}).Info("counselor is offline")
	t.statusChanged(ctx, counselorID, from, models.PresenceOffline, now)
	if len(released) > 0 {
		t.sessionsReleased(ctx, counselorID, released, leadIDs)
	}
	return saved, len(released), nil
}

// minutesToday spans last login to last activity, counted from midnight
// when the login was on an earlier day.
func (t *Tracker) minutesToday(p *models.CounselorPresence, now time.Time) int {
	if p.LastLoginAt == nil {
		return p.ActiveMinutesToday
	}
	start := *p.LastLoginAt
	if m := t.midnight(now); start.Before(m) {
		start = m
	}
	end := now
	if p.LastActivityAt != nil {
		end = *p.LastActivityAt
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// releaseAppointments cancels SCHEDULED sessions starting within the
// release window (overdue ones included) and puts their leads back to NEW
// and unassigned. A lead held by this counselor has the load decremented,
// never below zero; a lead already moved to someone else is left alone.
func (t *Tracker) releaseAppointments(ctx context.Context, repos *repository.Repos, counselorID int64, now time.Time) ([]*models.CounselingSession, []int64, error) {
	sessions, err := repos.Sessions.ListScheduledBefore(ctx, counselorID, now.Add(ReleaseWindow))
	if err != nil {
		return nil, nil, err
	}

	var (
		cancelled []*models.CounselingSession
		leadIDs   []int64
	)
	for _, s := range sessions {
		err := repos.Sessions.Cancel(ctx, s.ID, models.ReleasedSessionRemark)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		s.Status = models.SessionCancelled
		s.Remarks = models.ReleasedSessionRemark
		cancelled = append(cancelled, s)

		lead, err := repos.Leads.GetByID(ctx, s.LeadID)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case lead.AssignedCounselorID == nil:
		case *lead.AssignedCounselorID == counselorID:
			if _, err := repos.Counselors.DecrementLoad(ctx, counselorID); err != nil {
				return nil, nil, err
			}
		default:
			// Already moved to another counselor; only the session is released.
			continue
		}
		if err := repos.Leads.Release(ctx, lead.ID, releasedLeadNote); err != nil {
			return nil, nil, err
		}
		leadIDs = append(leadIDs, lead.ID)
	}
	return cancelled, leadIDs, nil
}

// SweepInactive runs CheckInactivity over every ACTIVE and AWAY counselor.
// A failing counselor does not stop the sweep.
func (t *Tracker) SweepInactive(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	rows, err := repository.NewPresenceRepo(t.pool).ListByStatus(ctx, models.PresenceActive, models.PresenceAway)
	if err != nil {
		return result, fmt.Errorf("listing presence for sweep: %w", err)
	}

	var errs []error
	for _, before := range rows {
		result.Checked++
		after, released, err := t.checkInactivity(ctx, before.CounselorID)
		if err != nil {
			logger.Error("Inactivity check failed for counselor %d: %v", before.CounselorID, err)
			errs = append(errs, err)
			continue
		}
		if after == nil || after.Status == before.Status {
			continue
		}
		switch after.Status {
		case models.PresenceAway:
			result.Away++
		case models.PresenceOffline:
			result.Offline++
			result.ReleasedSessions += released
		}
	}

	logger.Info("Presence sweep: checked=%d away=%d offline=%d released=%d",
		result.Checked, result.Away, result.Offline, result.ReleasedSessions)
	return result, errors.Join(errs...)
}

// GetPresenceStatus applies any pending inactivity transition, then reads
// the status. A counselor with no presence row is OFFLINE.
func (t *Tracker) GetPresenceStatus(ctx context.Context, counselorID int64) (*models.PresenceStatus, error) {
	if _, err := t.CheckInactivity(ctx, counselorID); err != nil {
		return nil, err
	}
	p, err := repository.NewPresenceRepo(t.pool).Get(ctx, counselorID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.PresenceStatus{CounselorID: counselorID, Status: models.PresenceOffline}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.PresenceStatus{
		CounselorID:        p.CounselorID,
		Status:             p.Status,
		LastLoginAt:        p.LastLoginAt,
		LastActivityAt:     p.LastActivityAt,
		ActiveMinutesToday: p.ActiveMinutesToday,
		TotalActiveMinutes: p.TotalActiveMinutes,
	}, nil
}

func (t *Tracker) GetActiveCounselors(ctx context.Context) ([]*models.CounselorPresence, error) {
	return repository.NewPresenceRepo(t.pool).ListByStatus(ctx, models.PresenceActive)
}

// GetDailyAttendance lists attendance for date (YYYY-MM-DD); an empty date
// means today.
func (t *Tracker) GetDailyAttendance(ctx context.Context, date string) ([]*models.DailyAttendance, error) {
	if date == "" {
		date = t.Today()
	}
	return repository.NewAttendanceRepo(t.pool).ListByDate(ctx, date)
}

// GetAbsentCounselors returns counselors with no PRESENT or PARTIAL
// attendance on date; an empty date means today.
func (t *Tracker) GetAbsentCounselors(ctx context.Context, date string) ([]*models.Counselor, error) {
	if date == "" {
		date = t.Today()
	}
	return repository.NewCounselorRepo(t.pool).ListAbsentOn(ctx, date)
}

// Today is the current attendance day.
func (t *Tracker) Today() string {
	return t.day(t.clock())
}

func (t *Tracker) statusChanged(ctx context.Context, counselorID int64, from, to string, at time.Time) {
	if from == "" {
		from = models.PresenceOffline
	}
	if from == to {
		return
	}
	t.publish(ctx, counselorID, kafka.EventStatusChanged, StatusChangedEvent{
		CounselorID: counselorID, From: from, To: to, At: at,
	})
}

func (t *Tracker) sessionsReleased(ctx context.Context, counselorID int64, sessions []*models.CounselingSession, leadIDs []int64) {
	ids := make([]int64, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	if leadIDs == nil {
		leadIDs = []int64{}
	}
	t.publish(ctx, counselorID, kafka.EventSessionsReleased, SessionsReleasedEvent{
		CounselorID: counselorID, SessionIDs: ids, LeadIDs: leadIDs,
	})

	if t.notifier == nil {
		return
	}
	counselor, err := repository.NewCounselorRepo(t.pool).GetByID(ctx, counselorID)
	if err != nil {
		logger.Warn("Skipping release notification for counselor %d: %v", counselorID, err)
		return
	}
	t.notifier.SessionsReleased(ctx, counselor, sessions)
}

func (t *Tracker) publish(ctx context.Context, counselorID int64, name string, data any) {
	key := strconv.FormatInt(counselorID, 10)
	if err := t.publisher.Publish(ctx, t.topic, key, kafka.NewEvent(name, data)); err != nil {
		logger.Warn("Failed to publish %s for counselor %d: %v", name, counselorID, err)
	}
}
