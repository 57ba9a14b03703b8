package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"admissions-crm/db"
	apperrors "admissions-crm/errors"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/kafka"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _, _ string, evt kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

type recordingNotifier struct {
	calls []int64
}

func (n *recordingNotifier) LeadAssigned(_ context.Context, lead *models.Lead, c *models.Counselor) {
	n.calls = append(n.calls, c.ID)
}

type fixture struct {
	db    *db.DB
	repos *repository.Repos
	pub   *recordingPublisher
	note  *recordingNotifier
	eng   *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &fixture{
		db:    database,
		repos: repository.New(database),
		pub:   &recordingPublisher{},
		note:  &recordingNotifier{},
	}
	opts = append([]Option{WithPublisher(f.pub, "lead-events"), WithNotifier(f.note)}, opts...)
	f.eng = NewEngine(database, database, opts...)
	return f
}

func (f *fixture) counselor(t *testing.T, name string, opts ...testutil.CounselorOption) *models.Counselor {
	t.Helper()
	c := testutil.NewTestCounselor(name, opts...)
	require.NoError(t, f.repos.Counselors.Create(context.Background(), c))
	return c
}

func (f *fixture) course(t *testing.T, name string) *models.Course {
	t.Helper()
	c := testutil.NewTestCourse(name)
	require.NoError(t, f.repos.Courses.Create(context.Background(), c))
	return c
}

func (f *fixture) lead(t *testing.T, opts ...testutil.LeadOption) *models.Lead {
	t.Helper()
	l := testutil.NewTestLead("Student", opts...)
	require.NoError(t, f.repos.Leads.Create(context.Background(), l))
	return l
}

func (f *fixture) load(t *testing.T, id int64) int {
	t.Helper()
	c, err := f.repos.Counselors.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.CurrentLoad
}

func TestFindBestCounselor_PicksHighestScore(t *testing.T) {
	f := newFixture(t)
	cs := f.course(t, "Computer Science")
	f.counselor(t, "Generalist", testutil.WithLoad(0, 50))
	expert := f.counselor(t, "Expert",
		testutil.WithExpertise("computer science"), testutil.WithLanguages("English"), testutil.WithLoad(0, 50))
	lead := f.lead(t, testutil.WithCourse(cs.ID), testutil.WithLanguage("English"))

	out := f.eng.FindBestCounselor(context.Background(), lead)
	assert.Equal(t, Assigned, out.Kind)
	require.NotNil(t, out.Counselor)
	assert.Equal(t, expert.ID, out.Counselor.ID)
	assert.True(t, out.AutoAssigned)
	assert.Equal(t, 100, out.Score)
	assert.Contains(t, out.Reason, "Expertise match, Language match, Low workload, No current load")
}

func TestFindBestCounselor_SkipsFullCounselorEvenWithPerfectMatch(t *testing.T) {
	f := newFixture(t)
	cs := f.course(t, "Computer Science")
	f.counselor(t, "Full Expert",
		testutil.WithExpertise("computer science"), testutil.WithLanguages("English"), testutil.WithLoad(50, 50))
	spare := f.counselor(t, "Busy Generalist", testutil.WithLoad(45, 50))
	lead := f.lead(t, testutil.WithCourse(cs.ID), testutil.WithLanguage("English"))

	out := f.eng.FindBestCounselor(context.Background(), lead)
	require.Equal(t, Assigned, out.Kind)
	assert.Equal(t, spare.ID, out.Counselor.ID)
	assert.Less(t, out.Counselor.LoadPercentage(), 100.0)
}

func TestFindBestCounselor_TieGoesToLowerLoad(t *testing.T) {
	f := newFixture(t)
	cs := f.course(t, "Law")
	heavier := f.counselor(t, "Ninety", testutil.WithLoad(9, 10))
	lighter := f.counselor(t, "Eighty", testutil.WithLoad(8, 10))
	lead := f.lead(t, testutil.WithCourse(cs.ID))

	out := f.eng.FindBestCounselor(context.Background(), lead)
	require.Equal(t, Assigned, out.Kind)
	assert.Equal(t, lighter.ID, out.Counselor.ID)
	assert.NotEqual(t, heavier.ID, out.Counselor.ID)
	assert.Equal(t, "Auto-assigned (Score: 0)", out.Reason)
}

func TestFindBestCounselor_Fallbacks(t *testing.T) {
	t.Run("course not found", func(t *testing.T) {
		f := newFixture(t)
		f.counselor(t, "Busy", testutil.WithLoad(5, 10))
		idle := f.counselor(t, "Idle", testutil.WithLoad(1, 10))

		out := f.eng.FindBestCounselor(context.Background(), f.lead(t))
		require.Equal(t, Assigned, out.Kind)
		assert.Equal(t, idle.ID, out.Counselor.ID)
		assert.False(t, out.AutoAssigned)
		assert.Equal(t, "Default assignment: Course not found", out.Reason)

		missing := int64(404)
		out = f.eng.FindBestCounselor(context.Background(), &models.Lead{CourseID: &missing})
		assert.Equal(t, "Default assignment: Course not found", out.Reason)
	})

	t.Run("no active counselors", func(t *testing.T) {
		f := newFixture(t)
		cs := f.course(t, "MBA")
		f.counselor(t, "Away", testutil.WithAvailability(models.AvailabilityInactive))

		out := f.eng.FindBestCounselor(context.Background(), f.lead(t, testutil.WithCourse(cs.ID)))
		assert.Equal(t, Unassigned, out.Kind)
		assert.Nil(t, out.Counselor)
		assert.Nil(t, out.CounselorID())
		assert.False(t, out.AutoAssigned)
		assert.Equal(t, "No counselors available: No active counselors available", out.Reason)
	})

	t.Run("everyone full", func(t *testing.T) {
		f := newFixture(t)
		cs := f.course(t, "MBA")
		f.counselor(t, "Full", testutil.WithLoad(3, 3))

		out := f.eng.FindBestCounselor(context.Background(), f.lead(t, testutil.WithCourse(cs.ID)))
		assert.Equal(t, Unassigned, out.Kind)
		assert.Equal(t, "No counselors available: No counselors meet the criteria", out.Reason)
	})
}

type brokenCourses struct {
	err   error
	panic bool
}

func (b brokenCourses) Get(context.Context, int64) (*models.Course, error) {
	if b.panic {
		panic("course index corrupted")
	}
	return nil, b.err
}

func TestFindBestCounselor_NeverFails(t *testing.T) {
	courseID := int64(1)
	lead := &models.Lead{ID: 1, CourseID: &courseID}

	f := newFixture(t, WithCourses(brokenCourses{err: errors.New("cache offline")}))
	c := f.counselor(t, "Only")
	out := f.eng.FindBestCounselor(context.Background(), lead)
	require.Equal(t, Assigned, out.Kind)
	assert.Equal(t, c.ID, out.Counselor.ID)
	assert.Equal(t, "Default assignment: cache offline", out.Reason)

	f = newFixture(t, WithCourses(brokenCourses{panic: true}))
	f.counselor(t, "Only")
	out = f.eng.FindBestCounselor(context.Background(), lead)
	assert.Equal(t, "Default assignment: course index corrupted", out.Reason)
}

func TestAssignLead_UpdatesLeadAndLoadTogether(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.counselor(t, "Target", testutil.WithLoad(2, 10))
	lead := f.lead(t)

	out := assigned(c, true, "Auto-assigned: Low workload (Score: 20)", 20)
	updated, err := f.eng.AssignLead(ctx, lead, out)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedCounselorID)
	assert.Equal(t, c.ID, *updated.AssignedCounselorID)
	assert.True(t, updated.AutoAssigned)
	assert.Equal(t, 3, f.load(t, c.ID))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, kafka.EventLeadAssigned, f.pub.events[0].Name)
	assert.Equal(t, []int64{c.ID}, f.note.calls)
}

func TestAssignLead_Unassigned(t *testing.T) {
	f := newFixture(t)
	lead := f.lead(t)

	updated, err := f.eng.AssignLead(context.Background(), lead, unassigned("No counselors available: x"))
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedCounselorID)
	assert.False(t, updated.AutoAssigned)
	assert.Equal(t, "No counselors available: x", updated.AssignmentReason)
	assert.Empty(t, f.note.calls)
}

func TestAssignLead_RollsBackWhenLeadWriteFails(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := repository.New(database)
	uow := &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: errors.New("injected")}
	eng := NewEngine(database, uow)

	c := testutil.NewTestCounselor("Rollback", testutil.WithLoad(1, 10))
	require.NoError(t, repos.Counselors.Create(ctx, c))
	lead := testutil.NewTestLead("Rollback Lead")
	require.NoError(t, repos.Leads.Create(ctx, lead))

	_, err := eng.AssignLead(ctx, lead, assigned(c, true, "r", 10))
	require.Error(t, err)

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLoad)
	stored, err := repos.Leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedCounselorID)
}

func TestAssignLead_CapacityConflict(t *testing.T) {
	f := newFixture(t)
	c := f.counselor(t, "Full", testutil.WithLoad(2, 2))
	lead := f.lead(t)

	_, err := f.eng.AssignLead(context.Background(), lead, assigned(c, true, "stale", 10))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Conflict))
	assert.Equal(t, 2, f.load(t, c.ID))
	assert.Empty(t, f.pub.events)
}

// racingUoW fills a counselor's last slot just before the first transaction.
type racingUoW struct {
	db   *db.DB
	once sync.Once
	fill func()
}

func (u *racingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	u.once.Do(u.fill)
	return u.db.WithinTx(ctx, fn)
}

func TestAutoAssign_LostRaceLeavesLeadUnassigned(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := repository.New(database)

	c := testutil.NewTestCounselor("Last Slot", testutil.WithLoad(0, 1))
	require.NoError(t, repos.Counselors.Create(ctx, c))
	lead := testutil.NewTestLead("Racer")
	require.NoError(t, repos.Leads.Create(ctx, lead))

	uow := &racingUoW{db: database, fill: func() {
		require.NoError(t, repos.Counselors.IncrementLoad(ctx, c.ID))
	}}
	eng := NewEngine(database, uow)

	updated, out, err := eng.AutoAssign(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, Unassigned, out.Kind)
	assert.Nil(t, updated.AssignedCounselorID)
	assert.False(t, updated.AutoAssigned)
	assert.Contains(t, updated.AssignmentReason, "No counselors available")

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLoad)
}

func TestIntake_CreatesAndAssigns(t *testing.T) {
	f := newFixture(t)
	cs := f.course(t, "Nursing")
	nurse := f.counselor(t, "Nurse Educator", testutil.WithExpertise("nursing"))

	lead := testutil.NewTestLead("New Student", testutil.WithCourse(cs.ID))
	lead.AutoAssigned = true
	created, out, err := f.eng.Intake(context.Background(), lead)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, Assigned, out.Kind)
	require.NotNil(t, created.AssignedCounselorID)
	assert.Equal(t, nurse.ID, *created.AssignedCounselorID)
	assert.Equal(t, 1, f.load(t, nurse.ID))
}

func TestReassignLead_RoundTripRestoresLoads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.counselor(t, "A", testutil.WithLoad(0, 10))
	b := f.counselor(t, "B", testutil.WithLoad(4, 10))
	lead := f.lead(t)

	_, err := f.eng.AssignLead(ctx, lead, assigned(a, true, "auto", 30))
	require.NoError(t, err)
	loadA, loadB := f.load(t, a.ID), f.load(t, b.ID)

	moved, err := f.eng.ReassignLead(ctx, lead.ID, &b.ID, "test")
	require.NoError(t, err)
	assert.Equal(t, b.ID, *moved.AssignedCounselorID)
	assert.False(t, moved.AutoAssigned)
	assert.Equal(t, "Manually reassigned: test", moved.AssignmentReason)
	assert.Equal(t, loadA-1, f.load(t, a.ID))
	assert.Equal(t, loadB+1, f.load(t, b.ID))

	back, err := f.eng.ReassignLead(ctx, lead.ID, &a.ID, "test2")
	require.NoError(t, err)
	assert.Equal(t, a.ID, *back.AssignedCounselorID)
	assert.Equal(t, loadA, f.load(t, a.ID))
	assert.Equal(t, loadB, f.load(t, b.ID))

	names := []string{}
	for _, e := range f.pub.events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{kafka.EventLeadAssigned, kafka.EventLeadReassigned, kafka.EventLeadReassigned}, names)
}

func TestReassignLead_Unassign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.counselor(t, "A", testutil.WithLoad(3, 10))
	lead := f.lead(t, testutil.WithCounselor(a.ID, true))

	updated, err := f.eng.ReassignLead(ctx, lead.ID, nil, "counselor on leave")
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedCounselorID)
	assert.False(t, updated.AutoAssigned)
	assert.Equal(t, "Unassigned: counselor on leave", updated.AssignmentReason)
	assert.Equal(t, 2, f.load(t, a.ID))
}

func TestReassignLead_ClampsDriftedLoadAtZero(t *testing.T) {
	f := newFixture(t)
	a := f.counselor(t, "Drifted", testutil.WithLoad(0, 10))
	b := f.counselor(t, "B")
	lead := f.lead(t, testutil.WithCounselor(a.ID, false))

	_, err := f.eng.ReassignLead(context.Background(), lead.ID, &b.ID, "fix")
	require.NoError(t, err)
	assert.Equal(t, 0, f.load(t, a.ID))
	assert.Equal(t, 1, f.load(t, b.ID))
}

func TestReassignLead_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.counselor(t, "A", testutil.WithLoad(1, 10))
	lead := f.lead(t, testutil.WithCounselor(a.ID, true))

	missing := int64(9999)
	_, err := f.eng.ReassignLead(ctx, lead.ID, &missing, "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.NotFound))
	assert.Equal(t, 1, f.load(t, a.ID), "decrement rolled back")

	_, err = f.eng.ReassignLead(ctx, 8888, &a.ID, "x")
	assert.True(t, apperrors.IsKind(err, apperrors.NotFound))
}
