package repository

import (
	"context"
	"testing"

	"admissions-crm/models"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounselorRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	c := testutil.NewTestCounselor("Asha Rao",
		testutil.WithExpertise("Computer Science", "Data Science"),
		testutil.WithLanguages("English", "Hindi"),
		testutil.WithLoad(2, 10))
	require.NoError(t, repos.Counselors.Create(ctx, c))
	require.NotZero(t, c.ID)

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", got.Name)
	assert.Equal(t, []string{"Computer Science", "Data Science"}, got.Expertise)
	assert.Equal(t, []string{"English", "Hindi"}, got.Languages)
	assert.Equal(t, 2, got.CurrentLoad)
	assert.Equal(t, models.AvailabilityActive, got.Availability)

	_, err = repos.Counselors.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCounselorRepo_ListActive_OrdersByLoad(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	busy := testutil.NewTestCounselor("Busy", testutil.WithLoad(5, 10))
	idle := testutil.NewTestCounselor("Idle", testutil.WithLoad(0, 10))
	off := testutil.NewTestCounselor("Off", testutil.WithAvailability(models.AvailabilityInactive))
	for _, c := range []*models.Counselor{busy, idle, off} {
		require.NoError(t, repos.Counselors.Create(ctx, c))
	}

	active, err := repos.Counselors.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, idle.ID, active[0].ID)
	assert.Equal(t, busy.ID, active[1].ID)
}

func TestCounselorRepo_IncrementLoadWithinCapacity(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	c := testutil.NewTestCounselor("Near Full", testutil.WithLoad(1, 2))
	require.NoError(t, repos.Counselors.Create(ctx, c))

	require.NoError(t, repos.Counselors.IncrementLoadWithinCapacity(ctx, c.ID))
	err := repos.Counselors.IncrementLoadWithinCapacity(ctx, c.ID)
	assert.ErrorIs(t, err, ErrAtCapacity)

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLoad)

	assert.ErrorIs(t, repos.Counselors.IncrementLoadWithinCapacity(ctx, 4242), ErrNotFound)
}

func TestCounselorRepo_IncrementLoad_IgnoresCapacity(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	c := testutil.NewTestCounselor("Full", testutil.WithLoad(3, 3))
	require.NoError(t, repos.Counselors.Create(ctx, c))
	require.NoError(t, repos.Counselors.IncrementLoad(ctx, c.ID))

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentLoad)
}

func TestCounselorRepo_DecrementLoad_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	c := testutil.NewTestCounselor("One Lead", testutil.WithLoad(1, 10))
	require.NoError(t, repos.Counselors.Create(ctx, c))

	wasZero, err := repos.Counselors.DecrementLoad(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, wasZero)

	wasZero, err = repos.Counselors.DecrementLoad(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, wasZero)

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentLoad)

	_, err = repos.Counselors.DecrementLoad(ctx, 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCounselorRepo_Update(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	c := testutil.NewTestCounselor("Before", testutil.WithLoad(4, 10))
	require.NoError(t, repos.Counselors.Create(ctx, c))

	c.Name = "After"
	c.Availability = models.AvailabilityInactive
	c.MaxCapacity = 20
	c.CurrentLoad = 0
	require.NoError(t, repos.Counselors.Update(ctx, c))

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, models.AvailabilityInactive, got.Availability)
	assert.Equal(t, 20, got.MaxCapacity)
	assert.Equal(t, 4, got.CurrentLoad, "load is not an admin field")
}

func TestCounselorRepo_ListAbsentOn(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	present := testutil.NewTestCounselor("Present")
	absent := testutil.NewTestCounselor("Absent")
	require.NoError(t, repos.Counselors.Create(ctx, present))
	require.NoError(t, repos.Counselors.Create(ctx, absent))

	require.NoError(t, repos.Attendance.UpsertLogin(ctx, present.ID, "2026-10-18", testNow()))

	got, err := repos.Counselors.ListAbsentOn(ctx, "2026-10-18")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, absent.ID, got[0].ID)

	got, err = repos.Counselors.ListAbsentOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
