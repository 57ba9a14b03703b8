package repository

import (
	"context"
	"testing"
	"time"

	"admissions-crm/models"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepo_LoginThenLogout(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))
	c := testutil.NewTestCounselor("Attender")
	require.NoError(t, repos.Counselors.Create(ctx, c))

	day := "2026-10-18"
	login := testNow()
	require.NoError(t, repos.Attendance.UpsertLogin(ctx, c.ID, day, login))
	// second login the same day keeps a single row
	require.NoError(t, repos.Attendance.UpsertLogin(ctx, c.ID, day, login.Add(time.Hour)))

	rows, err := repos.Attendance.ListByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendancePresent, rows[0].Status)
	assert.Equal(t, "Attender", rows[0].CounselorName)
	assert.Equal(t, day, rows[0].Date)
	require.NotNil(t, rows[0].LoginTime)
	assert.True(t, rows[0].LoginTime.Equal(login.Add(time.Hour)))
	assert.Nil(t, rows[0].LogoutTime)

	logout := login.Add(3 * time.Hour)
	require.NoError(t, repos.Attendance.RecordLogout(ctx, c.ID, day, logout, 95))

	rows, err = repos.Attendance.ListByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendancePartial, rows[0].Status)
	assert.Equal(t, 95, rows[0].ActiveMinutes)
	require.NotNil(t, rows[0].LogoutTime)
	assert.True(t, rows[0].LogoutTime.Equal(logout))
	require.NotNil(t, rows[0].LoginTime)
}

func TestAttendanceRepo_LogoutWithoutLoginRow(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))
	c := testutil.NewTestCounselor("Overnight")
	require.NoError(t, repos.Counselors.Create(ctx, c))

	require.NoError(t, repos.Attendance.RecordLogout(ctx, c.ID, "2026-10-19", testNow(), 0))

	rows, err := repos.Attendance.ListByDate(ctx, "2026-10-19")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].LoginTime)
	assert.Equal(t, models.AttendancePartial, rows[0].Status)
}
