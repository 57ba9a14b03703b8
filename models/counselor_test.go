package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounselor_LoadPercentage(t *testing.T) {
	assert.Equal(t, 0.0, (&Counselor{CurrentLoad: 0, MaxCapacity: 50}).LoadPercentage())
	assert.Equal(t, 30.0, (&Counselor{CurrentLoad: 3, MaxCapacity: 10}).LoadPercentage())
	assert.Equal(t, 100.0, (&Counselor{CurrentLoad: 50, MaxCapacity: 50}).LoadPercentage())
	assert.Equal(t, 100.0, (&Counselor{CurrentLoad: 0, MaxCapacity: 0}).LoadPercentage())
}

func TestCounselorPresence_LastSeen(t *testing.T) {
	login := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	activity := login.Add(10 * time.Minute)

	p := &CounselorPresence{LastLoginAt: &login}
	assert.Equal(t, login, *p.LastSeen())

	p.LastActivityAt = &activity
	assert.Equal(t, activity, *p.LastSeen())

	assert.Nil(t, (&CounselorPresence{}).LastSeen())
}
