package assignment

import (
	"testing"

	"admissions-crm/models"

	"github.com/stretchr/testify/assert"
)

func counselor(load, capacity int, expertise, languages []string) *models.Counselor {
	return &models.Counselor{
		ID:           1,
		Availability: models.AvailabilityActive,
		CurrentLoad:  load,
		MaxCapacity:  capacity,
		Expertise:    expertise,
		Languages:    languages,
	}
}

func TestScore_FullMatchOnIdleCounselor(t *testing.T) {
	lead := &models.Lead{PreferredLanguage: "English"}
	c := counselor(0, 50, []string{"computer science"}, []string{"English"})

	card := Score(lead, c, "Computer Science")
	assert.True(t, card.Eligible)
	assert.Equal(t, 100, card.Score)
	assert.Equal(t, []string{ReasonExpertise, ReasonLanguage, ReasonLowWorkload, ReasonNoLoad}, card.Reasons)
	assert.Contains(t, card.Reason(), "Expertise match, Language match, Low workload, No current load")
	assert.Equal(t, "Auto-assigned: Expertise match, Language match, Low workload, No current load (Score: 100)", card.Reason())
}

func TestScore_FullCounselorExcluded(t *testing.T) {
	lead := &models.Lead{PreferredLanguage: "English"}
	c := counselor(50, 50, []string{"computer science"}, []string{"English"})

	card := Score(lead, c, "Computer Science")
	assert.False(t, card.Eligible)
	assert.Zero(t, card.Score)
	assert.Empty(t, card.Reasons)

	over := counselor(60, 50, nil, nil)
	assert.False(t, Score(lead, over, "").Eligible)
}

func TestScore_InactiveCounselorExcluded(t *testing.T) {
	c := counselor(0, 10, []string{"mba"}, nil)
	c.Availability = models.AvailabilityInactive
	assert.False(t, Score(&models.Lead{}, c, "MBA").Eligible)
}

func TestScore_LoadBands(t *testing.T) {
	lead := &models.Lead{}
	cases := []struct {
		name    string
		load    int
		score   int
		reasons []string
	}{
		{"idle", 0, 30, []string{ReasonLowWorkload, ReasonNoLoad}},
		{"under half", 4, 20, []string{ReasonLowWorkload}},
		{"exactly half", 5, 10, []string{ReasonModerateLoad}},
		{"seventy nine", 79, 10, []string{ReasonModerateLoad}},
		{"eighty", 80, 0, nil},
		{"ninety nine", 99, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			capacity := 10
			if tc.load > 10 {
				capacity = 100
			}
			card := Score(lead, counselor(tc.load, capacity, nil, nil), "")
			assert.True(t, card.Eligible)
			assert.Equal(t, tc.score, card.Score)
			assert.Equal(t, tc.reasons, card.Reasons)
		})
	}
}

func TestScore_ExpertiseMatchesEitherDirection(t *testing.T) {
	lead := &models.Lead{}
	narrow := counselor(8, 10, []string{"Data"}, nil)
	assert.Equal(t, expertiseMatchPoints, Score(lead, narrow, "Data Science").Score)

	broad := counselor(8, 10, []string{"MBA in Finance"}, nil)
	assert.Equal(t, expertiseMatchPoints, Score(lead, broad, "finance").Score)

	unrelated := counselor(8, 10, []string{"Law", ""}, nil)
	assert.Zero(t, Score(lead, unrelated, "Nursing").Score)
	assert.Zero(t, Score(lead, unrelated, "").Score)
}

func TestScore_LanguageIsExactCaseInsensitive(t *testing.T) {
	c := counselor(8, 10, nil, []string{"Hindi", "Tamil"})
	assert.Equal(t, languageMatchPoints, Score(&models.Lead{PreferredLanguage: "tamil"}, c, "").Score)
	assert.Zero(t, Score(&models.Lead{PreferredLanguage: "Tam"}, c, "").Score)
	assert.Zero(t, Score(&models.Lead{}, c, "").Score)
}

func TestRank_TieBrokenByLoad(t *testing.T) {
	cards := []ScoreCard{
		{CounselorID: 1, Score: 60, LoadPercentage: 70},
		{CounselorID: 2, Score: 40, LoadPercentage: 0},
		{CounselorID: 3, Score: 60, LoadPercentage: 30},
		{CounselorID: 4, Score: 60, LoadPercentage: 30},
	}
	rank(cards)
	ids := []int64{cards[0].CounselorID, cards[1].CounselorID, cards[2].CounselorID, cards[3].CounselorID}
	assert.Equal(t, []int64{3, 4, 1, 2}, ids)
}

func TestScoreCard_ReasonWithoutMatches(t *testing.T) {
	assert.Equal(t, "Auto-assigned (Score: 0)", ScoreCard{}.Reason())
}
