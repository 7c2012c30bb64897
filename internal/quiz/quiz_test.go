package quiz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/models"
)

func sampleQuestions() []models.Question {
	return []models.Question{
		{Question: "Glass goes to?", Options: []string{"Recycle", "Trash", "Compost"}, CorrectAnswer: 0},
		{Question: "Banana peel goes to?", Options: []string{"Recycle", "Trash", "Compost"}, CorrectAnswer: 2},
		{Question: "Solar panels use?", Options: []string{"Wind", "Sun", "Coal"}, CorrectAnswer: 1},
	}
}

func TestQuestionAndOptionCounts(t *testing.T) {
	ultimate, ok := FindTopic("ultimate")
	require.True(t, ok)
	ocean, ok := FindTopic("ocean")
	require.True(t, ok)

	assert.Equal(t, 50, QuestionCount(ultimate, models.ModeKid))
	assert.Equal(t, 3, QuestionCount(ocean, models.ModeKid))
	assert.Equal(t, 5, QuestionCount(ocean, models.ModePro))
	assert.Equal(t, 3, OptionCount(models.ModeKid))
	assert.Equal(t, 4, OptionCount(models.ModePro))

	_, ok = FindTopic("astrology")
	assert.False(t, ok)
}

func TestSessionFlow(t *testing.T) {
	topic, _ := FindTopic("recycling")
	s := NewSession("s1", uuid.New(), topic, models.ModeKid, sampleQuestions(), 15)

	correct, earned, err := s.Answer(0)
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, int64(15), earned)

	_, _, err = s.Answer(1)
	assert.ErrorIs(t, err, ErrAlreadyAnswered, "only one answer per question")

	require.NoError(t, s.Next())
	correct, earned, err = s.Answer(0)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.Zero(t, earned)

	require.NoError(t, s.Next())
	_, _, err = s.Answer(1)
	require.NoError(t, err)
	require.NoError(t, s.Next())

	assert.Equal(t, PhaseFinished, s.Phase)
	result := s.Result()
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 67, result.Percentage)
	assert.Equal(t, int64(30), result.CoinsEarned)
	assert.Equal(t, "🌱", result.Verdict.Icon)
	assert.Equal(t, "Quest Complete!", result.Verdict.Title)
}

func TestSessionRejectsOutOfOrder(t *testing.T) {
	topic, _ := FindTopic("energy")
	s := NewSession("s2", uuid.New(), topic, models.ModePro, sampleQuestions(), 10)

	assert.ErrorIs(t, s.Next(), ErrNotAnswered)

	_, _, err := s.Answer(7)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Equal(t, PhaseAnswering, s.Phase)
}

func TestEmptySessionIsFinished(t *testing.T) {
	topic, _ := FindTopic("climate")
	s := NewSession("s3", uuid.New(), topic, models.ModePro, nil, 10)

	assert.Equal(t, PhaseFinished, s.Phase)
	_, _, err := s.Answer(0)
	assert.ErrorIs(t, err, ErrFinished)

	result := s.Result()
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Percentage)
	assert.Zero(t, result.CoinsEarned)
}

func TestVerdictTiers(t *testing.T) {
	ultimate, _ := FindTopic("ultimate")
	climate, _ := FindTopic("climate")

	cases := []struct {
		percentage int
		topic      Topic
		mode       models.Mode
		icon       string
		title      string
		message    string
	}{
		{100, climate, models.ModePro, "👑", "Quiz Finished!", "Incredible! Master status achieved."},
		{80, climate, models.ModePro, "🌟", "Quiz Finished!", "Excellent performance!"},
		{50, climate, models.ModeKid, "🌱", "Quest Complete!", "Great job friend! 🌿"},
		{49, ultimate, models.ModeKid, "📚", "Ultimate Legend!", "Let's learn more together! 📖"},
	}

	for _, tc := range cases {
		got := verdictFor(tc.percentage, tc.topic, tc.mode)
		assert.Equal(t, Verdict{Icon: tc.icon, Title: tc.title, Message: tc.message}, got, "percentage %d", tc.percentage)
	}
}
