package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/quiz"
	"example.com/ecopulse/backend/internal/session"
)

const quizJSON = `[
	{"question":"Which bin takes a banana peel?","options":["Compost","Recycle","Trash","Glass"],"correctAnswer":0,"explanation":"Food scraps compost."},
	{"question":"Which gas traps most heat from human activity?","options":["Oxygen","CO2","Argon","Helium"],"correctAnswer":1,"explanation":"Carbon dioxide dominates."}
]`

func newQuizHandler(t *testing.T, client ai.Client) *QuizHandler {
	t.Helper()
	return NewQuizHandler(
		ai.NewService(client, time.Minute),
		newTestRegistry(t),
		session.NewMemoryStore[quiz.Session](time.Hour),
		nil,
		nil,
	)
}

func startQuiz(t *testing.T, handler *QuizHandler, playerID uuid.UUID) QuizResponse {
	t.Helper()
	e := newTestEcho()
	c, rec := newRequest(e, http.MethodPost, "/api/v1/quiz/sessions", `{"topic":"recycling"}`, playerID)
	require.NoError(t, handler.Start(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp QuizResponse
	decodeBody(t, rec, &resp)
	return resp
}

// TestQuizFlow проверяет ответы, начисление и итоги викторины.
func TestQuizFlow(t *testing.T) {
	handler := newQuizHandler(t, &scriptedClient{text: quizJSON})
	playerID := uuid.New()

	started := startQuiz(t, handler, playerID)
	require.NotNil(t, started.Question)
	assert.Nil(t, started.Question.CorrectAnswer)
	assert.Equal(t, 2, started.Question.Total)
	id := started.Session.ID

	c, rec := newRequest(newTestEcho(), http.MethodPost, "/api/v1/quiz/sessions/"+id+"/answer", `{"choice":0}`, playerID)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, handler.Answer(c))
	var answer AnswerResponse
	decodeBody(t, rec, &answer)
	assert.True(t, answer.Correct)
	assert.Equal(t, int64(10), answer.Earned)
	assert.Equal(t, int64(10), answer.CoinBalance)
	require.NotNil(t, answer.Question.CorrectAnswer)
	assert.Equal(t, 0, *answer.Question.CorrectAnswer)

	c, rec = newRequest(newTestEcho(), http.MethodPost, "/api/v1/quiz/sessions/"+id+"/answer", `{"choice":1}`, playerID)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, handler.Answer(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 2; i++ {
		c, rec = newRequest(newTestEcho(), http.MethodPost, "/api/v1/quiz/sessions/"+id+"/next", "", playerID)
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, handler.Next(c))
		require.Equal(t, http.StatusOK, rec.Code)

		if i == 0 {
			c, rec = newRequest(newTestEcho(), http.MethodPost, "/api/v1/quiz/sessions/"+id+"/answer", `{"choice":3}`, playerID)
			c.SetParamNames("id")
			c.SetParamValues(id)
			require.NoError(t, handler.Answer(c))
			decodeBody(t, rec, &answer)
			assert.False(t, answer.Correct)
		}
	}

	var finished QuizResponse
	decodeBody(t, rec, &finished)
	require.NotNil(t, finished.Result)
	assert.Nil(t, finished.Question)
	assert.Equal(t, quiz.PhaseFinished, finished.Session.Phase)
}

// TestQuizSessionIsPrivate проверяет, что чужая сессия не видна.
func TestQuizSessionIsPrivate(t *testing.T) {
	handler := newQuizHandler(t, &scriptedClient{text: quizJSON})
	started := startQuiz(t, handler, uuid.New())

	c, rec := newRequest(newTestEcho(), http.MethodGet, "/api/v1/quiz/sessions/"+started.Session.ID, "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(started.Session.ID)
	require.NoError(t, handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestQuizStartWithFailedGeneration проверяет сразу завершенную сессию без вопросов.
func TestQuizStartWithFailedGeneration(t *testing.T) {
	handler := newQuizHandler(t, &scriptedClient{text: "not json"})
	started := startQuiz(t, handler, uuid.New())

	assert.Equal(t, quiz.PhaseFinished, started.Session.Phase)
	assert.Nil(t, started.Question)
}

// TestQuizStartUnknownTopic проверяет валидацию темы.
func TestQuizStartUnknownTopic(t *testing.T) {
	handler := newQuizHandler(t, &scriptedClient{text: quizJSON})

	c, rec := newRequest(newTestEcho(), http.MethodPost, "/api/v1/quiz/sessions", `{"topic":"astrology"}`, uuid.New())
	require.NoError(t, handler.Start(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
