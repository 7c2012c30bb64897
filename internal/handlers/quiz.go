package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/quiz"
	"example.com/ecopulse/backend/internal/session"
)

type QuizHandler struct {
	Service  *ai.Service
	Registry *progression.Registry
	Sessions session.Store[quiz.Session]
	Audit    *AIAudit
	Notifier *notifications.Hub
}

// NewQuizHandler создает обработчик викторин.
func NewQuizHandler(service *ai.Service, registry *progression.Registry, sessions session.Store[quiz.Session], audit *AIAudit, notifier *notifications.Hub) *QuizHandler {
	return &QuizHandler{
		Service:  service,
		Registry: registry,
		Sessions: sessions,
		Audit:    audit,
		Notifier: notifier,
	}
}

type StartQuizRequest struct {
	Topic string `json:"topic" validate:"required"`
}

type AnswerRequest struct {
	Choice *int `json:"choice" validate:"required,min=0"`
}

// QuestionView показывает вопрос без правильного ответа, пока игрок не ответил.
type QuestionView struct {
	Number        int      `json:"number"`
	Total         int      `json:"total"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type QuizResponse struct {
	Session  quiz.Session  `json:"session"`
	Question *QuestionView `json:"question,omitempty"`
	Result   *quiz.Result  `json:"result,omitempty"`
}

type AnswerResponse struct {
	QuizResponse
	Correct     bool  `json:"correct"`
	Earned      int64 `json:"earned"`
	CoinBalance int64 `json:"coin_balance"`
}

// Topics возвращает каталог тем.
func (h *QuizHandler) Topics(c echo.Context) error {
	return c.JSON(http.StatusOK, quiz.Topics)
}

// Start генерирует вопросы и открывает сессию викторины.
func (h *QuizHandler) Start(c echo.Context) error {
	var req StartQuizRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	topic, ok := quiz.FindTopic(req.Topic)
	if !ok {
		return badRequest(c, "unknown topic")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()
	count := quiz.QuestionCount(topic, mode)
	options := quiz.OptionCount(mode)

	questions, prompt, raw, genErr := h.Service.GenerateQuiz(c.Request().Context(), topic.Title, mode, count, options)
	requestPayload, _ := json.Marshal(map[string]interface{}{"topic": topic.ID, "mode": mode, "count": count})
	responsePayload, _ := json.Marshal(questions)
	h.Audit.Record(c, playerID, aiRequestQuiz, prompt, requestPayload, responsePayload, raw, genErr)

	id := h.Sessions.NewID()
	quizSession := quiz.NewSession(id, playerID, topic, mode, questions, h.Registry.Policy().Rewards.QuizCorrect.For(mode))
	if err := h.Sessions.Put(c.Request().Context(), id, quizSession); err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, quizResponse(quizSession))
}

// Get возвращает состояние сессии.
func (h *QuizHandler) Get(c echo.Context) error {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	quizSession, found, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serverError(c)
	}
	if !found || quizSession.PlayerID != playerID {
		return notFound(c, "quiz session not found")
	}

	return c.JSON(http.StatusOK, quizResponse(quizSession))
}

// Answer принимает ответ на текущий вопрос. Верный ответ приносит монеты в режиме викторины.
func (h *QuizHandler) Answer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	var correct bool
	var earned int64
	quizSession, err := h.Sessions.Update(c.Request().Context(), c.Param("id"), func(s *quiz.Session) error {
		if s.PlayerID != playerID {
			return session.ErrNotFound
		}
		var answerErr error
		correct, earned, answerErr = s.Answer(*req.Choice)
		return answerErr
	})
	if err != nil {
		return quizError(c, err)
	}

	state, err := award(c, engine, h.Notifier, playerID, quizSession.Mode, earned, "quiz")
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AnswerResponse{
		QuizResponse: quizResponse(quizSession),
		Correct:      correct,
		Earned:       earned,
		CoinBalance:  state.CoinBalance,
	})
}

// Next переходит к следующему вопросу или к итогам.
func (h *QuizHandler) Next(c echo.Context) error {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	quizSession, err := h.Sessions.Update(c.Request().Context(), c.Param("id"), func(s *quiz.Session) error {
		if s.PlayerID != playerID {
			return session.ErrNotFound
		}
		return s.Next()
	})
	if err != nil {
		return quizError(c, err)
	}

	return c.JSON(http.StatusOK, quizResponse(quizSession))
}

func quizResponse(s quiz.Session) QuizResponse {
	response := QuizResponse{Session: s}
	if s.Phase == quiz.PhaseFinished {
		result := s.Result()
		response.Result = &result
		return response
	}

	question, ok := s.Current()
	if !ok {
		return response
	}
	view := &QuestionView{
		Number:   s.Index + 1,
		Total:    len(s.Questions),
		Question: question.Question,
		Options:  question.Options,
	}
	if s.Phase == quiz.PhaseAnswered {
		correct := question.CorrectAnswer
		view.CorrectAnswer = &correct
		view.Explanation = question.Explanation
	}
	response.Question = view
	return response
}

func quizError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return notFound(c, "quiz session not found")
	case errors.Is(err, quiz.ErrInvalidChoice):
		return badRequest(c, "choice is out of range")
	case errors.Is(err, quiz.ErrAlreadyAnswered), errors.Is(err, quiz.ErrNotAnswered), errors.Is(err, quiz.ErrFinished):
		return conflict(c, err.Error())
	}
	return serverError(c)
}

