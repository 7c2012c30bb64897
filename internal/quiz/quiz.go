// Package quiz реализует викторины: каталог тем и пошаговую сессию вопросов.
package quiz

import (
	"errors"
	"math"
	"slices"

	"github.com/google/uuid"

	"example.com/ecopulse/backend/internal/models"
)

var (
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotAnswered     = errors.New("question not answered yet")
	ErrFinished        = errors.New("quiz already finished")
	ErrInvalidChoice   = errors.New("choice is out of range")
)

const (
	ultimateQuestions = 50
	kidQuestions      = 3
	proQuestions      = 5
	kidOptions        = 3
	proOptions        = 4
)

type Topic struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Ultimate    bool   `json:"ultimate"`
}

// Topics — каталог тем викторины.
var Topics = []Topic{
	{ID: "recycling", Title: "Recycling Master", Icon: "♻️", Description: "Test your knowledge on what can and cannot be recycled."},
	{ID: "climate", Title: "Climate Science", Icon: "🌍", Description: "Understand the mechanics of global warming and its effects."},
	{ID: "ocean", Title: "Ocean Health", Icon: "🌊", Description: "Deep dive into marine conservation and plastic pollution."},
	{ID: "energy", Title: "Renewable Future", Icon: "☀️", Description: "Sun, wind, and water: the fuels of tomorrow."},
	{ID: "ultimate", Title: "The Ultimate Challenge", Icon: "🏆", Description: "A massive 50-question test covering everything! For true Earth Heroes.", Ultimate: true},
}

// FindTopic ищет тему по идентификатору.
func FindTopic(id string) (Topic, bool) {
	for _, topic := range Topics {
		if topic.ID == id {
			return topic, true
		}
	}
	return Topic{}, false
}

// QuestionCount возвращает число вопросов для темы и режима.
func QuestionCount(topic Topic, mode models.Mode) int {
	switch {
	case topic.Ultimate:
		return ultimateQuestions
	case mode.IsKid():
		return kidQuestions
	default:
		return proQuestions
	}
}

// OptionCount возвращает число вариантов ответа в режиме.
func OptionCount(mode models.Mode) int {
	if mode.IsKid() {
		return kidOptions
	}
	return proOptions
}

type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseAnswered  Phase = "answered"
	PhaseFinished  Phase = "finished"
)

// Session — прохождение одной викторины.
type Session struct {
	ID          string            `json:"id"`
	PlayerID    uuid.UUID         `json:"-"`
	Topic       Topic             `json:"topic"`
	Mode        models.Mode       `json:"mode"`
	Questions   []models.Question `json:"-"`
	Index       int               `json:"index"`
	Phase       Phase             `json:"phase"`
	Score       int               `json:"score"`
	Selected    *int              `json:"selected,omitempty"`
	Reward      int64             `json:"reward_per_answer"`
	CoinsEarned int64             `json:"coins_earned"`
}

func (s Session) Clone() Session {
	s.Questions = slices.Clone(s.Questions)
	if s.Selected != nil {
		selected := *s.Selected
		s.Selected = &selected
	}
	return s
}

// NewSession начинает викторину. Без вопросов сессия сразу завершена.
func NewSession(id string, playerID uuid.UUID, topic Topic, mode models.Mode, questions []models.Question, reward int64) Session {
	phase := PhaseAnswering
	if len(questions) == 0 {
		phase = PhaseFinished
	}
	return Session{
		ID:        id,
		PlayerID:  playerID,
		Topic:     topic,
		Mode:      mode,
		Questions: questions,
		Phase:     phase,
		Reward:    reward,
	}
}

// Current возвращает текущий вопрос.
func (s *Session) Current() (models.Question, bool) {
	if s.Phase == PhaseFinished || s.Index >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.Index], true
}

// Answer фиксирует ответ на текущий вопрос и возвращает число заработанных монет.
func (s *Session) Answer(choice int) (bool, int64, error) {
	switch s.Phase {
	case PhaseFinished:
		return false, 0, ErrFinished
	case PhaseAnswered:
		return false, 0, ErrAlreadyAnswered
	}

	question, ok := s.Current()
	if !ok {
		return false, 0, ErrFinished
	}
	if choice < 0 || choice >= len(question.Options) {
		return false, 0, ErrInvalidChoice
	}

	s.Selected = &choice
	s.Phase = PhaseAnswered

	if choice != question.CorrectAnswer {
		return false, 0, nil
	}
	s.Score++
	s.CoinsEarned += s.Reward
	return true, s.Reward, nil
}

// Next переходит к следующему вопросу или завершает викторину.
func (s *Session) Next() error {
	switch s.Phase {
	case PhaseFinished:
		return ErrFinished
	case PhaseAnswering:
		return ErrNotAnswered
	}

	s.Selected = nil
	s.Index++
	if s.Index >= len(s.Questions) {
		s.Phase = PhaseFinished
		return nil
	}
	s.Phase = PhaseAnswering
	return nil
}

// Verdict — оценка результата.
type Verdict struct {
	Icon    string `json:"icon"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Result struct {
	Score       int     `json:"score"`
	Total       int     `json:"total"`
	Percentage  int     `json:"percentage"`
	CoinsEarned int64   `json:"coins_earned"`
	Verdict     Verdict `json:"verdict"`
}

// Result подводит итог викторины.
func (s *Session) Result() Result {
	total := len(s.Questions)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(s.Score) / float64(total) * 100))
	}

	return Result{
		Score:       s.Score,
		Total:       total,
		Percentage:  percentage,
		CoinsEarned: s.CoinsEarned,
		Verdict:     verdictFor(percentage, s.Topic, s.Mode),
	}
}

func verdictFor(percentage int, topic Topic, mode models.Mode) Verdict {
	kid := mode.IsKid()

	title := "Quiz Finished!"
	switch {
	case topic.Ultimate:
		title = "Ultimate Legend!"
	case kid:
		title = "Quest Complete!"
	}

	pick := func(kidText, proText string) string {
		if kid {
			return kidText
		}
		return proText
	}

	switch {
	case percentage == 100:
		return Verdict{Icon: "👑", Title: title, Message: pick("You're a True Legend! 🏆🌈", "Incredible! Master status achieved.")}
	case percentage >= 80:
		return Verdict{Icon: "🌟", Title: title, Message: pick("Wow, a real Expert! ⭐", "Excellent performance!")}
	case percentage >= 50:
		return Verdict{Icon: "🌱", Title: title, Message: pick("Great job friend! 🌿", "Strong knowledge base. Keep going!")}
	default:
		return Verdict{Icon: "📚", Title: title, Message: pick("Let's learn more together! 📖", "Good effort. Every fact counts.")}
	}
}
