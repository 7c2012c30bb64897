package ai

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"example.com/ecopulse/backend/internal/models"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	minMissionPoints  = 10
	maxMissionPoints  = 50
)

var missionCategories = map[string]string{
	"waste":  "Waste",
	"energy": "Energy",
	"water":  "Water",
	"food":   "Food",
}

type rawMission struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Points      float64 `json:"points"`
}

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer float64  `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

func parseJSON(input string, target interface{}) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	return json.Unmarshal([]byte(payload), target)
}

// extractJSON вырезает JSON-массив или объект из ответа, в том числе обёрнутого в code fence.
func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	closing := "]"
	start := strings.Index(trimmed, "[")
	if objStart := strings.Index(trimmed, "{"); start == -1 || (objStart != -1 && objStart < start) {
		closing = "}"
		start = objStart
	}
	end := strings.LastIndex(trimmed, closing)
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}

// ParseMissions строго разбирает миссии. Некорректные записи отбрасываются,
// а ответ, который не удалось разобрать, даёт ошибку и пустой список.
func ParseMissions(text string, mode models.Mode) ([]models.Mission, error) {
	var raw []rawMission
	if err := parseJSON(text, &raw); err != nil {
		return nil, err
	}

	missions := make([]models.Mission, 0, len(raw))
	for _, item := range raw {
		mission, ok := normalizeMission(item, mode)
		if !ok {
			continue
		}
		missions = append(missions, mission)
	}
	return missions, nil
}

func normalizeMission(item rawMission, mode models.Mode) (models.Mission, bool) {
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)
	category := strings.TrimSpace(item.Category)

	if title == "" || len(title) > maxTitleLen || len(description) > maxDescriptionLen {
		return models.Mission{}, false
	}
	if item.Points <= 0 {
		return models.Mission{}, false
	}

	if mode == models.ModePro {
		canonical, ok := missionCategories[strings.ToLower(category)]
		if !ok {
			return models.Mission{}, false
		}
		category = canonical
	} else if category == "" {
		category = "Quest"
	}

	points := int(math.Round(item.Points))
	if points < minMissionPoints {
		points = minMissionPoints
	}
	if points > maxMissionPoints {
		points = maxMissionPoints
	}

	return models.Mission{
		Title:       title,
		Description: description,
		Category:    category,
		Points:      points,
	}, true
}

// ParseQuestions строго разбирает вопросы викторины: пустые вопросы, меньше двух вариантов,
// индекс ответа вне диапазона и повторы отбрасываются.
func ParseQuestions(text string) ([]models.Question, error) {
	var raw []rawQuestion
	if err := parseJSON(text, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	questions := make([]models.Question, 0, len(raw))
	for _, item := range raw {
		question, ok := normalizeQuestion(item)
		if !ok {
			continue
		}
		key := strings.ToLower(question.Question)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		questions = append(questions, question)
	}
	return questions, nil
}

func normalizeQuestion(item rawQuestion) (models.Question, bool) {
	text := strings.TrimSpace(item.Question)
	if text == "" {
		return models.Question{}, false
	}

	options := make([]string, 0, len(item.Options))
	for _, option := range item.Options {
		option = strings.TrimSpace(option)
		if option == "" {
			return models.Question{}, false
		}
		options = append(options, option)
	}
	if len(options) < 2 {
		return models.Question{}, false
	}

	if item.CorrectAnswer != math.Trunc(item.CorrectAnswer) {
		return models.Question{}, false
	}
	answer := int(item.CorrectAnswer)
	if answer < 0 || answer >= len(options) {
		return models.Question{}, false
	}

	return models.Question{
		Question:      text,
		Options:       options,
		CorrectAnswer: answer,
		Explanation:   strings.TrimSpace(item.Explanation),
	}, true
}
