package ai

import (
	"context"
	"strings"

	"example.com/ecopulse/backend/internal/models"
)

const defaultMaxTokens = 4096

// Format задаёт ожидаемую форму ответа модели.
type Format int

const (
	FormatText Format = iota
	FormatMissions
	FormatQuiz
)

// Image — изображение, прикреплённое к вопросу советнику.
type Image struct {
	MIMEType string
	Data     []byte
}

// Location — координаты игрока для поиска рядом.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid отбрасывает координаты вне допустимого диапазона.
func (l *Location) Valid() bool {
	return l != nil &&
		l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Request — единый запрос к генеративной модели.
type Request struct {
	System   string
	Prompt   string
	Image    *Image
	Location *Location
	Search   bool
	Format   Format
}

// Response — текст модели и ссылки на источники, на которые она опиралась.
type Response struct {
	Text      string
	Citations []models.Citation
	Raw       []byte
}

// Client — провайдер генеративной модели.
type Client interface {
	Generate(ctx context.Context, request Request) (Response, error)
}

// Message — сообщение чата OpenAI-совместимого API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

// dedupeCitations убирает пустые и повторяющиеся ссылки, подставляя заголовок по умолчанию.
func dedupeCitations(citations []models.Citation, fallbackTitle string) []models.Citation {
	seen := make(map[string]struct{}, len(citations))
	out := make([]models.Citation, 0, len(citations))
	for _, citation := range citations {
		url := strings.TrimSpace(citation.URL)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		title := strings.TrimSpace(citation.Title)
		if title == "" {
			title = fallbackTitle
		}
		out = append(out, models.Citation{URL: url, Title: title})
	}
	return out
}
