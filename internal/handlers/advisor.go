package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/profile"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/session"
)

const (
	roleUser  = "user"
	roleModel = "model"

	maxImageBytes        = 4 << 20
	defaultImageMIMEType = "image/jpeg"
)

// ChatMessage — реплика в переписке с советником.
type ChatMessage struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	HasImage  bool              `json:"has_image,omitempty"`
	Citations []models.Citation `json:"citations,omitempty"`
	Fallback  bool              `json:"fallback,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Transcript — переписка игрока в одном режиме.
type Transcript struct {
	Mode     models.Mode   `json:"mode"`
	Messages []ChatMessage `json:"messages"`
}

func (t Transcript) Clone() Transcript {
	t.Messages = slices.Clone(t.Messages)
	return t
}

type AdvisorHandler struct {
	Service     *ai.Service
	Registry    *progression.Registry
	Sequencer   *ai.Sequencer
	Transcripts session.Store[Transcript]
	Audit       *AIAudit
	Notifier    *notifications.Hub
}

// NewAdvisorHandler создает обработчик чата с советником.
func NewAdvisorHandler(service *ai.Service, registry *progression.Registry, sequencer *ai.Sequencer, transcripts session.Store[Transcript], audit *AIAudit, notifier *notifications.Hub) *AdvisorHandler {
	return &AdvisorHandler{
		Service:     service,
		Registry:    registry,
		Sequencer:   sequencer,
		Transcripts: transcripts,
		Audit:       audit,
		Notifier:    notifier,
	}
}

type AdviceRequest struct {
	Text     string       `json:"text" validate:"max=2000"`
	Image    string       `json:"image"`
	Location *ai.Location `json:"location"`
}

type AdviceResponse struct {
	Reply ai.Reply    `json:"reply"`
	Seq   uint64      `json:"seq"`
	Stale bool        `json:"stale"`
	Mode  models.Mode `json:"mode"`
}

// Messages возвращает переписку активного режима, начиная с приветствия.
func (h *AdvisorHandler) Messages(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	transcript, err := h.transcript(c.Request().Context(), playerID, engine.Mode())
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, transcript)
}

// Send задает вопрос советнику. Ответ попадает в переписку, только если за время
// ожидания игрок не отправил новый вопрос.
func (h *AdvisorHandler) Send(c echo.Context) error {
	var req AdviceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	text := strings.TrimSpace(req.Text)
	image, err := decodeImage(req.Image)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if text == "" && image == nil {
		return badRequest(c, "text or image is required")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()
	ctx := c.Request().Context()

	var playerProfile *models.Profile
	if p, found, err := profile.Load(ctx, h.Registry.Store(playerID)); err == nil && found {
		playerProfile = &p
	}

	if _, err := h.transcript(ctx, playerID, mode); err != nil {
		return serverError(c)
	}
	key := transcriptKey(playerID, mode)
	ticket := h.Sequencer.Issue(ai.SequenceKey(key, ai.ChannelAdvisor))

	userMessage := ChatMessage{Role: roleUser, Text: text, HasImage: image != nil, CreatedAt: time.Now().UTC()}
	if _, err := h.Transcripts.Update(ctx, key, func(t *Transcript) error {
		t.Messages = append(t.Messages, userMessage)
		return nil
	}); err != nil {
		return serverError(c)
	}

	input := ai.AdviceInput{
		Prompt:   text,
		Image:    image,
		Location: req.Location,
		Mode:     mode,
		Profile:  playerProfile,
	}
	reply, prompt, raw, adviceErr := h.Service.Advise(ctx, input)

	requestPayload, _ := json.Marshal(map[string]interface{}{
		"text":      text,
		"has_image": image != nil,
		"location":  req.Location,
		"mode":      mode,
	})
	responsePayload, _ := json.Marshal(reply)
	h.Audit.Record(c, playerID, aiRequestAdvice, prompt, requestPayload, responsePayload, raw, adviceErr)

	applied := h.Sequencer.Apply(ticket, func() {
		_, _ = h.Transcripts.Update(ctx, key, func(t *Transcript) error {
			t.Messages = append(t.Messages, ChatMessage{
				Role:      roleModel,
				Text:      reply.Text,
				Citations: reply.Citations,
				Fallback:  reply.Fallback,
				CreatedAt: time.Now().UTC(),
			})
			return nil
		})
		publish(h.Notifier, playerID, notifications.EventAdviceReady, map[string]interface{}{
			"mode": mode,
			"seq":  ticket.Seq,
		})
	})

	return c.JSON(http.StatusOK, AdviceResponse{
		Reply: reply,
		Seq:   ticket.Seq,
		Stale: !applied,
		Mode:  mode,
	})
}

// transcript возвращает переписку, создавая ее с приветствием режима.
func (h *AdvisorHandler) transcript(ctx context.Context, playerID uuid.UUID, mode models.Mode) (Transcript, error) {
	key := transcriptKey(playerID, mode)
	transcript, ok, err := h.Transcripts.Get(ctx, key)
	if err != nil {
		return Transcript{}, err
	}
	if ok {
		return transcript, nil
	}

	transcript = Transcript{
		Mode: mode,
		Messages: []ChatMessage{{
			Role:      roleModel,
			Text:      ai.Greeting(mode),
			CreatedAt: time.Now().UTC(),
		}},
	}
	if err := h.Transcripts.Put(ctx, key, transcript); err != nil {
		return Transcript{}, err
	}
	return transcript, nil
}

func transcriptKey(playerID uuid.UUID, mode models.Mode) string {
	return playerID.String() + ":" + string(mode)
}

// decodeImage принимает data URL или голый base64. Пустая строка означает отсутствие изображения.
func decodeImage(value string) (*ai.Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	mimeType := defaultImageMIMEType
	payload := value
	if strings.HasPrefix(value, "data:") {
		header, data, found := strings.Cut(value, ",")
		if !found {
			return nil, errors.New("invalid image data url")
		}
		payload = data
		header = strings.TrimPrefix(header, "data:")
		header = strings.TrimSuffix(header, ";base64")
		if header != "" {
			mimeType = header
		}
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.New("unsupported image type")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("invalid image encoding")
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return nil, errors.New("image is empty or too large")
	}

	return &ai.Image{MIMEType: mimeType, Data: data}, nil
}
