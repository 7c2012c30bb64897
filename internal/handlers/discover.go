package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/ai"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/notifications"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/session"
)

// OrganizationCategory — быстрый фильтр поиска организаций.
type OrganizationCategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
	Query string `json:"query"`
}

// OrganizationCategories перечисляет фильтры в порядке показа.
var OrganizationCategories = []OrganizationCategory{
	{ID: "global", Label: "Global Orgs", Query: "Global Orgs"},
	{ID: "forest", Label: "Reforestation", Query: "Reforestation"},
	{ID: "ocean", Label: "Ocean Health", Query: "Ocean Health"},
	{ID: "wildlife", Label: "Wildlife Fund", Query: "Wildlife Fund"},
	{ID: "waste", Label: "Plastic Waste", Query: "Plastic Waste"},
	{ID: "local", Label: "Near Me", Icon: "📍", Query: "local"},
}

// OrganizationResult — последняя примененная выдача поиска игрока.
type OrganizationResult struct {
	Query string   `json:"query"`
	Reply ai.Reply `json:"reply"`
	Seq   uint64   `json:"seq"`
}

type DiscoverHandler struct {
	Service   *ai.Service
	Registry  *progression.Registry
	Sequencer *ai.Sequencer
	Results   session.Store[OrganizationResult]
	Audit     *AIAudit
	Notifier  *notifications.Hub
}

// NewDiscoverHandler создает обработчик новостей и поиска организаций.
func NewDiscoverHandler(service *ai.Service, registry *progression.Registry, sequencer *ai.Sequencer, results session.Store[OrganizationResult], audit *AIAudit, notifier *notifications.Hub) *DiscoverHandler {
	return &DiscoverHandler{
		Service:   service,
		Registry:  registry,
		Sequencer: sequencer,
		Results:   results,
		Audit:     audit,
		Notifier:  notifier,
	}
}

type OrganizationSearchRequest struct {
	Query    string       `json:"query" validate:"omitempty,max=200"`
	Category string       `json:"category" validate:"omitempty,oneof=global forest ocean wildlife waste local"`
	Location *ai.Location `json:"location"`
}

type NewsResponse struct {
	Mode  models.Mode `json:"mode"`
	Reply ai.Reply    `json:"reply"`
}

type OrganizationSearchResponse struct {
	Query string   `json:"query"`
	Reply ai.Reply `json:"reply"`
	Seq   uint64   `json:"seq"`
	Stale bool     `json:"stale"`
}

// News возвращает дайджест новостей активного режима. refresh=true обходит кэш.
func (h *DiscoverHandler) News(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()

	refresh := false
	if raw := strings.TrimSpace(c.QueryParam("refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid refresh")
		}
		refresh = parsed
	}

	reply, prompt, raw, newsErr := h.Service.News(c.Request().Context(), mode, refresh)
	if prompt != "" {
		requestPayload, _ := json.Marshal(map[string]interface{}{"mode": mode, "refresh": refresh})
		responsePayload, _ := json.Marshal(reply)
		h.Audit.Record(c, playerID, aiRequestNews, prompt, requestPayload, responsePayload, raw, newsErr)
		publish(h.Notifier, playerID, notifications.EventNewsReady, map[string]interface{}{"mode": mode})
	}

	return c.JSON(http.StatusOK, NewsResponse{Mode: mode, Reply: reply})
}

// Categories возвращает фильтры поиска организаций.
func (h *DiscoverHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, OrganizationCategories)
}

// LatestOrganizations возвращает последнюю примененную выдачу поиска.
func (h *DiscoverHandler) LatestOrganizations(c echo.Context) error {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}

	result, ok, err := h.Results.Get(c.Request().Context(), transcriptKey(playerID, engine.Mode()))
	if err != nil {
		return serverError(c)
	}
	if !ok {
		return notFound(c, "no search yet")
	}
	return c.JSON(http.StatusOK, result)
}

// SearchOrganizations ищет организации по запросу или категории.
// Новый поиск делает ответы предыдущих поисков устаревшими.
func (h *DiscoverHandler) SearchOrganizations(c echo.Context) error {
	var req OrganizationSearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	query := strings.TrimSpace(req.Query)
	if req.Category != "" {
		query = categoryQuery(req.Category)
	}
	if query == "" {
		return badRequest(c, "query or category is required")
	}

	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return err
	}
	mode := engine.Mode()
	ctx := c.Request().Context()

	key := transcriptKey(playerID, mode)
	ticket := h.Sequencer.Issue(ai.SequenceKey(key, ai.ChannelOrganizations))

	reply, prompt, raw, searchErr := h.Service.FindOrganizations(ctx, ai.OrganizationInput{
		Query:    query,
		Location: req.Location,
		Mode:     mode,
	})

	requestPayload, _ := json.Marshal(map[string]interface{}{
		"query":    query,
		"category": req.Category,
		"location": req.Location,
		"mode":     mode,
	})
	responsePayload, _ := json.Marshal(reply)
	h.Audit.Record(c, playerID, aiRequestOrganizations, prompt, requestPayload, responsePayload, raw, searchErr)

	applied := h.Sequencer.Apply(ticket, func() {
		_ = h.Results.Put(ctx, key, OrganizationResult{Query: query, Reply: reply, Seq: ticket.Seq})
		publish(h.Notifier, playerID, notifications.EventOrganizationsReady, map[string]interface{}{
			"mode":  mode,
			"query": query,
			"seq":   ticket.Seq,
		})
	})

	return c.JSON(http.StatusOK, OrganizationSearchResponse{
		Query: query,
		Reply: reply,
		Seq:   ticket.Seq,
		Stale: !applied,
	})
}

func categoryQuery(id string) string {
	for _, category := range OrganizationCategories {
		if category.ID == id {
			return category.Query
		}
	}
	return ""
}
