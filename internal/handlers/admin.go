package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/repository"
)

type AdminHandler struct {
	Repo *repository.AdminRepository
}

// NewAdminHandler создает обработчик админских эндпоинтов.
func NewAdminHandler(repo *repository.AdminRepository) *AdminHandler {
	return &AdminHandler{Repo: repo}
}

type AdminPlayerResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email,omitempty"`
	Name      *string   `json:"name,omitempty"`
	IsGuest   bool      `json:"is_guest"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type AdminPlayersResponse struct {
	Total   int                   `json:"total"`
	Players []AdminPlayerResponse `json:"players"`
}

type AdminAIRequestResponse struct {
	ID            uuid.UUID  `json:"id"`
	PlayerID      *uuid.UUID `json:"player_id,omitempty"`
	RequestType   string     `json:"request_type"`
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	PromptExcerpt string     `json:"prompt_excerpt"`
	Fallback      bool       `json:"fallback"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     string     `json:"created_at"`
}

type AdminAIRequestsResponse struct {
	Total    int                      `json:"total"`
	Requests []AdminAIRequestResponse `json:"requests"`
}

type AdminUsageDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AdminUsageResponse struct {
	Players         int              `json:"players"`
	Guests          int              `json:"guests"`
	ActivePlayers   int              `json:"active_players"`
	AIRequests      int              `json:"ai_requests"`
	AISuccess       int              `json:"ai_success"`
	AIFail          int              `json:"ai_fail"`
	AIRequestsByDay []AdminUsageDay  `json:"ai_requests_by_day"`
	AIByType        []AdminUsageType `json:"ai_requests_by_type"`
}

// AdminUsageType — обращения к модели и запасные ответы по одному экрану.
type AdminUsageType struct {
	RequestType string `json:"request_type"`
	Requests    int    `json:"requests"`
	Fallbacks   int    `json:"fallbacks"`
}

// aiRequestTypes — экраны, которые пишут в журнал AI-запросов.
var aiRequestTypes = map[string]struct{}{
	aiRequestAdvice:        {},
	aiRequestNews:          {},
	aiRequestOrganizations: {},
	aiRequestMissions:      {},
	aiRequestQuiz:          {},
}

// ListPlayers возвращает список игроков для админки.
func (h *AdminHandler) ListPlayers(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	players, err := h.Repo.ListPlayers(c.Request().Context(), limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountPlayers(c.Request().Context())
	if err != nil {
		return serverError(c)
	}

	response := make([]AdminPlayerResponse, 0, len(players))
	for _, player := range players {
		response = append(response, AdminPlayerResponse{
			ID:        player.ID,
			Email:     player.Email,
			Name:      player.DisplayName,
			IsGuest:   player.IsGuest,
			CreatedAt: player.CreatedAt.Format(timeLayout),
			UpdatedAt: player.UpdatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, AdminPlayersResponse{
		Total:   total,
		Players: response,
	})
}

// ListAIRequests возвращает журнал AI-запросов для разбора запасных ответов.
// Фильтры: player_id, success и request_type (advice, news, organizations, missions, quiz).
func (h *AdminHandler) ListAIRequests(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.AIRequestFilter{}
	if raw := strings.TrimSpace(c.QueryParam("player_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid player_id")
		}
		filter.PlayerID = &parsed
	}

	if raw := strings.TrimSpace(c.QueryParam("success")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid success")
		}
		filter.Success = &parsed
	}

	if raw := strings.ToLower(strings.TrimSpace(c.QueryParam("request_type"))); raw != "" {
		if _, ok := aiRequestTypes[raw]; !ok {
			return badRequest(c, "invalid request_type")
		}
		filter.RequestType = &raw
	}

	requests, err := h.Repo.ListAIRequests(c.Request().Context(), filter, limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountAIRequests(c.Request().Context(), filter)
	if err != nil {
		return serverError(c)
	}

	response := make([]AdminAIRequestResponse, 0, len(requests))
	for _, req := range requests {
		response = append(response, AdminAIRequestResponse{
			ID:            req.ID,
			PlayerID:      req.PlayerID,
			RequestType:   req.RequestType,
			Provider:      req.Provider,
			Model:         req.Model,
			PromptExcerpt: req.PromptExcerpt,
			Fallback:      !req.Success,
			ErrorMessage:  req.ErrorMessage,
			CreatedAt:     req.CreatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, AdminAIRequestsResponse{
		Total:    total,
		Requests: response,
	})
}

// Usage возвращает агрегированную статистику использования.
func (h *AdminHandler) Usage(c echo.Context) error {
	days := 7
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		if parsed > 30 {
			parsed = 30
		}
		days = parsed
	}

	stats, err := h.Repo.UsageStats(c.Request().Context(), days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	daysResponse := make([]AdminUsageDay, 0, len(stats.AIRequestsByDay))
	for _, day := range stats.AIRequestsByDay {
		daysResponse = append(daysResponse, AdminUsageDay{
			Date:  day.Day.Format("2006-01-02"),
			Count: day.Count,
		})
	}

	typesResponse := make([]AdminUsageType, 0, len(stats.AIRequestsByType))
	for _, row := range stats.AIRequestsByType {
		typesResponse = append(typesResponse, AdminUsageType{
			RequestType: row.RequestType,
			Requests:    row.Requests,
			Fallbacks:   row.Fallbacks,
		})
	}

	return c.JSON(http.StatusOK, AdminUsageResponse{
		Players:         stats.Players,
		Guests:          stats.Guests,
		ActivePlayers:   stats.ActivePlayers,
		AIRequests:      stats.AIRequests,
		AISuccess:       stats.AISuccess,
		AIFail:          stats.AIFail,
		AIRequestsByDay: daysResponse,
		AIByType:        typesResponse,
	})
}

// AdminMiddleware ограничивает доступ к админским роутам по email.
func AdminMiddleware(players *repository.PlayerRepository, emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		trimmed := strings.ToLower(strings.TrimSpace(email))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			playerID, ok := auth.PlayerIDFromContext(c)
			if !ok {
				return unauthorized(c)
			}

			if len(allowed) == 0 || auth.IsGuest(c) {
				return forbidden(c)
			}

			player, err := players.GetByID(c.Request().Context(), playerID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return forbidden(c)
				}
				return serverError(c)
			}
			if player.Email == nil {
				return forbidden(c)
			}

			email := strings.ToLower(strings.TrimSpace(*player.Email))
			if _, ok := allowed[email]; !ok {
				return forbidden(c)
			}

			return next(c)
		}
	}
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
