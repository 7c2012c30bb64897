package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/profile"
	"example.com/ecopulse/backend/internal/progression"
)

type ProfileHandler struct {
	Registry *progression.Registry
}

// NewProfileHandler создает обработчик анкеты игрока.
func NewProfileHandler(registry *progression.Registry) *ProfileHandler {
	return &ProfileHandler{Registry: registry}
}

type ProfileRequest struct {
	Name       string `json:"name" validate:"max=60"`
	Age        string `json:"age" validate:"max=3"`
	Pronouns   string `json:"pronouns" validate:"max=30"`
	FavColor   string `json:"favColor" validate:"max=40"`
	FavFood    string `json:"favFood" validate:"max=40"`
	FavAnimal  string `json:"favAnimal" validate:"max=40"`
	AvatarIcon string `json:"avatarIcon" validate:"max=32"`
}

type OnboardingRequest struct {
	Step    int            `json:"step" validate:"min=1,max=3"`
	Profile ProfileRequest `json:"profile"`
}

type ProfileResponse struct {
	Profile   models.Profile `json:"profile"`
	Completed bool           `json:"completed"`
}

type OnboardingResponse struct {
	Step      int            `json:"step"`
	Completed bool           `json:"completed"`
	Profile   models.Profile `json:"profile"`
}

type AvatarsResponse struct {
	Avatars []string `json:"avatars"`
	Default string   `json:"default"`
}

// Get возвращает сохраненную анкету.
func (h *ProfileHandler) Get(c echo.Context) error {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	p, found, err := profile.Load(c.Request().Context(), h.Registry.Store(playerID))
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ProfileResponse{Profile: p, Completed: found && p.Complete()})
}

// Onboarding проверяет шаг мастера. На последнем шаге анкета сохраняется.
func (h *ProfileHandler) Onboarding(c echo.Context) error {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OnboardingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	draft := profile.Normalize(req.Profile.toModel())
	next, done, err := profile.Advance(req.Step, draft)
	if err != nil {
		return badRequest(c, profileErrorMessage(err))
	}

	if done {
		if err := profile.Save(c.Request().Context(), h.Registry.Store(playerID), draft); err != nil {
			return serverError(c)
		}
	}

	return c.JSON(http.StatusOK, OnboardingResponse{Step: next, Completed: done, Profile: draft})
}

// Update сохраняет изменения из редактора аватара.
func (h *ProfileHandler) Update(c echo.Context) error {
	playerID, ok := auth.PlayerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	updated := profile.Normalize(req.toModel())
	if err := profile.ValidateCustomization(updated); err != nil {
		return badRequest(c, profileErrorMessage(err))
	}

	kv := h.Registry.Store(playerID)
	current, _, err := profile.Load(c.Request().Context(), kv)
	if err != nil {
		return serverError(c)
	}
	// Имя и возраст задаются в онбординге; пустые значения редактора их не стирают.
	if updated.Name == "" {
		updated.Name = current.Name
	}
	if updated.Age == "" {
		updated.Age = current.Age
	}

	if err := profile.Save(c.Request().Context(), kv, updated); err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ProfileResponse{Profile: updated, Completed: updated.Complete()})
}

// Avatars возвращает палитру аватаров.
func (h *ProfileHandler) Avatars(c echo.Context) error {
	return c.JSON(http.StatusOK, AvatarsResponse{
		Avatars: profile.AvatarPalette,
		Default: profile.AvatarPalette[0],
	})
}

func (r ProfileRequest) toModel() models.Profile {
	return models.Profile{
		Name:       r.Name,
		Age:        r.Age,
		Pronouns:   r.Pronouns,
		FavColor:   r.FavColor,
		FavFood:    r.FavFood,
		FavAnimal:  r.FavAnimal,
		AvatarIcon: r.AvatarIcon,
	}
}

func profileErrorMessage(err error) string {
	switch {
	case errors.Is(err, profile.ErrPronounsRequired):
		return "pronouns are required"
	case errors.Is(err, profile.ErrDetailsRequired):
		return "name, age and pronouns are required"
	case errors.Is(err, profile.ErrInvalidAvatar):
		return "unknown avatar"
	default:
		return "invalid onboarding step"
	}
}
