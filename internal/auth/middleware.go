package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ContextPlayerIDKey = "player_id"
	ContextGuestKey    = "guest"
)

// accessTokenQueryParam используется потоком SSE, где EventSource не умеет слать заголовки.
const accessTokenQueryParam = "access_token"

// JWTMiddleware проверяет access-токен и сохраняет player_id в контексте.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := manager.ParseAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			playerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(ContextPlayerIDKey, playerID)
			c.Set(ContextGuestKey, claims.Guest)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := strings.TrimSpace(c.QueryParam(accessTokenQueryParam)); token != "" && c.Request().Method == http.MethodGet {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return tokenString, nil
}

// PlayerIDFromContext извлекает идентификатор игрока из контекста.
func PlayerIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(ContextPlayerIDKey)
	playerID, ok := value.(uuid.UUID)
	return playerID, ok
}

// IsGuest сообщает, выдан ли токен гостевому игроку.
func IsGuest(c echo.Context) bool {
	guest, _ := c.Get(ContextGuestKey).(bool)
	return guest
}
