package server

import (
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/handlers"
)

type routeHandlers struct {
	auth          *handlers.AuthHandler
	progress      *handlers.ProgressHandler
	profile       *handlers.ProfileHandler
	advisor       *handlers.AdvisorHandler
	discover      *handlers.DiscoverHandler
	missions      *handlers.MissionHandler
	quiz          *handlers.QuizHandler
	games         *handlers.GameHandler
	exports       *handlers.ExportHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
}

func registerRoutes(
	e *echo.Echo,
	h routeHandlers,
	authMiddleware echo.MiddlewareFunc,
	adminMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", handlers.Health)

	api := e.Group("/api/v1")
	api.GET("/health", handlers.Health)

	authGroup := api.Group("/auth", authRateLimiter)
	authGroup.POST("/guest", h.auth.Guest)
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.POST("/claim", h.auth.Claim, authMiddleware)
	authGroup.GET("/me", h.auth.Me, authMiddleware)

	progress := api.Group("/progress", authMiddleware)
	progress.GET("", h.progress.Get)
	progress.PUT("/mode", h.progress.SetMode)
	progress.GET("/:mode", h.progress.GetMode)
	progress.POST("/:mode/level-up", h.progress.LevelUp)
	api.GET("/levels/:mode", h.progress.Levels, authMiddleware)

	profile := api.Group("/profile", authMiddleware)
	profile.GET("", h.profile.Get)
	profile.PUT("", h.profile.Update)
	profile.POST("/onboarding", h.profile.Onboarding)
	profile.GET("/avatars", h.profile.Avatars)

	advisor := api.Group("/advisor", authMiddleware)
	advisor.GET("/messages", h.advisor.Messages)
	advisor.POST("/messages", h.advisor.Send, aiRateLimiter)

	api.GET("/news", h.discover.News, authMiddleware, aiRateLimiter)
	organizations := api.Group("/organizations", authMiddleware)
	organizations.GET("/categories", h.discover.Categories)
	organizations.GET("/latest", h.discover.LatestOrganizations)
	organizations.POST("/search", h.discover.SearchOrganizations, aiRateLimiter)

	missions := api.Group("/missions", authMiddleware)
	missions.GET("", h.missions.Board, aiRateLimiter)
	missions.POST("/:id/complete", h.missions.Complete)

	quiz := api.Group("/quiz", authMiddleware)
	quiz.GET("/topics", h.quiz.Topics)
	quiz.POST("/sessions", h.quiz.Start, aiRateLimiter)
	quiz.GET("/sessions/:id", h.quiz.Get)
	quiz.POST("/sessions/:id/answer", h.quiz.Answer)
	quiz.POST("/sessions/:id/next", h.quiz.Next)

	games := api.Group("/games", authMiddleware)
	games.GET("", h.games.Catalog)
	games.POST("/sort", h.games.Sort)
	games.POST("/grow/water", h.games.Water)
	games.POST("/tap/start", h.games.TapStart)
	games.POST("/tap/hit", h.games.TapHit)
	games.POST("/tap/finish", h.games.TapFinish)

	exports := api.Group("/exports", authMiddleware)
	exports.GET("/progress.json", h.exports.ExportJSON)
	exports.GET("/progress.csv", h.exports.ExportCSV)
	exports.GET("/certificate.pdf", h.exports.Certificate)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", h.notifications.Stream)

	api.GET("/learning", handlers.Learning, authMiddleware)

	admin := api.Group("/admin", authMiddleware, adminMiddleware)
	admin.GET("/players", h.admin.ListPlayers)
	admin.GET("/ai-requests", h.admin.ListAIRequests)
	admin.GET("/usage", h.admin.Usage)
}
