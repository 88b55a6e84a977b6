package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tmratwork/risetwice-backend/internal/handlers"
	"github.com/tmratwork/risetwice-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	MemoryHandler  *handlers.MemoryHandler
	SessionHandler *handlers.SessionHandler
	SummaryHandler *handlers.SummaryHandler
	PromptHandler  *handlers.PromptHandler
	AdminHandler   *handlers.AdminHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// v16: memory pipeline + specialist sessions
		v16 := api.Group("/v16")
		v16.POST("/process-memory", cfg.MemoryHandler.ProcessMemory)
		v16.GET("/memory", cfg.MemoryHandler.GetLatest)
		v16.POST("/start-session", cfg.SessionHandler.StartSession)
		v16.POST("/end-session", cfg.SessionHandler.EndSession)

		// v11: warm hand-off summary sheets
		v11 := api.Group("/v11")
		v11.POST("/generate-summary-sheet", cfg.SummaryHandler.GenerateSummarySheet)
		v11.GET("/generate-summary-sheet", cfg.SummaryHandler.GetJobStatus)
		v11.GET("/summary-sheet/:token", cfg.SummaryHandler.GetSheetByToken)

		// v15: versioned prompt store
		v15 := api.Group("/v15")
		v15.POST("/save-prompt", cfg.PromptHandler.SavePrompt)
		v15.GET("/prompts", cfg.PromptHandler.GetCurrent)

		// admin
		admin := api.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
		admin.POST("/specialist-prompts", cfg.AdminHandler.UpsertSpecialistPrompt)
		admin.POST("/translate-greetings", cfg.AdminHandler.TranslateGreetings)
	}

	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
