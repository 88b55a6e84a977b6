package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tmratwork/risetwice-backend/internal/clients/redis"
	"github.com/tmratwork/risetwice-backend/internal/db"
	"github.com/tmratwork/risetwice-backend/internal/handlers"
	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/middleware"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/server"
	"github.com/tmratwork/risetwice-backend/internal/services"
	"github.com/tmratwork/risetwice-backend/internal/sse"
	"github.com/tmratwork/risetwice-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	promptRepo := repos.NewPromptRepo(thePG, log)
	specialistPromptRepo := repos.NewSpecialistPromptRepo(thePG, log)
	memoryRepo := repos.NewMemoryRepo(thePG, log)
	profileRepo := repos.NewUserProfileRepo(thePG, log)
	summaryJobRepo := repos.NewSummaryJobRepo(thePG, log)
	summarySheetRepo := repos.NewSummarySheetRepo(thePG, log)
	greetingRepo := repos.NewGreetingResourceRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewHub(log)
	var notifier sse.Notifier = sseHub
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, err := redis.NewSSEBus(log)
		if err != nil {
			log.Warn("Could not init redis SSE bus, running single-instance", "error", err)
		} else if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Could not start redis SSE forwarder", "error", err)
		} else {
			notifier = redis.NewNotifier(sseBus, log)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Error("Could not init AIClient", "error", err)
		os.Exit(1)
	}
	promptService := services.NewPromptService(thePG, log, promptRepo)
	memoryService := services.NewMemoryService(thePG, log, conversationRepo, messageRepo, memoryRepo, profileRepo, promptService, aiClient)
	sessionService := services.NewSessionService(thePG, log, conversationRepo, specialistPromptRepo, profileRepo)
	summaryService := services.NewSummaryService(thePG, log, notifier, summaryJobRepo, summarySheetRepo, profileRepo, conversationRepo, messageRepo, promptService, aiClient)
	summaryService.StartWorker(context.Background())
	specialistPromptService := services.NewSpecialistPromptService(thePG, log, specialistPromptRepo)
	greetingService := services.NewGreetingService(thePG, log, greetingRepo, promptService, aiClient)

	// Handlers
	log.Info("Setting up handlers from main...")
	memoryHandler := handlers.NewMemoryHandler(memoryService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)
	promptHandler := handlers.NewPromptHandler(promptService)
	adminHandler := handlers.NewAdminHandler(specialistPromptService, greetingService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		MemoryHandler:  memoryHandler,
		SessionHandler: sessionHandler,
		SummaryHandler: summaryHandler,
		PromptHandler:  promptHandler,
		AdminHandler:   adminHandler,
		SSEHandler:     sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
