package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tmratwork/risetwice-backend/internal/handlers"
	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/middleware"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/server"
	"github.com/tmratwork/risetwice-backend/internal/services"
	"github.com/tmratwork/risetwice-backend/internal/sse"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type scriptedAI struct {
	responses []string
	calls     int
}

func (s *scriptedAI) Chat(ctx context.Context, messages []services.AIMessage, opts *services.AIOptions) (string, error) {
	s.calls++
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scriptedAI: no responses left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	ai     *scriptedAI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.UserProfile{},
		&types.Conversation{},
		&types.Message{},
		&types.Prompt{},
		&types.PromptVersion{},
		&types.SpecialistPrompt{},
		&types.MemorySnapshot{},
		&types.SummaryJob{},
		&types.SummarySheet{},
		&types.GreetingResource{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logger.NewNop()
	ai := &scriptedAI{}

	conversationRepo := repos.NewConversationRepo(db, log)
	messageRepo := repos.NewMessageRepo(db, log)
	memoryRepo := repos.NewMemoryRepo(db, log)
	profileRepo := repos.NewUserProfileRepo(db, log)
	promptRepo := repos.NewPromptRepo(db, log)
	specialistRepo := repos.NewSpecialistPromptRepo(db, log)
	jobRepo := repos.NewSummaryJobRepo(db, log)
	sheetRepo := repos.NewSummarySheetRepo(db, log)
	greetingRepo := repos.NewGreetingResourceRepo(db, log)

	promptService := services.NewPromptService(db, log, promptRepo)
	memoryService := services.NewMemoryService(db, log, conversationRepo, messageRepo, memoryRepo, profileRepo, promptService, ai)
	sessionService := services.NewSessionService(db, log, conversationRepo, specialistRepo, profileRepo)
	summaryService := services.NewSummaryService(db, log, nil, jobRepo, sheetRepo, profileRepo, conversationRepo, messageRepo, promptService, ai)
	specialistService := services.NewSpecialistPromptService(db, log, specialistRepo)
	greetingService := services.NewGreetingService(db, log, greetingRepo, promptService, ai)

	hub := sse.NewHub(log)

	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: middleware.NewAuthMiddleware(log, "test-secret"),
		MemoryHandler:  handlers.NewMemoryHandler(memoryService),
		SessionHandler: handlers.NewSessionHandler(sessionService),
		SummaryHandler: handlers.NewSummaryHandler(summaryService),
		PromptHandler:  handlers.NewPromptHandler(promptService),
		AdminHandler:   handlers.NewAdminHandler(specialistService, greetingService),
		SSEHandler:     handlers.NewSSEHandler(log, hub),
	})

	return &testEnv{db: db, router: router, ai: ai}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	// healthcheck and SSE bodies are not JSON; only decode objects
	var decoded map[string]any
	if raw := rec.Body.Bytes(); json.Valid(raw) {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func (e *testEnv) seedConversation(t *testing.T, userID uuid.UUID, turns []string) uuid.UUID {
	t.Helper()
	now := time.Now().Add(-time.Hour)
	conv := &types.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.db.Create(conv).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	for i := 0; i+1 < len(turns); i += 2 {
		msg := &types.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Role:           turns[i],
			Content:        turns[i+1],
			CreatedAt:      now.Add(time.Duration(i) * time.Second),
		}
		if err := e.db.Create(msg).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
	return conv.ID
}

func qualityTurns() []string {
	long := strings.Repeat("I keep replaying the argument in my head. ", 3)
	return []string{
		"user", long,
		"assistant", "That sounds exhausting.",
		"user", long,
		"assistant", "What happens when it starts?",
		"user", long,
		"assistant", "Let's try grounding next time.",
	}
}

func TestProcessMemoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	env.seedConversation(t, userID, qualityTurns())
	env.ai.responses = []string{`{"health_concerns": ["rumination"]}`}

	rec, body := env.do(t, http.MethodPost, "/api/v16/process-memory", map[string]any{
		"userId": userID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("response missing stats: %v", body)
	}
	if stats["conversationsProcessed"] != float64(1) {
		t.Fatalf("conversationsProcessed = %v, want 1", stats["conversationsProcessed"])
	}
	memory, ok := body["memory"].(map[string]any)
	if !ok {
		t.Fatalf("response missing memory: %v", body)
	}
	if _, ok := memory["health_concerns"]; !ok {
		t.Fatalf("memory = %v", memory)
	}
}

func TestProcessMemoryEndpointSkipsShortConversations(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	env.seedConversation(t, userID, []string{"user", "hello", "assistant", "hi"})

	rec, body := env.do(t, http.MethodPost, "/api/v16/process-memory", map[string]any{
		"userId": userID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stats := body["stats"].(map[string]any)
	if stats["skippedTooShort"] != float64(1) || stats["conversationsProcessed"] != float64(0) {
		t.Fatalf("stats = %v", stats)
	}
	if env.ai.calls != 0 {
		t.Fatalf("AI calls = %d, want 0", env.ai.calls)
	}
}

func TestProcessMemoryEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v16/process-memory", map[string]any{
		"userId": "not-a-uuid",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok || errObj["code"] != "validation" {
		t.Fatalf("body = %v, want validation error envelope", body)
	}
}

func TestStartSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if err := env.db.Create(&types.SpecialistPrompt{
		ID:            uuid.New(),
		PromptType:    "triage",
		PromptContent: "You are a triage specialist.",
		IsActive:      true,
	}).Error; err != nil {
		t.Fatalf("seed specialist prompt: %v", err)
	}

	rec, body := env.do(t, http.MethodPost, "/api/v16/start-session", map[string]any{
		"specialistType": "triage",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	session, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("body = %v", body)
	}
	if session["specialistType"] != "triage" {
		t.Fatalf("session = %v", session)
	}
}

func TestStartSessionEndpointUnknownSpecialist(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v16/start-session", map[string]any{
		"specialistType": "no_such_specialist",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "not_found" {
		t.Fatalf("error = %v", errObj)
	}
}

func TestGenerateSummarySheetEndpointOptIn(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	if err := env.db.Create(&types.UserProfile{ID: userID}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec, body := env.do(t, http.MethodPost, "/api/v11/generate-summary-sheet", map[string]any{
		"userId": userID.String(),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body["requiresOptIn"] != true {
		t.Fatalf("body = %v, want requiresOptIn flag", body)
	}
}

func TestGenerateSummarySheetEndpointEnqueues(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	if err := env.db.Create(&types.UserProfile{ID: userID, InsightsOptIn: true}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	env.seedConversation(t, userID, qualityTurns())

	rec, body := env.do(t, http.MethodPost, "/api/v11/generate-summary-sheet", map[string]any{
		"userId": userID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body["status"] != "pending" {
		t.Fatalf("status field = %v, want pending", body["status"])
	}

	jobID := body["jobId"].(string)
	rec, body = env.do(t, http.MethodGet, "/api/v11/generate-summary-sheet?jobId="+jobID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll status = %d", rec.Code)
	}
	if body["progress"] != float64(0) || body["status"] != "pending" {
		t.Fatalf("poll body = %v", body)
	}
}

func TestSummarySheetByTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	sheet := &types.SummarySheet{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		InsightID:      uuid.New(),
		SummaryContent: "Strengths\nKeeps showing up.",
		SharingToken:   strings.Repeat("ab", 24),
		GeneratedAt:    time.Now(),
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
	if err := env.db.Create(sheet).Error; err != nil {
		t.Fatalf("seed sheet: %v", err)
	}

	rec, body := env.do(t, http.MethodGet, "/api/v11/summary-sheet/"+sheet.SharingToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body["summaryContent"] != sheet.SummaryContent {
		t.Fatalf("body = %v", body)
	}

	expired := &types.SummarySheet{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		InsightID:      uuid.New(),
		SummaryContent: "old",
		SharingToken:   strings.Repeat("cd", 24),
		GeneratedAt:    time.Now().Add(-31 * 24 * time.Hour),
		ExpiresAt:      time.Now().Add(-time.Hour),
	}
	if err := env.db.Create(expired).Error; err != nil {
		t.Fatalf("seed expired sheet: %v", err)
	}

	rec, body = env.do(t, http.MethodGet, "/api/v11/summary-sheet/"+expired.SharingToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for expired sheet", rec.Code)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "sheet_expired" {
		t.Fatalf("error = %v", errObj)
	}
}

func TestSavePromptEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := uuid.New()

	rec, body := env.do(t, http.MethodPost, "/api/v15/save-prompt", map[string]any{
		"userId":   admin.String(),
		"category": "memory_extraction_system",
		"content":  "Custom extraction instructions.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	version := body["version"].(map[string]any)
	if version["version_number"] != float64(1) {
		t.Fatalf("version = %v", version)
	}

	rec, body = env.do(t, http.MethodGet, "/api/v15/prompts?category=memory_extraction_system", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["content"] != "Custom extraction instructions." {
		t.Fatalf("content = %v", body["content"])
	}
}

func TestSavePromptEndpointRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v15/save-prompt", map[string]any{
		"userId":   uuid.New().String(),
		"category": "arbitrary_system",
		"content":  "anything",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "category_not_allowed" {
		t.Fatalf("error = %v", errObj)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/admin/specialist-prompts", map[string]any{
		"promptType":    "triage",
		"promptContent": "new prompt",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a token", rec.Code)
	}
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
