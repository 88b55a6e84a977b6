package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/sse"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

var ErrUserNotFound = errors.New("user profile not found")
var ErrInsightsOptInRequired = errors.New("user has not opted into insights")
var ErrJobNotFound = errors.New("job not found")
var ErrSheetNotFound = errors.New("summary sheet not found")
var ErrSheetExpired = errors.New("summary sheet has expired")

// summarySheetCategories are the consentable sections of a summary
// sheet. Anything outside this list never reaches the prompt.
var summarySheetCategories = []string{"strengths", "goals", "coping", "resources", "risk", "safety"}

const sheetExpiryDays = 30
const summaryMaxTokens = 4096
const summaryTemperature = 0.3

type SummaryService interface {
	// EnqueueSummarySheet creates a pending job row. The worker picks
	// it up; callers poll GetJob by id.
	EnqueueSummarySheet(ctx context.Context, userID uuid.UUID) (*types.SummaryJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.SummaryJob, error)
	GetSheetForJob(ctx context.Context, jobID uuid.UUID) (*types.SummarySheet, error)
	GetSheetByToken(ctx context.Context, token string) (*types.SummarySheet, error)
	// StartWorker launches the claim loop. Jobs live in job_status, so
	// work survives process restarts. Failed is terminal: a failed job
	// is never retried, the client submits a new one.
	StartWorker(ctx context.Context)
}

type summaryService struct {
	db  *gorm.DB
	log *logger.Logger

	notify sse.Notifier

	jobRepo          repos.SummaryJobRepo
	sheetRepo        repos.SummarySheetRepo
	profileRepo      repos.UserProfileRepo
	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo

	prompts PromptService
	ai      AIClient
}

func NewSummaryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	notify sse.Notifier,
	jobRepo repos.SummaryJobRepo,
	sheetRepo repos.SummarySheetRepo,
	profileRepo repos.UserProfileRepo,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	prompts PromptService,
	ai AIClient,
) SummaryService {
	return &summaryService{
		db:               db,
		log:              baseLog.With("service", "SummaryService"),
		notify:           notify,
		jobRepo:          jobRepo,
		sheetRepo:        sheetRepo,
		profileRepo:      profileRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		prompts:          prompts,
		ai:               ai,
	}
}

func (s *summaryService) EnqueueSummarySheet(ctx context.Context, userID uuid.UUID) (*types.SummaryJob, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing userId")
	}
	profile, err := s.profileRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	if !profile.InsightsOptIn {
		return nil, ErrInsightsOptInRequired
	}

	conversations, err := s.conversationRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	now := time.Now()
	job := &types.SummaryJob{
		ID:                 uuid.New(),
		UserID:             userID,
		Status:             types.JobStatusPending,
		Progress:           0,
		TotalConversations: len(conversations),
		Insights:           datatypes.JSON([]byte(`{}`)),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := s.jobRepo.Create(ctx, nil, []*types.SummaryJob{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.broadcast(userID, sse.EventSummaryJobCreated, map[string]any{"job_id": job.ID})
	return job, nil
}

func (s *summaryService) GetJob(ctx context.Context, jobID uuid.UUID) (*types.SummaryJob, error) {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *summaryService) GetSheetForJob(ctx context.Context, jobID uuid.UUID) (*types.SummarySheet, error) {
	return s.sheetRepo.GetByInsightID(ctx, nil, jobID)
}

func (s *summaryService) GetSheetByToken(ctx context.Context, token string) (*types.SummarySheet, error) {
	sheet, err := s.sheetRepo.GetBySharingToken(ctx, nil, token)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, ErrSheetNotFound
	}
	if time.Now().After(sheet.ExpiresAt) {
		return nil, ErrSheetExpired
	}
	return sheet, nil
}

func (s *summaryService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		const maxAttempts = 3
		staleProcessing := 2 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := s.jobRepo.ClaimNextRunnable(ctx, nil, maxAttempts, staleProcessing)
				if err != nil {
					s.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				s.processJob(ctx, job)
			}
		}
	}()
}

func (s *summaryService) processJob(ctx context.Context, job *types.SummaryJob) {
	userID := job.UserID
	jobID := job.ID

	fail := func(err error) {
		now := time.Now()
		_ = s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]any{
			"status":        types.JobStatusFailed,
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		s.broadcast(userID, sse.EventSummaryJobFailed, map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
		s.log.Warn("Summary job failed", "job_id", jobID, "error", err)
	}

	// Progress checkpoints are fixed at 0/50/75/100 to match what
	// clients already expect from the polling contract.
	progress := func(pct int, fields map[string]any) {
		updates := map[string]any{
			"progress":     pct,
			"heartbeat_at": time.Now(),
		}
		for k, v := range fields {
			updates[k] = v
		}
		_ = s.jobRepo.UpdateFields(ctx, nil, jobID, updates)
		s.broadcast(userID, sse.EventSummaryJobProgress, map[string]any{
			"job_id":   jobID,
			"progress": pct,
		})
	}

	profile, err := s.profileRepo.GetByID(ctx, nil, userID)
	if err != nil {
		fail(fmt.Errorf("load profile: %w", err))
		return
	}
	if profile == nil {
		fail(ErrUserNotFound)
		return
	}
	if !profile.InsightsOptIn {
		fail(ErrInsightsOptInRequired)
		return
	}

	conversations, err := s.conversationRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		fail(fmt.Errorf("load conversations: %w", err))
		return
	}

	conversationIDs := make([]uuid.UUID, 0, len(conversations))
	for _, conv := range conversations {
		if conv != nil {
			conversationIDs = append(conversationIDs, conv.ID)
		}
	}
	messagesByConv, err := s.messageRepo.GetByConversationIDs(ctx, nil, conversationIDs)
	if err != nil {
		fail(fmt.Errorf("load messages: %w", err))
		return
	}

	var transcripts []string
	messageCount := 0
	for _, conv := range conversations {
		msgs := messagesByConv[conv.ID]
		if len(msgs) == 0 {
			continue
		}
		messageCount += len(msgs)
		transcripts = append(transcripts, formatTranscript(msgs))
	}
	if len(transcripts) == 0 {
		fail(fmt.Errorf("no conversation history to summarize"))
		return
	}

	categories, err := consentedCategories(profile)
	if err != nil {
		fail(err)
		return
	}
	if len(categories) == 0 {
		fail(fmt.Errorf("consent list covers no summary sections"))
		return
	}

	progress(50, map[string]any{"processed_conversations": len(conversationIDs)})

	systemPrompt, err := s.prompts.ResolveContent(ctx, PromptCategorySummarySheetSystem)
	if err != nil {
		fail(err)
		return
	}
	userTemplate, err := s.prompts.ResolveContent(ctx, PromptCategorySummarySheetUser)
	if err != nil {
		fail(err)
		return
	}

	summaryContent, err := s.ai.Chat(ctx, []AIMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fillPrompt(userTemplate, strings.Join(categories, ", "), strings.Join(transcripts, "\n---\n"))},
	}, &AIOptions{Temperature: summaryTemperature, MaxTokens: summaryMaxTokens})
	if err != nil {
		fail(fmt.Errorf("summary generation call: %w", err))
		return
	}

	progress(75, nil)

	token, err := newSharingToken()
	if err != nil {
		fail(fmt.Errorf("sharing token: %w", err))
		return
	}

	now := time.Now()
	sheet := &types.SummarySheet{
		ID:             uuid.New(),
		UserID:         userID,
		InsightID:      jobID,
		SummaryContent: summaryContent,
		SharingToken:   token,
		GeneratedAt:    now,
		ExpiresAt:      now.Add(sheetExpiryDays * 24 * time.Hour),
	}
	if _, err := s.sheetRepo.Create(ctx, nil, sheet); err != nil {
		fail(fmt.Errorf("save summary sheet: %w", err))
		return
	}

	insights, _ := json.Marshal(map[string]any{
		"conversation_count": len(conversationIDs),
		"message_count":      messageCount,
		"categories":         categories,
		"character_count":    len(summaryContent),
	})
	_ = s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]any{
		"status":                  types.JobStatusCompleted,
		"progress":                100,
		"processed_conversations": len(conversationIDs),
		"insights":                datatypes.JSON(insights),
		"locked_at":               nil,
		"updated_at":              now,
	})
	s.broadcast(userID, sse.EventSummaryJobCompleted, map[string]any{
		"job_id":        jobID,
		"sharing_token": token,
	})
	s.log.Info("Summary job completed", "job_id", jobID, "conversations", len(conversationIDs))
}

func (s *summaryService) broadcast(userID uuid.UUID, event sse.Event, data map[string]any) {
	if s.notify == nil {
		return
	}
	s.notify.Broadcast(sse.Message{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}

// consentedCategories intersects the profile's consent list with the
// known section set. An absent or empty list means the opt-in covers
// all sections. A list we cannot read, or one that names no known
// section, grants nothing.
func consentedCategories(profile *types.UserProfile) ([]string, error) {
	if profile == nil || len(profile.ConsentCategories) == 0 {
		return summarySheetCategories, nil
	}
	var consented []string
	if err := json.Unmarshal(profile.ConsentCategories, &consented); err != nil {
		return nil, fmt.Errorf("parse consent categories: %w", err)
	}
	if len(consented) == 0 {
		return summarySheetCategories, nil
	}
	allowed := make(map[string]bool, len(summarySheetCategories))
	for _, c := range summarySheetCategories {
		allowed[c] = true
	}
	var out []string
	for _, c := range consented {
		if allowed[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func newSharingToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
