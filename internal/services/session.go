package services

import (
	"context"
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
	"github.com/tmratwork/risetwice-backend/internal/types"
)

var ErrSpecialistNotFound = errors.New("specialist prompt not found")
var ErrConversationNotFound = errors.New("conversation not found")

// handoffPreamble introduces carried-over context when a session picks
// up from a previous specialist.
const handoffPreamble = "\n\nYou are taking over an ongoing conversation from another specialist. Context from the previous session:\n"

// memoryContextTemplate appends the user's stored memory summary to
// the assembled prompt.
const memoryContextTemplate = "\n\nWhat you remember about this user from previous conversations:\n%s"

// genericContextSummaries are placeholder strings the clients send
// when no real hand-off context exists; they never reach the prompt.
var genericContextSummaries = map[string]bool{
	"":                                     true,
	"n/a":                                  true,
	"none":                                 true,
	"starting new conversation":            true,
	"user requested a specialist hand-off": true,
}

func isGenericContextSummary(summary string) bool {
	return genericContextSummaries[strings.ToLower(strings.TrimSpace(summary))]
}

type SessionPrompt struct {
	ID            uuid.UUID      `json:"id"`
	Type          string         `json:"type"`
	Content       string         `json:"content"`
	VoiceSettings datatypes.JSON `json:"voice_settings"`
	Metadata      datatypes.JSON `json:"metadata"`
}

type Session struct {
	SpecialistType string        `json:"specialistType"`
	ConversationID *uuid.UUID    `json:"conversationId,omitempty"`
	Prompt         SessionPrompt `json:"prompt"`
	ContextSummary string        `json:"contextSummary"`
}

type SessionService interface {
	// StartSession assembles the prompt for a specialist session.
	// userID may be uuid.Nil for anonymous sessions. A memory-fetch
	// failure degrades the prompt, never the session.
	StartSession(ctx context.Context, userID uuid.UUID, specialistType string, conversationID *uuid.UUID, contextSummary string) (*Session, error)
	// EndSession soft-closes a conversation and stores the closing
	// context summary, which the next StartSession reads back.
	EndSession(ctx context.Context, conversationID uuid.UUID, contextSummary string) error
}

type sessionService struct {
	db  *gorm.DB
	log *logger.Logger

	conversationRepo repos.ConversationRepo
	specialistRepo   repos.SpecialistPromptRepo
	profileRepo      repos.UserProfileRepo
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	specialistRepo repos.SpecialistPromptRepo,
	profileRepo repos.UserProfileRepo,
) SessionService {
	return &sessionService{
		db:               db,
		log:              baseLog.With("service", "SessionService"),
		conversationRepo: conversationRepo,
		specialistRepo:   specialistRepo,
		profileRepo:      profileRepo,
	}
}

func (s *sessionService) StartSession(ctx context.Context, userID uuid.UUID, specialistType string, conversationID *uuid.UUID, contextSummary string) (*Session, error) {
	if specialistType == "" {
		return nil, fmt.Errorf("missing specialistType")
	}

	summary := strings.TrimSpace(contextSummary)
	summaryIsReal := !isGenericContextSummary(summary)

	var conversation *types.Conversation
	if conversationID != nil && *conversationID != uuid.Nil {
		rows, err := s.conversationRepo.GetByIDs(ctx, nil, []uuid.UUID{*conversationID})
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if len(rows) == 0 || rows[0] == nil {
			return nil, ErrConversationNotFound
		}
		conversation = rows[0]

		// a placeholder summary from the client is replaced by the last
		// known summary stored on the conversation
		if !summaryIsReal && conversation.ContextSummary != "" {
			summary = conversation.ContextSummary
			summaryIsReal = true
		}
	}

	// The single-row ai_prompts path, not the versioned prompt store.
	prompt, err := s.specialistRepo.GetActiveByType(ctx, nil, specialistType)
	if err != nil {
		return nil, fmt.Errorf("load specialist prompt: %w", err)
	}
	if prompt == nil {
		return nil, ErrSpecialistNotFound
	}

	if conversation != nil {
		if err := s.recordHandoff(ctx, conversation, specialistType, summary, summaryIsReal); err != nil {
			return nil, err
		}
	}

	content := prompt.PromptContent
	if summaryIsReal && summary != "" {
		content += handoffPreamble + summary
	}

	if userID != uuid.Nil {
		if memorySummary, ok := s.fetchMemorySummary(ctx, userID); ok {
			content += fmt.Sprintf(memoryContextTemplate, memorySummary)
		}
	}

	session := &Session{
		SpecialistType: specialistType,
		ConversationID: conversationID,
		Prompt: SessionPrompt{
			ID:            prompt.ID,
			Type:          prompt.PromptType,
			Content:       content,
			VoiceSettings: prompt.VoiceSettings,
			Metadata:      prompt.Metadata,
		},
		ContextSummary: summary,
	}
	return session, nil
}

func (s *sessionService) recordHandoff(ctx context.Context, conversation *types.Conversation, specialistType, summary string, summaryIsReal bool) error {
	var history []types.SpecialistHistoryEntry
	if len(conversation.SpecialistHistory) > 0 {
		if err := json.Unmarshal(conversation.SpecialistHistory, &history); err != nil {
			s.log.Warn("Unreadable specialist history, starting fresh", "conversation_id", conversation.ID, "error", err)
			history = nil
		}
	}
	entry := types.SpecialistHistoryEntry{
		Specialist: specialistType,
		At:         time.Now(),
	}
	if summaryIsReal {
		entry.ContextSummary = summary
	}
	history = append(history, entry)

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal specialist history: %w", err)
	}

	updates := map[string]interface{}{
		"current_specialist": specialistType,
		"specialist_history": datatypes.JSON(historyJSON),
	}
	if summaryIsReal && summary != "" {
		updates["context_summary"] = summary
	}
	if err := s.conversationRepo.UpdateFields(ctx, nil, conversation.ID, updates); err != nil {
		return fmt.Errorf("record hand-off: %w", err)
	}
	return nil
}

// fetchMemorySummary loads the user's stored memory summary. Failures
// are swallowed here: the session must start either way.
func (s *sessionService) fetchMemorySummary(ctx context.Context, userID uuid.UUID) (string, bool) {
	profile, err := s.profileRepo.GetByID(ctx, nil, userID)
	if err != nil {
		s.log.Warn("Memory summary fetch failed, starting session without it", "user_id", userID, "error", err)
		return "", false
	}
	if profile == nil || strings.TrimSpace(profile.AIInstructionsSummary) == "" {
		return "", false
	}
	return profile.AIInstructionsSummary, true
}

func (s *sessionService) EndSession(ctx context.Context, conversationID uuid.UUID, contextSummary string) error {
	if conversationID == uuid.Nil {
		return fmt.Errorf("missing conversationId")
	}
	rows, err := s.conversationRepo.GetByIDs(ctx, nil, []uuid.UUID{conversationID})
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return ErrConversationNotFound
	}

	updates := map[string]interface{}{
		"is_active": false,
	}
	if summary := strings.TrimSpace(contextSummary); summary != "" && !isGenericContextSummary(summary) {
		updates["context_summary"] = summary
	}
	return s.conversationRepo.UpdateFields(ctx, nil, conversationID, updates)
}
