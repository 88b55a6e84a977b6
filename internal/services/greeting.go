package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/repos"
)

// Bulk translation runs in fixed batches with a flat pause between
// them. Crude, but it keeps the upstream API happy without an
// adaptive scheme.
const (
	translationBatchSize  = 5
	translationBatchDelay = 2 * time.Second
)

type TranslationStats struct {
	Requested  int `json:"requested"`
	Translated int `json:"translated"`
	Failed     int `json:"failed"`
}

type GreetingService interface {
	// TranslateUntranslated translates pending greeting resources into
	// the target language, at most limit rows (0 = all pending).
	TranslateUntranslated(ctx context.Context, targetLanguage string, limit int) (*TranslationStats, error)
}

type greetingService struct {
	db  *gorm.DB
	log *logger.Logger

	greetingRepo repos.GreetingResourceRepo
	prompts      PromptService
	ai           AIClient
}

func NewGreetingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	greetingRepo repos.GreetingResourceRepo,
	prompts PromptService,
	ai AIClient,
) GreetingService {
	return &greetingService{
		db:           db,
		log:          baseLog.With("service", "GreetingService"),
		greetingRepo: greetingRepo,
		prompts:      prompts,
		ai:           ai,
	}
}

func (s *greetingService) TranslateUntranslated(ctx context.Context, targetLanguage string, limit int) (*TranslationStats, error) {
	if targetLanguage == "" {
		return nil, fmt.Errorf("missing target language")
	}

	pending, err := s.greetingRepo.GetUntranslated(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("load untranslated greetings: %w", err)
	}

	systemPrompt, err := s.prompts.ResolveContent(ctx, PromptCategoryGreetingTranslationSystem)
	if err != nil {
		return nil, err
	}

	stats := &TranslationStats{Requested: len(pending)}

	for start := 0; start < len(pending); start += translationBatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(translationBatchDelay):
			}
		}

		end := start + translationBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		for _, resource := range pending[start:end] {
			if resource == nil {
				continue
			}
			translated, err := s.ai.Chat(ctx, []AIMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: fmt.Sprintf("Language: %s\n\nGreeting: %s", targetLanguage, resource.Greeting)},
			}, &AIOptions{Temperature: 0.2})
			if err != nil {
				stats.Failed++
				s.log.Warn("Greeting translation failed", "greeting_id", resource.ID, "error", err)
				continue
			}
			if err := s.greetingRepo.UpdateFields(ctx, nil, resource.ID, map[string]interface{}{
				"greeting":   translated,
				"language":   targetLanguage,
				"translated": true,
			}); err != nil {
				stats.Failed++
				s.log.Warn("Greeting update failed", "greeting_id", resource.ID, "error", err)
				continue
			}
			stats.Translated++
		}
	}

	return stats, nil
}
