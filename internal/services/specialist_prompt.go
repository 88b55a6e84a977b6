package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type SpecialistPromptInput struct {
	PromptType    string         `json:"promptType"`
	PromptContent string         `json:"promptContent"`
	VoiceSettings map[string]any `json:"voiceSettings"`
	Metadata      map[string]any `json:"metadata"`
}

type SpecialistPromptService interface {
	// Upsert replaces the active prompt for a specialist type: any
	// existing active row is deactivated and a fresh row inserted, so
	// the single-row lookup keeps a clean winner.
	Upsert(ctx context.Context, input SpecialistPromptInput) (*types.SpecialistPrompt, error)
}

type specialistPromptService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.SpecialistPromptRepo
}

func NewSpecialistPromptService(db *gorm.DB, baseLog *logger.Logger, repo repos.SpecialistPromptRepo) SpecialistPromptService {
	return &specialistPromptService{
		db:   db,
		log:  baseLog.With("service", "SpecialistPromptService"),
		repo: repo,
	}
}

func (s *specialistPromptService) Upsert(ctx context.Context, input SpecialistPromptInput) (*types.SpecialistPrompt, error) {
	if input.PromptType == "" || input.PromptContent == "" {
		return nil, fmt.Errorf("promptType and promptContent are required")
	}

	voiceJSON, err := json.Marshal(input.VoiceSettings)
	if err != nil {
		return nil, fmt.Errorf("marshal voice settings: %w", err)
	}
	metaJSON, err := json.Marshal(input.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var created *types.SpecialistPrompt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.GetActiveByType(ctx, tx, input.PromptType)
		if err != nil {
			return fmt.Errorf("load existing prompt: %w", err)
		}
		if existing != nil {
			if err := s.repo.UpdateFields(ctx, tx, existing.ID, map[string]interface{}{
				"is_active": false,
			}); err != nil {
				return fmt.Errorf("deactivate existing prompt: %w", err)
			}
		}

		now := time.Now()
		created = &types.SpecialistPrompt{
			ID:            uuid.New(),
			PromptType:    input.PromptType,
			PromptContent: input.PromptContent,
			VoiceSettings: datatypes.JSON(voiceJSON),
			Metadata:      datatypes.JSON(metaJSON),
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := s.repo.Create(ctx, tx, created); err != nil {
			return fmt.Errorf("create specialist prompt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Specialist prompt upserted", "prompt_type", input.PromptType, "id", created.ID)
	return created, nil
}
