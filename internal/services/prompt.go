package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/repos"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type PromptService interface {
	// ResolveContent returns the current content for a category: the
	// latest version of the latest active prompt row, or the hard-coded
	// default when no row exists. Never returns empty content.
	ResolveContent(ctx context.Context, category string) (string, error)
	SavePrompt(ctx context.Context, userID uuid.UUID, category, content, title, notes string) (*types.Prompt, *types.PromptVersion, error)
}

type promptService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.PromptRepo
}

func NewPromptService(db *gorm.DB, baseLog *logger.Logger, repo repos.PromptRepo) PromptService {
	return &promptService{
		db:   db,
		log:  baseLog.With("service", "PromptService"),
		repo: repo,
	}
}

func (s *promptService) ResolveContent(ctx context.Context, category string) (string, error) {
	if category == "" {
		return "", fmt.Errorf("missing category")
	}
	prompt, err := s.repo.GetLatestActiveByCategory(ctx, nil, category)
	if err != nil {
		return "", fmt.Errorf("load prompt for %s: %w", category, err)
	}
	if prompt != nil {
		version, err := s.repo.GetLatestVersion(ctx, nil, prompt.ID)
		if err != nil {
			return "", fmt.Errorf("load prompt version for %s: %w", category, err)
		}
		if version != nil && version.Content != "" {
			return version.Content, nil
		}
		// row without versions falls through to the default
		s.log.Warn("Prompt row has no versions, using default", "category", category, "prompt_id", prompt.ID)
	}
	content, ok := DefaultPrompt(category)
	if !ok {
		return "", fmt.Errorf("no prompt and no default for category %s", category)
	}
	return content, nil
}

func (s *promptService) SavePrompt(ctx context.Context, userID uuid.UUID, category, content, title, notes string) (*types.Prompt, *types.PromptVersion, error) {
	if category == "" || content == "" {
		return nil, nil, fmt.Errorf("category and content are required")
	}
	if !SavePromptAllowedCategories[category] {
		return nil, nil, fmt.Errorf("category %s is not allowed", category)
	}

	var prompt *types.Prompt
	var version *types.PromptVersion

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		prompt = &types.Prompt{
			ID:        uuid.New(),
			Category:  category,
			Title:     title,
			Notes:     notes,
			IsActive:  true,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.repo.CreatePrompt(ctx, tx, prompt); err != nil {
			return fmt.Errorf("create prompt: %w", err)
		}
		maxVersion, err := s.repo.MaxVersionNumber(ctx, tx, prompt.ID)
		if err != nil {
			return fmt.Errorf("max version number: %w", err)
		}
		version = &types.PromptVersion{
			ID:            uuid.New(),
			PromptID:      prompt.ID,
			Content:       content,
			VersionNumber: maxVersion + 1,
			CreatedAt:     now,
		}
		if _, err := s.repo.CreateVersion(ctx, tx, version); err != nil {
			return fmt.Errorf("create prompt version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("Prompt saved", "category", category, "prompt_id", prompt.ID, "version", version.VersionNumber)
	return prompt, version, nil
}
