package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type PromptRepo interface {
	CreatePrompt(ctx context.Context, tx *gorm.DB, prompt *types.Prompt) (*types.Prompt, error)
	CreateVersion(ctx context.Context, tx *gorm.DB, version *types.PromptVersion) (*types.PromptVersion, error)
	// GetLatestActiveByCategory returns the most recently created active
	// prompt in a category, or nil when none exists. Duplicate
	// categories are legal; recency decides.
	GetLatestActiveByCategory(ctx context.Context, tx *gorm.DB, category string) (*types.Prompt, error)
	GetLatestVersion(ctx context.Context, tx *gorm.DB, promptID uuid.UUID) (*types.PromptVersion, error)
	MaxVersionNumber(ctx context.Context, tx *gorm.DB, promptID uuid.UUID) (int, error)
}

type promptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptRepo(db *gorm.DB, baseLog *logger.Logger) PromptRepo {
	return &promptRepo{db: db, log: baseLog.With("repo", "PromptRepo")}
}

func (r *promptRepo) CreatePrompt(ctx context.Context, tx *gorm.DB, prompt *types.Prompt) (*types.Prompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if prompt == nil {
		return nil, errors.New("nil prompt")
	}
	if err := transaction.WithContext(ctx).Create(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

func (r *promptRepo) CreateVersion(ctx context.Context, tx *gorm.DB, version *types.PromptVersion) (*types.PromptVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if version == nil {
		return nil, errors.New("nil prompt version")
	}
	if err := transaction.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (r *promptRepo) GetLatestActiveByCategory(ctx context.Context, tx *gorm.DB, category string) (*types.Prompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if category == "" {
		return nil, nil
	}
	var prompt types.Prompt
	err := transaction.WithContext(ctx).
		Where("category = ? AND is_active = ?", category, true).
		Order("created_at DESC").
		Limit(1).
		Find(&prompt).Error
	if err != nil {
		return nil, err
	}
	if prompt.ID == uuid.Nil {
		return nil, nil
	}
	return &prompt, nil
}

func (r *promptRepo) GetLatestVersion(ctx context.Context, tx *gorm.DB, promptID uuid.UUID) (*types.PromptVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if promptID == uuid.Nil {
		return nil, nil
	}
	var version types.PromptVersion
	err := transaction.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("created_at DESC").
		Limit(1).
		Find(&version).Error
	if err != nil {
		return nil, err
	}
	if version.ID == uuid.Nil {
		return nil, nil
	}
	return &version, nil
}

func (r *promptRepo) MaxVersionNumber(ctx context.Context, tx *gorm.DB, promptID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if promptID == uuid.Nil {
		return 0, nil
	}
	var max int
	err := transaction.WithContext(ctx).
		Model(&types.PromptVersion{}).
		Where("prompt_id = ?", promptID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}
