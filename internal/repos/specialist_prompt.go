package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type SpecialistPromptRepo interface {
	// GetActiveByType is the single-row lookup used at session start.
	GetActiveByType(ctx context.Context, tx *gorm.DB, promptType string) (*types.SpecialistPrompt, error)
	Create(ctx context.Context, tx *gorm.DB, prompt *types.SpecialistPrompt) (*types.SpecialistPrompt, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type specialistPromptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpecialistPromptRepo(db *gorm.DB, baseLog *logger.Logger) SpecialistPromptRepo {
	return &specialistPromptRepo{db: db, log: baseLog.With("repo", "SpecialistPromptRepo")}
}

func (r *specialistPromptRepo) GetActiveByType(ctx context.Context, tx *gorm.DB, promptType string) (*types.SpecialistPrompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if promptType == "" {
		return nil, nil
	}
	var prompt types.SpecialistPrompt
	err := transaction.WithContext(ctx).
		Where("prompt_type = ? AND is_active = ?", promptType, true).
		Order("updated_at DESC").
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

func (r *specialistPromptRepo) Create(ctx context.Context, tx *gorm.DB, prompt *types.SpecialistPrompt) (*types.SpecialistPrompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(prompt).Error; err != nil {
		return nil, err
	}
	return prompt, nil
}

func (r *specialistPromptRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.SpecialistPrompt{}).
		Where("id = ?", id).
		Updates(updates).Error
}
