package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type GreetingResourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, resources []*types.GreetingResource) ([]*types.GreetingResource, error)
	GetUntranslated(ctx context.Context, tx *gorm.DB, limit int) ([]*types.GreetingResource, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type greetingResourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGreetingResourceRepo(db *gorm.DB, baseLog *logger.Logger) GreetingResourceRepo {
	return &greetingResourceRepo{db: db, log: baseLog.With("repo", "GreetingResourceRepo")}
}

func (r *greetingResourceRepo) Create(ctx context.Context, tx *gorm.DB, resources []*types.GreetingResource) ([]*types.GreetingResource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(resources) == 0 {
		return []*types.GreetingResource{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *greetingResourceRepo) GetUntranslated(ctx context.Context, tx *gorm.DB, limit int) ([]*types.GreetingResource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GreetingResource
	q := transaction.WithContext(ctx).
		Where("translated = ?", false).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *greetingResourceRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.GreetingResource{}).
		Where("id = ?", id).
		Updates(updates).Error
}
