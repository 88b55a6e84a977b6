package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type SummarySheetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sheet *types.SummarySheet) (*types.SummarySheet, error)
	GetBySharingToken(ctx context.Context, tx *gorm.DB, token string) (*types.SummarySheet, error)
	GetByInsightID(ctx context.Context, tx *gorm.DB, insightID uuid.UUID) (*types.SummarySheet, error)
}

type summarySheetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummarySheetRepo(db *gorm.DB, baseLog *logger.Logger) SummarySheetRepo {
	return &summarySheetRepo{db: db, log: baseLog.With("repo", "SummarySheetRepo")}
}

func (r *summarySheetRepo) Create(ctx context.Context, tx *gorm.DB, sheet *types.SummarySheet) (*types.SummarySheet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(sheet).Error; err != nil {
		return nil, err
	}
	return sheet, nil
}

func (r *summarySheetRepo) GetBySharingToken(ctx context.Context, tx *gorm.DB, token string) (*types.SummarySheet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if token == "" {
		return nil, nil
	}
	var sheet types.SummarySheet
	err := transaction.WithContext(ctx).
		Where("sharing_token = ?", token).
		Limit(1).
		Find(&sheet).Error
	if err != nil {
		return nil, err
	}
	if sheet.ID == uuid.Nil {
		return nil, nil
	}
	return &sheet, nil
}

func (r *summarySheetRepo) GetByInsightID(ctx context.Context, tx *gorm.DB, insightID uuid.UUID) (*types.SummarySheet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if insightID == uuid.Nil {
		return nil, nil
	}
	var sheet types.SummarySheet
	err := transaction.WithContext(ctx).
		Where("insight_id = ?", insightID).
		Order("generated_at DESC").
		Limit(1).
		Find(&sheet).Error
	if err != nil {
		return nil, err
	}
	if sheet.ID == uuid.Nil {
		return nil, nil
	}
	return &sheet, nil
}
