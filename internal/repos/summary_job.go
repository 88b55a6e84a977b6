package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type SummaryJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.SummaryJob) ([]*types.SummaryJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SummaryJob, error)

	// ClaimNextRunnable claims the next job that is runnable:
	// - status=pending
	// - OR status=processing with a stale heartbeat (crash recovery),
	//   as long as the row has attempts left
	// Failed and completed rows are terminal and never claimed again;
	// a stale row with no attempts left is moved to failed instead.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, staleProcessing time.Duration) (*types.SummaryJob, error)

	// UpdateFields applies updates to one job. A status change is
	// guarded so completed/failed rows never leave their terminal state.
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type summaryJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryJobRepo(db *gorm.DB, baseLog *logger.Logger) SummaryJobRepo {
	return &summaryJobRepo{db: db, log: baseLog.With("repo", "SummaryJobRepo")}
}

func (r *summaryJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.SummaryJob) ([]*types.SummaryJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.SummaryJob{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *summaryJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SummaryJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.SummaryJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *summaryJobRepo) ClaimNextRunnable(
	ctx context.Context,
	tx *gorm.DB,
	maxAttempts int,
	staleProcessing time.Duration,
) (*types.SummaryJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)

	var claimed *types.SummaryJob

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		// Stale rows with no attempts left are dead workers' leftovers;
		// close them out instead of handing them back.
		fErr := txx.Model(&types.SummaryJob{}).
			Where("status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ? AND attempts >= ?",
				types.JobStatusProcessing, staleCutoff, maxAttempts).
			Updates(map[string]interface{}{
				"status":        types.JobStatusFailed,
				"error":         "processing abandoned and attempts exhausted",
				"last_error_at": now,
				"locked_at":     nil,
				"updated_at":    now,
			}).Error
		if fErr != nil {
			return fErr
		}

		var job types.SummaryJob

		q := txx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
						AND attempts < ?
					)
				)
			`, types.JobStatusPending, types.JobStatusProcessing, staleCutoff, maxAttempts).
			Order("created_at ASC")

		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := txx.Model(&types.SummaryJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusProcessing,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}

		claimed = &job
		return nil
	})

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *summaryJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
	q := transaction.WithContext(ctx).
		Model(&types.SummaryJob{}).
		Where("id = ?", id)
	if _, changesStatus := updates["status"]; changesStatus {
		// terminal rows stay terminal
		q = q.Where("status NOT IN ?", []string{types.JobStatusCompleted, types.JobStatusFailed})
	}
	return q.Updates(updates).Error
}

func (r *summaryJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.SummaryJob{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
