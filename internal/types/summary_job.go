package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

type SummaryJob struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                 uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Status                 string         `gorm:"column:status;not null;index" json:"status"` // pending|processing|completed|failed
	Progress               int            `gorm:"column:progress;not null;default:0" json:"progress"`
	TotalConversations     int            `gorm:"column:total_conversations;not null;default:0" json:"total_conversations"`
	ProcessedConversations int            `gorm:"column:processed_conversations;not null;default:0" json:"processed_conversations"`
	Insights               datatypes.JSON `gorm:"type:jsonb;column:insights" json:"insights"`
	Error                  string         `gorm:"column:error" json:"error"`
	Attempts               int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastErrorAt            *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt               *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt            *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	CreatedAt              time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SummaryJob) TableName() string { return "job_status" }

type SummarySheet struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	InsightID      uuid.UUID `gorm:"type:uuid;column:insight_id" json:"insight_id"`
	SummaryContent string    `gorm:"column:summary_content;not null" json:"summary_content"`
	SharingToken   string    `gorm:"column:sharing_token;uniqueIndex" json:"sharing_token"`
	GeneratedAt    time.Time `gorm:"column:generated_at;not null;default:CURRENT_TIMESTAMP" json:"generated_at"`
	ExpiresAt      time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (SummarySheet) TableName() string { return "user_summary_sheets" }
