package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemorySnapshot is insert-only. Each merge cycle appends a new row
// carrying the full set of conversation ids folded in so far; the
// current memory for a user is the most recent row by generated_at.
type MemorySnapshot struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Memory            datatypes.JSON `gorm:"type:jsonb;column:memory;not null" json:"memory"`
	ConversationIDs   datatypes.JSON `gorm:"type:jsonb;column:conversation_ids;not null" json:"conversation_ids"`
	ConversationCount int            `gorm:"column:conversation_count;not null;default:0" json:"conversation_count"`
	MessageCount      int            `gorm:"column:message_count;not null;default:0" json:"message_count"`
	GeneratedAt       time.Time      `gorm:"column:generated_at;not null;default:CURRENT_TIMESTAMP;index" json:"generated_at"`
}

func (MemorySnapshot) TableName() string { return "v16_memory" }
