package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Conversation struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	HumanID            string         `gorm:"column:human_id;index" json:"human_id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	IsActive           bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CurrentSpecialist  string         `gorm:"column:current_specialist" json:"current_specialist"`
	SpecialistHistory  datatypes.JSON `gorm:"type:jsonb;column:specialist_history" json:"specialist_history"`
	ContextSummary     string         `gorm:"column:context_summary" json:"context_summary"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// SpecialistHistoryEntry is one element of Conversation.SpecialistHistory.
type SpecialistHistoryEntry struct {
	Specialist     string    `json:"specialist"`
	At             time.Time `json:"at"`
	ContextSummary string    `json:"context_summary,omitempty"`
}

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index;column:conversation_id" json:"conversation_id"`
	Role           string    `gorm:"column:role;not null" json:"role"` // user|assistant
	Content        string    `gorm:"column:content;not null" json:"content"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
