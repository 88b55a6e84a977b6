package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prompt is the versioned prompt store. "Current" content for a
// category is the latest version of the latest active prompt row in
// that category; two prompts may share a category and the newest wins.
type Prompt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Category  string    `gorm:"column:category;not null;index" json:"category"`
	Title     string    `gorm:"column:title" json:"title"`
	Notes     string    `gorm:"column:notes" json:"notes"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	IsGlobal  bool      `gorm:"column:is_global;not null;default:false" json:"is_global"`
	CreatedBy uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Prompt) TableName() string { return "prompts" }

type PromptVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PromptID      uuid.UUID `gorm:"type:uuid;not null;index;column:prompt_id" json:"prompt_id"`
	Content       string    `gorm:"column:content;not null" json:"content"`
	VersionNumber int       `gorm:"column:version_number;not null" json:"version_number"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (PromptVersion) TableName() string { return "prompt_versions" }

// SpecialistPrompt is the single-row prompt path used by session
// hand-offs. It is intentionally not unified with the versioned store:
// the two access paths evolved separately and callers depend on each.
type SpecialistPrompt struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PromptType    string         `gorm:"column:prompt_type;not null;index" json:"prompt_type"`
	PromptContent string         `gorm:"column:prompt_content;not null" json:"prompt_content"`
	VoiceSettings datatypes.JSON `gorm:"type:jsonb;column:voice_settings" json:"voice_settings"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SpecialistPrompt) TableName() string { return "ai_prompts" }
