package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserProfile struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName           string         `gorm:"column:display_name" json:"display_name"`
	AIInstructionsSummary string         `gorm:"column:ai_instructions_summary" json:"ai_instructions_summary"`
	InsightsOptIn         bool           `gorm:"column:insights_opt_in;not null;default:false" json:"insights_opt_in"`
	ConsentCategories     datatypes.JSON `gorm:"type:jsonb;column:consent_categories" json:"consent_categories"`
	CreatedAt             time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }
