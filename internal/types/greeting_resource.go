package types

import (
	"time"

	"github.com/google/uuid"
)

type GreetingResource struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Language   string    `gorm:"column:language;not null;index" json:"language"`
	Greeting   string    `gorm:"column:greeting;not null" json:"greeting"`
	Translated bool      `gorm:"column:translated;not null;default:false;index" json:"translated"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GreetingResource) TableName() string { return "greeting_resources" }
