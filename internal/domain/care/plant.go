package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Plant struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;column:owner_id;index" json:"owner_id"`
	Name    string    `gorm:"column:name;not null" json:"name"`
	Species string    `gorm:"column:species" json:"species"`

	// Category and Difficulty feed the model as dummy-encoded features.
	Category   string `gorm:"column:category;index" json:"category"`
	Difficulty string `gorm:"column:difficulty" json:"difficulty"`

	DefaultIntervalDays int        `gorm:"column:default_interval_days;not null" json:"default_interval_days"`
	LastWateredOn       *time.Time `gorm:"column:last_watered_on" json:"last_watered_on,omitempty"`
	IsActive            bool       `gorm:"column:is_active;not null;index" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Plant) TableName() string { return "plant" }

func (p *Plant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
