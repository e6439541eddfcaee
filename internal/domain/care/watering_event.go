package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WateringEvent is immutable once written, apart from IntervalDays which is
// recomputed whenever a neighbouring event is inserted.
type WateringEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlantID    uuid.UUID `gorm:"type:uuid;column:plant_id;not null;index:idx_watering_plant_time,priority:1" json:"plant_id"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index:idx_watering_plant_time,priority:2" json:"occurred_at"`

	// Raw user input; normalized by the feature layer (dry/ok/wet, low/med/high or ml).
	SoilState   string `gorm:"column:soil_state" json:"soil_state,omitempty"`
	WaterAmount string `gorm:"column:water_amount" json:"water_amount,omitempty"`

	Completed    bool       `gorm:"column:completed;not null;index" json:"completed"`
	IntervalDays *float64   `gorm:"column:interval_days" json:"interval_days,omitempty"`
	ReminderID   *uuid.UUID `gorm:"type:uuid;column:reminder_id" json:"reminder_id,omitempty"`
	Notes        string     `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WateringEvent) TableName() string { return "watering_event" }

func (e *WateringEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
