package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReminderPending   = "pending"
	ReminderDone      = "done"
	ReminderCancelled = "cancelled"
)

// Reminder is open while Status is pending; Sent is a flag on the open state, not a status.
type Reminder struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlantID uuid.UUID `gorm:"type:uuid;column:plant_id;not null;index:idx_reminder_plant_status,priority:1" json:"plant_id"`
	OwnerID uuid.UUID `gorm:"type:uuid;column:owner_id;index" json:"owner_id"`

	Title string    `gorm:"column:title;not null" json:"title"`
	Body  string    `gorm:"column:body" json:"body"`
	DueAt time.Time `gorm:"column:due_at;not null;index" json:"due_at"`

	Status       string     `gorm:"column:status;not null;index:idx_reminder_plant_status,priority:2" json:"status"`
	Sent         bool       `gorm:"column:sent;not null" json:"sent"`
	SentAt       *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	DoneAt       *time.Time `gorm:"column:done_at" json:"done_at,omitempty"`
	IntervalDays int        `gorm:"column:interval_days" json:"interval_days"`
	Automatic    bool       `gorm:"column:automatic" json:"automatic"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reminder) TableName() string { return "reminder" }

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Reminder) Open() bool { return r != nil && r.Status == ReminderPending }
