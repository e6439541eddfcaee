package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ModelArtifact is the database-backed blob row for one plant's trained model.
// The blob is replaced as a whole; the metadata columns only serve listing.
type ModelArtifact struct {
	PlantID   uuid.UUID      `gorm:"type:uuid;primaryKey;column:plant_id" json:"plant_id"`
	Blob      datatypes.JSON `gorm:"column:blob;not null" json:"-"`
	NSamples  int            `gorm:"column:n_samples" json:"n_samples"`
	ModelType string         `gorm:"column:model_type" json:"model_type"`
	TrainedAt time.Time      `gorm:"column:trained_at" json:"trained_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (ModelArtifact) TableName() string { return "model_artifact" }
