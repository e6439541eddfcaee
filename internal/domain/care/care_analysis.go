package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ModelTypeGB   = "GB"
	ModelTypeRF   = "RF"
	ModelTypeStat = "STAT"
)

// CareAnalysis is the single per-plant snapshot written by the confidence aggregator.
type CareAnalysis struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlantID uuid.UUID `gorm:"type:uuid;column:plant_id;not null;uniqueIndex" json:"plant_id"`

	RecommendedIntervalDays int     `gorm:"column:recommended_interval_days;not null" json:"recommended_interval_days"`
	Confidence              float64 `gorm:"column:confidence;not null" json:"confidence"`
	ModelConfidence         float64 `gorm:"column:model_confidence" json:"model_confidence"`
	RegularityScore         float64 `gorm:"column:regularity_score" json:"regularity_score"`
	BiologyScore            float64 `gorm:"column:biology_score" json:"biology_score"`
	SoilScore               float64 `gorm:"column:soil_score" json:"soil_score"`
	WaterScore              float64 `gorm:"column:water_score" json:"water_score"`

	MeanIntervalDays float64  `gorm:"column:mean_interval_days" json:"mean_interval_days"`
	StdIntervalDays  float64  `gorm:"column:std_interval_days" json:"std_interval_days"`
	WateringCount    int      `gorm:"column:watering_count" json:"watering_count"`
	IntervalTrend    *float64 `gorm:"column:interval_trend" json:"interval_trend,omitempty"`

	WatersMorning      bool           `gorm:"column:waters_morning" json:"waters_morning"`
	WatersAfternoon    bool           `gorm:"column:waters_afternoon" json:"waters_afternoon"`
	WatersEvening      bool           `gorm:"column:waters_evening" json:"waters_evening"`
	PreferredTimeOfDay string         `gorm:"column:preferred_time_of_day" json:"preferred_time_of_day,omitempty"`
	TimeOfDay          datatypes.JSON `gorm:"column:time_of_day" json:"time_of_day,omitempty"`

	ModelType string   `gorm:"column:model_type" json:"model_type"`
	R2        *float64 `gorm:"column:r2" json:"r2,omitempty"`
	MAE       *float64 `gorm:"column:mae" json:"mae,omitempty"`
	RMSE      *float64 `gorm:"column:rmse" json:"rmse,omitempty"`
	CVMAE     *float64 `gorm:"column:cv_mae" json:"cv_mae,omitempty"`
	NSamples  int      `gorm:"column:n_samples" json:"n_samples"`
	Message   string   `gorm:"column:message" json:"message,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CareAnalysis) TableName() string { return "care_analysis" }

func (a *CareAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
