package repos

import (
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	"github.com/xwerkax/BloomlyApp/internal/data/repos/jobs"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type PlantRepo = care.PlantRepo
type WateringRepo = care.WateringRepo
type AnalysisRepo = care.AnalysisRepo
type ReminderRepo = care.ReminderRepo

type JobRunRepo = jobs.JobRunRepo

func NewPlantRepo(db *gorm.DB, baseLog *logger.Logger) PlantRepo {
	return care.NewPlantRepo(db, baseLog)
}
func NewWateringRepo(db *gorm.DB, baseLog *logger.Logger) WateringRepo {
	return care.NewWateringRepo(db, baseLog)
}
func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return care.NewAnalysisRepo(db, baseLog)
}
func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	return care.NewReminderRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo { return jobs.NewJobRunRepo(db, baseLog) }
