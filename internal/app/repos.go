package app

import (
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/data/repos"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type Repos struct {
	Plant    repos.PlantRepo
	Watering repos.WateringRepo
	Analysis repos.AnalysisRepo
	Reminder repos.ReminderRepo
	JobRun   repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Plant:    repos.NewPlantRepo(db, log),
		Watering: repos.NewWateringRepo(db, log),
		Analysis: repos.NewAnalysisRepo(db, log),
		Reminder: repos.NewReminderRepo(db, log),
		JobRun:   repos.NewJobRunRepo(db, log),
	}
}
