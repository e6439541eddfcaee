package app

import (
	"gorm.io/gorm"

	httpH "github.com/xwerkax/BloomlyApp/internal/http/handlers"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Plant    *httpH.PlantHandler
	Analysis *httpH.AnalysisHandler
	Reminder *httpH.ReminderHandler
	Job      *httpH.JobHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Plant:    httpH.NewPlantHandler(log, services.Plants, services.Waterings),
		Analysis: httpH.NewAnalysisHandler(log, services.Analysis, services.Recommendations, services.Training, cfg.Thresholds),
		Reminder: httpH.NewReminderHandler(log, services.Reminders),
		Job:      httpH.NewJobHandler(log, services.Jobs),
	}
}
