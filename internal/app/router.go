package app

import (
	"github.com/xwerkax/BloomlyApp/internal/http"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(cfg.HTTPAddr, http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlers.Health,
		PlantHandler:    handlers.Plant,
		AnalysisHandler: handlers.Analysis,
		ReminderHandler: handlers.Reminder,
		JobHandler:      handlers.Job,
	})
}
