package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/xwerkax/BloomlyApp/internal/http/handlers"
	httpMW "github.com/xwerkax/BloomlyApp/internal/http/middleware"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins string

	PlantHandler    *httpH.PlantHandler
	AnalysisHandler *httpH.AnalysisHandler
	ReminderHandler *httpH.ReminderHandler
	JobHandler      *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Plants
		if cfg.PlantHandler != nil {
			api.POST("/plants", cfg.PlantHandler.CreatePlant)
			api.GET("/plants", cfg.PlantHandler.ListPlants)
			api.GET("/plants/:id", cfg.PlantHandler.GetPlant)
			api.DELETE("/plants/:id", cfg.PlantHandler.DeactivatePlant)
			api.POST("/plants/:id/waterings", cfg.PlantHandler.RecordWatering)
			api.GET("/plants/:id/waterings", cfg.PlantHandler.ListWaterings)
		}

		// Analysis, recommendations, models
		if cfg.AnalysisHandler != nil {
			api.GET("/plants/:id/analysis", cfg.AnalysisHandler.GetAnalysis)
			api.POST("/plants/:id/analysis", cfg.AnalysisHandler.UpdateAnalysis)
			api.POST("/plants/:id/recommendation/apply", cfg.AnalysisHandler.ApplyRecommendation)
			api.POST("/plants/:id/model/train", cfg.AnalysisHandler.TrainModel)
			api.GET("/models", cfg.AnalysisHandler.ModelStats)
		}

		// Reminders
		if cfg.ReminderHandler != nil {
			api.GET("/plants/:id/reminders", cfg.ReminderHandler.ListForPlant)
			api.POST("/plants/:id/reminders/refresh", cfg.ReminderHandler.Refresh)
			api.GET("/reminders/due", cfg.ReminderHandler.Due)
			api.POST("/reminders/:id/sent", cfg.ReminderHandler.MarkSent)
			api.POST("/reminders/:id/done", cfg.ReminderHandler.MarkDone)
			api.POST("/reminders/:id/postpone", cfg.ReminderHandler.Postpone)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.POST("/jobs", cfg.JobHandler.Enqueue)
			api.GET("/jobs", cfg.JobHandler.ListJobs)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
		}
	}

	return r
}
