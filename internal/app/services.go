package app

import (
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/jobs/handlers"
	"github.com/xwerkax/BloomlyApp/internal/jobs/runtime"
	"github.com/xwerkax/BloomlyApp/internal/jobs/worker"
	"github.com/xwerkax/BloomlyApp/internal/ml/predictor"
	"github.com/xwerkax/BloomlyApp/internal/ml/trainer"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

type Services struct {
	Notifier *services.Notifier

	Plants          services.PlantService
	Waterings       services.WateringService
	Analysis        services.AnalysisService
	Reminders       services.ReminderService
	Training        services.TrainingService
	Recommendations services.RecommendationService
	Jobs            services.JobService

	JobRegistry *runtime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, store artifacts.Store, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	th := cfg.Thresholds
	loc := cfg.Location
	workers := cfg.TrainConcurrency

	notifier := services.NewNotifier(clients.Bus, log)

	pred := predictor.New(store, th, log)
	tr := trainer.NewService(repos.Plant, repos.Watering, store, th, loc, log)

	analysis := services.NewAnalysisService(log, repos.Plant, repos.Watering, repos.Analysis, pred, metrics, th, loc, workers)
	reminders := services.NewReminderService(db, log, repos.Plant, repos.Watering, repos.Analysis, repos.Reminder, notifier, metrics, th, loc, workers)
	training := services.NewTrainingService(log, repos.Plant, tr, store, metrics, workers)
	recs := services.NewRecommendationService(db, log, repos.Plant, repos.Analysis, analysis, reminders, th, workers)
	plants := services.NewPlantService(db, log, repos.Plant, repos.Analysis, repos.Reminder)
	waterings := services.NewWateringService(db, log, repos.Plant, repos.Watering, repos.Reminder, analysis, reminders, th, loc)

	registry := runtime.NewRegistry()
	if err := handlers.RegisterAll(registry, handlers.Deps{
		Training:        training,
		Analysis:        analysis,
		Reminders:       reminders,
		Recommendations: recs,
		Thresholds:      th,
	}); err != nil {
		return Services{}, err
	}
	jobs := services.NewJobService(log, repos.JobRun, notifier, registry.Types())

	wcfg := worker.DefaultConfig()
	wcfg.Concurrency = cfg.WorkerConcurrency
	jobWorker := worker.NewWorker(db, log, repos.JobRun, registry, notifier, metrics, wcfg)

	return Services{
		Notifier:        notifier,
		Plants:          plants,
		Waterings:       waterings,
		Analysis:        analysis,
		Reminders:       reminders,
		Training:        training,
		Recommendations: recs,
		Jobs:            jobs,
		JobRegistry:     registry,
		JobWorker:       jobWorker,
	}, nil
}
