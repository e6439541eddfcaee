package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/http"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/envutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server

	closeStore   func() error
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads configuration from the environment, connects the database and wires everything.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	LoadDotEnv(log)
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	theDB, err := openDatabase(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(cfg.ServiceName, cfg.Environment))
	a, err := Build(ctx, log, cfg, theDB)
	if err != nil {
		if otelShutdown != nil {
			_ = otelShutdown(ctx)
		}
		log.Sync()
		return nil, err
	}
	a.otelShutdown = otelShutdown
	return a, nil
}

// Build wires repos, services and the HTTP server on an already migrated database.
func Build(ctx context.Context, log *logger.Logger, cfg Config, theDB *gorm.DB) (*App, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	var metrics *observability.Metrics
	if observability.Enabled() {
		metrics = observability.NewMetrics()
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := resolveArtifactStore(ctx, log, cfg, theDB)
	if err != nil {
		clients.Close()
		log.Error("Artifact store unavailable", "error_code", artifactStoreBootstrapErrorCode(err))
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, store, metrics)
	if err != nil {
		clients.Close()
		_ = closeStore()
		return nil, err
	}
	handlerset := wireHandlers(theDB, log, cfg, serviceset)

	return &App{
		Log:        log,
		DB:         theDB,
		Cfg:        cfg,
		Metrics:    metrics,
		Clients:    clients,
		Repos:      reposet,
		Services:   serviceset,
		Server:     wireServer(log, cfg, handlerset, metrics),
		closeStore: closeStore,
	}, nil
}

// Start launches the job worker and the queue-depth collector.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.WorkerEnabled && a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	a.Clients.Close()
	if a.closeStore != nil {
		_ = a.closeStore()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
