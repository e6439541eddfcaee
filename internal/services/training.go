package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/trainer"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// RetrainResult is the outcome of a retrain-all batch.
type RetrainResult struct {
	Total   int `json:"total"`
	Trained int `json:"trained"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

type TrainingService interface {
	// RetrainAll trains every active plant. Plants with too little history are
	// skipped; only a failure to list plants aborts the batch.
	RetrainAll(ctx context.Context) (RetrainResult, error)
	Train(ctx context.Context, plantID uuid.UUID) (*artifacts.Summary, error)
	ModelStats(ctx context.Context) ([]artifacts.Summary, error)
}

type trainingService struct {
	log     *logger.Logger
	plants  carerepo.PlantRepo
	trainer *trainer.Service
	store   artifacts.Store
	metrics *observability.Metrics
	workers int
}

func NewTrainingService(
	baseLog *logger.Logger,
	plants carerepo.PlantRepo,
	tr *trainer.Service,
	store artifacts.Store,
	metrics *observability.Metrics,
	workers int,
) TrainingService {
	return &trainingService{
		log:     baseLog.With("service", "TrainingService"),
		plants:  plants,
		trainer: tr,
		store:   store,
		metrics: metrics,
		workers: workers,
	}
}

func (s *trainingService) RetrainAll(ctx context.Context) (RetrainResult, error) {
	plants, err := s.plants.ListActive(dbctx.Of(ctx))
	if err != nil {
		return RetrainResult{}, fmt.Errorf("list plants: %w", err)
	}
	start := time.Now()
	res, err := forEachPlant(ctx, s.log, plants, s.workers, func(ctx context.Context, p *types.Plant) (itemOutcome, error) {
		_, err := s.trainOne(ctx, p.ID)
		if errors.Is(err, errs.ErrInsufficientData) {
			return itemSkipped, nil
		}
		if err != nil {
			return 0, err
		}
		return itemSucceeded, nil
	})
	out := RetrainResult{Total: res.Total, Trained: res.Succeeded, Skipped: res.Skipped, Errored: res.Errored}
	s.log.Info("Retrain-all finished",
		"total", out.Total,
		"trained", out.Trained,
		"skipped", out.Skipped,
		"errored", out.Errored,
		"elapsed", time.Since(start).String(),
	)
	return out, err
}

func (s *trainingService) Train(ctx context.Context, plantID uuid.UUID) (*artifacts.Summary, error) {
	a, err := s.trainOne(ctx, plantID)
	if err != nil {
		return nil, err
	}
	sum := a.Summary()
	return &sum, nil
}

func (s *trainingService) trainOne(ctx context.Context, plantID uuid.UUID) (*artifacts.Artifact, error) {
	ctx, span := observability.StartSpan(ctx, "models.train", attribute.String("plant_id", plantID.String()))
	start := time.Now()
	a, err := s.trainer.TrainAndStore(ctx, plantID)
	if errors.Is(err, errs.ErrInsufficientData) {
		observability.EndSpan(span, nil)
	} else {
		observability.EndSpan(span, err)
	}
	switch {
	case err == nil:
		s.metrics.ObserveTraining("trained", time.Since(start))
	case errors.Is(err, errs.ErrInsufficientData):
		s.metrics.ObserveTraining("skipped", 0)
		s.log.Debug("Not enough history to train", "plant_id", plantID, "reason", err.Error())
	default:
		s.metrics.ObserveTraining("errored", time.Since(start))
	}
	return a, err
}

func (s *trainingService) ModelStats(ctx context.Context) ([]artifacts.Summary, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlantID.String() < out[j].PlantID.String() })
	return out, nil
}
