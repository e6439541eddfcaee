package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/config"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type ApplyResult struct {
	PlantID    uuid.UUID `json:"plant_id"`
	Applied    bool      `json:"applied"`
	OldDays    int       `json:"old_days"`
	NewDays    int       `json:"new_days"`
	Confidence float64   `json:"confidence"`
	ModelType  string    `json:"model_type"`
	Reason     string    `json:"reason"`
}

type RecommendationService interface {
	// Apply refreshes the analysis and, when it is confident enough, makes the
	// recommended interval the plant's default cadence.
	Apply(ctx context.Context, plantID uuid.UUID, minConfidence float64) (ApplyResult, error)
	AutoApply(ctx context.Context) (BatchResult, error)
}

type recommendationService struct {
	db        *gorm.DB
	log       *logger.Logger
	plants    carerepo.PlantRepo
	analyses  carerepo.AnalysisRepo
	analysis  AnalysisService
	scheduler ReminderService
	th        config.Thresholds
	workers   int
	now       func() time.Time
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plants carerepo.PlantRepo,
	analyses carerepo.AnalysisRepo,
	analysis AnalysisService,
	scheduler ReminderService,
	th config.Thresholds,
	workers int,
) RecommendationService {
	return &recommendationService{
		db:        db,
		log:       baseLog.With("service", "RecommendationService"),
		plants:    plants,
		analyses:  analyses,
		analysis:  analysis,
		scheduler: scheduler,
		th:        th,
		workers:   workers,
		now:       time.Now,
	}
}

func (s *recommendationService) Apply(ctx context.Context, plantID uuid.UUID, minConfidence float64) (ApplyResult, error) {
	a, err := s.analysis.UpdateAnalysis(ctx, plantID)
	if err != nil {
		return ApplyResult{}, err
	}
	plant, err := s.plants.GetByID(dbctx.Of(ctx), plantID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load plant: %w", err)
	}
	if plant == nil {
		return ApplyResult{}, fmt.Errorf("plant %s: %w", plantID, errs.ErrNotFound)
	}

	res := ApplyResult{
		PlantID:    plantID,
		OldDays:    plant.DefaultIntervalDays,
		NewDays:    plant.DefaultIntervalDays,
		Confidence: a.Confidence,
		ModelType:  a.ModelType,
	}
	switch {
	case a.Confidence < minConfidence:
		res.Reason = fmt.Sprintf("confidence %.2f below %.2f", a.Confidence, minConfidence)
		return res, nil
	case a.WateringCount < s.th.ApplyMinSamples:
		res.Reason = fmt.Sprintf("%d waterings, need %d", a.WateringCount, s.th.ApplyMinSamples)
		return res, nil
	}

	res.NewDays = a.RecommendedIntervalDays
	res.Applied = true
	if res.NewDays == res.OldDays {
		res.Reason = "default already matches recommendation"
		return res, nil
	}
	// Same row lock as reminder refresh, so a concurrent refresh never reads the old default.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		locked, err := s.plants.LockActive(dbc, plantID)
		if err != nil {
			return fmt.Errorf("lock plant: %w", err)
		}
		if locked == nil {
			return fmt.Errorf("active plant %s: %w", plantID, errs.ErrNotFound)
		}
		res.OldDays = locked.DefaultIntervalDays
		if err := s.plants.UpdateFields(dbc, plantID, map[string]interface{}{
			"default_interval_days": res.NewDays,
		}); err != nil {
			return fmt.Errorf("update default interval: %w", err)
		}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	res.Reason = "recommendation applied"
	if s.scheduler != nil {
		if _, _, err := s.scheduler.RefreshReminder(ctx, plantID, s.now()); err != nil {
			s.log.Warn("Reminder refresh after apply failed", "plant_id", plantID, "error", err)
		}
	}
	s.log.Info("Recommendation applied",
		"plant_id", plantID,
		"old_days", res.OldDays,
		"new_days", res.NewDays,
		"confidence", res.Confidence,
		"model_type", res.ModelType,
	)
	return res, nil
}

// AutoApply only considers plants whose stored analysis already clears the
// stricter pre-filter, then applies with the regular threshold.
func (s *recommendationService) AutoApply(ctx context.Context) (BatchResult, error) {
	candidates, err := s.analyses.ListConfident(dbctx.Of(ctx), s.th.AutoApplyPrefilterConfidence, s.th.AutoApplyPrefilterWaterings)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list candidates: %w", err)
	}
	plants := make([]*types.Plant, 0, len(candidates))
	for _, a := range candidates {
		p, err := s.plants.GetByID(dbctx.Of(ctx), a.PlantID)
		if err != nil {
			return BatchResult{}, fmt.Errorf("load plant: %w", err)
		}
		if p != nil && p.IsActive {
			plants = append(plants, p)
		}
	}
	res, err := forEachPlant(ctx, s.log, plants, s.workers, func(ctx context.Context, p *types.Plant) (itemOutcome, error) {
		r, err := s.Apply(ctx, p.ID, s.th.ApplyMinConfidence)
		if err != nil {
			return 0, err
		}
		if !r.Applied || r.NewDays == r.OldDays {
			return itemSkipped, nil
		}
		return itemSucceeded, nil
	})
	s.log.Info("Auto-apply finished",
		"candidates", res.Total,
		"applied", res.Succeeded,
		"skipped", res.Skipped,
		"errored", res.Errored,
	)
	return res, err
}
