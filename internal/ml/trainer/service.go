package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/config"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// Service trains from stored history and persists the artifact.
type Service struct {
	plants    carerepo.PlantRepo
	waterings carerepo.WateringRepo
	store     artifacts.Store
	th        config.Thresholds
	loc       *time.Location
	log       *logger.Logger
}

func NewService(plants carerepo.PlantRepo, waterings carerepo.WateringRepo, store artifacts.Store, th config.Thresholds, loc *time.Location, baseLog *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		plants:    plants,
		waterings: waterings,
		store:     store,
		th:        th,
		loc:       loc,
		log:       baseLog.With("service", "TrainerService"),
	}
}

// TrainAndStore replaces the plant's artifact only after a complete training run;
// any error leaves the previous artifact in place.
func (s *Service) TrainAndStore(ctx context.Context, plantID uuid.UUID) (*artifacts.Artifact, error) {
	dbc := dbctx.Of(ctx)
	plant, err := s.plants.GetByID(dbc, plantID)
	if err != nil {
		return nil, fmt.Errorf("load plant: %w", err)
	}
	if plant == nil {
		return nil, fmt.Errorf("plant %s: %w", plantID, errs.ErrNotFound)
	}
	events, err := s.waterings.ListCompleted(dbc, plantID)
	if err != nil {
		return nil, fmt.Errorf("load waterings: %w", err)
	}
	a, err := Train(plant, features.InLocation(events, s.loc), s.th)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	s.log.Info("Model trained",
		"plant_id", plantID,
		"model_type", a.ModelType,
		"n_samples", a.NSamples,
		"r2", a.R2,
		"mae", a.MAE,
	)
	return a, nil
}
