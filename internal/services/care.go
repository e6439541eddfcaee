package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
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

type PlantService interface {
	// Create stores the plant together with its neutral analysis record.
	Create(ctx context.Context, plant *types.Plant) (*types.Plant, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Plant, error)
	List(ctx context.Context) ([]*types.Plant, error)
	// Deactivate stops scheduling for the plant and cancels its open reminders.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type plantService struct {
	db        *gorm.DB
	log       *logger.Logger
	plants    carerepo.PlantRepo
	analyses  carerepo.AnalysisRepo
	reminders carerepo.ReminderRepo
}

func NewPlantService(db *gorm.DB, baseLog *logger.Logger, plants carerepo.PlantRepo, analyses carerepo.AnalysisRepo, reminders carerepo.ReminderRepo) PlantService {
	return &plantService{
		db:        db,
		log:       baseLog.With("service", "PlantService"),
		plants:    plants,
		analyses:  analyses,
		reminders: reminders,
	}
}

func (s *plantService) Create(ctx context.Context, plant *types.Plant) (*types.Plant, error) {
	if plant == nil || strings.TrimSpace(plant.Name) == "" {
		return nil, fmt.Errorf("plant name required: %w", errs.ErrInvalidArgument)
	}
	if plant.DefaultIntervalDays < 1 {
		return nil, fmt.Errorf("default interval %d: %w", plant.DefaultIntervalDays, errs.ErrInvalidArgument)
	}
	plant.Name = strings.TrimSpace(plant.Name)
	plant.IsActive = true

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		if _, err := s.plants.Create(dbc, plant); err != nil {
			return fmt.Errorf("create plant: %w", err)
		}
		if _, err := s.analyses.CreateIfMissing(dbc, neutralAnalysis(plant)); err != nil {
			return fmt.Errorf("ensure analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Plant created", "plant_id", plant.ID, "default_interval_days", plant.DefaultIntervalDays)
	return plant, nil
}

func (s *plantService) Get(ctx context.Context, id uuid.UUID) (*types.Plant, error) {
	p, err := s.plants.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load plant: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("plant %s: %w", id, errs.ErrNotFound)
	}
	return p, nil
}

func (s *plantService) List(ctx context.Context) ([]*types.Plant, error) {
	return s.plants.ListActive(dbctx.Of(ctx))
}

func (s *plantService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		p, err := s.plants.LockActive(dbc, id)
		if err != nil {
			return fmt.Errorf("lock plant: %w", err)
		}
		if p == nil {
			return fmt.Errorf("active plant %s: %w", id, errs.ErrNotFound)
		}
		if err := s.plants.UpdateFields(dbc, id, map[string]interface{}{"is_active": false}); err != nil {
			return fmt.Errorf("deactivate plant: %w", err)
		}
		n, err := s.reminders.CancelOpenForPlant(dbc, id)
		if err != nil {
			return fmt.Errorf("cancel reminders: %w", err)
		}
		s.log.Info("Plant deactivated", "plant_id", id, "cancelled_reminders", n)
		return nil
	})
}

type WateringService interface {
	// Record stores a completed watering and then refreshes the plant's analysis
	// and reminder. Failures after the event is stored are logged, not returned.
	Record(ctx context.Context, plantID uuid.UUID, ev *types.WateringEvent) (*types.WateringEvent, error)
	List(ctx context.Context, plantID uuid.UUID) ([]types.WateringEvent, error)
}

type wateringService struct {
	db        *gorm.DB
	log       *logger.Logger
	plants    carerepo.PlantRepo
	waterings carerepo.WateringRepo
	reminders carerepo.ReminderRepo
	analysis  AnalysisService
	scheduler ReminderService
	th        config.Thresholds
	loc       *time.Location
	now       func() time.Time
}

func NewWateringService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plants carerepo.PlantRepo,
	waterings carerepo.WateringRepo,
	reminders carerepo.ReminderRepo,
	analysis AnalysisService,
	scheduler ReminderService,
	th config.Thresholds,
	loc *time.Location,
) WateringService {
	if loc == nil {
		loc = time.UTC
	}
	return &wateringService{
		db:        db,
		log:       baseLog.With("service", "WateringService"),
		plants:    plants,
		waterings: waterings,
		reminders: reminders,
		analysis:  analysis,
		scheduler: scheduler,
		th:        th,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *wateringService) Record(ctx context.Context, plantID uuid.UUID, ev *types.WateringEvent) (*types.WateringEvent, error) {
	if ev == nil {
		return nil, fmt.Errorf("watering required: %w", errs.ErrInvalidArgument)
	}
	now := s.now()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}
	if ev.OccurredAt.After(now.Add(time.Minute)) {
		return nil, fmt.Errorf("watering in the future: %w", errs.ErrInvalidArgument)
	}
	ev.ID = uuid.Nil
	ev.PlantID = plantID
	ev.Completed = true
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.IntervalDays = nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		plant, err := s.plants.LockActive(dbc, plantID)
		if err != nil {
			return fmt.Errorf("lock plant: %w", err)
		}
		if plant == nil {
			return fmt.Errorf("active plant %s: %w", plantID, errs.ErrNotFound)
		}

		if ev.ReminderID != nil {
			err := markReminderDone(dbc, s.reminders, *ev.ReminderID, ev.OccurredAt)
			switch {
			case errors.Is(err, errs.ErrNotFound):
				s.log.Warn("Watering references a reminder that is not open", "plant_id", plantID, "reminder_id", *ev.ReminderID)
			case err != nil:
				return err
			}
		}

		if _, err := s.waterings.Create(dbc, ev); err != nil {
			return fmt.Errorf("create watering: %w", err)
		}
		prev, next, err := s.waterings.Neighbours(dbc, plantID, ev.OccurredAt, ev.ID)
		if err != nil {
			return fmt.Errorf("load neighbours: %w", err)
		}
		if prev != nil {
			ev.IntervalDays = gapDays(prev.OccurredAt, ev.OccurredAt)
			if err := s.waterings.SetInterval(dbc, ev.ID, ev.IntervalDays); err != nil {
				return fmt.Errorf("set interval: %w", err)
			}
		}
		if next != nil {
			if err := s.waterings.SetInterval(dbc, next.ID, gapDays(ev.OccurredAt, next.OccurredAt)); err != nil {
				return fmt.Errorf("set next interval: %w", err)
			}
		}

		day := localDate(ev.OccurredAt, s.loc)
		if plant.LastWateredOn == nil || day.After(*plant.LastWateredOn) {
			if err := s.plants.UpdateFields(dbc, plantID, map[string]interface{}{"last_watered_on": day.UTC()}); err != nil {
				return fmt.Errorf("update last watered: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterRecord(ctx, plantID, now)
	return ev, nil
}

func (s *wateringService) afterRecord(ctx context.Context, plantID uuid.UUID, now time.Time) {
	n, err := s.waterings.CountCompleted(dbctx.Of(ctx), plantID)
	if err != nil {
		s.log.Warn("Count waterings failed", "plant_id", plantID, "error", err)
	} else if int(n) >= s.th.TrustMinWaterings {
		if _, err := s.analysis.UpdateAnalysis(ctx, plantID); err != nil {
			s.log.Warn("Analysis update after watering failed", "plant_id", plantID, "error", err)
		}
	}
	if _, _, err := s.scheduler.RefreshReminder(ctx, plantID, now); err != nil {
		s.log.Warn("Reminder refresh after watering failed", "plant_id", plantID, "error", err)
	}
}

func (s *wateringService) List(ctx context.Context, plantID uuid.UUID) ([]types.WateringEvent, error) {
	return s.waterings.ListCompleted(dbctx.Of(ctx), plantID)
}

func gapDays(a, b time.Time) *float64 {
	d := math.Round(b.Sub(a).Hours()/24*100) / 100
	return &d
}
