package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/config"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type RefreshOutcome string

const (
	RefreshCreated      RefreshOutcome = "created"
	RefreshUpdated      RefreshOutcome = "updated"
	RefreshUnchanged    RefreshOutcome = "unchanged"
	RefreshDeduplicated RefreshOutcome = "deduplicated"
)

const (
	intervalSourceML      = "ML"
	intervalSourceDefault = "default"
)

type ReminderService interface {
	// RefreshReminder leaves the plant with exactly one open reminder, due one
	// interval after the last watering.
	RefreshReminder(ctx context.Context, plantID uuid.UUID, now time.Time) (*types.Reminder, RefreshOutcome, error)
	RefreshAll(ctx context.Context, now time.Time) (BatchResult, error)
	// DueForNotification lists pending, unsent reminders inside the lookahead window.
	DueForNotification(ctx context.Context, now time.Time) ([]types.Reminder, error)
	MarkSent(ctx context.Context, reminderID uuid.UUID, at time.Time) error
	MarkDone(ctx context.Context, reminderID uuid.UUID, at time.Time) error
	Postpone(ctx context.Context, reminderID uuid.UUID, days int) (*types.Reminder, error)
	CleanupDone(ctx context.Context, now time.Time) (int64, error)
	ListForPlant(ctx context.Context, plantID uuid.UUID, limit int) ([]*types.Reminder, error)
}

type reminderService struct {
	db        *gorm.DB
	log       *logger.Logger
	plants    carerepo.PlantRepo
	waterings carerepo.WateringRepo
	analyses  carerepo.AnalysisRepo
	reminders carerepo.ReminderRepo
	publisher ReminderPublisher
	metrics   *observability.Metrics
	th        config.Thresholds
	loc       *time.Location
	workers   int
}

func NewReminderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plants carerepo.PlantRepo,
	waterings carerepo.WateringRepo,
	analyses carerepo.AnalysisRepo,
	reminders carerepo.ReminderRepo,
	publisher ReminderPublisher,
	metrics *observability.Metrics,
	th config.Thresholds,
	loc *time.Location,
	workers int,
) ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &reminderService{
		db:        db,
		log:       baseLog.With("service", "ReminderService"),
		plants:    plants,
		waterings: waterings,
		analyses:  analyses,
		reminders: reminders,
		publisher: publisher,
		metrics:   metrics,
		th:        th,
		loc:       loc,
		workers:   workers,
	}
}

func (s *reminderService) RefreshReminder(ctx context.Context, plantID uuid.UUID, now time.Time) (rem *types.Reminder, outcome RefreshOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "reminders.refresh", attribute.String("plant_id", plantID.String()))
	defer func() { observability.EndSpan(span, err) }()

	rem, outcome, err = s.refresh(ctx, plantID, now)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent writer without the plant lock won the insert; the retry sees its row.
		s.log.WithCtx(ctx).Debug("Open reminder conflict, retrying", "plant_id", plantID)
		rem, outcome, err = s.refresh(ctx, plantID, now)
	}
	if err != nil {
		return nil, "", err
	}
	s.metrics.ReminderRefreshed(string(outcome))
	if s.publisher != nil {
		s.publisher.ReminderRefreshed(ctx, rem, outcome)
	}
	return rem, outcome, nil
}

func (s *reminderService) refresh(ctx context.Context, plantID uuid.UUID, now time.Time) (*types.Reminder, RefreshOutcome, error) {
	var (
		out     *types.Reminder
		outcome RefreshOutcome
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		plant, err := s.plants.LockActive(dbc, plantID)
		if err != nil {
			return fmt.Errorf("lock plant: %w", err)
		}
		if plant == nil {
			return fmt.Errorf("active plant %s: %w", plantID, errs.ErrNotFound)
		}

		analysis, err := s.analyses.GetByPlant(dbc, plantID)
		if err != nil {
			return fmt.Errorf("load analysis: %w", err)
		}
		days, source := s.intervalFor(plant, analysis)

		anchor, watered, err := s.anchor(dbc, plant, now)
		if err != nil {
			return err
		}
		due := DueAt(anchor, days, s.th.ReminderHour, s.loc)
		title, body := reminderText(plant, days, source, anchor, watered)

		open, err := s.reminders.ListOpenForPlant(dbc, plantID)
		if err != nil {
			return fmt.Errorf("list open reminders: %w", err)
		}
		if len(open) == 0 {
			rem := &types.Reminder{
				PlantID:      plant.ID,
				OwnerID:      plant.OwnerID,
				Title:        title,
				Body:         body,
				DueAt:        due.UTC(),
				Status:       types.ReminderPending,
				IntervalDays: days,
				Automatic:    true,
			}
			if _, err := s.reminders.Create(dbc, rem); err != nil {
				return fmt.Errorf("create reminder: %w", err)
			}
			out, outcome = rem, RefreshCreated
			return nil
		}

		keep := open[0]
		outcome = RefreshUnchanged
		if len(open) > 1 {
			ids := make([]uuid.UUID, 0, len(open)-1)
			for _, r := range open[1:] {
				ids = append(ids, r.ID)
			}
			n, err := s.reminders.DeleteByIDs(dbc, ids)
			if err != nil {
				return fmt.Errorf("delete duplicate reminders: %w", err)
			}
			s.log.Warn("Removed duplicate open reminders", "plant_id", plantID, "count", n)
			outcome = RefreshDeduplicated
		}

		dueChanged := !keep.DueAt.Equal(due)
		if dueChanged || keep.IntervalDays != days || keep.Title != title || keep.Body != body || !keep.Automatic {
			updates := map[string]interface{}{
				"due_at":        due.UTC(),
				"interval_days": days,
				"title":         title,
				"body":          body,
				"automatic":     true,
			}
			if dueChanged {
				updates["sent"] = false
				updates["sent_at"] = nil
			}
			if _, err := s.reminders.UpdateOpenFields(dbc, keep.ID, updates); err != nil {
				return fmt.Errorf("update reminder: %w", err)
			}
			if outcome == RefreshUnchanged {
				outcome = RefreshUpdated
			}
		}

		fresh, err := s.reminders.GetByID(dbc, keep.ID)
		if err != nil {
			return fmt.Errorf("reload reminder: %w", err)
		}
		out = fresh
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, outcome, nil
}

// intervalFor trusts the analysis only with enough history and confidence.
func (s *reminderService) intervalFor(plant *types.Plant, a *types.CareAnalysis) (int, string) {
	if a != nil &&
		a.RecommendedIntervalDays > 0 &&
		a.WateringCount >= s.th.TrustMinWaterings &&
		a.Confidence >= s.th.TrustMinConfidence {
		return a.RecommendedIntervalDays, intervalSourceML
	}
	days := plant.DefaultIntervalDays
	if days < 1 {
		days = 1
	}
	return days, intervalSourceDefault
}

// anchor is the local calendar date of the last completed watering, then the
// plant's last_watered_on, then today. watered is false only for today.
func (s *reminderService) anchor(dbc dbctx.Context, plant *types.Plant, now time.Time) (time.Time, bool, error) {
	last, err := s.waterings.LatestCompleted(dbc, plant.ID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last watering: %w", err)
	}
	switch {
	case last != nil:
		return localDate(last.OccurredAt, s.loc), true, nil
	case plant.LastWateredOn != nil:
		return localDate(*plant.LastWateredOn, s.loc), true, nil
	default:
		return localDate(now, s.loc), false, nil
	}
}

func localDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DueAt is anchor's date plus days, at hour:00 local time.
func DueAt(anchor time.Time, days, hour int, loc *time.Location) time.Time {
	a := anchor.In(loc)
	return time.Date(a.Year(), a.Month(), a.Day()+days, hour, 0, 0, 0, loc)
}

func reminderText(plant *types.Plant, days int, source string, anchor time.Time, watered bool) (string, string) {
	title := "Water " + plant.Name
	last := "never"
	if watered {
		last = anchor.Format("2006-01-02")
	}
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	body := fmt.Sprintf("Every %d %s (%s interval). Last watered: %s.", days, unit, source, last)
	return title, body
}

func (s *reminderService) RefreshAll(ctx context.Context, now time.Time) (BatchResult, error) {
	plants, err := s.plants.ListActive(dbctx.Of(ctx))
	if err != nil {
		return BatchResult{}, fmt.Errorf("list plants: %w", err)
	}
	res, err := forEachPlant(ctx, s.log, plants, s.workers, func(ctx context.Context, p *types.Plant) (itemOutcome, error) {
		_, outcome, err := s.RefreshReminder(ctx, p.ID, now)
		if err != nil {
			return 0, err
		}
		if outcome == RefreshUnchanged {
			return itemSkipped, nil
		}
		return itemSucceeded, nil
	})
	s.log.Info("Reminder refresh-all finished",
		"total", res.Total,
		"changed", res.Succeeded,
		"unchanged", res.Skipped,
		"errored", res.Errored,
	)
	return res, err
}

func (s *reminderService) DueForNotification(ctx context.Context, now time.Time) ([]types.Reminder, error) {
	from := now.Add(s.th.NotifyLookahead)
	to := from.Add(s.th.NotifyWindow)
	out, err := s.reminders.ListDueUnsent(dbctx.Of(ctx), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	s.metrics.SetRemindersDue(len(out))
	return out, nil
}

func (s *reminderService) MarkSent(ctx context.Context, reminderID uuid.UUID, at time.Time) error {
	ok, err := s.reminders.UpdateOpenFields(dbctx.Of(ctx), reminderID, map[string]interface{}{
		"sent":    true,
		"sent_at": at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if !ok {
		return fmt.Errorf("open reminder %s: %w", reminderID, errs.ErrNotFound)
	}
	return nil
}

func (s *reminderService) MarkDone(ctx context.Context, reminderID uuid.UUID, at time.Time) error {
	return markReminderDone(dbctx.Of(ctx), s.reminders, reminderID, at)
}

func markReminderDone(dbc dbctx.Context, reminders carerepo.ReminderRepo, reminderID uuid.UUID, at time.Time) error {
	ok, err := reminders.UpdateOpenFields(dbc, reminderID, map[string]interface{}{
		"status":  types.ReminderDone,
		"done_at": at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if !ok {
		return fmt.Errorf("open reminder %s: %w", reminderID, errs.ErrNotFound)
	}
	return nil
}

func (s *reminderService) Postpone(ctx context.Context, reminderID uuid.UUID, days int) (*types.Reminder, error) {
	if days < 1 {
		return nil, fmt.Errorf("postpone by %d days: %w", days, errs.ErrInvalidArgument)
	}
	var out *types.Reminder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.InTx(ctx, tx)
		rem, err := s.reminders.GetByID(dbc, reminderID)
		if err != nil {
			return fmt.Errorf("load reminder: %w", err)
		}
		if !rem.Open() {
			return fmt.Errorf("open reminder %s: %w", reminderID, errs.ErrNotFound)
		}
		due := rem.DueAt.AddDate(0, 0, days).UTC()
		if _, err := s.reminders.UpdateOpenFields(dbc, rem.ID, map[string]interface{}{
			"due_at":  due,
			"sent":    false,
			"sent_at": nil,
		}); err != nil {
			return fmt.Errorf("postpone: %w", err)
		}
		out, err = s.reminders.GetByID(dbc, rem.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reminderService) CleanupDone(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.th.ReminderRetention).UTC()
	n, err := s.reminders.DeleteDoneBefore(dbctx.Of(ctx), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup reminders: %w", err)
	}
	if n > 0 {
		s.log.Info("Removed old done reminders", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *reminderService) ListForPlant(ctx context.Context, plantID uuid.UUID, limit int) ([]*types.Reminder, error) {
	return s.reminders.ListForPlant(dbctx.Of(ctx), plantID, limit)
}
