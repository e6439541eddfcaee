// Package handlers binds background job types to the care services.
package handlers

import (
	"fmt"
	"time"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/jobs/runtime"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

const (
	TypeRetrainAll          = "retrain_all"
	TypeAnalyzeAll          = "analyze_all"
	TypeRemindersRefresh    = "reminders_refresh"
	TypeRemindersRefreshAll = "reminders_refresh_all"
	TypeAutoApply           = "recommendations_auto_apply"
	TypeRemindersCleanup    = "reminders_cleanup"
)

// Types lists every job type this package can run.
func Types() []string {
	return []string{
		TypeRetrainAll,
		TypeAnalyzeAll,
		TypeRemindersRefresh,
		TypeRemindersRefreshAll,
		TypeAutoApply,
		TypeRemindersCleanup,
	}
}

type Deps struct {
	Training        services.TrainingService
	Analysis        services.AnalysisService
	Reminders       services.ReminderService
	Recommendations services.RecommendationService
	Thresholds      config.Thresholds
	Now             func() time.Time
}

// RegisterAll registers one handler per job type.
func RegisterAll(reg *runtime.Registry, deps Deps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return reg.Register(
		&retrainAll{deps},
		&analyzeAll{deps},
		&remindersRefresh{deps},
		&remindersRefreshAll{deps},
		&autoApply{deps},
		&remindersCleanup{deps},
	)
}

type retrainAll struct{ Deps }

func (h *retrainAll) Type() string { return TypeRetrainAll }

func (h *retrainAll) Run(jc *runtime.Context) error {
	jc.Progress("training", 5, "Retraining models for active plants")
	res, err := h.Training.RetrainAll(jc.Ctx)
	if err != nil {
		return err
	}
	jc.Succeed("done", res)
	return nil
}

type analyzeAll struct{ Deps }

func (h *analyzeAll) Type() string { return TypeAnalyzeAll }

func (h *analyzeAll) Run(jc *runtime.Context) error {
	jc.Progress("analyzing", 5, "Updating care analyses")
	res, err := h.Analysis.AnalyzeAll(jc.Ctx)
	if err != nil {
		return err
	}
	jc.Succeed("done", res)
	return nil
}

type remindersRefresh struct{ Deps }

func (h *remindersRefresh) Type() string { return TypeRemindersRefresh }

func (h *remindersRefresh) Run(jc *runtime.Context) error {
	plantID, ok := jc.PayloadUUID("plant_id")
	if !ok && jc.Job.EntityID != nil {
		plantID, ok = *jc.Job.EntityID, true
	}
	if !ok {
		return fmt.Errorf("plant_id required: %w", errs.ErrInvalidArgument)
	}
	rem, outcome, err := h.Reminders.RefreshReminder(jc.Ctx, plantID, h.Now())
	if err != nil {
		return err
	}
	jc.Succeed("done", map[string]any{
		"plant_id":    plantID,
		"reminder_id": rem.ID,
		"due_at":      rem.DueAt,
		"outcome":     outcome,
	})
	return nil
}

type remindersRefreshAll struct{ Deps }

func (h *remindersRefreshAll) Type() string { return TypeRemindersRefreshAll }

func (h *remindersRefreshAll) Run(jc *runtime.Context) error {
	jc.Progress("refreshing", 5, "Refreshing reminders for active plants")
	res, err := h.Reminders.RefreshAll(jc.Ctx, h.Now())
	if err != nil {
		return err
	}
	jc.Succeed("done", res)
	return nil
}

type autoApply struct{ Deps }

func (h *autoApply) Type() string { return TypeAutoApply }

func (h *autoApply) Run(jc *runtime.Context) error {
	jc.Progress("applying", 5, "Applying confident recommendations")
	res, err := h.Recommendations.AutoApply(jc.Ctx)
	if err != nil {
		return err
	}
	jc.Succeed("done", res)
	return nil
}

type remindersCleanup struct{ Deps }

func (h *remindersCleanup) Type() string { return TypeRemindersCleanup }

func (h *remindersCleanup) Run(jc *runtime.Context) error {
	n, err := h.Reminders.CleanupDone(jc.Ctx, h.Now())
	if err != nil {
		return err
	}
	jc.Succeed("done", map[string]any{
		"deleted":   n,
		"retention": h.Thresholds.ReminderRetention.String(),
	})
	return nil
}
