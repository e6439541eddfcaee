package predictor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/ensemble"
	"github.com/xwerkax/BloomlyApp/internal/ml/trainer"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

var start = time.Date(2025, 2, 3, 18, 30, 0, 0, time.UTC)

func plant() *care.Plant {
	return &care.Plant{ID: uuid.New(), Name: "Sansevieria", Category: "succulent", Difficulty: "easy", DefaultIntervalDays: 14, IsActive: true}
}

func history(intervals ...int) []care.WateringEvent {
	at := start
	out := []care.WateringEvent{{ID: uuid.New(), OccurredAt: at, SoilState: "dry", WaterAmount: "150", Completed: true}}
	for _, d := range intervals {
		at = at.AddDate(0, 0, d)
		out = append(out, care.WateringEvent{ID: uuid.New(), OccurredAt: at, SoilState: "dry", WaterAmount: "150", Completed: true})
	}
	return out
}

func lastOf(evs []care.WateringEvent) time.Time { return evs[len(evs)-1].OccurredAt }

func TestPredictTwoEventsUnavailable(t *testing.T) {
	store := artifacts.NewMemoryStore()
	pr := New(store, config.DefaultThresholds(), logger.Nop())
	p := plant()
	evs := history(7)

	got, err := pr.Predict(context.Background(), p, evs, lastOf(evs).Add(24*time.Hour))
	if got != nil {
		t.Fatalf("expected no prediction, got %+v", got)
	}
	if !errors.Is(err, errs.ErrUnavailable) || !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("want ErrUnavailable wrapping ErrInsufficientData, got %v", err)
	}
	if ok, _ := store.Exists(context.Background(), p.ID); ok {
		t.Fatalf("no artifact may be written for insufficient data")
	}
}

func TestPredictTrainsLazilyAndReuses(t *testing.T) {
	store := artifacts.NewMemoryStore()
	pr := New(store, config.DefaultThresholds(), logger.Nop())
	p := plant()
	evs := history(10, 10, 10, 10, 10, 10, 10, 10)
	now := lastOf(evs).Add(48 * time.Hour)

	first, err := pr.Predict(context.Background(), p, evs, now)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if first.IntervalDays != 10 || first.ModelType != "GB" || first.NSamples != 8 {
		t.Fatalf("unexpected prediction: %+v", first)
	}
	stored, err := store.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("artifact not stored: %v", err)
	}

	second, err := pr.Predict(context.Background(), p, evs, now)
	if err != nil {
		t.Fatalf("Predict again: %v", err)
	}
	again, _ := store.Get(context.Background(), p.ID)
	if !again.TrainedAt.Equal(stored.TrainedAt) || second.IntervalDays != first.IntervalDays {
		t.Fatalf("second call should reuse the stored artifact")
	}
}

func TestPredictRetrainsUnreadableArtifact(t *testing.T) {
	store := artifacts.NewMemoryStore()
	pr := New(store, config.DefaultThresholds(), logger.Nop())
	p := plant()
	store.PutRaw(p.ID, []byte(`{"version":1,"artifact":{`))

	evs := history(7, 7, 7, 7, 7, 7, 7)
	got, err := pr.Predict(context.Background(), p, evs, lastOf(evs))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.IntervalDays != 7 {
		t.Fatalf("expected 7 days, got %d", got.IntervalDays)
	}
	if _, err := store.Get(context.Background(), p.ID); err != nil {
		t.Fatalf("retrained artifact should replace the corrupt one: %v", err)
	}
}

func TestPredictRetrainsArtifactWithBadSplit(t *testing.T) {
	th := config.DefaultThresholds()
	store := artifacts.NewMemoryStore()
	p := plant()
	evs := history(7, 7, 7, 7, 7, 7, 7)
	a, err := trainer.Train(p, evs, th)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if a.Model.GB == nil {
		t.Fatalf("expected boosting on %d rows, got %s", a.NSamples, a.ModelType)
	}
	a.Model.GB.Trees[0].Nodes = []ensemble.Node{
		{Feature: 99, Threshold: 1, Left: 1, Right: 2},
		{Left: -1, Right: -1, Value: 30},
		{Left: -1, Right: -1, Value: 30},
	}
	if err := store.Put(context.Background(), a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	pr := New(store, th, logger.Nop())
	got, err := pr.Predict(context.Background(), p, evs, lastOf(evs))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.IntervalDays != 7 {
		t.Fatalf("expected 7 days from the retrained model, got %d", got.IntervalDays)
	}
	if _, err := store.Get(context.Background(), p.ID); err != nil {
		t.Fatalf("retrained artifact should replace the bad one: %v", err)
	}
}

func TestPredictStaleArtifactUnavailable(t *testing.T) {
	th := config.DefaultThresholds()
	store := artifacts.NewMemoryStore()
	p := plant()
	evs := history(7, 7, 7, 7, 7, 7, 7)
	a, err := trainer.Train(p, evs, th)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	a.NSamples = th.MinSamplesForML - 1
	if err := store.Put(context.Background(), a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	pr := New(store, th, logger.Nop())
	if _, err := pr.Predict(context.Background(), p, evs, lastOf(evs)); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable for a stale artifact, got %v", err)
	}
}

func TestPredictToleratesUnseenCategory(t *testing.T) {
	store := artifacts.NewMemoryStore()
	pr := New(store, config.DefaultThresholds(), logger.Nop())
	p := plant()
	evs := history(7, 7, 7, 7, 7, 7, 7)
	if _, err := pr.Predict(context.Background(), p, evs, lastOf(evs)); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	p.Category = "carnivorous"
	p.Difficulty = ""
	got, err := pr.Predict(context.Background(), p, evs, lastOf(evs))
	if err != nil {
		t.Fatalf("Predict after category change: %v", err)
	}
	if got.IntervalDays != 7 {
		t.Fatalf("expected 7 days, got %d", got.IntervalDays)
	}
}

func TestPredictionsStayInRange(t *testing.T) {
	th := config.DefaultThresholds()
	cases := []struct {
		name      string
		intervals []int
		want      int
	}{
		{"daily", []int{1, 1, 1, 1, 1, 1, 1}, 1},
		{"long", []int{40, 40, 40, 40, 40, 40, 40}, 30},
		{"mixed", []int{2, 9, 4, 12, 3, 8, 5, 11, 6}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pr := New(artifacts.NewMemoryStore(), th, logger.Nop())
			evs := history(tc.intervals...)
			got, err := pr.Predict(context.Background(), plant(), evs, lastOf(evs).Add(72*time.Hour))
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if got.IntervalDays < th.PredMin || got.IntervalDays > th.PredMax {
				t.Fatalf("interval %d outside [%d,%d]", got.IntervalDays, th.PredMin, th.PredMax)
			}
			if tc.want > 0 && got.IntervalDays != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got.IntervalDays)
			}
		})
	}
}

func TestBound(t *testing.T) {
	th := config.DefaultThresholds()
	for raw, want := range map[float64]int{
		-4:   1,
		0.2:  1,
		1.5:  2,
		2.5:  2,
		6.49: 6,
		6.5:  6,
		7.5:  8,
		29.6: 30,
		88:   30,
	} {
		if got := Bound(raw, th); got != want {
			t.Fatalf("Bound(%v) = %d, want %d", raw, got, want)
		}
	}
}
