package trainer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/config"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/ensemble"
)

func testPlant() *care.Plant {
	return &care.Plant{ID: uuid.New(), Name: "Monstera", Category: "tropical", Difficulty: "easy", DefaultIntervalDays: 7, IsActive: true}
}

func history(start time.Time, intervals ...int) []care.WateringEvent {
	at := start
	out := []care.WateringEvent{{ID: uuid.New(), OccurredAt: at, SoilState: "dry", WaterAmount: "med", Completed: true}}
	for _, d := range intervals {
		at = at.AddDate(0, 0, d)
		out = append(out, care.WateringEvent{ID: uuid.New(), OccurredAt: at, SoilState: "dry", WaterAmount: "med", Completed: true})
	}
	return out
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var start = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func TestTrainInsufficientData(t *testing.T) {
	th := config.DefaultThresholds()
	for _, n := range []int{0, 1, 2, 5} {
		var evs []care.WateringEvent
		if n > 0 {
			evs = history(start, repeat(7, n-1)...)
		}
		if _, err := Train(testPlant(), evs, th); !errors.Is(err, errs.ErrInsufficientData) {
			t.Fatalf("%d events: want ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestTrainRegularWeeklyUsesBoosting(t *testing.T) {
	th := config.DefaultThresholds()
	p := testPlant()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	a, err := train(p, history(start, repeat(7, 14)...), th, now)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if a.NSamples != 14 || a.ModelType != ensemble.FamilyGB {
		t.Fatalf("expected GB on 14 rows, got %s on %d", a.ModelType, a.NSamples)
	}
	if a.R2 != 1 || a.MAE != 0 || a.RMSE != 0 {
		t.Fatalf("constant labels fitted exactly should score R2=1 MAE=0, got %+v", a)
	}
	if a.AdjR2 == nil || *a.AdjR2 != 1 {
		t.Fatalf("adjusted R2 should equal R2 when n <= p+1, got %v", a.AdjR2)
	}
	if a.CVMAE == nil || a.CVMAEStd == nil || *a.CVMAE != 0 {
		t.Fatalf("cv should run at n=14 and be exact on constant labels: %v %v", a.CVMAE, a.CVMAEStd)
	}
	if a.PlantID != p.ID || !a.TrainedAt.Equal(now) {
		t.Fatalf("artifact identity not recorded: %v %v", a.PlantID, a.TrainedAt)
	}
	if len(a.FeatureColumns) == 0 || len(a.FeatureMedians) != len(a.FeatureColumns) {
		t.Fatalf("expected one median per column, got %d columns %d medians", len(a.FeatureColumns), len(a.FeatureMedians))
	}
}

func TestTrainSwitchesToForestAtSplit(t *testing.T) {
	th := config.DefaultThresholds()
	a, err := Train(testPlant(), history(start, repeat(7, 15)...), th)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if a.NSamples != 15 || a.ModelType != ensemble.FamilyRF {
		t.Fatalf("expected RF on 15 rows, got %s on %d", a.ModelType, a.NSamples)
	}
}

func TestTrainSkipsCrossValidationBelowMinimum(t *testing.T) {
	th := config.DefaultThresholds()
	a, err := Train(testPlant(), history(start, 6, 7, 8, 7, 6, 7), th)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if a.NSamples != 6 {
		t.Fatalf("expected 6 rows, got %d", a.NSamples)
	}
	if a.CVMAE != nil || a.CVMAEStd != nil {
		t.Fatalf("cv must be left unset below %d rows", th.CVMinSamples)
	}
}

func TestTrainDropsOutlierIntervals(t *testing.T) {
	th := config.DefaultThresholds()
	a, err := Train(testPlant(), history(start, 7, 7, 7, 7, 7, 7, 7, 45, 7), th)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if a.NSamples != 8 {
		t.Fatalf("expected the 45-day gap dropped, leaving 8 rows, got %d", a.NSamples)
	}
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]float64{1, 2, 3}, []float64{1, 2, 3})
	if m.R2 != 1 || m.MAE != 0 || m.RMSE != 0 {
		t.Fatalf("perfect fit: %+v", m)
	}
	m = Evaluate([]float64{5, 5}, []float64{4, 6})
	if m.R2 != 0 || m.MAE != 1 || m.RMSE != 1 {
		t.Fatalf("constant labels with misses: %+v", m)
	}
	m = Evaluate([]float64{1, 2, 3}, []float64{2, 2, 2})
	if math.Abs(m.R2) > 1e-12 {
		t.Fatalf("mean predictor should score R2=0, got %v", m.R2)
	}
}

func TestAdjustedR2(t *testing.T) {
	if got := AdjustedR2(0.8, 5, 4); got != 0.8 {
		t.Fatalf("n <= p+1 should return r2, got %v", got)
	}
	want := 1 - 0.2*9.0/7.0
	if got := AdjustedR2(0.8, 10, 2); math.Abs(got-want) > 1e-12 {
		t.Fatalf("AdjustedR2 = %v, want %v", got, want)
	}
}

// flakyStore fails every Put once failing is set.
type flakyStore struct {
	artifacts.Store
	failing bool
}

func (s *flakyStore) Put(ctx context.Context, a *artifacts.Artifact) error {
	if s.failing {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, a)
}

func TestTrainAndStoreFailedWriteKeepsPreviousArtifact(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	p := testutil.SeedPlant(t, ctx, db, "Monstera", 7)
	first := time.Now().UTC().AddDate(0, 0, -120)
	testutil.SeedWaterings(t, ctx, db, p, first, "dry", "med", testutil.Offsets(11, 7)...)

	store := &flakyStore{Store: artifacts.NewMemoryStore()}
	svc := NewService(carerepo.NewPlantRepo(db, log), carerepo.NewWateringRepo(db, log), store, config.DefaultThresholds(), time.UTC, log)

	prev, err := svc.TrainAndStore(ctx, p.ID)
	if err != nil {
		t.Fatalf("first TrainAndStore: %v", err)
	}
	if prev.NSamples != 10 {
		t.Fatalf("first run rows=%d", prev.NSamples)
	}

	testutil.SeedWaterings(t, ctx, db, p, first, "dry", "med", 77, 84, 91)
	store.failing = true
	if _, err := svc.TrainAndStore(ctx, p.ID); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("second TrainAndStore: err=%v", err)
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.NSamples != prev.NSamples || !got.TrainedAt.Equal(prev.TrainedAt) {
		t.Fatalf("previous artifact replaced: n=%d trained_at=%v", got.NSamples, got.TrainedAt)
	}
}
