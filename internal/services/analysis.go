package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/xwerkax/BloomlyApp/internal/analysis/confidence"
	"github.com/xwerkax/BloomlyApp/internal/analysis/fallback"
	"github.com/xwerkax/BloomlyApp/internal/config"
	carerepo "github.com/xwerkax/BloomlyApp/internal/data/repos/care"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
	"github.com/xwerkax/BloomlyApp/internal/ml/predictor"
	"github.com/xwerkax/BloomlyApp/internal/observability"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

const neutralConfidence = 0.5

type AnalysisService interface {
	// UpdateAnalysis recomputes and upserts the plant's care analysis. ML is used only
	// when the predictor returns a usable model; otherwise the statistical fallback.
	UpdateAnalysis(ctx context.Context, plantID uuid.UUID) (*types.CareAnalysis, error)
	// EnsureAnalysis writes a neutral record if the plant has none; it reports whether one was created.
	EnsureAnalysis(ctx context.Context, plantID uuid.UUID) (bool, error)
	GetAnalysis(ctx context.Context, plantID uuid.UUID) (*types.CareAnalysis, error)
	AnalyzeAll(ctx context.Context) (BatchResult, error)
}

type analysisService struct {
	log       *logger.Logger
	plants    carerepo.PlantRepo
	waterings carerepo.WateringRepo
	analyses  carerepo.AnalysisRepo
	predictor *predictor.Predictor
	metrics   *observability.Metrics
	th        config.Thresholds
	loc       *time.Location
	workers   int
	now       func() time.Time
}

func NewAnalysisService(
	baseLog *logger.Logger,
	plants carerepo.PlantRepo,
	waterings carerepo.WateringRepo,
	analyses carerepo.AnalysisRepo,
	pred *predictor.Predictor,
	metrics *observability.Metrics,
	th config.Thresholds,
	loc *time.Location,
	workers int,
) AnalysisService {
	if loc == nil {
		loc = time.UTC
	}
	return &analysisService{
		log:       baseLog.With("service", "AnalysisService"),
		plants:    plants,
		waterings: waterings,
		analyses:  analyses,
		predictor: pred,
		metrics:   metrics,
		th:        th,
		loc:       loc,
		workers:   workers,
		now:       time.Now,
	}
}

func (s *analysisService) UpdateAnalysis(ctx context.Context, plantID uuid.UUID) (_ *types.CareAnalysis, err error) {
	ctx, span := observability.StartSpan(ctx, "analysis.update", attribute.String("plant_id", plantID.String()))
	defer func() { observability.EndSpan(span, err) }()

	dbc := dbctx.Of(ctx)
	plant, err := s.plants.GetByID(dbc, plantID)
	if err != nil {
		return nil, fmt.Errorf("load plant: %w", err)
	}
	if plant == nil {
		return nil, fmt.Errorf("plant %s: %w", plantID, errs.ErrNotFound)
	}
	stored, err := s.waterings.ListCompleted(dbc, plantID)
	if err != nil {
		return nil, fmt.Errorf("load waterings: %w", err)
	}
	events := features.InLocation(stored, s.loc)
	now := s.now().In(s.loc)

	a := s.analyze(ctx, plant, events, now)
	out, err := s.analyses.Upsert(dbc, a)
	if err != nil {
		return nil, fmt.Errorf("upsert analysis: %w", err)
	}

	source := "stat"
	if a.ModelType != types.ModelTypeStat {
		source = "ml"
	}
	s.metrics.ObserveAnalysis(source, a.Confidence)
	s.log.WithCtx(ctx).Debug("Analysis updated",
		"plant_id", plantID,
		"interval_days", a.RecommendedIntervalDays,
		"confidence", a.Confidence,
		"model_type", a.ModelType,
	)
	return out, nil
}

// analyze builds the full snapshot without touching storage, apart from the
// predictor's artifact store.
func (s *analysisService) analyze(ctx context.Context, plant *types.Plant, events []types.WateringEvent, now time.Time) *types.CareAnalysis {
	evs := features.Completed(events)
	intervals := features.Intervals(evs, s.th)
	st := features.Stats(intervals)
	fb := fallback.Analyze(plant, evs, s.th)

	a := &types.CareAnalysis{
		PlantID:                 plant.ID,
		RecommendedIntervalDays: fb.IntervalDays,
		ModelType:               types.ModelTypeStat,
		Message:                 fb.Message,
		WateringCount:           len(evs),
	}
	modelConf := fb.Confidence

	pred, err := s.predictor.Predict(ctx, plant, evs, now)
	switch {
	case err == nil && s.usable(pred):
		a.RecommendedIntervalDays = pred.IntervalDays
		a.ModelType = pred.ModelType
		fit := pred.R2
		if pred.AdjR2 != nil {
			fit = *pred.AdjR2
		}
		a.R2 = ptrFloat(round2(fit))
		a.MAE = ptrFloat(round2(pred.MAE))
		a.RMSE = ptrFloat(round2(pred.RMSE))
		if pred.CVMAE != nil {
			a.CVMAE = ptrFloat(round2(*pred.CVMAE))
		}
		a.NSamples = pred.NSamples
		a.Message = fmt.Sprintf("%s model trained on %d samples", pred.ModelType, pred.NSamples)
		modelConf = pred.Confidence
	case err == nil:
		s.log.Debug("Model not usable, using statistics", "plant_id", plant.ID, "confidence", pred.Confidence, "n_samples", pred.NSamples)
	case errors.Is(err, errs.ErrUnavailable):
	default:
		s.log.Warn("Prediction failed, using statistics", "plant_id", plant.ID, "error", err)
	}

	modelConf = confidence.Clamp01(modelConf)
	reg := confidence.Regularity(intervals, st.Mean, st.Std)
	soil := confidence.SoilScore(evs)
	water := confidence.WaterScore(evs)
	bio := confidence.Biology(soil, water)

	a.Confidence = round2(confidence.Blend(modelConf, reg, bio))
	a.ModelConfidence = round2(modelConf)
	a.RegularityScore = round2(reg)
	a.SoilScore = round2(soil)
	a.WaterScore = round2(water)
	a.BiologyScore = round2(bio)

	a.MeanIntervalDays = float64(a.RecommendedIntervalDays)
	if st.Mean > 0 {
		a.MeanIntervalDays = round2(st.Mean)
	}
	a.StdIntervalDays = round2(st.Std)
	if slope, ok := features.TrendSlope(intervals); ok {
		a.IntervalTrend = ptrFloat(round2(slope))
	}

	tod := fallback.TimeOfDay(evs)
	a.WatersMorning = tod.Morning > 0
	a.WatersAfternoon = tod.Afternoon > 0
	a.WatersEvening = tod.Evening > 0
	a.PreferredTimeOfDay = tod.Preferred
	if raw, err := json.Marshal(tod); err == nil {
		a.TimeOfDay = datatypes.JSON(raw)
	}
	a.UpdatedAt = now.UTC()
	return a
}

func (s *analysisService) usable(p *predictor.Prediction) bool {
	return p != nil && p.NSamples >= s.th.MinSamplesForML && p.Confidence > s.th.MinUsableConfidence
}

func (s *analysisService) EnsureAnalysis(ctx context.Context, plantID uuid.UUID) (bool, error) {
	dbc := dbctx.Of(ctx)
	plant, err := s.plants.GetByID(dbc, plantID)
	if err != nil {
		return false, fmt.Errorf("load plant: %w", err)
	}
	if plant == nil {
		return false, fmt.Errorf("plant %s: %w", plantID, errs.ErrNotFound)
	}
	created, err := s.analyses.CreateIfMissing(dbc, neutralAnalysis(plant))
	if err != nil {
		return false, fmt.Errorf("ensure analysis: %w", err)
	}
	return created, nil
}

// neutralAnalysis is the record a plant starts with before any history exists.
func neutralAnalysis(plant *types.Plant) *types.CareAnalysis {
	days := plant.DefaultIntervalDays
	if days < 1 {
		days = 1
	}
	return &types.CareAnalysis{
		PlantID:                 plant.ID,
		RecommendedIntervalDays: days,
		Confidence:              neutralConfidence,
		ModelConfidence:         neutralConfidence,
		RegularityScore:         neutralConfidence,
		BiologyScore:            neutralConfidence,
		SoilScore:               neutralConfidence,
		WaterScore:              neutralConfidence,
		MeanIntervalDays:        float64(days),
		ModelType:               types.ModelTypeStat,
		Message:                 "no watering history yet",
	}
}

func (s *analysisService) GetAnalysis(ctx context.Context, plantID uuid.UUID) (*types.CareAnalysis, error) {
	a, err := s.analyses.GetByPlant(dbctx.Of(ctx), plantID)
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("analysis for plant %s: %w", plantID, errs.ErrNotFound)
	}
	return a, nil
}

// AnalyzeAll skips plants with no completed waterings; they keep their neutral record.
func (s *analysisService) AnalyzeAll(ctx context.Context) (BatchResult, error) {
	plants, err := s.plants.ListActive(dbctx.Of(ctx))
	if err != nil {
		return BatchResult{}, fmt.Errorf("list plants: %w", err)
	}
	res, err := forEachPlant(ctx, s.log, plants, s.workers, func(ctx context.Context, p *types.Plant) (itemOutcome, error) {
		n, err := s.waterings.CountCompleted(dbctx.Of(ctx), p.ID)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return itemSkipped, nil
		}
		if _, err := s.UpdateAnalysis(ctx, p.ID); err != nil {
			return 0, err
		}
		return itemSucceeded, nil
	})
	s.log.Info("Analyze-all finished",
		"total", res.Total,
		"updated", res.Succeeded,
		"skipped", res.Skipped,
		"errored", res.Errored,
	)
	return res, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptrFloat(v float64) *float64 { return &v }
