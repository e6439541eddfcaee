// Package predictor answers "how many days until the next watering" from the
// plant's persisted model, training it on first use.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
	"github.com/xwerkax/BloomlyApp/internal/ml/trainer"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type Prediction struct {
	IntervalDays int      `json:"interval_days"`
	Confidence   float64  `json:"confidence"`
	R2           float64  `json:"r2"`
	AdjR2        *float64 `json:"adj_r2,omitempty"`
	MAE          float64  `json:"mae"`
	RMSE         float64  `json:"rmse"`
	CVMAE        *float64 `json:"cv_mae,omitempty"`
	NSamples     int      `json:"n_samples"`
	ModelType    string   `json:"model_type"`
}

type Predictor struct {
	store artifacts.Store
	th    config.Thresholds
	log   *logger.Logger
}

func New(store artifacts.Store, th config.Thresholds, baseLog *logger.Logger) *Predictor {
	return &Predictor{store: store, th: th, log: baseLog.With("component", "Predictor")}
}

// Predict returns ErrUnavailable when no trustworthy model exists for the plant.
// events is the plant's full history; incomplete events are ignored.
func (p *Predictor) Predict(ctx context.Context, plant *care.Plant, events []care.WateringEvent, now time.Time) (*Prediction, error) {
	a, err := p.load(ctx, plant, events)
	if err != nil {
		return nil, err
	}
	if a.NSamples < p.th.MinSamplesForML {
		return nil, fmt.Errorf("stale artifact with %d samples: %w", a.NSamples, errs.ErrUnavailable)
	}

	row := features.BuildInferenceRow(plant, events, now, p.th)
	raw, err := a.Model.Predict(row.Reindex(a.FeatureColumns, a.FeatureMedians))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return &Prediction{
		IntervalDays: Bound(raw, p.th),
		Confidence:   a.Confidence(),
		R2:           a.R2,
		AdjR2:        a.AdjR2,
		MAE:          a.MAE,
		RMSE:         a.RMSE,
		CVMAE:        a.CVMAE,
		NSamples:     a.NSamples,
		ModelType:    a.ModelType,
	}, nil
}

func (p *Predictor) load(ctx context.Context, plant *care.Plant, events []care.WateringEvent) (*artifacts.Artifact, error) {
	a, err := p.store.Get(ctx, plant.ID)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, errs.ErrArtifactNotFound):
	case errors.Is(err, errs.ErrArtifactUnreadable):
		p.log.Warn("Unreadable model artifact, retraining", "plant_id", plant.ID, "error", err)
	default:
		return nil, fmt.Errorf("load artifact: %w", err)
	}

	a, err = trainer.Train(plant, events, p.th)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientData) {
			return nil, fmt.Errorf("%w: %w", errs.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("train: %w", err)
	}
	if err := p.store.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return a, nil
}

// Bound clamps a raw model output to the prediction range and rounds half to even.
func Bound(raw float64, th config.Thresholds) int {
	if math.IsNaN(raw) {
		return th.PredMin
	}
	lo, hi := float64(th.PredMin), float64(th.PredMax)
	if raw < lo {
		raw = lo
	}
	if raw > hi {
		raw = hi
	}
	return th.ClampPrediction(int(math.RoundToEven(raw)))
}
