// Package config holds the product-tuning thresholds of the watering engine.
// Thresholds is a plain value: load it once, validate it, then pass copies around.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xwerkax/BloomlyApp/internal/platform/envutil"
)

type Thresholds struct {
	MinSamplesForML     int     `yaml:"min_samples_for_ml"`
	MinTrainingRows     int     `yaml:"min_training_rows"`
	MinUsableConfidence float64 `yaml:"min_usable_confidence"`
	GBRFSplit           int     `yaml:"gb_rf_split"`
	CVMinSamples        int     `yaml:"cv_min_samples"`
	CVMaxFolds          int     `yaml:"cv_max_folds"`
	MaxValidInterval    int     `yaml:"max_valid_interval"`
	PredMin             int     `yaml:"pred_min"`
	PredMax             int     `yaml:"pred_max"`

	FallbackMinEvents             int     `yaml:"fallback_min_events"`
	FallbackMinIntervals          int     `yaml:"fallback_min_intervals"`
	FallbackLowConfidence         float64 `yaml:"fallback_low_confidence"`
	FallbackNoIntervalsConfidence float64 `yaml:"fallback_no_intervals_confidence"`

	TrustMinWaterings  int     `yaml:"trust_min_waterings"`
	TrustMinConfidence float64 `yaml:"trust_min_confidence"`

	ApplyMinConfidence           float64 `yaml:"apply_min_confidence"`
	ApplyMinSamples              int     `yaml:"apply_min_samples"`
	AutoApplyPrefilterConfidence float64 `yaml:"auto_apply_prefilter_confidence"`
	AutoApplyPrefilterWaterings  int     `yaml:"auto_apply_prefilter_waterings"`

	ReminderHour      int           `yaml:"reminder_hour"`
	NotifyLookahead   time.Duration `yaml:"notify_lookahead"`
	NotifyWindow      time.Duration `yaml:"notify_window"`
	ReminderRetention time.Duration `yaml:"reminder_retention"`

	Seed int64 `yaml:"seed"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamplesForML:     6,
		MinTrainingRows:     5,
		MinUsableConfidence: 0.20,
		GBRFSplit:           15,
		CVMinSamples:        8,
		CVMaxFolds:          5,
		MaxValidInterval:    60,
		PredMin:             1,
		PredMax:             30,

		FallbackMinEvents:             3,
		FallbackMinIntervals:          2,
		FallbackLowConfidence:         0.3,
		FallbackNoIntervalsConfidence: 0.4,

		TrustMinWaterings:  5,
		TrustMinConfidence: 0.5,

		ApplyMinConfidence:           0.5,
		ApplyMinSamples:              6,
		AutoApplyPrefilterConfidence: 0.7,
		AutoApplyPrefilterWaterings:  8,

		ReminderHour:      12,
		NotifyLookahead:   72 * time.Hour,
		NotifyWindow:      time.Hour,
		ReminderRetention: 90 * 24 * time.Hour,

		Seed: 42,
	}
}

func (t Thresholds) Validate() error {
	switch {
	case t.MinSamplesForML < 2:
		return fmt.Errorf("min_samples_for_ml must be >= 2, got %d", t.MinSamplesForML)
	case t.MinTrainingRows < 2:
		return fmt.Errorf("min_training_rows must be >= 2, got %d", t.MinTrainingRows)
	case t.CVMaxFolds < 2:
		return fmt.Errorf("cv_max_folds must be >= 2, got %d", t.CVMaxFolds)
	case t.MaxValidInterval < 1:
		return fmt.Errorf("max_valid_interval must be >= 1, got %d", t.MaxValidInterval)
	case t.PredMin < 1 || t.PredMax < t.PredMin:
		return fmt.Errorf("prediction bounds invalid: [%d, %d]", t.PredMin, t.PredMax)
	case t.ReminderHour < 0 || t.ReminderHour > 23:
		return fmt.Errorf("reminder_hour out of range: %d", t.ReminderHour)
	case t.NotifyLookahead < 0 || t.NotifyWindow <= 0:
		return fmt.Errorf("notification window invalid: lookahead=%s window=%s", t.NotifyLookahead, t.NotifyWindow)
	}
	for name, v := range map[string]float64{
		"min_usable_confidence":           t.MinUsableConfidence,
		"fallback_low_confidence":         t.FallbackLowConfidence,
		"fallback_no_intervals_confidence": t.FallbackNoIntervalsConfidence,
		"trust_min_confidence":            t.TrustMinConfidence,
		"apply_min_confidence":            t.ApplyMinConfidence,
		"auto_apply_prefilter_confidence": t.AutoApplyPrefilterConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	return nil
}

// LoadThresholds applies defaults, then the optional YAML file, then env overrides.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, fmt.Errorf("read thresholds file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("parse thresholds file: %w", err)
		}
	}
	t = t.withEnv()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Thresholds) withEnv() Thresholds {
	t.MinSamplesForML = envutil.Int("BLOOMLY_MIN_SAMPLES_FOR_ML", t.MinSamplesForML)
	t.MinTrainingRows = envutil.Int("BLOOMLY_MIN_TRAINING_ROWS", t.MinTrainingRows)
	t.MinUsableConfidence = envutil.Float("BLOOMLY_MIN_USABLE_CONFIDENCE", t.MinUsableConfidence)
	t.GBRFSplit = envutil.Int("BLOOMLY_GB_RF_SPLIT", t.GBRFSplit)
	t.CVMinSamples = envutil.Int("BLOOMLY_CV_MIN_SAMPLES", t.CVMinSamples)
	t.MaxValidInterval = envutil.Int("BLOOMLY_MAX_VALID_INTERVAL", t.MaxValidInterval)
	t.TrustMinWaterings = envutil.Int("BLOOMLY_TRUST_MIN_WATERINGS", t.TrustMinWaterings)
	t.TrustMinConfidence = envutil.Float("BLOOMLY_TRUST_MIN_CONFIDENCE", t.TrustMinConfidence)
	t.ApplyMinConfidence = envutil.Float("BLOOMLY_APPLY_MIN_CONFIDENCE", t.ApplyMinConfidence)
	t.ApplyMinSamples = envutil.Int("BLOOMLY_APPLY_MIN_SAMPLES", t.ApplyMinSamples)
	t.ReminderHour = envutil.Int("BLOOMLY_REMINDER_HOUR", t.ReminderHour)
	t.NotifyLookahead = envutil.Duration("BLOOMLY_NOTIFY_LOOKAHEAD", t.NotifyLookahead)
	t.NotifyWindow = envutil.Duration("BLOOMLY_NOTIFY_WINDOW", t.NotifyWindow)
	t.ReminderRetention = envutil.Duration("BLOOMLY_REMINDER_RETENTION", t.ReminderRetention)
	return t
}

// ValidInterval reports whether a gap in whole days counts as a real watering interval.
func (t Thresholds) ValidInterval(days int) bool {
	return days > 0 && days <= t.MaxValidInterval
}

// ClampPrediction bounds a recommendation to [PredMin, PredMax].
func (t Thresholds) ClampPrediction(days int) int {
	if days < t.PredMin {
		return t.PredMin
	}
	if days > t.PredMax {
		return t.PredMax
	}
	return days
}
