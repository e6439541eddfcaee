// Package confidence scores how far a recommendation can be trusted: interval
// regularity, watering behaviour, and the blend of both with model quality.
package confidence

import (
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
)

const (
	neutral = 0.5

	minBehaviourSamples = 3

	weightModel      = 0.5
	weightRegularity = 0.3
	weightBiology    = 0.2
)

// Regularity maps the coefficient of variation of the intervals to [0,1].
func Regularity(intervals []float64, mean, std float64) float64 {
	if len(intervals) == 0 || mean <= 0 {
		return neutral
	}
	return RegularityFromCV(std / mean)
}

func RegularityFromCV(cv float64) float64 {
	var s float64
	switch {
	case cv < 0.3:
		s = 1.0
	case cv < 0.5:
		s = 0.85
	case cv < 0.7:
		s = 0.7
	case cv < 1.0:
		s = 0.55
	default:
		s = 1.0 - 0.5*cv
		if s < 0.3 {
			s = 0.3
		}
	}
	return Clamp01(s)
}

var soilPoints = map[features.Soil]float64{
	features.SoilDry: 1.0,
	features.SoilOK:  0.8,
	features.SoilWet: 0.2,
}

// SoilScore rewards watering dry soil and penalizes watering wet soil.
func SoilScore(events []care.WateringEvent) float64 {
	var filled int
	var sum float64
	var scored int
	for _, e := range events {
		if !e.Completed || e.SoilState == "" {
			continue
		}
		filled++
		if s, ok := features.SoilState(e.SoilState); ok {
			sum += soilPoints[s]
			scored++
		}
	}
	if filled < minBehaviourSamples || scored == 0 {
		return neutral
	}
	return sum / float64(scored)
}

// WaterScore rewards a consistent amount category.
func WaterScore(events []care.WateringEvent) float64 {
	seen := map[features.Water]bool{}
	var n int
	for _, e := range events {
		if !e.Completed {
			continue
		}
		if w, ok := features.WaterCategory(e.WaterAmount); ok {
			seen[w] = true
			n++
		}
	}
	if n < minBehaviourSamples {
		return neutral
	}
	switch len(seen) {
	case 1:
		return 1.0
	case 2:
		return 0.7
	}
	return 0.5
}

func Biology(soil, water float64) float64 {
	return 0.5*soil + 0.5*water
}

func Blend(model, regularity, biology float64) float64 {
	return Clamp01(weightModel*model + weightRegularity*regularity + weightBiology*biology)
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
