// Package fallback recommends an interval from plain interval statistics when no
// trusted model is available.
package fallback

import (
	"fmt"
	"math"

	"github.com/xwerkax/BloomlyApp/internal/analysis/confidence"
	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
)

const (
	weightMean   = 0.6
	weightMedian = 0.4
)

type Result struct {
	IntervalDays  int
	Confidence    float64
	ModelType     string
	Message       string
	WateringCount int
	Intervals     []float64
	Stats         features.Summary
}

func Analyze(plant *care.Plant, events []care.WateringEvent, th config.Thresholds) Result {
	evs := features.Completed(events)
	res := Result{
		IntervalDays:  plant.DefaultIntervalDays,
		ModelType:     care.ModelTypeStat,
		WateringCount: len(evs),
	}
	if len(evs) < th.FallbackMinEvents {
		res.Confidence = th.FallbackLowConfidence
		res.Message = fmt.Sprintf("not enough data: need at least %d waterings", th.FallbackMinEvents)
		return res
	}

	res.Intervals = features.Intervals(evs, th)
	res.Stats = features.Stats(res.Intervals)
	if len(res.Intervals) < th.FallbackMinIntervals {
		res.Confidence = th.FallbackNoIntervalsConfidence
		res.Message = "not enough valid intervals between waterings"
		return res
	}

	s := res.Stats
	res.IntervalDays = th.ClampPrediction(int(math.RoundToEven(weightMean*s.Mean + weightMedian*s.Median)))
	res.Confidence = 0.4 + 0.4*confidence.Regularity(res.Intervals, s.Mean, s.Std)
	res.Message = fmt.Sprintf("statistical estimate from %d intervals (mean %.1f days)", s.Count, s.Mean)
	return res
}

const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
	SlotNight     = "night"
)

// Distribution counts completed waterings per time-of-day slot.
type Distribution struct {
	Morning   int    `json:"morning"`
	Afternoon int    `json:"afternoon"`
	Evening   int    `json:"evening"`
	Night     int    `json:"night"`
	Preferred string `json:"preferred,omitempty"`
}

// TimeOfDay reads each event's hour in its own location. Ties go to the earlier slot.
func TimeOfDay(events []care.WateringEvent) Distribution {
	var d Distribution
	total := 0
	for _, e := range events {
		if !e.Completed {
			continue
		}
		total++
		switch h := e.OccurredAt.Hour(); {
		case h >= 6 && h < 12:
			d.Morning++
		case h >= 12 && h < 18:
			d.Afternoon++
		case h >= 18:
			d.Evening++
		default:
			d.Night++
		}
	}
	if total == 0 {
		return d
	}
	best := -1
	for _, slot := range []struct {
		name  string
		count int
	}{
		{SlotMorning, d.Morning},
		{SlotAfternoon, d.Afternoon},
		{SlotEvening, d.Evening},
		{SlotNight, d.Night},
	} {
		if slot.count > best {
			best = slot.count
			d.Preferred = slot.name
		}
	}
	return d
}
