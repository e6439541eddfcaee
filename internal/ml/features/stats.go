package features

import (
	"math"
	"sort"
	"time"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/stat"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
)

// DaysBetween is the whole-day difference between the calendar dates of a and b,
// each read in its own location.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Completed returns the completed events sorted by time, oldest first. The input is not modified.
func Completed(events []care.WateringEvent) []care.WateringEvent {
	out := make([]care.WateringEvent, 0, len(events))
	for _, e := range events {
		if e.Completed {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

// InLocation returns a copy of events with OccurredAt read in loc, so calendar
// dates follow the owner's zone rather than the storage zone.
func InLocation(events []care.WateringEvent, loc *time.Location) []care.WateringEvent {
	if loc == nil {
		return events
	}
	out := make([]care.WateringEvent, len(events))
	for i, e := range events {
		e.OccurredAt = e.OccurredAt.In(loc)
		out[i] = e
	}
	return out
}

// Intervals returns the valid day gaps between consecutive events, in order.
// events must already be sorted ascending.
func Intervals(events []care.WateringEvent, th config.Thresholds) []float64 {
	var out []float64
	for i := 1; i < len(events); i++ {
		d := DaysBetween(events[i-1].OccurredAt, events[i].OccurredAt)
		if th.ValidInterval(d) {
			out = append(out, float64(d))
		}
	}
	return out
}

type Summary struct {
	Mean   float64
	Median float64
	Std    float64 // population
	Count  int
}

func Stats(intervals []float64) Summary {
	if len(intervals) == 0 {
		return Summary{}
	}
	mean, variance := stat.PopMeanVariance(intervals, nil)
	return Summary{
		Mean:   mean,
		Median: Median(intervals),
		Std:    math.Sqrt(variance),
		Count:  len(intervals),
	}
}

func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}

// Quantile interpolates linearly between order statistics at position p*(n-1).
func Quantile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// TrendSlope fits interval ~ sequence index and returns the slope in days per watering.
func TrendSlope(intervals []float64) (float64, bool) {
	if len(intervals) < 3 {
		return 0, false
	}
	var r regression.Regression
	r.SetObserved("interval_days")
	r.SetVar(0, "seq")
	for i, v := range intervals {
		r.Train(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return 0, false
	}
	coeffs := r.GetCoeffs()
	if len(coeffs) < 2 || math.IsNaN(coeffs[1]) || math.IsInf(coeffs[1], 0) {
		return 0, false
	}
	return coeffs[1], true
}
