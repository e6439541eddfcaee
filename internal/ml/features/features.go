// Package features turns a plant's watering history into model inputs: a
// transition table for training and a single row for "predict now".
package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
)

const (
	ColDOW            = "dow"
	ColMonth          = "month"
	ColHour           = "hour"
	ColSeason         = "season"
	ColSoilDry        = "soil_dry"
	ColSoilOK         = "soil_ok"
	ColSoilWet        = "soil_wet"
	ColWaterLow       = "water_low"
	ColWaterMed       = "water_med"
	ColWaterHigh      = "water_high"
	ColRollMean       = "roll_mean_3"
	ColRollStd        = "roll_std_3"
	ColRollMed        = "roll_med_3"
	ColCountIntervals = "count_intervals"
	ColDaysSinceLast  = "days_since_last"
	ColTrend          = "trend"

	categoryPrefix   = "category_"
	difficultyPrefix = "difficulty_"
	unknownLevel     = "unknown"

	rollWindow = 3
)

// BaseColumns is the fixed leading column order; plant dummies follow, sorted.
var BaseColumns = []string{
	ColDOW, ColMonth, ColHour, ColSeason,
	ColSoilDry, ColSoilOK, ColSoilWet,
	ColWaterLow, ColWaterMed, ColWaterHigh,
	ColRollMean, ColRollStd, ColRollMed,
	ColCountIntervals, ColDaysSinceLast, ColTrend,
}

var rollingColumns = []string{ColRollMean, ColRollStd, ColRollMed}

// Row is a sparse feature vector; an absent key means "no value".
type Row map[string]float64

// Reindex lays the row out in the given column order. Columns the row lacks are
// filled from medians, or 0 when no median was stored. Extra row columns are dropped.
func (r Row) Reindex(columns []string, medians map[string]float64) []float64 {
	out := make([]float64, len(columns))
	for i, c := range columns {
		if v, ok := r[c]; ok && !math.IsNaN(v) {
			out[i] = v
			continue
		}
		if m, ok := medians[c]; ok && !math.IsNaN(m) {
			out[i] = m
		}
	}
	return out
}

// Table is the supervised training set: one row per valid t -> t+1 transition.
type Table struct {
	Columns []string
	X       [][]float64
	Y       []float64
	// Dropped counts rows removed by the IQR filter.
	Dropped int
}

func (t *Table) Len() int { return len(t.Y) }

// Medians returns the per-column median of X, used for inference-time imputation.
func (t *Table) Medians() map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	col := make([]float64, len(t.X))
	for j, name := range t.Columns {
		for i := range t.X {
			col[i] = t.X[i][j]
		}
		m := Median(col)
		if math.IsNaN(m) {
			m = 0
		}
		out[name] = m
	}
	return out
}

// BuildTrainingSet expects the plant's completed events; order does not matter.
func BuildTrainingSet(plant *care.Plant, events []care.WateringEvent, th config.Thresholds) (*Table, error) {
	evs := Completed(events)
	if len(evs) < th.MinSamplesForML {
		return nil, fmt.Errorf("%d waterings, need %d: %w", len(evs), th.MinSamplesForML, errs.ErrInsufficientData)
	}

	dummies := plantDummies(plant)
	var (
		rows   []Row
		labels []float64
	)
	for i := 0; i < len(evs)-1; i++ {
		cur, next := evs[i], evs[i+1]
		label := DaysBetween(cur.OccurredAt, next.OccurredAt)
		if !th.ValidInterval(label) {
			continue
		}

		hist := Intervals(evs[:i+1], th)
		window := hist
		if len(window) > rollWindow {
			window = window[len(window)-rollWindow:]
		}

		row := timeFeatures(cur.OccurredAt)
		soilOneHot(cur.SoilState, row)
		waterOneHot(cur.WaterAmount, row)
		if len(window) >= 1 {
			s := Stats(window)
			row[ColRollMean] = s.Mean
			row[ColRollMed] = s.Median
			if len(window) >= 2 {
				row[ColRollStd] = s.Std
			}
		}
		row[ColCountIntervals] = float64(len(hist))
		row[ColDaysSinceLast] = 0
		if i > 0 {
			row[ColDaysSinceLast] = float64(DaysBetween(evs[i-1].OccurredAt, cur.OccurredAt))
		}
		row[ColTrend] = trendOf(window)
		for k, v := range dummies {
			row[k] = v
		}

		rows = append(rows, row)
		labels = append(labels, float64(label))
	}

	if len(rows) < th.MinTrainingRows {
		return nil, fmt.Errorf("%d valid transitions, need %d: %w", len(rows), th.MinTrainingRows, errs.ErrInsufficientData)
	}

	rows, labels, dropped := dropOutliers(rows, labels)
	if len(rows) < th.MinTrainingRows {
		return nil, fmt.Errorf("%d transitions after outlier removal, need %d: %w", len(rows), th.MinTrainingRows, errs.ErrInsufficientData)
	}
	fillRolling(rows)

	cols := columnsFor(dummies)
	tbl := &Table{Columns: cols, Y: labels, Dropped: dropped}
	for _, r := range rows {
		tbl.X = append(tbl.X, r.Reindex(cols, nil))
	}
	return tbl, nil
}

// BuildInferenceRow describes "now" given the most recent watering. Rolling
// columns are left absent so the artifact's stored medians fill them.
func BuildInferenceRow(plant *care.Plant, events []care.WateringEvent, now time.Time, th config.Thresholds) Row {
	evs := Completed(events)
	row := timeFeatures(now)

	var lastSoil, lastWater string
	if len(evs) > 0 {
		last := evs[len(evs)-1]
		lastSoil, lastWater = last.SoilState, last.WaterAmount
		since := DaysBetween(last.OccurredAt, now)
		if since > th.MaxValidInterval {
			since = th.MaxValidInterval
		}
		row[ColDaysSinceLast] = float64(since)
	} else {
		row[ColDaysSinceLast] = 0
	}
	soilOneHot(lastSoil, row)
	waterOneHot(lastWater, row)

	row[ColCountIntervals] = 0
	row[ColTrend] = recentTrend(evs, th)
	for k, v := range plantDummies(plant) {
		row[k] = v
	}
	return row
}

func timeFeatures(t time.Time) Row {
	dow := (int(t.Weekday()) + 6) % 7 // Monday=0
	return Row{
		ColDOW:    float64(dow),
		ColMonth:  float64(t.Month()),
		ColHour:   float64(t.Hour()),
		ColSeason: float64(Season(int(t.Month()))),
	}
}

// trendOf compares the newest interval of the window with its oldest.
func trendOf(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	first, last := window[0], window[len(window)-1]
	switch {
	case last > first:
		return 1
	case last < first:
		return -1
	}
	return 0
}

// recentTrend looks at the last five waterings, newest first.
func recentTrend(evs []care.WateringEvent, th config.Thresholds) float64 {
	start := len(evs) - 5
	if start < 0 {
		start = 0
	}
	recent := evs[start:]
	if len(recent) < 3 {
		return 0
	}
	var desc []float64
	for i := len(recent) - 1; i > 0; i-- {
		d := DaysBetween(recent[i-1].OccurredAt, recent[i].OccurredAt)
		if th.ValidInterval(d) {
			desc = append(desc, float64(d))
		}
	}
	if len(desc) < 2 {
		return 0
	}
	newest, oldest := desc[0], desc[len(desc)-1]
	switch {
	case newest > oldest:
		return 1
	case newest < oldest:
		return -1
	}
	return 0
}

func plantDummies(p *care.Plant) Row {
	cat, diff := unknownLevel, unknownLevel
	if p != nil {
		if v := strings.TrimSpace(p.Category); v != "" {
			cat = v
		}
		if v := strings.TrimSpace(p.Difficulty); v != "" {
			diff = v
		}
	}
	return Row{categoryPrefix + cat: 1, difficultyPrefix + diff: 1}
}

func columnsFor(dummies Row) []string {
	cols := append([]string(nil), BaseColumns...)
	extra := make([]string, 0, len(dummies))
	for k := range dummies {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// dropOutliers keeps rows whose label lies within [Q1-1.5*IQR, Q3+1.5*IQR].
func dropOutliers(rows []Row, labels []float64) ([]Row, []float64, int) {
	q1 := Quantile(labels, 0.25)
	q3 := Quantile(labels, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	keptRows := rows[:0:0]
	keptLabels := labels[:0:0]
	for i, y := range labels {
		if y < lo || y > hi {
			continue
		}
		keptRows = append(keptRows, rows[i])
		keptLabels = append(keptLabels, y)
	}
	return keptRows, keptLabels, len(labels) - len(keptLabels)
}

// fillRolling imputes each rolling column with its own median over the rows, or 0.
func fillRolling(rows []Row) {
	for _, c := range rollingColumns {
		var present []float64
		for _, r := range rows {
			if v, ok := r[c]; ok {
				present = append(present, v)
			}
		}
		fill := 0.0
		if len(present) > 0 {
			fill = Median(present)
		}
		for _, r := range rows {
			if _, ok := r[c]; !ok {
				r[c] = fill
			}
		}
	}
}
