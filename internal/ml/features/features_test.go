package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
)

var base = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC) // a Monday

func eventsAt(days ...int) []care.WateringEvent {
	out := make([]care.WateringEvent, 0, len(days))
	for _, d := range days {
		out = append(out, care.WateringEvent{
			OccurredAt:  base.AddDate(0, 0, d),
			SoilState:   "dry",
			WaterAmount: "med",
			Completed:   true,
		})
	}
	return out
}

func colIndex(t *testing.T, cols []string, name string) int {
	t.Helper()
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %q missing from %v", name, cols)
	return -1
}

func TestSoilStateAliases(t *testing.T) {
	cases := map[string]Soil{
		"sucha": SoilDry, " DRY ": SoilDry, "0": SoilDry,
		"lekko wilgotna": SoilOK, "moist": SoilOK, "1,0": SoilOK,
		"przelana": SoilWet, "2": SoilWet,
	}
	for raw, want := range cases {
		got, ok := SoilState(raw)
		if !ok || got != want {
			t.Fatalf("SoilState(%q): want %v got %v ok=%v", raw, want, got, ok)
		}
	}
	for _, raw := range []string{"", "soggy", "3", "0.5"} {
		if _, ok := SoilState(raw); ok {
			t.Fatalf("SoilState(%q): expected unknown", raw)
		}
	}
}

func TestWaterCategoryVolumes(t *testing.T) {
	cases := map[string]Water{
		"99": WaterLow, "100": WaterMed, "299,5": WaterMed, "300": WaterHigh,
		"dużo": WaterHigh, "srednio": WaterMed, "Low": WaterLow,
	}
	for raw, want := range cases {
		got, ok := WaterCategory(raw)
		if !ok || got != want {
			t.Fatalf("WaterCategory(%q): want %v got %v ok=%v", raw, want, got, ok)
		}
	}
	if _, ok := WaterCategory("a splash"); ok {
		t.Fatalf("expected unknown category")
	}
}

func TestSeason(t *testing.T) {
	want := map[int]int{12: 1, 1: 1, 2: 1, 3: 2, 5: 2, 6: 3, 8: 3, 9: 4, 11: 4}
	for m, s := range want {
		if got := Season(m); got != s {
			t.Fatalf("Season(%d): want %d got %d", m, s, got)
		}
	}
}

func TestBuildTrainingSetNeedsMinimumEvents(t *testing.T) {
	th := config.DefaultThresholds()
	_, err := BuildTrainingSet(&care.Plant{}, eventsAt(0, 7, 14, 21, 28), th)
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
}

func TestBuildTrainingSetIgnoresIncompleteEvents(t *testing.T) {
	th := config.DefaultThresholds()
	evs := eventsAt(0, 7, 14, 21, 28, 35)
	evs[5].Completed = false
	if _, err := BuildTrainingSet(&care.Plant{}, evs, th); !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("pending event must not count: %v", err)
	}
}

func TestBuildTrainingSetSkipsInvalidTransitions(t *testing.T) {
	th := config.DefaultThresholds()
	// same-day duplicate and a 90 day absence are both discarded
	evs := eventsAt(0, 7, 14, 14, 21, 111, 118, 125)
	tbl, err := BuildTrainingSet(&care.Plant{Category: "fern"}, evs, th)
	if err != nil {
		t.Fatalf("BuildTrainingSet: %v", err)
	}
	if tbl.Len() != 5 {
		t.Fatalf("want 5 rows, got %d", tbl.Len())
	}
	for _, y := range tbl.Y {
		if y != 7 {
			t.Fatalf("unexpected label %v", y)
		}
	}
	last := tbl.X[len(tbl.X)-1]
	if got := last[colIndex(t, tbl.Columns, ColCountIntervals)]; got != 4 {
		t.Fatalf("count_intervals: want 4 got %v", got)
	}
	if got := last[colIndex(t, tbl.Columns, ColDaysSinceLast)]; got != 7 {
		t.Fatalf("days_since_last: want 7 got %v", got)
	}
}

func TestBuildTrainingSetFillsRollingWithColumnMedian(t *testing.T) {
	th := config.DefaultThresholds()
	tbl, err := BuildTrainingSet(&care.Plant{}, eventsAt(0, 7, 14, 21, 28, 35, 42, 49), th)
	if err != nil {
		t.Fatalf("BuildTrainingSet: %v", err)
	}
	first := tbl.X[0]
	if got := first[colIndex(t, tbl.Columns, ColRollMean)]; got != 7 {
		t.Fatalf("roll_mean fill: want 7 got %v", got)
	}
	if got := first[colIndex(t, tbl.Columns, ColRollStd)]; got != 0 {
		t.Fatalf("roll_std fill: want 0 got %v", got)
	}
	for _, row := range tbl.X {
		for j, v := range row {
			if math.IsNaN(v) {
				t.Fatalf("NaN left in column %s", tbl.Columns[j])
			}
		}
	}
}

func TestBuildTrainingSetDropsOutliers(t *testing.T) {
	th := config.DefaultThresholds()
	tbl, err := BuildTrainingSet(&care.Plant{}, eventsAt(0, 7, 14, 21, 28, 35, 42, 72), th)
	if err != nil {
		t.Fatalf("BuildTrainingSet: %v", err)
	}
	if tbl.Len() != 6 || tbl.Dropped != 1 {
		t.Fatalf("want 6 kept / 1 dropped, got %d / %d", tbl.Len(), tbl.Dropped)
	}
}

func TestBuildTrainingSetColumnOrder(t *testing.T) {
	th := config.DefaultThresholds()
	tbl, err := BuildTrainingSet(&care.Plant{Category: "succulent", Difficulty: "easy"}, eventsAt(0, 7, 14, 21, 28, 35, 42), th)
	if err != nil {
		t.Fatalf("BuildTrainingSet: %v", err)
	}
	want := append(append([]string(nil), BaseColumns...), "category_succulent", "difficulty_easy")
	if len(tbl.Columns) != len(want) {
		t.Fatalf("columns: %v", tbl.Columns)
	}
	for i := range want {
		if tbl.Columns[i] != want[i] {
			t.Fatalf("column %d: want %s got %s", i, want[i], tbl.Columns[i])
		}
	}
}

func TestReindexFillsMediansAndDropsUnseenDummies(t *testing.T) {
	row := Row{"category_fern": 1, ColTrend: -1}
	got := row.Reindex(
		[]string{ColRollMean, "category_cactus", ColTrend, ColRollStd},
		map[string]float64{ColRollMean: 5},
	)
	want := []float64{5, 0, -1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("col %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestBuildInferenceRow(t *testing.T) {
	th := config.DefaultThresholds()
	evs := eventsAt(0, 5, 12, 21, 32)
	evs[4].SoilState = "wet"
	evs[4].WaterAmount = "350"
	now := base.AddDate(0, 0, 32+200).Add(3 * time.Hour)

	row := BuildInferenceRow(&care.Plant{Category: "herb"}, evs, now, th)
	if row[ColDaysSinceLast] != 60 {
		t.Fatalf("days_since_last must be capped: %v", row[ColDaysSinceLast])
	}
	if row[ColSoilWet] != 1 || row[ColSoilDry] != 0 || row[ColWaterHigh] != 1 {
		t.Fatalf("one-hot from last event wrong: %v", row)
	}
	if row[ColTrend] != 1 {
		t.Fatalf("growing intervals should trend +1: %v", row[ColTrend])
	}
	if _, ok := row[ColRollMean]; ok {
		t.Fatalf("rolling columns must be left for median fill")
	}
	if row["category_herb"] != 1 || row["difficulty_unknown"] != 1 {
		t.Fatalf("dummies missing: %v", row)
	}
	if row[ColHour] != float64(now.Hour()) {
		t.Fatalf("hour from now: %v", row[ColHour])
	}
}

func TestBuildInferenceRowNoHistory(t *testing.T) {
	row := BuildInferenceRow(&care.Plant{}, nil, base, config.DefaultThresholds())
	if row[ColDaysSinceLast] != 0 || row[ColTrend] != 0 {
		t.Fatalf("empty history: %v", row)
	}
	if row[ColSoilDry]+row[ColSoilOK]+row[ColSoilWet] != 0 {
		t.Fatalf("soil flags should be zero")
	}
	if row[ColDOW] != 0 {
		t.Fatalf("Monday should be dow 0, got %v", row[ColDOW])
	}
}

func TestStatsAndQuantile(t *testing.T) {
	s := Stats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Std != 2 || s.Median != 4.5 || s.Count != 8 {
		t.Fatalf("stats: %+v", s)
	}
	if q := Quantile([]float64{4, 1, 3, 2}, 0.25); q != 1.75 {
		t.Fatalf("q25: %v", q)
	}
	if z := Stats(nil); z.Count != 0 || z.Mean != 0 {
		t.Fatalf("empty stats: %+v", z)
	}
}

func TestTrendSlope(t *testing.T) {
	slope, ok := TrendSlope([]float64{3, 5, 7, 9})
	if !ok || math.Abs(slope-2) > 1e-9 {
		t.Fatalf("slope: %v ok=%v", slope, ok)
	}
	if _, ok := TrendSlope([]float64{3, 5}); ok {
		t.Fatalf("two points must not produce a trend")
	}
}

func TestDaysBetweenUsesCalendarDates(t *testing.T) {
	a := time.Date(2025, 1, 1, 23, 50, 0, 0, time.UTC)
	b := time.Date(2025, 1, 2, 0, 10, 0, 0, time.UTC)
	if d := DaysBetween(a, b); d != 1 {
		t.Fatalf("want 1 got %d", d)
	}
}
