package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/domain/care"
)

func SeedPlant(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, defaultDays int) *care.Plant {
	tb.Helper()
	p := &care.Plant{
		ID:                  uuid.New(),
		OwnerID:             uuid.New(),
		Name:                name,
		Species:             "Monstera deliciosa",
		Category:            "tropical",
		Difficulty:          "easy",
		DefaultIntervalDays: defaultDays,
		IsActive:            true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plant: %v", err)
	}
	return p
}

// SeedWaterings inserts one completed watering at start+offset days (09:00) per
// offset, with the given soil state and amount, and moves last_watered_on.
func SeedWaterings(tb testing.TB, ctx context.Context, tx *gorm.DB, plant *care.Plant, start time.Time, soil, amount string, offsets ...int) []care.WateringEvent {
	tb.Helper()
	out := make([]care.WateringEvent, 0, len(offsets))
	for _, d := range offsets {
		at := time.Date(start.Year(), start.Month(), start.Day(), 9, 0, 0, 0, start.Location()).AddDate(0, 0, d)
		ev := care.WateringEvent{
			ID:          uuid.New(),
			PlantID:     plant.ID,
			OccurredAt:  at,
			SoilState:   soil,
			WaterAmount: amount,
			Completed:   true,
		}
		if err := tx.WithContext(ctx).Create(&ev).Error; err != nil {
			tb.Fatalf("seed watering: %v", err)
		}
		out = append(out, ev)
		if plant.LastWateredOn == nil || at.After(*plant.LastWateredOn) {
			day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
			plant.LastWateredOn = &day
		}
	}
	if err := tx.WithContext(ctx).Model(&care.Plant{}).Where("id = ?", plant.ID).
		Update("last_watered_on", plant.LastWateredOn).Error; err != nil {
		tb.Fatalf("seed last_watered_on: %v", err)
	}
	return out
}

// Offsets returns n day offsets spaced by the given intervals, cycling through them.
func Offsets(n int, intervals ...int) []int {
	out := make([]int, 0, n)
	day := 0
	for i := 0; i < n; i++ {
		out = append(out, day)
		if len(intervals) > 0 {
			day += intervals[i%len(intervals)]
		}
	}
	return out
}

func PtrTime(v time.Time) *time.Time { return &v }
