package care

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
)

func TestPlantRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewPlantRepo(db, testutil.Logger(t))

	p := testutil.SeedPlant(t, ctx, db, "Fern", 7)
	inactive := testutil.SeedPlant(t, ctx, db, "Old cactus", 14)
	if err := repo.UpdateFields(dbc, inactive.ID, map[string]interface{}{"is_active": false}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	active, err := repo.ListActive(dbc)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != p.ID {
		t.Fatalf("ListActive: expected only %v, got %d rows", p.ID, len(active))
	}

	tx := db.Begin()
	defer tx.Rollback()
	locked, err := repo.LockActive(dbctx.Context{Ctx: ctx, Tx: tx}, p.ID)
	if err != nil || locked == nil || locked.Name != "Fern" {
		t.Fatalf("LockActive: err=%v plant=%v", err, locked)
	}
	gone, err := repo.LockActive(dbctx.Context{Ctx: ctx, Tx: tx}, inactive.ID)
	if err != nil || gone != nil {
		t.Fatalf("LockActive(inactive): err=%v plant=%v", err, gone)
	}
}

func TestWateringRepoNeighbours(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewWateringRepo(db, testutil.Logger(t))

	p := testutil.SeedPlant(t, ctx, db, "Pothos", 7)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	evs := testutil.SeedWaterings(t, ctx, db, p, start, "dry", "med", 0, 7, 14)

	if n, err := repo.CountCompleted(dbc, p.ID); err != nil || n != 3 {
		t.Fatalf("CountCompleted: n=%d err=%v", n, err)
	}
	prev, next, err := repo.Neighbours(dbc, p.ID, evs[1].OccurredAt, evs[1].ID)
	if err != nil {
		t.Fatalf("Neighbours: %v", err)
	}
	if prev == nil || prev.ID != evs[0].ID || next == nil || next.ID != evs[2].ID {
		t.Fatalf("Neighbours: prev=%v next=%v", prev, next)
	}
	days := 7.0
	if err := repo.SetInterval(dbc, evs[2].ID, &days); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	list, err := repo.ListCompleted(dbc, p.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListCompleted: err=%v len=%d", err, len(list))
	}
	if list[2].IntervalDays == nil || *list[2].IntervalDays != 7 {
		t.Fatalf("ListCompleted: interval not stored: %v", list[2].IntervalDays)
	}
	if !list[0].OccurredAt.Before(list[1].OccurredAt) {
		t.Fatalf("ListCompleted: expected ascending order")
	}
	latest, err := repo.LatestCompleted(dbc, p.ID)
	if err != nil || latest == nil || latest.ID != evs[2].ID {
		t.Fatalf("LatestCompleted: ev=%v err=%v", latest, err)
	}
}

func TestAnalysisRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewAnalysisRepo(db, testutil.Logger(t))
	p := testutil.SeedPlant(t, ctx, db, "Calathea", 5)

	created, err := repo.CreateIfMissing(dbc, &types.CareAnalysis{PlantID: p.ID, RecommendedIntervalDays: 5, Confidence: 0.5})
	if err != nil || !created {
		t.Fatalf("CreateIfMissing: created=%v err=%v", created, err)
	}
	again, err := repo.CreateIfMissing(dbc, &types.CareAnalysis{PlantID: p.ID, RecommendedIntervalDays: 99})
	if err != nil || again {
		t.Fatalf("CreateIfMissing(second): created=%v err=%v", again, err)
	}
	first, _ := repo.GetByPlant(dbc, p.ID)

	out, err := repo.Upsert(dbc, &types.CareAnalysis{
		PlantID:                 p.ID,
		RecommendedIntervalDays: 8,
		Confidence:              0.81,
		WateringCount:           9,
		ModelType:               types.ModelTypeGB,
		UpdatedAt:               time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if out.ID != first.ID {
		t.Fatalf("Upsert: expected row id %v to survive, got %v", first.ID, out.ID)
	}
	if out.RecommendedIntervalDays != 8 || out.Confidence != 0.81 || out.ModelType != types.ModelTypeGB {
		t.Fatalf("Upsert: fields not replaced: %+v", out)
	}

	confident, err := repo.ListConfident(dbc, 0.7, 8)
	if err != nil || len(confident) != 1 {
		t.Fatalf("ListConfident: err=%v len=%d", err, len(confident))
	}
}

func TestReminderRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewReminderRepo(db, testutil.Logger(t))
	p := testutil.SeedPlant(t, ctx, db, "Ficus", 7)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	open := &types.Reminder{PlantID: p.ID, OwnerID: p.OwnerID, Title: "Water Ficus", DueAt: now.Add(72*time.Hour + 30*time.Minute), Status: types.ReminderPending}
	if _, err := repo.Create(dbc, open); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A second open reminder for the same plant violates the partial unique index.
	dup := &types.Reminder{PlantID: p.ID, Title: "dup", DueAt: now, Status: types.ReminderPending}
	if _, err := repo.Create(dbc, dup); err == nil {
		t.Fatalf("Create: expected the one-open index to reject a second pending reminder")
	}

	old := &types.Reminder{PlantID: p.ID, Title: "old", DueAt: now.AddDate(0, -6, 0), Status: types.ReminderDone, CreatedAt: now.AddDate(0, -6, 0)}
	if _, err := repo.Create(dbc, old); err != nil {
		t.Fatalf("Create(done): %v", err)
	}

	due, err := repo.ListDueUnsent(dbc, now.Add(72*time.Hour), now.Add(73*time.Hour))
	if err != nil || len(due) != 1 || due[0].ID != open.ID {
		t.Fatalf("ListDueUnsent: err=%v rows=%d", err, len(due))
	}
	if ok, err := repo.UpdateOpenFields(dbc, open.ID, map[string]interface{}{"sent": true}); err != nil || !ok {
		t.Fatalf("UpdateOpenFields: ok=%v err=%v", ok, err)
	}
	if due, _ := repo.ListDueUnsent(dbc, now.Add(72*time.Hour), now.Add(73*time.Hour)); len(due) != 0 {
		t.Fatalf("ListDueUnsent: sent reminder still listed")
	}

	n, err := repo.DeleteDoneBefore(dbc, now.AddDate(0, 0, -90))
	if err != nil || n != 1 {
		t.Fatalf("DeleteDoneBefore: n=%d err=%v", n, err)
	}

	n, err = repo.CancelOpenForPlant(dbc, p.ID)
	if err != nil || n != 1 {
		t.Fatalf("CancelOpenForPlant: n=%d err=%v", n, err)
	}
	rows, err := repo.ListOpenForPlant(dbc, p.ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListOpenForPlant: err=%v rows=%d", err, len(rows))
	}
	if got, _ := repo.GetByID(dbc, open.ID); got == nil || got.Status != types.ReminderCancelled {
		t.Fatalf("GetByID: expected cancelled, got %v", got)
	}
	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID(missing): %v %v", missing, err)
	}
}
