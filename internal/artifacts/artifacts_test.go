package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/ensemble"
)

func sampleArtifact(t *testing.T, plantID uuid.UUID, nSamples int) *Artifact {
	t.Helper()
	m, err := ensemble.New(ensemble.FamilyGB, 42)
	if err != nil {
		t.Fatalf("ensemble.New: %v", err)
	}
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{7, 7, 7, 8, 8, 8}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	adj := 0.61
	cv := 0.4
	return &Artifact{
		PlantID:        plantID,
		Model:          m,
		FeatureColumns: []string{"dow"},
		FeatureMedians: map[string]float64{"dow": 3.5},
		R2:             0.7,
		AdjR2:          &adj,
		MAE:            0.3,
		RMSE:           0.4,
		CVMAE:          &cv,
		NSamples:       nSamples,
		ModelType:      ensemble.FamilyGB,
		TrainedAt:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{
		[]byte("not json"),
		[]byte(`{"version":1,"artifact":{"plant_id":"`),
		[]byte(`{"version":99,"artifact":null}`),
		[]byte(`{"version":1,"artifact":{"plant_id":"` + uuid.NewString() + `","feature_columns":["dow"],"model":{"family":"GB"}}}`),
	} {
		if _, err := Decode(raw); !errors.Is(err, errs.ErrArtifactUnreadable) {
			t.Fatalf("Decode(%q): want ErrArtifactUnreadable, got %v", raw, err)
		}
	}
}

func TestDecodeRejectsMalformedTrees(t *testing.T) {
	split := func(f, l, r int) []ensemble.Node {
		return []ensemble.Node{{Feature: f, Threshold: 2, Left: l, Right: r}, {Left: -1, Right: -1, Value: 1}, {Left: -1, Right: -1, Value: 2}}
	}
	cases := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"feature out of range", func(a *Artifact) { a.Model.GB.Trees[0].Nodes = split(99, 1, 2) }},
		{"negative feature", func(a *Artifact) { a.Model.GB.Trees[0].Nodes = split(-1, 1, 2) }},
		{"child points at itself", func(a *Artifact) { a.Model.GB.Trees[0].Nodes = split(0, 0, 2) }},
		{"child points backwards", func(a *Artifact) {
			nodes := split(0, 1, 2)
			nodes[1] = ensemble.Node{Feature: 0, Left: 0, Right: 2}
			a.Model.GB.Trees[0].Nodes = nodes
		}},
		{"child out of range", func(a *Artifact) { a.Model.GB.Trees[0].Nodes = split(0, 1, 7) }},
		{"nil tree", func(a *Artifact) { a.Model.GB.Trees[0] = nil }},
		{"empty tree", func(a *Artifact) { a.Model.GB.Trees[0].Nodes = nil }},
		{"no trees", func(a *Artifact) { a.Model.GB.Trees = nil }},
		{"family without its body", func(a *Artifact) {
			a.Model.RF = &ensemble.RandomForest{Trees: a.Model.GB.Trees}
			a.Model.GB = nil
		}},
		{"unknown family", func(a *Artifact) { a.Model.Family = "SVM" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := sampleArtifact(t, uuid.New(), 6)
			tc.mutate(a)
			raw, err := Encode(a)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if _, err := Decode(raw); !errors.Is(err, errs.ErrArtifactUnreadable) {
				t.Fatalf("want ErrArtifactUnreadable, got %v", err)
			}
		})
	}

	raw, err := Encode(sampleArtifact(t, uuid.New(), 6))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(raw); err != nil {
		t.Fatalf("valid artifact rejected: %v", err)
	}
}

func TestConfidencePrefersAdjusted(t *testing.T) {
	a := sampleArtifact(t, uuid.New(), 6)
	if a.Confidence() != 0.61 {
		t.Fatalf("want adjusted R2, got %v", a.Confidence())
	}
	a.AdjR2 = nil
	if a.Confidence() != 0.7 {
		t.Fatalf("want raw R2 fallback, got %v", a.Confidence())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	id := uuid.New()
	if _, err := s.Get(ctx, id); !errors.Is(err, errs.ErrArtifactNotFound) {
		t.Fatalf("empty store: want not found, got %v", err)
	}
	want := sampleArtifact(t, id, 9)
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := s.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Exists: %v %v", ok, err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.NSamples != 9 || *got.CVMAE != 0.4 || got.CVMAEStd != nil || got.FeatureMedians["dow"] != 3.5 {
		t.Fatalf("fields lost: %+v", got)
	}
	if !got.TrainedAt.Equal(want.TrainedAt) {
		t.Fatalf("trained_at: %v", got.TrainedAt)
	}
	pw, _ := want.Model.Predict([]float64{2})
	pg, err := got.Model.Predict([]float64{2})
	if err != nil || pw != pg {
		t.Fatalf("model predictions differ: %v vs %v (%v)", pw, pg, err)
	}
}

// An interrupted write leaves only a temp file behind; readers keep seeing the old artifact.
func TestFileStoreInterruptedWriteKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	id := uuid.New()
	if err := s.Put(ctx, sampleArtifact(t, id, 7)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	partial := filepath.Join(dir, ".tmp-"+objectName(id)+"-crashed")
	if err := os.WriteFile(partial, []byte(`{"version":1,"artif`), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil || got.NSamples != 7 {
		t.Fatalf("previous artifact should survive: %v %v", got, err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %v", list, err)
	}
}

func TestFileStoreCorruptFileIsUnreadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	bad, good := uuid.New(), uuid.New()
	if err := os.WriteFile(filepath.Join(dir, objectName(bad)), []byte("\x80\x04pickle"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Put(ctx, sampleArtifact(t, good, 6)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, bad); !errors.Is(err, errs.ErrArtifactUnreadable) {
		t.Fatalf("want unreadable, got %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].PlantID != good {
		t.Fatalf("List should skip the corrupt blob: %+v", list)
	}
}

func TestDBStoreUpsertReplacesWholeRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	s := NewDBStore(db, testutil.Logger(t))
	id := uuid.New()

	if ok, _ := s.Exists(ctx, id); ok {
		t.Fatalf("unexpected artifact")
	}
	if err := s.Put(ctx, sampleArtifact(t, id, 6)); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second := sampleArtifact(t, id, 11)
	second.ModelType = ensemble.FamilyGB
	second.CVMAE = nil
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.NSamples != 11 || got.CVMAE != nil {
		t.Fatalf("expected the second artifact, got %+v", got)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("one row per plant expected: %v %v", list, err)
	}
}

func TestMemoryStoreCorruptBlob(t *testing.T) {
	s := NewMemoryStore()
	id := uuid.New()
	s.PutRaw(id, []byte("{"))
	if _, err := s.Get(context.Background(), id); !errors.Is(err, errs.ErrArtifactUnreadable) {
		t.Fatalf("want unreadable, got %v", err)
	}
}
