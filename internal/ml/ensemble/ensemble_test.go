package ensemble

import (
	"encoding/json"
	"math"
	"testing"
)

func stepData() ([][]float64, []float64) {
	var x [][]float64
	var y []float64
	for i := 0; i < 12; i++ {
		x = append(x, []float64{float64(i), float64(i % 3)})
		if i < 6 {
			y = append(y, 4)
		} else {
			y = append(y, 10)
		}
	}
	return x, y
}

func TestTreeLearnsStep(t *testing.T) {
	x, y := stepData()
	tree := fitTree(x, y, allIndexes(len(y)), TreeParams{MaxDepth: 3, MinSamplesLeaf: 2}, nil)
	for i := range x {
		if got := tree.Predict(x[i]); got != y[i] {
			t.Fatalf("row %d: want %v got %v", i, y[i], got)
		}
	}
}

func TestTreeRespectsMinSamplesLeaf(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}}
	y := []float64{1, 5, 9}
	tree := fitTree(x, y, allIndexes(3), TreeParams{MaxDepth: 5, MinSamplesLeaf: 2}, nil)
	if len(tree.Nodes) != 1 {
		t.Fatalf("3 samples with leaf floor 2 cannot split, got %d nodes", len(tree.Nodes))
	}
	if tree.Nodes[0].Value != 5 {
		t.Fatalf("leaf value should be the mean: %v", tree.Nodes[0].Value)
	}
}

func TestGradientBoostingFitsAndIsDeterministic(t *testing.T) {
	x, y := stepData()
	a := NewGradientBoosting(42)
	b := NewGradientBoosting(42)
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(x, y); err != nil {
		t.Fatalf("fit b: %v", err)
	}
	for i := range x {
		pa, pb := a.Predict(x[i]), b.Predict(x[i])
		if pa != pb {
			t.Fatalf("row %d: non-deterministic %v vs %v", i, pa, pb)
		}
		if math.Abs(pa-y[i]) > 0.1 {
			t.Fatalf("row %d: want ~%v got %v", i, y[i], pa)
		}
	}
	if len(a.Trees) != 50 {
		t.Fatalf("want 50 trees, got %d", len(a.Trees))
	}
}

func TestRandomForestDeterministicAcrossRuns(t *testing.T) {
	x, y := stepData()
	a := NewRandomForest(42)
	b := NewRandomForest(42)
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(x, y); err != nil {
		t.Fatalf("fit b: %v", err)
	}
	if a.MaxFeatures != 1 {
		t.Fatalf("sqrt(2) features should floor to 1, got %d", a.MaxFeatures)
	}
	for i := range x {
		if a.Predict(x[i]) != b.Predict(x[i]) {
			t.Fatalf("row %d: forest is not reproducible", i)
		}
	}
	lo, hi := a.Predict([]float64{0, 0}), a.Predict([]float64{11, 2})
	if !(lo < hi) {
		t.Fatalf("forest should separate the step: lo=%v hi=%v", lo, hi)
	}
}

func TestRandomForestConstantLabel(t *testing.T) {
	x, _ := stepData()
	y := make([]float64, len(x))
	for i := range y {
		y[i] = 7
	}
	f := NewRandomForest(1)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if got := f.Predict([]float64{3, 1}); got != 7 {
		t.Fatalf("constant target: want 7 got %v", got)
	}
}

func TestFitRejectsRaggedInput(t *testing.T) {
	g := NewGradientBoosting(1)
	if err := g.Fit([][]float64{{1, 2}, {3}}, []float64{1, 2}); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestKFoldPartitions(t *testing.T) {
	folds := KFold(12, 5, 42)
	if len(folds) != 5 {
		t.Fatalf("want 5 folds got %d", len(folds))
	}
	seen := map[int]int{}
	for i, f := range folds {
		want := 2
		if i < 2 {
			want = 3
		}
		if len(f) != want {
			t.Fatalf("fold %d: size %d want %d", i, len(f), want)
		}
		for _, idx := range f {
			seen[idx]++
		}
	}
	for i := 0; i < 12; i++ {
		if seen[i] != 1 {
			t.Fatalf("index %d held out %d times", i, seen[i])
		}
	}
	if KFold(1, 5, 42) != nil {
		t.Fatalf("a single sample cannot be folded")
	}
}

func TestModelSurvivesJSON(t *testing.T) {
	x, y := stepData()
	m, err := New(FamilyGB, 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Model
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want, _ := m.Predict(x[3])
	got, err := back.Predict(x[3])
	if err != nil || got != want {
		t.Fatalf("decoded model predicts %v (%v), want %v", got, err, want)
	}
	if _, err := (Model{Family: FamilyRF}).Predict(x[0]); err == nil {
		t.Fatalf("empty body must error")
	}
	if _, err := New("SVM", 1); err == nil {
		t.Fatalf("unknown family must error")
	}
}
