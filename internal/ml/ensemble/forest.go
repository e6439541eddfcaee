package ensemble

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest bags bootstrap-sampled trees with sqrt(p) features per split.
type RandomForest struct {
	NEstimators    int   `json:"n_estimators"`
	MaxDepth       int   `json:"max_depth"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	MaxFeatures    int   `json:"max_features"`
	Seed           int64 `json:"seed"`

	Trees []*Tree `json:"trees"`
}

func NewRandomForest(seed int64) *RandomForest {
	return &RandomForest{
		NEstimators:    200,
		MaxDepth:       6,
		MinSamplesLeaf: 2,
		Seed:           seed,
	}
}

// Fit grows the trees in parallel. Each tree gets its own seed drawn up front,
// so the result does not depend on scheduling.
func (f *RandomForest) Fit(x [][]float64, y []float64) error {
	if err := checkXY(x, y); err != nil {
		return err
	}
	n, p := len(y), len(x[0])
	f.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))

	master := rand.New(rand.NewSource(f.Seed))
	seeds := make([]int64, f.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	params := TreeParams{MaxDepth: f.MaxDepth, MinSamplesLeaf: f.MinSamplesLeaf, MaxFeatures: f.MaxFeatures}
	trees := make([]*Tree, f.NEstimators)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			sample := make([]int, n)
			for k := range sample {
				sample[k] = rng.Intn(n)
			}
			trees[i] = fitTree(x, y, sample, params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.Trees = trees
	return nil
}

func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	s := 0.0
	for _, t := range f.Trees {
		s += t.Predict(x)
	}
	return s / float64(len(f.Trees))
}
