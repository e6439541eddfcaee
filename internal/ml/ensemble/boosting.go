package ensemble

import (
	"fmt"
	"math/rand"
)

// GradientBoosting is least-squares boosting over shallow regression trees.
type GradientBoosting struct {
	NEstimators    int     `json:"n_estimators"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Seed           int64   `json:"seed"`

	Init  float64 `json:"init"`
	Trees []*Tree `json:"trees"`
}

// NewGradientBoosting returns the small-sample configuration.
func NewGradientBoosting(seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    50,
		MaxDepth:       3,
		LearningRate:   0.1,
		MinSamplesLeaf: 2,
		Seed:           seed,
	}
}

func (g *GradientBoosting) Fit(x [][]float64, y []float64) error {
	if err := checkXY(x, y); err != nil {
		return err
	}
	n := len(y)
	rng := rand.New(rand.NewSource(g.Seed))

	g.Init = 0
	for _, v := range y {
		g.Init += v
	}
	g.Init /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Init
	}
	resid := make([]float64, n)
	idx := allIndexes(n)
	params := TreeParams{MaxDepth: g.MaxDepth, MinSamplesLeaf: g.MinSamplesLeaf}

	g.Trees = g.Trees[:0]
	for m := 0; m < g.NEstimators; m++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		t := fitTree(x, resid, idx, params, rng)
		for i := range pred {
			pred[i] += g.LearningRate * t.Predict(x[i])
		}
		g.Trees = append(g.Trees, t)
	}
	return nil
}

func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.Init
	for _, t := range g.Trees {
		out += g.LearningRate * t.Predict(x)
	}
	return out
}

func checkXY(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("ensemble: bad training shape rows=%d labels=%d", len(x), len(y))
	}
	p := len(x[0])
	if p == 0 {
		return fmt.Errorf("ensemble: no feature columns")
	}
	for i, row := range x {
		if len(row) != p {
			return fmt.Errorf("ensemble: row %d has %d columns, want %d", i, len(row), p)
		}
	}
	return nil
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
