// Package ensemble implements the two tree-ensemble regressors the trainer chooses
// between, plus the fold splitter used for cross-validation.
package ensemble

import (
	"fmt"
	"math/rand"
)

const (
	FamilyGB = "GB"
	FamilyRF = "RF"
)

type Regressor interface {
	Fit(x [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Model is the serializable tagged union stored inside an artifact.
type Model struct {
	Family string            `json:"family"`
	GB     *GradientBoosting `json:"gb,omitempty"`
	RF     *RandomForest     `json:"rf,omitempty"`
}

// New returns an unfitted model of the given family.
func New(family string, seed int64) (Model, error) {
	switch family {
	case FamilyGB:
		return Model{Family: family, GB: NewGradientBoosting(seed)}, nil
	case FamilyRF:
		return Model{Family: family, RF: NewRandomForest(seed)}, nil
	default:
		return Model{}, fmt.Errorf("ensemble: unknown model family %q", family)
	}
}

func (m Model) regressor() (Regressor, error) {
	switch {
	case m.Family == FamilyGB && m.GB != nil:
		return m.GB, nil
	case m.Family == FamilyRF && m.RF != nil:
		return m.RF, nil
	default:
		return nil, fmt.Errorf("ensemble: model %q has no fitted body", m.Family)
	}
}

func (m Model) Fit(x [][]float64, y []float64) error {
	r, err := m.regressor()
	if err != nil {
		return err
	}
	return r.Fit(x, y)
}

func (m Model) Predict(x []float64) (float64, error) {
	r, err := m.regressor()
	if err != nil {
		return 0, err
	}
	return r.Predict(x), nil
}

// KFold shuffles 0..n-1 with seed and returns k held-out index sets. The first
// n%k folds carry one extra sample.
func KFold(n, k int, seed int64) [][]int {
	if k > n {
		k = n
	}
	if k < 2 {
		return nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		folds[i] = perm[start : start+size]
		start += size
	}
	return folds
}
