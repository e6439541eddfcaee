// Package trainer fits one plant's model: feature table, family choice, optional
// k-fold diagnostics, full fit, metrics. The result is a complete artifact.
package trainer

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/xwerkax/BloomlyApp/internal/artifacts"
	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/ml/ensemble"
	"github.com/xwerkax/BloomlyApp/internal/ml/features"
)

// Train returns ErrInsufficientData (wrapped) when the history cannot support a model.
func Train(plant *care.Plant, events []care.WateringEvent, th config.Thresholds) (*artifacts.Artifact, error) {
	return train(plant, events, th, time.Now().UTC())
}

func train(plant *care.Plant, events []care.WateringEvent, th config.Thresholds, now time.Time) (*artifacts.Artifact, error) {
	tbl, err := features.BuildTrainingSet(plant, events, th)
	if err != nil {
		return nil, err
	}
	n := tbl.Len()
	family := Family(n, th)

	var cvMAE, cvStd *float64
	if n >= th.CVMinSamples {
		mean, std, err := crossValidate(tbl, family, th)
		if err != nil {
			return nil, fmt.Errorf("cross-validate: %w", err)
		}
		cvMAE, cvStd = &mean, &std
	}

	model, err := ensemble.New(family, th.Seed)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(tbl.X, tbl.Y); err != nil {
		return nil, fmt.Errorf("fit %s: %w", family, err)
	}
	pred := make([]float64, n)
	for i, row := range tbl.X {
		if pred[i], err = model.Predict(row); err != nil {
			return nil, err
		}
	}

	m := Evaluate(tbl.Y, pred)
	adj := AdjustedR2(m.R2, n, len(tbl.Columns))

	return &artifacts.Artifact{
		PlantID:        plant.ID,
		Model:          model,
		FeatureColumns: tbl.Columns,
		FeatureMedians: tbl.Medians(),
		R2:             m.R2,
		AdjR2:          &adj,
		MAE:            m.MAE,
		RMSE:           m.RMSE,
		CVMAE:          cvMAE,
		CVMAEStd:       cvStd,
		NSamples:       n,
		ModelType:      family,
		TrainedAt:      now,
	}, nil
}

// Family picks the shallow booster for small tables and the forest from GBRFSplit rows on.
func Family(n int, th config.Thresholds) string {
	if n < th.GBRFSplit {
		return ensemble.FamilyGB
	}
	return ensemble.FamilyRF
}

func crossValidate(tbl *features.Table, family string, th config.Thresholds) (float64, float64, error) {
	n := tbl.Len()
	k := th.CVMaxFolds
	if k > n {
		k = n
	}
	folds := ensemble.KFold(n, k, th.Seed)
	if folds == nil {
		return 0, 0, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}

	maes := make([]float64, 0, len(folds))
	for _, held := range folds {
		isHeld := make(map[int]bool, len(held))
		for _, i := range held {
			isHeld[i] = true
		}
		var trX [][]float64
		var trY []float64
		for i := range tbl.X {
			if !isHeld[i] {
				trX = append(trX, tbl.X[i])
				trY = append(trY, tbl.Y[i])
			}
		}
		model, err := ensemble.New(family, th.Seed)
		if err != nil {
			return 0, 0, err
		}
		if err := model.Fit(trX, trY); err != nil {
			return 0, 0, err
		}
		var sum float64
		for _, i := range held {
			p, err := model.Predict(tbl.X[i])
			if err != nil {
				return 0, 0, err
			}
			sum += math.Abs(p - tbl.Y[i])
		}
		maes = append(maes, sum/float64(len(held)))
	}
	mean, variance := stat.PopMeanVariance(maes, nil)
	return mean, math.Sqrt(variance), nil
}

type Metrics struct {
	R2   float64
	MAE  float64
	RMSE float64
}

// Evaluate scores predictions in-sample. R2 is 1 for a perfect fit of constant
// labels and 0 for any miss on them, where the textbook ratio is undefined.
func Evaluate(y, pred []float64) Metrics {
	if len(y) == 0 {
		return Metrics{}
	}
	mean := stat.Mean(y, nil)
	var ssRes, ssTot, absSum float64
	for i := range y {
		d := y[i] - pred[i]
		ssRes += d * d
		absSum += math.Abs(d)
		t := y[i] - mean
		ssTot += t * t
	}
	n := float64(len(y))
	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(ssRes / n),
	}
	switch {
	case ssTot > 0:
		m.R2 = 1 - ssRes/ssTot
	case ssRes > 0:
		m.R2 = 0
	default:
		m.R2 = 1
	}
	return m
}

// AdjustedR2 penalizes p features on n rows; without spare degrees of freedom it returns r2.
func AdjustedR2(r2 float64, n, p int) float64 {
	if n <= p+1 {
		return r2
	}
	return 1 - (1-r2)*float64(n-1)/float64(n-p-1)
}
