// Package artifacts persists one trained model per plant. Every backend replaces an
// artifact as a whole: a reader sees the previous blob or the new one, never a mix.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/ml/ensemble"
)

const formatVersion = 1

type Artifact struct {
	PlantID        uuid.UUID          `json:"plant_id"`
	Model          ensemble.Model     `json:"model"`
	FeatureColumns []string           `json:"feature_columns"`
	FeatureMedians map[string]float64 `json:"feature_medians"`

	R2       float64  `json:"r2"`
	AdjR2    *float64 `json:"adj_r2,omitempty"`
	MAE      float64  `json:"mae"`
	RMSE     float64  `json:"rmse"`
	CVMAE    *float64 `json:"cv_mae,omitempty"`
	CVMAEStd *float64 `json:"cv_mae_std,omitempty"`

	NSamples  int       `json:"n_samples"`
	ModelType string    `json:"model_type"`
	TrainedAt time.Time `json:"trained_at"`
}

// Confidence is the fit-quality proxy reported with predictions: adjusted R2, else raw R2.
func (a *Artifact) Confidence() float64 {
	if a.AdjR2 != nil {
		return *a.AdjR2
	}
	return a.R2
}

// Summary is the listing view of an artifact, without the model body.
type Summary struct {
	PlantID   uuid.UUID `json:"plant_id"`
	R2        float64   `json:"r2"`
	AdjR2     *float64  `json:"adj_r2,omitempty"`
	MAE       float64   `json:"mae"`
	RMSE      float64   `json:"rmse"`
	CVMAE     *float64  `json:"cv_mae,omitempty"`
	NSamples  int       `json:"n_samples"`
	ModelType string    `json:"model_type"`
	TrainedAt time.Time `json:"trained_at"`
}

func (a *Artifact) Summary() Summary {
	return Summary{
		PlantID:   a.PlantID,
		R2:        a.R2,
		AdjR2:     a.AdjR2,
		MAE:       a.MAE,
		RMSE:      a.RMSE,
		CVMAE:     a.CVMAE,
		NSamples:  a.NSamples,
		ModelType: a.ModelType,
		TrainedAt: a.TrainedAt,
	}
}

type envelope struct {
	Version  int       `json:"version"`
	Artifact *Artifact `json:"artifact"`
}

func Encode(a *Artifact) ([]byte, error) {
	if a == nil || a.PlantID == uuid.Nil {
		return nil, fmt.Errorf("encode artifact: missing plant id: %w", errs.ErrInvalidArgument)
	}
	return json.Marshal(envelope{Version: formatVersion, Artifact: a})
}

// Decode fails with ErrArtifactUnreadable for anything that is not a complete artifact.
func Decode(raw []byte) (*Artifact, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrArtifactUnreadable, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errs.ErrArtifactUnreadable, env.Version)
	}
	a := env.Artifact
	if a == nil || a.PlantID == uuid.Nil || len(a.FeatureColumns) == 0 {
		return nil, fmt.Errorf("%w: incomplete artifact", errs.ErrArtifactUnreadable)
	}
	if err := a.Model.Check(len(a.FeatureColumns)); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrArtifactUnreadable, err)
	}
	return a, nil
}

type Store interface {
	// Get returns ErrArtifactNotFound or ErrArtifactUnreadable when there is nothing usable.
	Get(ctx context.Context, plantID uuid.UUID) (*Artifact, error)
	Put(ctx context.Context, a *Artifact) error
	Exists(ctx context.Context, plantID uuid.UUID) (bool, error)
	// List skips (and logs) blobs that cannot be decoded.
	List(ctx context.Context) ([]Summary, error)
}

func objectName(plantID uuid.UUID) string {
	return "model_plant_" + plantID.String() + ".json"
}

func plantIDFromName(name string) (uuid.UUID, bool) {
	const prefix, suffix = "model_plant_", ".json"
	if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(name[len(prefix) : len(name)-len(suffix)])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
