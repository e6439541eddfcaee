package artifacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xwerkax/BloomlyApp/internal/domain/care"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// DBStore keeps one model_artifact row per plant. Put is a single upsert
// statement, so the row flips from the old blob to the new one atomically.
type DBStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDBStore(db *gorm.DB, baseLog *logger.Logger) *DBStore {
	return &DBStore{db: db, log: baseLog.With("store", "DBArtifactStore")}
}

func (s *DBStore) Get(ctx context.Context, plantID uuid.UUID) (*Artifact, error) {
	var row care.ModelArtifact
	err := s.db.WithContext(ctx).Where("plant_id = ?", plantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact row: %w", err)
	}
	return Decode(row.Blob)
}

func (s *DBStore) Put(ctx context.Context, a *Artifact) error {
	raw, err := Encode(a)
	if err != nil {
		return err
	}
	row := care.ModelArtifact{
		PlantID:   a.PlantID,
		Blob:      datatypes.JSON(raw),
		NSamples:  a.NSamples,
		ModelType: a.ModelType,
		TrainedAt: a.TrainedAt,
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "n_samples", "model_type", "trained_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *DBStore) Exists(ctx context.Context, plantID uuid.UUID) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&care.ModelArtifact{}).Where("plant_id = ?", plantID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *DBStore) List(ctx context.Context) ([]Summary, error) {
	var rows []care.ModelArtifact
	if err := s.db.WithContext(ctx).Order("plant_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list artifact rows: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		a, err := Decode(r.Blob)
		if err != nil {
			s.log.Warn("Skipping unreadable artifact", "plant_id", r.PlantID, "error", err)
			continue
		}
		out = append(out, a.Summary())
	}
	return out, nil
}
