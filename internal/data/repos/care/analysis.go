package care

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// analysisColumns are the columns replaced by an upsert; id and created_at stay with the first row.
var analysisColumns = []string{
	"recommended_interval_days", "confidence", "model_confidence",
	"regularity_score", "biology_score", "soil_score", "water_score",
	"mean_interval_days", "std_interval_days", "watering_count", "interval_trend",
	"waters_morning", "waters_afternoon", "waters_evening", "preferred_time_of_day", "time_of_day",
	"model_type", "r2", "mae", "rmse", "cv_mae", "n_samples", "message",
	"updated_at",
}

type AnalysisRepo interface {
	GetByPlant(dbc dbctx.Context, plantID uuid.UUID) (*types.CareAnalysis, error)
	// Upsert writes the whole snapshot for a plant in one statement.
	Upsert(dbc dbctx.Context, a *types.CareAnalysis) (*types.CareAnalysis, error)
	// CreateIfMissing inserts a only when the plant has no analysis yet.
	CreateIfMissing(dbc dbctx.Context, a *types.CareAnalysis) (bool, error)
	ListConfident(dbc dbctx.Context, minConfidence float64, minWaterings int) ([]*types.CareAnalysis, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return &analysisRepo{db: db, log: baseLog.With("repo", "AnalysisRepo")}
}

func (r *analysisRepo) GetByPlant(dbc dbctx.Context, plantID uuid.UUID) (*types.CareAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if plantID == uuid.Nil {
		return nil, nil
	}
	var out types.CareAnalysis
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ?", plantID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *analysisRepo) Upsert(dbc dbctx.Context, a *types.CareAnalysis) (*types.CareAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plant_id"}},
			DoUpdates: clause.AssignmentColumns(analysisColumns),
		}).
		Create(a).Error; err != nil {
		return nil, err
	}
	return r.GetByPlant(dbc, a.PlantID)
}

func (r *analysisRepo) CreateIfMissing(dbc dbctx.Context, a *types.CareAnalysis) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plant_id"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *analysisRepo) ListConfident(dbc dbctx.Context, minConfidence float64, minWaterings int) ([]*types.CareAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CareAnalysis
	if err := transaction.WithContext(dbc.Ctx).
		Where("confidence >= ? AND watering_count >= ?", minConfidence, minWaterings).
		Order("plant_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
