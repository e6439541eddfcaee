package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type PlantRepo interface {
	Create(dbc dbctx.Context, plant *types.Plant) (*types.Plant, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Plant, error)
	// LockActive selects the active plant row FOR UPDATE. It must run inside dbc.Tx.
	LockActive(dbc dbctx.Context, id uuid.UUID) (*types.Plant, error)
	ListActive(dbc dbctx.Context) ([]*types.Plant, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type plantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlantRepo(db *gorm.DB, baseLog *logger.Logger) PlantRepo {
	return &plantRepo{db: db, log: baseLog.With("repo", "PlantRepo")}
}

func (r *plantRepo) Create(dbc dbctx.Context, plant *types.Plant) (*types.Plant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(plant).Error; err != nil {
		return nil, err
	}
	return plant, nil
}

func (r *plantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Plant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Plant
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *plantRepo) LockActive(dbc dbctx.Context, id uuid.UUID) (*types.Plant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Plant
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_active = ?", id, true).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *plantRepo) ListActive(dbc dbctx.Context) ([]*types.Plant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Plant
	if err := transaction.WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *plantRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Plant{}).
		Where("id = ?", id).
		Updates(updates).Error
}
