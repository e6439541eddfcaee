package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type WateringRepo interface {
	Create(dbc dbctx.Context, ev *types.WateringEvent) (*types.WateringEvent, error)
	// ListCompleted returns the plant's completed events, oldest first.
	ListCompleted(dbc dbctx.Context, plantID uuid.UUID) ([]types.WateringEvent, error)
	CountCompleted(dbc dbctx.Context, plantID uuid.UUID) (int64, error)
	LatestCompleted(dbc dbctx.Context, plantID uuid.UUID) (*types.WateringEvent, error)
	// Neighbours returns the completed events immediately before and after at, excluding id.
	Neighbours(dbc dbctx.Context, plantID uuid.UUID, at time.Time, excludeID uuid.UUID) (prev, next *types.WateringEvent, err error)
	SetInterval(dbc dbctx.Context, id uuid.UUID, days *float64) error
}

type wateringRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWateringRepo(db *gorm.DB, baseLog *logger.Logger) WateringRepo {
	return &wateringRepo{db: db, log: baseLog.With("repo", "WateringRepo")}
}

func (r *wateringRepo) Create(dbc dbctx.Context, ev *types.WateringEvent) (*types.WateringEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *wateringRepo) ListCompleted(dbc dbctx.Context, plantID uuid.UUID) ([]types.WateringEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.WateringEvent
	if plantID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ? AND completed = ?", plantID, true).
		Order("occurred_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *wateringRepo) CountCompleted(dbc dbctx.Context, plantID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.WateringEvent{}).
		Where("plant_id = ? AND completed = ?", plantID, true).
		Count(&n).Error
	return n, err
}

func (r *wateringRepo) LatestCompleted(dbc dbctx.Context, plantID uuid.UUID) (*types.WateringEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.WateringEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ? AND completed = ?", plantID, true).
		Order("occurred_at DESC, id DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *wateringRepo) Neighbours(dbc dbctx.Context, plantID uuid.UUID, at time.Time, excludeID uuid.UUID) (*types.WateringEvent, *types.WateringEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var prev, next types.WateringEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ? AND completed = ? AND id <> ? AND occurred_at <= ?", plantID, true, excludeID, at).
		Order("occurred_at DESC").
		Limit(1).
		Find(&prev).Error; err != nil {
		return nil, nil, err
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ? AND completed = ? AND id <> ? AND occurred_at > ?", plantID, true, excludeID, at).
		Order("occurred_at ASC").
		Limit(1).
		Find(&next).Error; err != nil {
		return nil, nil, err
	}
	var p, n *types.WateringEvent
	if prev.ID != uuid.Nil {
		p = &prev
	}
	if next.ID != uuid.Nil {
		n = &next
	}
	return p, n, nil
}

func (r *wateringRepo) SetInterval(dbc dbctx.Context, id uuid.UUID, days *float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.WateringEvent{}).
		Where("id = ?", id).
		Update("interval_days", days).Error
}
