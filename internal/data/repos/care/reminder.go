package care

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type ReminderRepo interface {
	Create(dbc dbctx.Context, r *types.Reminder) (*types.Reminder, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Reminder, error)
	// ListOpenForPlant orders by due date, then creation; the first row is the one to keep.
	ListOpenForPlant(dbc dbctx.Context, plantID uuid.UUID) ([]*types.Reminder, error)
	ListForPlant(dbc dbctx.Context, plantID uuid.UUID, limit int) ([]*types.Reminder, error)
	ListDueUnsent(dbc dbctx.Context, from, to time.Time) ([]types.Reminder, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateOpenFields only touches the row while it is still pending.
	UpdateOpenFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	CancelOpenForPlant(dbc dbctx.Context, plantID uuid.UUID) (int64, error)
	DeleteDoneBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type reminderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	return &reminderRepo{db: db, log: baseLog.With("repo", "ReminderRepo")}
}

func (r *reminderRepo) Create(dbc dbctx.Context, rem *types.Reminder) (*types.Reminder, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(rem).Error; err != nil {
		return nil, err
	}
	return rem, nil
}

func (r *reminderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Reminder, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Reminder
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

func (r *reminderRepo) ListOpenForPlant(dbc dbctx.Context, plantID uuid.UUID) ([]*types.Reminder, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Reminder
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ? AND status = ?", plantID, types.ReminderPending).
		Order("due_at ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reminderRepo) ListForPlant(dbc dbctx.Context, plantID uuid.UUID, limit int) ([]*types.Reminder, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Reminder
	if err := transaction.WithContext(dbc.Ctx).
		Where("plant_id = ?", plantID).
		Order("due_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reminderRepo) ListDueUnsent(dbc dbctx.Context, from, to time.Time) ([]types.Reminder, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Reminder
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND sent = ? AND due_at >= ? AND due_at <= ?", types.ReminderPending, false, from, to).
		Order("due_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reminderRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Reminder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *reminderRepo) UpdateOpenFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Reminder{}).
		Where("id = ? AND status = ?", id, types.ReminderPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reminderRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Reminder{})
	return res.RowsAffected, res.Error
}

func (r *reminderRepo) CancelOpenForPlant(dbc dbctx.Context, plantID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Reminder{}).
		Where("plant_id = ? AND status = ?", plantID, types.ReminderPending).
		Updates(map[string]interface{}{
			"status":     types.ReminderCancelled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *reminderRepo) DeleteDoneBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND created_at < ?", types.ReminderDone, cutoff).
		Delete(&types.Reminder{})
	return res.RowsAffected, res.Error
}
