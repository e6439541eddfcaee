package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureCareIndexes(db)
}

// EnsureCareIndexes adds the indexes gorm tags cannot express. The partial unique
// index backs the one-open-reminder rule at the storage level; both Postgres and
// SQLite support it.
func EnsureCareIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_one_open
		ON reminder (plant_id)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_reminder_one_open: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reminder_due_unsent
		ON reminder (due_at)
		WHERE status = 'pending' AND sent = false;
	`).Error; err != nil {
		return fmt.Errorf("create idx_reminder_due_unsent: %w", err)
	}
	return nil
}
