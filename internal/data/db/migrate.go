package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return err
	}
	// Rows reviewed before reviewed_at existed are ordered by when they were first rated.
	if err := db.Exec(`UPDATE rating SET reviewed_at = created_at WHERE reviewed_at IS NULL AND text <> ''`).Error; err != nil {
		return fmt.Errorf("backfill rating.reviewed_at: %w", err)
	}
	return nil
}

// EnsureLedgerConstraints adds Postgres-only guards on top of the gorm schema.
func EnsureLedgerConstraints(db *gorm.DB) error {
	if db == nil || db.Dialector.Name() != DriverPostgres {
		return nil
	}
	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_wax_balance_non_negative') THEN
				ALTER TABLE wax_balance ADD CONSTRAINT chk_wax_balance_non_negative CHECK (balance >= 0);
			END IF;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create chk_wax_balance_non_negative: %w", err)
	}
	// Caps sum credits per user per day/week.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_wax_tx_user_credit_time
		ON wax_transaction (user_id, created_at)
		WHERE delta > 0;
	`).Error; err != nil {
		return fmt.Errorf("create idx_wax_tx_user_credit_time: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rating_album_reviewed_at
		ON rating (album_id, reviewed_at)
		WHERE reviewed_at IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_rating_album_reviewed_at: %w", err)
	}
	return nil
}
