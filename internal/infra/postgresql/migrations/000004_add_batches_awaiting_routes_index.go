package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addBatchesAwaitingRoutesIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_add_batches_awaiting_routes_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_batches_awaiting_routes ON batches (delivery_date) WHERE status = 'locked' AND routes_generated_at IS NULL AND deleted_at IS NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_batches_awaiting_routes`).Error
		},
	}
}
