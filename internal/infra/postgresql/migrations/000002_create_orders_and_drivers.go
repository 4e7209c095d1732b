package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/route-engine/internal/repository"
	"gorm.io/gorm"
)

// Orders and drivers are owned by other services; the tables are created here
// so a standalone deployment has the columns the engine reads.
func createOrdersAndDriversTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_orders_and_drivers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.OrderModel{}, &repository.DriverModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_drivers_active ON drivers (id) WHERE active`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DriverModel{}, &repository.OrderModel{})
		},
	}
}
