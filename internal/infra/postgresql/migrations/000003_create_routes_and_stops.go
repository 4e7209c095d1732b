package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/route-engine/internal/repository"
	"gorm.io/gorm"
)

func createRoutesAndStopsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_routes_and_stops",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.RouteModel{}, &repository.StopModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_routes_batch_driver ON routes (batch_id, driver_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_stops_route_sequence ON stops (route_id, sequence)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_stops_batch_order ON stops (batch_id, order_id)`,
				`ALTER TABLE routes ADD CONSTRAINT fk_routes_batch FOREIGN KEY (batch_id) REFERENCES batches (id)`,
				`ALTER TABLE stops ADD CONSTRAINT fk_stops_route FOREIGN KEY (route_id) REFERENCES routes (id) ON DELETE CASCADE`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.StopModel{}, &repository.RouteModel{})
		},
	}
}
