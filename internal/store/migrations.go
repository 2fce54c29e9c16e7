package store

import (
	"gorm.io/gorm"

	"github.com/beesaferoot/rental-booking/internal/migration"
)

func init() {
	for _, m := range Migrations() {
		migration.RegisterMigration(m)
	}
}

// Migrations returns the schema history of the catalog cache.
func Migrations() []*migration.Migration {
	return []*migration.Migration{
		{
			Version: "20250601000001",
			Name:    "create_catalog_tables",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(catalogModels()...)
			},
			Down: func(db *gorm.DB) error {
				models := catalogModels()
				for i := len(models) - 1; i >= 0; i-- {
					if err := db.Migrator().DropTable(models[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version: "20250601000002",
			Name:    "add_booking_stay_index",
			Up: func(db *gorm.DB) error {
				return db.Exec("CREATE INDEX IF NOT EXISTS idx_bookings_unit_stay ON bookings (unit_id, check_in, check_out)").Error
			},
			Down: func(db *gorm.DB) error {
				return db.Exec("DROP INDEX IF EXISTS idx_bookings_unit_stay").Error
			},
		},
	}
}
