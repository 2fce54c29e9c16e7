// Package store caches the booking catalog in a local SQL database through gorm.
package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/config"
	"github.com/beesaferoot/rental-booking/internal/migration"
)

const insertBatchSize = 200

// Store is the local catalog cache.
type Store struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// Open connects to the database named by the configuration.
func Open(cfg *config.Config, log logrus.FieldLogger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.DriverSQLite, "":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	return OpenDialector(dialector, cfg.Debug, log)
}

// OpenDialector connects through an already configured gorm dialector. SQL statements are logged
// only in debug mode.
func OpenDialector(dialector gorm.Dialector, debug bool, log logrus.FieldLogger) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, log), nil
}

// New wraps an open gorm connection.
func New(db *gorm.DB, log logrus.FieldLogger) *Store {
	return &Store{db: db, log: log.WithField("component", "store")}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrator returns a migrator over the registered catalog migrations.
func (s *Store) Migrator() *migration.Migrator {
	return migration.NewMigrator(s.db, s.log)
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	applied, err := s.Migrator().Up(ctx)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		s.log.WithField("count", len(applied)).Info("Applied migrations")
	}
	return nil
}

// Load reads the whole cached catalog.
func (s *Store) Load(ctx context.Context) (booking.Catalog, error) {
	db := s.db.WithContext(ctx)

	var (
		properties []PropertyRecord
		units      []UnitRecord
		clients    []ClientRecord
		services   []ServiceRecord
		promos     []PromoCodeRecord
		bookings   []BookingRecord
	)
	for _, q := range []struct {
		name string
		dest any
	}{
		{"properties", &properties},
		{"units", &units},
		{"clients", &clients},
		{"services", &services},
		{"promo codes", &promos},
		{"bookings", &bookings},
	} {
		if err := db.Order("id").Find(q.dest).Error; err != nil {
			return booking.Catalog{}, fmt.Errorf("failed to load %s: %w", q.name, err)
		}
	}

	var c booking.Catalog
	for _, r := range properties {
		c.Properties = append(c.Properties, r.toDomain())
	}
	for _, r := range units {
		c.Units = append(c.Units, r.toDomain())
	}
	for _, r := range clients {
		c.Clients = append(c.Clients, r.toDomain())
	}
	for _, r := range services {
		c.Services = append(c.Services, r.toDomain())
	}
	for _, r := range promos {
		c.PromoCodes = append(c.PromoCodes, r.toDomain())
	}
	for _, r := range bookings {
		c.Bookings = append(c.Bookings, r.toDomain())
	}
	return c, nil
}

// ReplaceCatalog swaps the cached catalog for c in one transaction. An invalid catalog is rejected
// before anything is written.
func (s *Store) ReplaceCatalog(ctx context.Context, c booking.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, p := range c.PromoCodes {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := catalogModels()
		for i := len(models) - 1; i >= 0; i-- {
			// Each delete needs its own statement; a shared one keeps the first table.
			wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true, NewDB: true}).Unscoped()
			if err := wipe.Delete(models[i]).Error; err != nil {
				return err
			}
		}

		if err := insert(tx, mapSlice(c.Properties, propertyRecord)); err != nil {
			return err
		}
		if err := insert(tx, mapSlice(c.Units, unitRecord)); err != nil {
			return err
		}
		if err := insert(tx, mapSlice(c.Clients, clientRecord)); err != nil {
			return err
		}
		if err := insert(tx, mapSlice(c.Services, serviceRecord)); err != nil {
			return err
		}
		if err := insert(tx, mapSlice(c.PromoCodes, promoCodeRecord)); err != nil {
			return err
		}
		return insert(tx, mapSlice(c.Bookings, bookingRecord))
	})
	if err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"properties": len(c.Properties),
		"units":      len(c.Units),
		"bookings":   len(c.Bookings),
	}).Info("Catalog cached")
	return nil
}

// SchemaDiff compares the catalog tables with the record models.
func (s *Store) SchemaDiff(ctx context.Context) (*migration.SchemaDiff, error) {
	return migration.Compare(ctx, s.db, catalogModels()...)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func insert[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.CreateInBatches(records, insertBatchSize).Error
}

func mapSlice[S, T any](in []S, f func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
