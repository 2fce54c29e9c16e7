package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNothingToRevert = errors.New("no migrations to revert")
	ErrUnknownVersion  = errors.New("applied migration is not registered")
)

// Migrator handles the execution of migrations
type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
	log        logrus.FieldLogger
}

// NewMigrator creates a Migrator for the given migrations, or for the global registry when none
// are passed.
func NewMigrator(db *gorm.DB, log logrus.FieldLogger, migrations ...*Migration) *Migrator {
	if len(migrations) == 0 {
		migrations = GetRegisteredMigrations()
	} else {
		migrations = append([]*Migration(nil), migrations...)
		sortByVersion(migrations)
	}
	return &Migrator{
		db:         db,
		migrations: migrations,
		log:        log.WithField("component", "migrator"),
	}
}

// Migrations returns the known migrations in version order.
func (m *Migrator) Migrations() []*Migration {
	return append([]*Migration(nil), m.migrations...)
}

// Init creates the version tracking table if it doesn't exist
func (m *Migrator) Init(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]MigrationRecord, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	var records []MigrationRecord
	if err := m.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]MigrationRecord, len(records))
	for _, record := range records {
		applied[record.Version] = record
	}
	return applied, nil
}

// Pending returns the migrations that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]*Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*Migration
	for _, mr := range m.migrations {
		if _, ok := applied[mr.Version]; !ok {
			pending = append(pending, mr)
		}
	}
	return pending, nil
}

// Up applies all pending migrations, each in its own transaction, and returns the ones applied.
func (m *Migrator) Up(ctx context.Context) ([]*Migration, error) {
	if err := Validate(m.migrations); err != nil {
		return nil, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var done []*Migration
	for _, mr := range pending {
		m.log.WithFields(logrus.Fields{"version": mr.Version, "name": mr.Name}).Info("Applying migration")

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mr.Up(tx); err != nil {
				return err
			}
			record := MigrationRecord{
				Version:   mr.Version,
				Name:      mr.Name,
				AppliedAt: time.Now().UTC(),
			}
			return tx.Create(&record).Error
		})
		if err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", mr.Name, err)
		}
		done = append(done, mr)
	}
	return done, nil
}

// Down rolls back the last applied migration and returns it.
func (m *Migrator) Down(ctx context.Context) (*Migration, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	var last MigrationRecord
	err := m.db.WithContext(ctx).Order("applied_at DESC").Order("version DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNothingToRevert
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}

	var target *Migration
	for _, mr := range m.migrations {
		if mr.Version == last.Version {
			target = mr
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownVersion, last.Name, last.Version)
	}

	m.log.WithFields(logrus.Fields{"version": target.Version, "name": target.Name}).Info("Reverting migration")
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return err
		}
		return tx.Delete(&last).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to revert migration %s: %w", target.Name, err)
	}
	return target, nil
}

// Status reports every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mr := range m.migrations {
		record, ok := applied[mr.Version]
		out = append(out, MigrationStatus{
			Version:   mr.Version,
			Name:      mr.Name,
			Applied:   ok,
			AppliedAt: record.AppliedAt,
		})
	}
	return out, nil
}

// History returns applied migrations, most recent first.
func (m *Migrator) History(ctx context.Context) ([]MigrationRecord, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	var records []MigrationRecord
	if err := m.db.WithContext(ctx).Order("applied_at DESC").Order("version DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get migration history: %w", err)
	}
	return records, nil
}
