package migration

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Migration represents a single schema change of the local catalog cache
type Migration struct {
	Version string // Sortable version identifier, e.g. 20250601120000
	Name    string
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

// MigrationRecord represents a record of an applied migration
type MigrationRecord struct {
	Version   string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// MigrationStatus pairs a known migration with its applied record, if any.
type MigrationStatus struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt time.Time
}

var (
	globalMigrations = make([]*Migration, 0)
	registryMutex    sync.RWMutex
)

// RegisterMigration registers a migration globally. Packages owning a schema call it from init.
func RegisterMigration(migration *Migration) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	globalMigrations = append(globalMigrations, migration)
}

// GetRegisteredMigrations returns all registered migrations ordered by version
func GetRegisteredMigrations() []*Migration {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	migrations := make([]*Migration, len(globalMigrations))
	copy(migrations, globalMigrations)
	sortByVersion(migrations)
	return migrations
}

// ResetMigrations clears the global migration registry (for testing)
func ResetMigrations() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	globalMigrations = make([]*Migration, 0)
}

// Validate checks that every migration is complete and versions are unique.
func Validate(migrations []*Migration) error {
	seen := make(map[string]string, len(migrations))
	for _, m := range migrations {
		if m.Version == "" || m.Name == "" {
			return fmt.Errorf("migration %q has no version or name", m.Version+m.Name)
		}
		if m.Up == nil || m.Down == nil {
			return fmt.Errorf("migration %s (%s) must define both Up and Down", m.Name, m.Version)
		}
		if other, ok := seen[m.Version]; ok {
			return fmt.Errorf("duplicate migration version %s: %s and %s", m.Version, other, m.Name)
		}
		seen[m.Version] = m.Name
	}
	return nil
}

func sortByVersion(migrations []*Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
}
