package booking

import "sync"

// Snapshots holds the current catalog. Readers get an immutable copy-on-write view; a refresh
// swaps in a whole new catalog and bumps the version.
type Snapshots struct {
	mu      sync.RWMutex
	catalog Catalog
	version uint64
}

// NewSnapshots returns a holder seeded with c at version 1.
func NewSnapshots(c Catalog) *Snapshots {
	return &Snapshots{catalog: c, version: 1}
}

// Current returns the catalog and its version.
func (s *Snapshots) Current() (Catalog, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.version
}

// Swap replaces the catalog and returns the new version.
func (s *Snapshots) Swap(c Catalog) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
	s.version++
	return s.version
}

// Update swaps in fn applied to the current catalog, atomically with respect to other swaps.
func (s *Snapshots) Update(fn func(Catalog) Catalog) (Catalog, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = fn(s.catalog)
	s.version++
	return s.catalog, s.version
}

// Version returns the current version.
func (s *Snapshots) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
