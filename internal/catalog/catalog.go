// Package catalog holds the in-process snapshot of the latest committed batch.
//
// The store is single-writer, many-reader: the refresh orchestrator replaces
// the whole catalog in one atomic pointer swap and serving requests read a
// point-in-time snapshot without taking any lock. A catalog is never mutated
// after it is published.
package catalog

import (
	"sync/atomic"

	"aus-news/internal/models"
)

// Store publishes immutable catalog snapshots.
type Store struct {
	current atomic.Pointer[models.Catalog]
}

// NewStore returns an empty store. Snapshot reports false until the first
// Replace.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the currently published catalog. The returned catalog must
// be treated as read-only; it may be shared by any number of requests.
func (s *Store) Snapshot() (*models.Catalog, bool) {
	c := s.current.Load()
	return c, c != nil
}

// Replace publishes a new catalog in one atomic step and returns the catalog
// it displaced, if any. Callers must not modify the catalog after publishing.
func (s *Store) Replace(c *models.Catalog) *models.Catalog {
	return s.current.Swap(c)
}

// Len returns the item count of the published catalog, zero when empty.
func (s *Store) Len() int {
	c := s.current.Load()
	if c == nil {
		return 0
	}
	return len(c.Items)
}
