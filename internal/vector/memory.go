package vector

import (
	"sync/atomic"

	"github.com/hyperjump/shirabe/internal/models"
)

// Store holds at most one installed snapshot. Readers always observe either a
// complete snapshot or none.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Install replaces the current snapshot and returns the previous one.
func (s *Store) Install(snap *Snapshot) *Snapshot {
	return s.current.Swap(snap)
}

// Current returns the installed snapshot, or nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Clear drops the installed snapshot. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.current.Store(nil)
}

// IsIndexed reports whether a snapshot is installed.
func (s *Store) IsIndexed() bool {
	return s.current.Load() != nil
}

// Stats returns statistics for the installed snapshot, or nil.
func (s *Store) Stats() *models.IndexStats {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	return snap.Stats()
}
