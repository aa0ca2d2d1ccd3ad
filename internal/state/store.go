// Package state holds the authoritative published snapshot.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"SignalHub/internal/domain/models"
)

// Store keeps the current snapshot. Readers never block; Replace builds a new
// snapshot under a mutex and swaps it in atomically.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[models.Snapshot]
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(models.EmptySnapshot())
	return s
}

// Current returns the latest snapshot. Callers must treat it as read-only.
func (s *Store) Current() *models.Snapshot {
	return s.cur.Load()
}

// Replace sets the visible signals and status of one source and returns the new snapshot.
// The signals slice is copied. An empty status keeps the previous one.
func (s *Store) Replace(source models.Source, signals []models.Signal, status models.Status, at time.Time) *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	next := &models.Snapshot{
		Version:   prev.Version + 1,
		Sources:   make(map[models.Source]*models.SourceState, len(prev.Sources)+1),
		UpdatedAt: at,
	}
	for k, v := range prev.Sources {
		next.Sources[k] = v
	}

	if status == "" {
		status = models.StatusActive
		if old := prev.Sources[source]; old != nil && old.Status != models.StatusWaiting {
			status = old.Status
		}
	}
	next.Sources[source] = &models.SourceState{
		Source:    source,
		Status:    status,
		Signals:   append([]models.Signal(nil), signals...),
		UpdatedAt: at,
	}

	s.cur.Store(next)
	return next
}
