package persistence

import (
	"fmt"
	"sync"

	"github.com/talgya/cityscape/internal/store"
)

// Saver persists a city together with the events recorded since its last
// save. It is safe for concurrent use, so the autosave and manual saves can
// share one.
type Saver struct {
	db   *DB
	city *store.City

	mu      sync.Mutex
	lastSeq uint64
}

// NewSaver creates a saver for the city. Events already in the database are
// not tracked; only events recorded by this process are appended.
func NewSaver(db *DB, c *store.City) *Saver {
	return &Saver{db: db, city: c}
}

// Save writes the full city state and appends unsaved events. It returns the
// tick that was saved.
func (s *Saver) Save() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.city.Export()
	if err := s.db.SaveCityState(st); err != nil {
		return 0, err
	}
	events := s.city.EventsAfter(s.lastSeq)
	if err := s.db.SaveEvents(events); err != nil {
		return 0, fmt.Errorf("save events: %w", err)
	}
	if n := len(events); n > 0 {
		s.lastSeq = events[n-1].Seq
	}
	return st.Tick, nil
}
