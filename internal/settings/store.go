package settings

import "sync/atomic"

// Store publishes the current settings snapshot. Readers always see a
// complete snapshot; writers replace it wholesale.
type Store struct {
	p atomic.Pointer[Settings]
}

// NewStore returns a store holding s.
func NewStore(s *Settings) *Store {
	st := &Store{}
	st.p.Store(s)
	return st
}

// Load returns the current snapshot.
func (s *Store) Load() *Settings {
	return s.p.Load()
}

// Publish replaces the current snapshot.
func (s *Store) Publish(v *Settings) {
	s.p.Store(v)
}
