package session

import "sync/atomic"

// ProfileStore is a ContextSource whose profile can be swapped at runtime,
// e.g. when the context file changes on disk.
type ProfileStore struct {
	p atomic.Pointer[Profile]
}

var _ ContextSource = (*ProfileStore)(nil)

// NewProfileStore creates a store holding p.
func NewProfileStore(p Profile) *ProfileStore {
	s := &ProfileStore{}
	s.Set(p)
	return s
}

// Profile returns the current profile.
func (s *ProfileStore) Profile() Profile {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return Profile{}
}

// Set replaces the profile.
func (s *ProfileStore) Set(p Profile) {
	s.p.Store(&p)
}

// SetGoals replaces only the goals.
func (s *ProfileStore) SetGoals(goals string) {
	p := s.Profile()
	p.Goals = goals
	s.Set(p)
}
