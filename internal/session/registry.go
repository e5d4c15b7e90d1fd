package session

import (
	"sort"
	"sync"
)

// Registry is the thread-safe collection of live sessions.  A session
// appears here exactly while its handler runs: the accept loop inserts
// it before the handler's first read and removes it after the handler
// returns, so membership always mirrors live handlers.
//
// All operations take one lock for their duration and never hold it
// across blocking I/O.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	nextID   uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

// Add assigns s the next session ID and inserts it.
func (r *Registry) Add(s *Session) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	r.sessions[s.ID] = s
	return s.ID
}

// Remove deletes the session with the given ID.  Removing an absent ID
// is a no-op.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountByIP returns how many live sessions originate from the given
// peer IP.
func (r *Registry) CountByIP(ip string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.IP() == ip {
			n++
		}
	}
	return n
}

// Each calls fn once per live session, ordered by ID.  The lock is
// released before the first call, so fn may write to peers or touch
// the registry itself without deadlocking.
func (r *Registry) Each(fn func(*Session)) {
	for _, s := range r.snapshot() {
		fn(s)
	}
}

// CloseAll closes every live connection.  Handlers observe the closure
// on their next blocking call and remove themselves, so membership
// drains through the normal path rather than being cleared here.
func (r *Registry) CloseAll() {
	for _, s := range r.snapshot() {
		s.Close()
	}
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
