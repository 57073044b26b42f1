package chat

import (
	"sort"
	"sync"
)

// Registry is the set of joined sessions, indexed by id and by display name.
// All operations are linearizable under one lock, and no caller ever sees the
// underlying maps.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uint64]*Session
	byName map[string]uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint64]*Session),
		byName: make(map[string]uint64),
	}
}

// Register adds s under its display name.
//
// Parameters:
//   - s: A session whose name has been set
//   - admitted: Optional callback run under the registry lock right after s
//     is added, so anything it queues on s precedes frames fanned out from
//     any later Snapshot. It must not block or call back into the Registry.
//
// Returns:
//   - ErrDuplicateName if another registered session holds the same name
//     (exact, case-sensitive match); the registry is left unchanged
//   - ErrSessionClosed if s is already closing
//   - ErrProtocolViolation if s is already registered
func (r *Registry) Register(s *Session, admitted func()) error {
	name := s.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.closing.Load() {
		return ErrSessionClosed
	}

	if _, ok := r.byID[s.id]; ok {
		return ErrProtocolViolation
	}

	if _, taken := r.byName[name]; taken {
		return ErrDuplicateName
	}

	r.byID[s.id] = s
	r.byName[name] = s.id
	if admitted != nil {
		admitted()
	}

	return nil
}

// Unregister removes the session with the given id and reports whether it
// was present. Removing an absent id is a no-op.
func (r *Registry) Unregister(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return false
	}

	delete(r.byID, id)
	if r.byName[s.Name()] == id {
		delete(r.byName, s.Name())
	}

	return true
}

// Snapshot returns the registered sessions at this instant. The slice is a
// fresh copy; later registry changes do not affect it.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}

	return out
}

// Names returns the registered display names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
