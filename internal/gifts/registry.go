package gifts

import "sync"

// HandledRegistry is a concurrent set of gift/guest-pass IDs already
// processed in the current session. Membership is committed before the
// remote accept call is issued: a missed acceptance is retried on the
// next scan, a duplicate submission is not retried at all. The registry
// is cleared in full on disconnect.
type HandledRegistry struct {
	mu  sync.Mutex
	ids map[uint64]struct{}
}

// NewHandledRegistry creates an empty registry.
func NewHandledRegistry() *HandledRegistry {
	return &HandledRegistry{ids: make(map[uint64]struct{})}
}

// TryAdd inserts id and returns true, or returns false if it was already
// present. Insertion is the commit point for "handled".
func (r *HandledRegistry) TryAdd(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

// Contains reports whether id has been handled this session.
func (r *HandledRegistry) Contains(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Clear drops all entries. Called when the owning session disconnects.
func (r *HandledRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[uint64]struct{})
}

// Len returns the number of handled IDs.
func (r *HandledRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
