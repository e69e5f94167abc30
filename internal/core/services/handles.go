package services

import (
	"fmt"
	"sync"
)

// HandleKey identifies a live handle: one attachment id plus one variant.
type HandleKey struct {
	ID      string
	Variant string
}

// Handle is a live, revocable in-memory reference to cached binary data.
// The presentation layer renders its URL; the registry revokes it exactly
// once, either on replacement or during a sweep.
type Handle struct {
	key  HandleKey
	url  string
	data []byte
}

// Key returns the (id, variant) pair this handle is registered under.
func (h *Handle) Key() HandleKey { return h.key }

// URL returns the display reference for this handle. URLs are unique
// across replacements of the same key.
func (h *Handle) URL() string { return h.url }

// Bytes returns the referenced data, or nil once revoked.
func (h *Handle) Bytes() []byte { return h.data }

// Revoked reports whether the handle has been released.
func (h *Handle) Revoked() bool { return h.data == nil }

// HandleRegistry tracks live handles keyed by (attachment id, variant).
// At most one handle exists per key: acquiring a replacement revokes the
// previous holder first, and ReleaseAllExcept sweeps everything a new
// display list no longer references.
type HandleRegistry struct {
	mu      sync.Mutex
	handles map[HandleKey]*Handle
	seq     uint64
}

// NewHandleRegistry creates an empty registry.
func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{handles: make(map[HandleKey]*Handle)}
}

// Acquire registers a handle for (id, variant) over blob. A nil blob
// yields no handle. An existing handle for the key is revoked before the
// replacement is created.
func (r *HandleRegistry) Acquire(id, variant string, blob []byte) *Handle {
	if blob == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := HandleKey{ID: id, Variant: variant}
	if existing, ok := r.handles[key]; ok {
		existing.data = nil
		delete(r.handles, key)
	}

	r.seq++
	h := &Handle{
		key:  key,
		url:  fmt.Sprintf("handle://%s/%s#%d", id, variant, r.seq),
		data: blob,
	}
	r.handles[key] = h
	return h
}

// ReleaseAllExcept revokes every live handle whose key is not in active.
// Called whenever the display list is replaced wholesale, so no handle
// outlives its last reference in the current projection.
func (r *HandleRegistry) ReleaseAllExcept(active map[HandleKey]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, h := range r.handles {
		if _, keep := active[key]; !keep {
			h.data = nil
			delete(r.handles, key)
		}
	}
}

// Live returns the number of currently live handles.
func (r *HandleRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
