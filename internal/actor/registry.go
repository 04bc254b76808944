package actor

import (
	"fmt"
	"sync"
)

// Registration is a resolved registry entry. The optional reply and
// query capabilities are detected once at Register time, so resolution
// never does per-call type inspection.
type Registration struct {
	ID      ID
	Handler Handler
	Reply   ReplyHandler // nil if the actor has no reply capability
	Query   QueryHandler // nil if the actor has no query capability
}

// CanReply reports whether the actor implements the reply capability.
func (r Registration) CanReply() bool { return r.Reply != nil }

// CanQuery reports whether the actor implements the query capability.
func (r Registration) CanQuery() bool { return r.Query != nil }

// Registry maps actor identity to handler logic. Registration happens
// at process-wide setup time only; there is no runtime re-registration.
//
// Resolve for an unregistered ID deterministically reports not-found,
// regardless of call count. The engine treats that as a Failure
// outcome for the invocation that triggered the lookup, not a process
// fault.
type Registry struct {
	mu      sync.RWMutex
	entries map[ID]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ID]Registration)}
}

// Register binds an actor ID to its handler. The handler's reply and
// query capabilities are recorded here. Registering an already-bound
// ID or a nil handler is a setup error.
func (r *Registry) Register(id ID, h Handler) error {
	if id == "" {
		return fmt.Errorf("register: empty actor id")
	}
	if h == nil {
		return fmt.Errorf("register %s: nil handler", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("register %s: already registered", id)
	}

	reg := Registration{ID: id, Handler: h}
	if rh, ok := h.(ReplyHandler); ok {
		reg.Reply = rh
	}
	if qh, ok := h.(QueryHandler); ok {
		reg.Query = qh
	}
	r.entries[id] = reg

	return nil
}

// Resolve looks up the registration for an actor ID.
func (r *Registry) Resolve(id ID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[id]
	return reg, ok
}

// Len returns the number of registered actors.
// Used for diagnostics and tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
