package actor

import "context"

// ID is the opaque, globally unique identifier of an actor instance.
// IDs are immutable and never reused.
type ID string

func (id ID) String() string { return string(id) }

// State is the read/write context handed to invocation and reply
// handlers. It is scoped to the current snapshot and to the handling
// actor's own keyspace.
//
// A State value is only valid for the duration of the handler call
// that received it. It must not be retained across calls: the backing
// snapshot is merged or discarded as soon as the invocation resolves.
type State interface {
	// Get returns the value stored under key, or ok=false if the key
	// is absent. A non-nil error indicates a storage read fault, which
	// handlers should surface as a StorageRead failure.
	Get(key string) (value []byte, ok bool, err error)

	// GetFrom reads another actor's state. Actor state is private to
	// write but externally readable; the view is the same snapshot the
	// handler itself runs against.
	GetFrom(id ID, key string) (value []byte, ok bool, err error)

	// Set stages a write of key to value in the current snapshot.
	Set(key string, value []byte)

	// Delete stages a delete of key in the current snapshot.
	Delete(key string)
}

// ReadState is the read-only context handed to query handlers.
// Queries execute against a committed view and cannot stage writes.
type ReadState interface {
	Get(key string) (value []byte, ok bool, err error)
}

// Handler is the mandatory capability: every registered actor handles
// invocations. The handler runs synchronously to completion and
// returns its staged result, including any sub-invocation requests it
// wants scheduled (in emission order).
type Handler interface {
	HandleInvocation(ctx context.Context, st State, payload []byte) Result
}

// ReplyHandler is the optional reply capability. The engine delivers
// an Envelope describing a sub-invocation's outcome on a snapshot that
// already reflects the sub-invocation's still-speculative effects (on
// sub-success) or lacks them entirely (on sub-failure, the sub's
// overlay having been discarded).
//
// The reply result's outcome replaces the outcome that would otherwise
// have propagated to the parent.
type ReplyHandler interface {
	HandleReply(ctx context.Context, st State, env Envelope) Result
}

// QueryHandler is the optional query capability. Queries are
// read-only, never schedule sub-invocations, and never participate in
// the commit/rollback tree.
type QueryHandler interface {
	HandleQuery(ctx context.Context, st ReadState, payload []byte) ([]byte, error)
}
