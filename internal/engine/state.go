package engine

import (
	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/snap"
)

// stateView is the actor.State handed to invocation and reply
// handlers. It binds a snapshot to the handling actor's own keyspace.
// The view must not be retained beyond the handler call: the snapshot
// behind it is merged or discarded when the node resolves.
type stateView struct {
	snap *snap.Snapshot
	self actor.ID
}

var _ actor.State = (*stateView)(nil)

func (v *stateView) Get(key string) ([]byte, bool, error) {
	return v.snap.Get(v.self, key)
}

func (v *stateView) GetFrom(id actor.ID, key string) ([]byte, bool, error) {
	return v.snap.Get(id, key)
}

func (v *stateView) Set(key string, value []byte) {
	v.snap.Set(v.self, key, value)
}

func (v *stateView) Delete(key string) {
	v.snap.Delete(v.self, key)
}

// readView is the actor.ReadState handed to query handlers. It reads
// the committed store directly - no overlay is allocated, so a query
// can never observe speculative writes of an in-flight tree.
type readView struct {
	reader snap.Reader
	self   actor.ID
}

var _ actor.ReadState = readView{}

func (v readView) Get(key string) ([]byte, bool, error) {
	return v.reader.Get(v.self, key)
}
