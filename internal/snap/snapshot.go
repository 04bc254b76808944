// Package snap implements the layered copy-on-write snapshot stack
// used to stage speculative state mutations. Each invocation node owns
// one Snapshot layered over its parent's; on commit the child's
// writes and deletes are merged into the parent (O(keys touched), not
// a deep copy), on rollback the child is simply dropped.
package snap

import (
	"slices"
	"strings"

	"github.com/calyxlab/calyx/internal/actor"
)

// Reader is the read-through interface at the bottom of every snapshot
// lineage. Both Snapshot and the durable store implement it.
type Reader interface {
	// Get returns the value for (actor, key), or ok=false if absent.
	// A non-nil error indicates a storage read fault.
	Get(id actor.ID, key string) (value []byte, ok bool, err error)
}

// stateKey addresses one entry in an overlay.
type stateKey struct {
	actor actor.ID
	key   string
}

// Change is one entry of a flattened snapshot, used to commit the root
// overlay into the durable store.
type Change struct {
	Actor  actor.ID
	Key    string
	Value  []byte // nil when Delete is true
	Delete bool
}

// Snapshot is a copy-on-write overlay over a parent Reader. Reads fall
// through to the parent for any key the snapshot has not itself
// written or deleted; writes never mutate the parent in place.
//
// A Snapshot is owned exclusively by one invocation node and is not
// safe for concurrent use.
type Snapshot struct {
	parent  Reader
	writes  map[stateKey][]byte
	deletes map[stateKey]struct{}
}

// New allocates an empty snapshot layered over parent.
func New(parent Reader) *Snapshot {
	return &Snapshot{
		parent:  parent,
		writes:  make(map[stateKey][]byte),
		deletes: make(map[stateKey]struct{}),
	}
}

// Get implements Reader. Own writes win, own deletes read as absent,
// everything else falls through to the parent.
func (s *Snapshot) Get(id actor.ID, key string) ([]byte, bool, error) {
	k := stateKey{actor: id, key: key}

	if v, ok := s.writes[k]; ok {
		return v, true, nil
	}
	if _, ok := s.deletes[k]; ok {
		return nil, false, nil
	}
	return s.parent.Get(id, key)
}

// Set stages a write. A later Set of the same key overwrites; a write
// clears any staged delete for the key.
func (s *Snapshot) Set(id actor.ID, key string, value []byte) {
	k := stateKey{actor: id, key: key}
	delete(s.deletes, k)
	// Copy so callers cannot mutate staged state through the slice.
	s.writes[k] = slices.Clone(value)
}

// Delete stages a delete. It masks both a staged write and any value
// visible through the parent.
func (s *Snapshot) Delete(id actor.ID, key string) {
	k := stateKey{actor: id, key: key}
	delete(s.writes, k)
	s.deletes[k] = struct{}{}
}

// MergeInto transfers this snapshot's writes and deletes into parent,
// overwriting parent entries for matching keys. The receiver must not
// be used afterwards.
func (s *Snapshot) MergeInto(parent *Snapshot) {
	for k, v := range s.writes {
		delete(parent.deletes, k)
		parent.writes[k] = v
	}
	for k := range s.deletes {
		delete(parent.writes, k)
		parent.deletes[k] = struct{}{}
	}
}

// Changes flattens the snapshot into a deterministic list, ordered by
// (actor, key), with deletes carrying a nil value. Used to commit the
// root overlay into the durable store.
func (s *Snapshot) Changes() []Change {
	changes := make([]Change, 0, len(s.writes)+len(s.deletes))
	for k, v := range s.writes {
		changes = append(changes, Change{Actor: k.actor, Key: k.key, Value: v})
	}
	for k := range s.deletes {
		changes = append(changes, Change{Actor: k.actor, Key: k.key, Delete: true})
	}

	slices.SortFunc(changes, func(a, b Change) int {
		if c := strings.Compare(string(a.Actor), string(b.Actor)); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	return changes
}

// Len returns the number of staged writes and deletes.
// Used for diagnostics and tests.
func (s *Snapshot) Len() int {
	return len(s.writes) + len(s.deletes)
}
