package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/snap"
)

// StateReader returns a snap.Reader view of the durable state table,
// bound to ctx for the duration of one invocation tree or query.
// Reads see only committed state; speculative overlays of in-flight
// trees are never visible here.
func (s *Store) StateReader(ctx context.Context) snap.Reader {
	return stateReader{store: s, ctx: ctx}
}

// stateReader binds a context to the store's Get. The binding lives
// only as long as the invocation tree it was created for.
type stateReader struct {
	store *Store
	ctx   context.Context
}

func (r stateReader) Get(id actor.ID, key string) ([]byte, bool, error) {
	return r.store.GetState(r.ctx, id, key)
}

// GetState reads one value from the durable state table.
// A scan failure surfaces as an error for the caller to report as a
// StorageRead failure, never as a panic.
func (s *Store) GetState(ctx context.Context, id actor.ID, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM state
		WHERE actor_id = ? AND key = ?
	`, string(id), key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state %s/%s: %w", id, key, err)
	}

	return value, true, nil
}

// StateEntry is one (key, value) row of an actor's durable state.
type StateEntry struct {
	Key   string
	Value []byte
}

// ReadActorState returns all durable state rows for one actor, ordered
// by key. Returns an empty slice (not nil) if the actor has no state.
func (s *Store) ReadActorState(ctx context.Context, id actor.ID) ([]StateEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM state
		WHERE actor_id = ?
		ORDER BY key ASC
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query actor state: %w", err)
	}
	defer rows.Close()

	entries := []StateEntry{}
	for rows.Next() {
		var e StateEntry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state rows: %w", err)
	}

	return entries, nil
}

// StateDigest returns a SHA-256 digest over every row of the state
// table in deterministic order. Two stores hold byte-identical state
// iff their digests are equal; the atomicity tests rely on this.
func (s *Store) StateDigest(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, key, value FROM state
		ORDER BY actor_id ASC, key ASC
	`)
	if err != nil {
		return "", fmt.Errorf("query state for digest: %w", err)
	}
	defer rows.Close()

	h := sha256.New()
	for rows.Next() {
		var actorID, key string
		var value []byte
		if err := rows.Scan(&actorID, &key, &value); err != nil {
			return "", fmt.Errorf("scan state row: %w", err)
		}
		// Null separators prevent boundary ambiguity between fields.
		h.Write([]byte(actorID))
		h.Write([]byte{0x00})
		h.Write([]byte(key))
		h.Write([]byte{0x00})
		h.Write(value)
		h.Write([]byte{0x00})
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate state rows: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Apply commits one fully-resolved invocation tree: the merged root
// overlay's changes, the root receipt, and the accumulated events, all
// in a single transaction. Either everything becomes visible or
// nothing does.
func (s *Store) Apply(ctx context.Context, receipt Receipt, changes []snap.Change, events []actor.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, c := range changes {
		if c.Delete {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM state WHERE actor_id = ? AND key = ?
			`, string(c.Actor), c.Key)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO state (actor_id, key, value)
				VALUES (?, ?, ?)
				ON CONFLICT(actor_id, key) DO UPDATE SET value = excluded.value
			`, string(c.Actor), c.Key, c.Value)
		}
		if err != nil {
			return fmt.Errorf("apply change %s/%s: %w", c.Actor, c.Key, err)
		}
	}

	if err := insertReceipt(ctx, tx, receipt); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	for i, ev := range events {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (flow_token, ordinal, key, value)
			VALUES (?, ?, ?, ?)
		`, receipt.FlowToken, i, ev.Key, ev.Value)
		if err != nil {
			return fmt.Errorf("apply event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply: commit: %w", err)
	}

	return nil
}
