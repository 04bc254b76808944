package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
)

// Receipt journals the terminal outcome of one root invocation.
// Successful roots are written by Apply together with their state
// changes; failed roots are journaled alone via WriteReceipt - a
// failure leaves no state and no events behind.
type Receipt struct {
	FlowToken string
	Target    actor.ID
	Payload   []byte
	Outcome   actor.Outcome
	Data      []byte
	Seq       int64 // final clock position of the tree
}

// insertReceipt writes a receipt row inside an open transaction.
func insertReceipt(ctx context.Context, tx *sql.Tx, r Receipt) error {
	outcome := "failure"
	if r.Outcome.OK() {
		outcome = "success"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO receipts (flow_token, target, payload, outcome, code, reason, data, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.FlowToken,
		string(r.Target),
		r.Payload,
		outcome,
		string(r.Outcome.Code()),
		r.Outcome.Reason(),
		r.Data,
		r.Seq,
	)
	if err != nil {
		return fmt.Errorf("insert receipt %s: %w", r.FlowToken, err)
	}

	return nil
}

// WriteReceipt journals a root invocation that produced no state
// changes (a failed root). Only the receipt row is written.
func (s *Store) WriteReceipt(ctx context.Context, r Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write receipt: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertReceipt(ctx, tx, r); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write receipt: commit: %w", err)
	}

	return nil
}

// ReadReceipt retrieves the receipt for a flow token.
// Returns sql.ErrNoRows if the flow is unknown.
func (s *Store) ReadReceipt(ctx context.Context, flowToken string) (Receipt, error) {
	var (
		r       Receipt
		target  string
		outcome string
		code    string
		reason  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT flow_token, target, payload, outcome, code, reason, data, seq
		FROM receipts
		WHERE flow_token = ?
	`, flowToken).Scan(&r.FlowToken, &target, &r.Payload, &outcome, &code, &reason, &r.Data, &r.Seq)
	if err != nil {
		return Receipt{}, err
	}

	r.Target = actor.ID(target)
	if outcome == "success" {
		r.Outcome = actor.Success()
	} else {
		r.Outcome = actor.Fail(actor.FailureCode(code), reason)
	}

	return r, nil
}

// ReadEvents returns the committed events of a flow in emission order.
// Returns an empty slice (not nil) if the flow emitted no events.
func (s *Store) ReadEvents(ctx context.Context, flowToken string) ([]actor.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM events
		WHERE flow_token = ?
		ORDER BY ordinal ASC
	`, flowToken)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []actor.Event{}
	for rows.Next() {
		var ev actor.Event
		if err := rows.Scan(&ev.Key, &ev.Value); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
