// Package harness runs compiled scenarios against a real engine and a
// fresh in-memory store, producing deterministic traces (fixed flow
// tokens, logical clock seq numbers) suitable for golden comparison.
//
// Every scenario runs in isolation: its own store, its own registry,
// its own engine. Expectations are evaluated against the engine's
// receipt and the durable store after the tree resolves.
package harness

import (
	"context"
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/engine"
	"github.com/calyxlab/calyx/internal/scenario"
	"github.com/calyxlab/calyx/internal/script"
	"github.com/calyxlab/calyx/internal/snap"
	"github.com/calyxlab/calyx/internal/store"
	"github.com/calyxlab/calyx/internal/wire"
)

// FlowToken is the fixed token assigned to every harness-run flow, so
// traces are comparable across runs.
const FlowToken = "flow-0001"

// setupToken journals the pre-seeded state rows.
const setupToken = "setup-0000"

// Result is the outcome of running one scenario.
type Result struct {
	Name    string
	Receipt engine.Receipt
	Errors  []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool { return len(r.Errors) == 0 }

// Run executes one scenario end to end: build a registry from the
// scripted actor definitions, seed setup state, invoke the root, and
// evaluate the expectations. The error return covers infrastructure
// faults only; expectation mismatches land in Result.Errors.
func Run(ctx context.Context, sc *scenario.Scenario, opts ...engine.Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: open store: %w", sc.Name, err)
	}
	defer st.Close()

	reg := actor.NewRegistry()
	for _, def := range sc.Actors {
		h, err := script.New(def)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: build actor %s: %w", sc.Name, def.ID, err)
		}
		if err := reg.Register(actor.ID(def.ID), h); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	if err := seedSetup(ctx, st, sc.Setup); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	eng := engine.New(st, reg, wire.NewFixedGenerator(FlowToken), opts...)

	receipt, err := eng.Invoke(ctx, actor.ID(sc.Invoke.Target), payloadBytes(sc.Invoke.Payload))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: invoke: %w", sc.Name, err)
	}

	result := &Result{
		Name:    sc.Name,
		Receipt: receipt,
	}
	result.Errors = evaluate(ctx, st, receipt, sc.Expect)

	return result, nil
}

// seedSetup commits the scenario's initial state rows in one
// transaction, journaled under a setup token so they are
// distinguishable from the flow under test.
func seedSetup(ctx context.Context, st *store.Store, rows []scenario.StateEntry) error {
	if len(rows) == 0 {
		return nil
	}

	changes := make([]snap.Change, len(rows))
	for i, row := range rows {
		changes[i] = snap.Change{
			Actor: actor.ID(row.Actor),
			Key:   row.Key,
			Value: []byte(row.Value),
		}
	}

	receipt := store.Receipt{
		FlowToken: setupToken,
		Target:    "setup",
		Outcome:   actor.Success(),
	}
	if err := st.Apply(ctx, receipt, changes, nil); err != nil {
		return fmt.Errorf("seed setup state: %w", err)
	}
	return nil
}

func payloadBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}
