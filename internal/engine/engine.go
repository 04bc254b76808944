package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/snap"
	"github.com/calyxlab/calyx/internal/store"
	"github.com/calyxlab/calyx/internal/wire"
)

// DefaultMaxSteps is the default maximum number of node executions per
// invocation tree. This prevents runaway trees from consuming
// unbounded resources.
const DefaultMaxSteps = 1000

// DefaultMaxDepth is the default maximum nesting depth of an
// invocation tree. Self-recursive actors hit this before the step
// quota in most configurations.
const DefaultMaxDepth = 64

// Engine executes invocation trees against a durable store.
//
// One Invoke call drives exactly one tree, strictly sequentially, on
// the calling goroutine. Independent trees may be invoked concurrently
// from separate goroutines: each gets its own snapshot lineage rooted
// at the committed store, and the store serializes root commits.
type Engine struct {
	store    *store.Store
	registry *actor.Registry
	clock    *Clock
	tokens   wire.TokenGenerator

	maxSteps int
	maxDepth int

	// allowReplyRequests controls whether reply handlers may schedule
	// further sub-invocations. When false, a reply emitting requests is
	// a PolicyViolation failure.
	allowReplyRequests bool
}

// Option configures engine parameters.
type Option func(*Engine)

// WithMaxSteps sets the per-tree node execution quota.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithMaxDepth sets the maximum nesting depth of an invocation tree.
func WithMaxDepth(maxDepth int) Option {
	return func(e *Engine) {
		e.maxDepth = maxDepth
	}
}

// WithReplyRequests controls whether reply handlers may schedule
// sub-invocations of their own. Allowed by default.
func WithReplyRequests(allowed bool) Option {
	return func(e *Engine) {
		e.allowReplyRequests = allowed
	}
}

// New creates an Engine over the given store and registry. The token
// generator assigns flow tokens to root invocations; production code
// passes wire.UUIDv7Generator, tests pass a wire.FixedGenerator for
// deterministic traces.
func New(s *store.Store, reg *actor.Registry, tokens wire.TokenGenerator, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		registry:           reg,
		clock:              NewClock(),
		tokens:             tokens,
		maxSteps:           DefaultMaxSteps,
		maxDepth:           DefaultMaxDepth,
		allowReplyRequests: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Clock returns the engine's logical clock.
// Used for diagnostics and tests.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Invoke executes a root invocation tree to completion and commits or
// discards its effects atomically.
//
// The returned Receipt carries the tree's terminal outcome as a value.
// The error return covers infrastructure faults only (the store
// rejecting the commit); a failing handler is not an error.
func (e *Engine) Invoke(ctx context.Context, target actor.ID, payload []byte) (Receipt, error) {
	token := e.tokens.Generate()
	fl := &flowState{
		token: token,
		quota: NewStepQuota(e.maxSteps),
	}

	slog.Info("root invocation",
		"flow", token,
		"target", target,
	)

	root := snap.New(e.store.StateReader(ctx))
	res := e.execute(ctx, fl, target, payload, root, 0, 0)

	receipt := store.Receipt{
		FlowToken: token,
		Target:    target,
		Payload:   payload,
		Outcome:   res.Outcome,
		Seq:       e.clock.Current(),
	}

	if res.Outcome.OK() {
		receipt.Data = res.Data
		if err := e.store.Apply(ctx, receipt, root.Changes(), res.Events); err != nil {
			slog.Error("root commit failed",
				"flow", token,
				"target", target,
				"error", err,
			)
			return Receipt{}, fmt.Errorf("commit flow %s: %w", token, err)
		}
		slog.Info("root invocation committed",
			"flow", token,
			"target", target,
			"changes", len(root.Changes()),
			"events", len(res.Events),
		)
	} else {
		// Root failure: the entire tree is discarded. The receipt is
		// journaled for observability; no state and no events land.
		if err := e.store.WriteReceipt(ctx, receipt); err != nil {
			slog.Error("failure receipt write failed",
				"flow", token,
				"target", target,
				"error", err,
			)
			return Receipt{}, fmt.Errorf("journal flow %s: %w", token, err)
		}
		slog.Info("root invocation rolled back",
			"flow", token,
			"target", target,
			"outcome", res.Outcome.String(),
		)
	}

	out := Receipt{
		FlowToken: token,
		Outcome:   res.Outcome,
		Trace:     fl.trace,
	}
	if res.Outcome.OK() {
		out.Events = res.Events
		out.Data = res.Data
	}
	return out, nil
}

// Query executes a read-only query against the committed store. No
// overlay is allocated, no mutation is possible, and no
// sub-invocations can be scheduled: queries never participate in the
// commit/rollback tree, so a failure is reported immediately.
func (e *Engine) Query(ctx context.Context, target actor.ID, payload []byte) ([]byte, error) {
	reg, ok := e.registry.Resolve(target)
	if !ok {
		return nil, &NotFoundError{Target: target}
	}
	if !reg.CanQuery() {
		return nil, &NoCapabilityError{Target: target, Capability: "query"}
	}

	st := readView{reader: e.store.StateReader(ctx), self: target}
	data, err := reg.Query.HandleQuery(ctx, st, payload)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", target, err)
	}

	return data, nil
}
