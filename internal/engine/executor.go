package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/snap"
	"github.com/calyxlab/calyx/internal/wire"
)

// execute drives a single invocation node:
//
//  1. Allocate a child snapshot layered over parent.
//  2. Resolve the target; NotFound is an immediate failure.
//  3. Run the handler synchronously against the child snapshot.
//  4. A handler failure discards the child outright - requests of a
//     failed handler were never emitted, so none are scheduled.
//  5. Run the emitted requests in order against the child snapshot
//     (see runRequests), delivering replies per policy.
//  6. If nothing failed unabsorbed, merge the child into parent and
//     return success with the accumulated events.
//
// The correlation parameter is the caller-assigned correlation ID of
// the request that spawned this node (0 for the root); it exists for
// the trace only.
func (e *Engine) execute(
	ctx context.Context,
	fl *flowState,
	target actor.ID,
	payload []byte,
	parent *snap.Snapshot,
	depth int,
	correlation uint64,
) actor.Result {
	seq := e.clock.Next()
	nodeID := wire.MustNodeID(fl.token, string(target), payload, seq)
	idx := fl.begin(nodeID, target, depth, correlation, seq)

	res := e.executeNode(ctx, fl, target, payload, parent, depth)
	fl.resolve(idx, res.Outcome)

	slog.Debug("node resolved",
		"flow", fl.token,
		"node", nodeID,
		"target", target,
		"depth", depth,
		"seq", seq,
		"outcome", res.Outcome.String(),
	)

	return res
}

// executeNode holds the body of execute so the trace bookkeeping wraps
// every return path exactly once.
func (e *Engine) executeNode(
	ctx context.Context,
	fl *flowState,
	target actor.ID,
	payload []byte,
	parent *snap.Snapshot,
	depth int,
) actor.Result {
	if depth > e.maxDepth {
		return actor.Failure(actor.CodeDepthExceeded,
			fmt.Sprintf("invocation depth %d exceeds limit %d", depth, e.maxDepth))
	}
	if err := fl.quota.Check(fl.token); err != nil {
		return actor.Failure(actor.CodeStepsExceeded, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return actor.Failure(actor.CodeHandlerFailure, fmt.Sprintf("context cancelled: %v", err))
	}

	reg, ok := e.registry.Resolve(target)
	if !ok {
		return actor.Failure(actor.CodeNotFound,
			fmt.Sprintf("actor %s not registered", target))
	}

	child := snap.New(parent)
	st := &stateView{snap: child, self: target}

	res := reg.Handler.HandleInvocation(ctx, st, payload)
	if !res.Outcome.OK() {
		// Child discarded by not merging. Events of a failed handler
		// are dropped with it: no partial results.
		return actor.Result{Outcome: res.Outcome}
	}

	out := e.runRequests(ctx, fl, target, res, child, depth)
	if out.Outcome.OK() {
		child.MergeInto(parent)
	}

	return out
}

// runRequests processes a handler result's sub-invocation requests in
// emission order against the working snapshot, delivering replies per
// policy. It is shared between invocation handlers and reply handlers:
// a reply's own requests are processed the same way, against the same
// working snapshot, replying to the same origin.
//
// Sibling ordering follows cumulative visibility: request
// i+1 executes against a snapshot that already contains the merged
// effects of requests 0..i (and of any replies they triggered).
func (e *Engine) runRequests(
	ctx context.Context,
	fl *flowState,
	origin actor.ID,
	res actor.Result,
	working *snap.Snapshot,
	depth int,
) actor.Result {
	events := slices.Clone(res.Events)
	data := res.Data

	for _, req := range res.Requests {
		subRes := e.execute(ctx, fl, req.Target, req.Payload, working, depth+1, req.CorrelationID)

		if !req.Policy.Wants(subRes.Outcome) {
			if !subRes.Outcome.OK() {
				// No reply path can absorb this failure: abort the
				// remaining siblings and fail the node. This is the
				// transitive-failure rule for Never/OnSuccess.
				return actor.Result{Outcome: subRes.Outcome}
			}
			events = append(events, subRes.Events...)
			continue
		}

		env := actor.Envelope{
			CorrelationID: req.CorrelationID,
			Outcome:       subRes.Outcome,
			Events:        subRes.Events,
			Data:          subRes.Data,
		}
		replyRes := e.deliver(ctx, fl, origin, env, working, depth)

		// The reply outcome replaces the one that would have
		// propagated: a reply may overturn a sub-success into failure
		// or recover a sub-failure into success.
		if !replyRes.Outcome.OK() {
			return actor.Result{Outcome: replyRes.Outcome}
		}
		if subRes.Outcome.OK() {
			events = append(events, subRes.Events...)
		}
		events = append(events, replyRes.Events...)
		if replyRes.Data != nil {
			data = replyRes.Data
		}
	}

	return actor.Result{Events: events, Data: data, Outcome: actor.Success()}
}

// deliver invokes the origin actor's reply handler with the envelope,
// on the same working snapshot the triggering sub-invocation wrote
// into: on sub-success the snapshot already contains the sub's
// still-speculative effects (merged by execute), on sub-failure it
// lacks them entirely (the sub's overlay was discarded).
//
// Reentrancy note: if the origin was invoked again (directly or
// transitively) by an earlier sibling before this reply is delivered,
// the reply handler observes a snapshot that already reflects the
// nested call's writes. This is expected behavior, not prevented.
func (e *Engine) deliver(
	ctx context.Context,
	fl *flowState,
	origin actor.ID,
	env actor.Envelope,
	working *snap.Snapshot,
	depth int,
) actor.Result {
	reg, ok := e.registry.Resolve(origin)
	if !ok {
		// The origin just executed, so this indicates registry misuse.
		return actor.Failure(actor.CodeNotFound,
			fmt.Sprintf("reply origin %s not registered", origin))
	}
	if !reg.CanReply() {
		return actor.Failure(actor.CodePolicyViolation,
			fmt.Sprintf("actor %s requested a reply but has no reply handler", origin))
	}

	slog.Debug("delivering reply",
		"flow", fl.token,
		"origin", origin,
		"correlation", env.CorrelationID,
		"sub_outcome", env.Outcome.String(),
	)

	st := &stateView{snap: working, self: origin}
	res := reg.Reply.HandleReply(ctx, st, env)

	if len(res.Requests) > 0 && !e.allowReplyRequests {
		return actor.Failure(actor.CodePolicyViolation,
			fmt.Sprintf("actor %s scheduled sub-invocations from a reply handler", origin))
	}
	if !res.Outcome.OK() {
		return actor.Result{Outcome: res.Outcome}
	}

	return e.runRequests(ctx, fl, origin, res, working, depth)
}
