package engine

import "github.com/calyxlab/calyx/internal/actor"

// NodeTrace records one invocation node for observability. Entries
// appear in pre-order (the order nodes began executing); Outcome is
// filled in when the node resolves.
type NodeTrace struct {
	NodeID        string
	Target        actor.ID
	Depth         int
	CorrelationID uint64
	Seq           int64
	Outcome       actor.Outcome
}

// Receipt is what Invoke returns to the host: the flow token assigned
// to the tree, the terminal outcome, the accumulated events in
// emission order, the root's data, and the per-node trace.
//
// No partial results are ever surfaced: on failure Events and Data are
// empty regardless of how deep the tree ran.
type Receipt struct {
	FlowToken string
	Outcome   actor.Outcome
	Events    []actor.Event
	Data      []byte
	Trace     []NodeTrace
}

// flowState is the per-tree bookkeeping threaded through execution:
// the flow token, the step quota, and the node trace.
type flowState struct {
	token string
	quota *StepQuota
	trace []NodeTrace
}

// begin appends a trace entry for a node that is starting and returns
// its index so resolve can fill in the outcome.
func (fl *flowState) begin(nodeID string, target actor.ID, depth int, correlation uint64, seq int64) int {
	fl.trace = append(fl.trace, NodeTrace{
		NodeID:        nodeID,
		Target:        target,
		Depth:         depth,
		CorrelationID: correlation,
		Seq:           seq,
	})
	return len(fl.trace) - 1
}

// resolve records a node's terminal outcome.
func (fl *flowState) resolve(idx int, out actor.Outcome) {
	fl.trace[idx].Outcome = out
}
