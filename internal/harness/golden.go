package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/calyxlab/calyx/internal/engine"
	"github.com/calyxlab/calyx/internal/scenario"
	"github.com/calyxlab/calyx/internal/wire"
)

// TraceSnapshot is the serialized form of a scenario run used for
// golden comparison: the receipt's outcome, events, data, and the
// per-node trace, all rendered through canonical JSON so byte-level
// comparison is meaningful.
type TraceSnapshot struct {
	Scenario  string
	FlowToken string
	Result    *Result
}

// toCanonicalMap flattens the snapshot into the value types
// wire.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	receipt := s.Result.Receipt

	trace := make([]any, len(receipt.Trace))
	for i, node := range receipt.Trace {
		trace[i] = map[string]any{
			"node_id":        node.NodeID,
			"target":         string(node.Target),
			"depth":          node.Depth,
			"correlation_id": node.CorrelationID,
			"seq":            node.Seq,
			"outcome":        node.Outcome.String(),
		}
	}

	events := make([]any, len(receipt.Events))
	for i, ev := range receipt.Events {
		events[i] = map[string]any{
			"key":   ev.Key,
			"value": ev.Value,
		}
	}

	m := map[string]any{
		"scenario":   s.Scenario,
		"flow_token": s.FlowToken,
		"outcome":    receipt.Outcome.String(),
		"events":     events,
		"trace":      trace,
	}
	if receipt.Data != nil {
		m["data"] = string(receipt.Data)
	}
	return m
}

// AssertGolden compares a scenario result's trace against the golden
// file testdata/golden/<name>.golden. Regenerate goldens with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		Scenario:  result.Name,
		FlowToken: FlowToken,
		Result:    result,
	}

	traceJSON, err := wire.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Name, traceJSON)

	return nil
}

// RunWithGolden runs a scenario, reports expectation mismatches as
// test errors, and compares the trace against its golden file.
func RunWithGolden(t *testing.T, sc *scenario.Scenario, opts ...engine.Option) error {
	t.Helper()

	result, err := Run(context.Background(), sc, opts...)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", sc.Name, msg)
	}

	return AssertGolden(t, result)
}
