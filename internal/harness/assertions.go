package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/engine"
	"github.com/calyxlab/calyx/internal/scenario"
	"github.com/calyxlab/calyx/internal/store"
)

// evaluate checks every expectation against the receipt and the
// durable store, returning one message per failed expectation. All
// expectations are evaluated even after the first mismatch, so a
// broken scenario reports everything wrong at once.
func evaluate(ctx context.Context, st *store.Store, receipt engine.Receipt, expect scenario.Expectation) []string {
	var errs []string

	errs = append(errs, evaluateOutcome(receipt.Outcome, expect)...)

	if expect.Events != nil {
		errs = append(errs, evaluateEvents(receipt.Events, expect.Events)...)
	}

	if expect.Data != "" && string(receipt.Data) != expect.Data {
		errs = append(errs, fmt.Sprintf("data: want %q, got %q", expect.Data, receipt.Data))
	}

	for _, row := range expect.State {
		got, ok, err := st.GetState(ctx, actor.ID(row.Actor), row.Key)
		if err != nil {
			errs = append(errs, fmt.Sprintf("state %s/%s: read: %v", row.Actor, row.Key, err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Sprintf("state %s/%s: want %q, key absent", row.Actor, row.Key, row.Value))
			continue
		}
		if string(got) != row.Value {
			errs = append(errs, fmt.Sprintf("state %s/%s: want %q, got %q", row.Actor, row.Key, row.Value, got))
		}
	}

	for _, ref := range expect.Absent {
		got, ok, err := st.GetState(ctx, actor.ID(ref.Actor), ref.Key)
		if err != nil {
			errs = append(errs, fmt.Sprintf("absent %s/%s: read: %v", ref.Actor, ref.Key, err))
			continue
		}
		if ok {
			errs = append(errs, fmt.Sprintf("absent %s/%s: key present with value %q", ref.Actor, ref.Key, got))
		}
	}

	return errs
}

func evaluateOutcome(got actor.Outcome, expect scenario.Expectation) []string {
	var errs []string

	if expect.WantsSuccess() != got.OK() {
		errs = append(errs, fmt.Sprintf("outcome: want %s, got %s", expect.Outcome, got))
		return errs
	}
	if got.OK() {
		return errs
	}

	if expect.Code != "" && string(got.Code()) != expect.Code {
		errs = append(errs, fmt.Sprintf("failure code: want %s, got %s", expect.Code, got.Code()))
	}
	if expect.Reason != "" && !strings.Contains(got.Reason(), expect.Reason) {
		errs = append(errs, fmt.Sprintf("failure reason: want substring %q, got %q", expect.Reason, got.Reason()))
	}

	return errs
}

func evaluateEvents(got, want []actor.Event) []string {
	if len(got) != len(want) {
		return []string{fmt.Sprintf("events: want %d events, got %d", len(want), len(got))}
	}

	var errs []string
	for i := range want {
		if got[i] != want[i] {
			errs = append(errs, fmt.Sprintf("events[%d]: want %s=%q, got %s=%q",
				i, want[i].Key, want[i].Value, got[i].Key, got[i].Value))
		}
	}
	return errs
}
