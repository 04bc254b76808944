// Package scenario compiles CUE scenario files into runnable
// definitions: scripted actors, pre-committed setup state, a root
// invocation, and expectations the harness asserts after the run.
package scenario

import (
	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/script"
)

// Scenario is one compiled scenario.
type Scenario struct {
	Name   string              `json:"name"`
	Actors []script.Definition `json:"actors"`
	Setup  []StateEntry        `json:"setup,omitempty"`
	Invoke Invocation          `json:"invoke"`
	Expect Expectation         `json:"expect"`
}

// StateEntry is one actor-scoped key/value row, used both for setup
// state and for expected durable state.
type StateEntry struct {
	Actor string `json:"actor"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StateRef names an actor-scoped key without a value, for asserting
// absence.
type StateRef struct {
	Actor string `json:"actor"`
	Key   string `json:"key"`
}

// Invocation is the scenario's root invocation.
type Invocation struct {
	Target  string `json:"target"`
	Payload string `json:"payload,omitempty"`
}

// Expectation is what the harness asserts after the invocation tree
// resolves. Outcome is "success" or "failure"; Code and Reason refine
// a failure expectation (Reason is a substring match). Events is the
// exact ordered event list; State rows must match the durable store
// and Absent keys must be missing from it.
type Expectation struct {
	Outcome string        `json:"outcome"`
	Code    string        `json:"code,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Events  []actor.Event `json:"events,omitempty"`
	Data    string        `json:"data,omitempty"`
	State   []StateEntry  `json:"state,omitempty"`
	Absent  []StateRef    `json:"absent,omitempty"`
}

// WantsSuccess reports whether the expectation is a success outcome.
func (e Expectation) WantsSuccess() bool {
	return e.Outcome == "success"
}
