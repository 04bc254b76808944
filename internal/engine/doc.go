// Package engine drives invocation trees: it executes a root
// invocation, recursively executes the sub-invocations each handler
// emits (strictly in emission order, each against the cumulative child
// snapshot), delivers replies per the four reply policies, and merges
// or discards snapshots bottom-up so that only a fully-consistent set
// of mutations ever reaches the durable store.
//
// Execution is single-threaded and strictly sequential within one
// invocation tree; a sub-invocation is a call, not a yield. Failures
// are values that unwind the tree - there is no out-of-band
// cancellation. Independent trees may be driven concurrently on
// separate goroutines; the store serializes their root commits.
package engine
