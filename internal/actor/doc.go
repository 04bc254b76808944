// Package actor defines the data model shared by the engine and actor
// implementations: actor identity, the capability-set handler
// interfaces, invocation requests and results, reply envelopes, and
// the tagged Success/Failure outcome type.
//
// The package deliberately contains no execution logic. Actors own
// their logical state only through the State context handed to each
// handler call; they never hold a live mutable reference across calls.
package actor
