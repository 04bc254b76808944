// Package script provides data-driven actors: behavior (writes,
// events, outcome, sub-requests, reply handling, query responses) is
// declared as rules instead of Go code. The scenario harness and the
// CLI load these from CUE files, so reply-policy scenarios need no
// per-scenario Go.
package script
