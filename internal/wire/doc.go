// Package wire provides identity and deterministic encoding for the
// engine: UUIDv7 flow tokens, content-addressed node IDs, and the
// canonical JSON used for golden trace comparison.
package wire
