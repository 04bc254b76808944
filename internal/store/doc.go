// Package store provides the durable root of every snapshot lineage.
//
// The store is SQLite-backed and serves two roles: it is the
// bottom-most Reader of the snapshot stack (the state table), and it
// journals committed root invocations (receipts and their events) for
// observability and the trace CLI.
//
// Root commits are serialized: the connection pool is limited to a
// single writer, and Apply performs the merged root overlay plus the
// journal rows in one transaction. External observers therefore see
// either the full set of a tree's changes or none of them.
package store
