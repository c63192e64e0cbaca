// Package requests persists purchase suggestions, their audit trail, and bot
// run records in SQLite.
//
// The Store owns the request lifecycle (pending, processing, completed,
// error) and the typed artifact columns written by pipeline stages: the
// evidence packet, catalog candidate sets, and the Open Library enrichment.
// Artifacts are serialized here and nowhere else. Events are append-only and
// ordered by timestamp, then insertion order.
//
// Schema changes bump schemaVersion in schema.go.
package requests
