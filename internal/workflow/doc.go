// Package workflow runs batches of pending purchase requests through the
// triage pipeline and tracks each batch as a run record.
//
// The Manager holds an exclusive file lock while it works so two runners never
// share a database, resets requests left mid-flight by a crashed runner, and
// dispatches claimed requests to a bounded worker pool. In daemon mode it
// repeats the batch on the configured schedule; stop requests are honored
// between requests, never in the middle of one.
package workflow
