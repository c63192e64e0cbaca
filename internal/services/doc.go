// Package services defines shared utilities consumed by the pipeline stages
// and the external catalog and metadata integrations.
//
// Key responsibilities:
//   - Context helpers that stamp purchase request IDs, run IDs, stage names,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     consistent classification into bot_error text and audit payloads.
//   - Retry classification for transient network failures against Sierra and
//     Open Library.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
