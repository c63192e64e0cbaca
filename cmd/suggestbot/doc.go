// Command suggestbot triages library purchase suggestions.
//
// It wires the request store, the stage pipeline, and the batch workflow
// into a cobra CLI. `suggestbot run` processes pending requests once, on a
// schedule (`--daemon`), or for a single request (`--request-id`). The
// remaining commands submit and inspect requests, list audit events and
// runs, preview evidence packets, and manage configuration.
package main
