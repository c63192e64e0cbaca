// Package preflight provides readiness checks for the paths and services the
// bot depends on.
//
// The run command calls RunAll before a batch starts and refuses to run when a
// required check fails. The status command shows the same results to
// operators. Checks for disabled stages are skipped.
package preflight
