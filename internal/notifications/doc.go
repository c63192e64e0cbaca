// Package notifications delivers batch run events to staff via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// workflow code can publish unconditionally.
package notifications
