// Package evidence turns a raw patron suggestion into a versioned evidence
// packet: canonical identifiers, title/author/year guesses, format and
// language hints, and quality signals.
package evidence
