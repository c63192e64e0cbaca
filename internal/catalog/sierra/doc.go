// Package sierra implements catalog.Source against the Sierra ILS REST API.
//
// The client authenticates with OAuth2 client credentials and keeps the access
// token on the instance until shortly before it expires. A rejected token is
// discarded and the call retried once.
package sierra
