// Package openlibrary enriches purchase suggestions with edition, work, and
// cover metadata from Open Library.
//
// Enrichment is gated on the catalog outcome (see Gate) and prefers an ISBN
// lookup, falling back to a title/author search. Free text is scrubbed of
// phone numbers, email addresses, and card-like digit runs before it is sent.
// Responses can be cached in Redis or in process.
package openlibrary
