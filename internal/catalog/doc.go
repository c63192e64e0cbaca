// Package catalog searches the library's own catalog for an evidence packet.
//
// The Matcher tries up to three ISBNs, then a title+author query, then a
// title-only query, stopping as soon as a tier returns a record. Each record
// is decorated with copy availability. Classify reduces the resulting
// CandidateSets to an exact, partial, or none match. Concrete catalogs
// implement Source; see the sierra subpackage.
package catalog
