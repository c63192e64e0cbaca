// Package identifiers validates and canonicalizes bibliographic identifiers
// (ISBN-10/13, ISSN, DOI) and classifies URLs found in patron text.
//
// Every function here is pure. Malformed input is rejected by returning false
// or an empty value; nothing in this package returns an error or panics on bad
// data.
package identifiers
