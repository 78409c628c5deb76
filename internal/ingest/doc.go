// Package ingest turns heterogeneous raw benchmark rows — CSV exports and
// document-store documents with historically inconsistent field names — into
// canonical eta.Record values.
//
// Every function in this package is total over its data: missing or
// malformed fields degrade to zero values, never to an error. The only
// failures surfaced are batch-level (an unreadable CSV stream), which are
// call-site programming or I/O problems rather than data-quality issues.
package ingest
