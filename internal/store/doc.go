// Package store is the document-store boundary: bulk range queries over the
// benchmark collection and raw-row inserts. It hands back untyped rows and
// leaves all interpretation to the ingest pipeline — the core never sees the
// driver.
package store
