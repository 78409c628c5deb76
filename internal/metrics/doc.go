// Package metrics exposes the service's Prometheus instrumentation: rows
// ingested and dropped per source kind, classification counts per flag, and
// HTTP request totals.
package metrics
