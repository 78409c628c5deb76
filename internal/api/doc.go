// Package api is the HTTP surface of the dashboard backend: batch queries
// against the document store, CSV/mongo source management, merged analysis,
// and health. Handlers read from the source catalog and the record finder
// and return JSON; they never mutate pipeline output.
package api
