// Package catalog holds the imported benchmark sources for the current
// server lifetime: each CSV upload or document-store import becomes one
// source, and analysis runs over any selected subset merged. Nothing here is
// persisted — the catalog is the server-side counterpart of the dashboard's
// source list.
package catalog
