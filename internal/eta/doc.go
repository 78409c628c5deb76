// Package eta defines the canonical benchmark record shape shared by every
// stage of the pipeline: provider identifiers, comparison flags, time
// buckets, and the run-id helpers that derive them.
package eta
