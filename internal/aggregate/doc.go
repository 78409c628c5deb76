// Package aggregate rolls classified benchmark records into per-city and
// per-time-bucket statistics.
//
// Two compute paths exist for the same logical rollup: ByCity/ByTimeBucket
// operate on already-classified records (the small-batch path), while
// Accumulator folds normalized records into counters as they stream past
// (the bulk path used for large document-store imports). Both must produce
// numerically identical output for the same data and threshold; the tests
// hold them to that.
package aggregate
