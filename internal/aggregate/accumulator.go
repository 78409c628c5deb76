package aggregate

import (
	"github.com/etabench/etabench/internal/classify"
	"github.com/etabench/etabench/internal/eta"
)

// Accumulator is the bulk compute path: it classifies and folds records one
// at a time, so a large document-store import never materializes a
// []ClassifiedRecord. It is not safe for concurrent use; each batch gets its
// own Accumulator.
type Accumulator struct {
	provider  eta.Provider
	threshold float64

	count   int
	cities  map[string]*group
	buckets map[eta.TimeBucket]*group
}

// NewAccumulator returns an empty accumulator comparing provider against the
// reference with the given threshold.
func NewAccumulator(provider eta.Provider, threshold float64) *Accumulator {
	return &Accumulator{
		provider:  provider,
		threshold: threshold,
		cities:    make(map[string]*group),
		buckets:   make(map[eta.TimeBucket]*group),
	}
}

// Add classifies one normalized record and folds it into both rollups.
func (a *Accumulator) Add(rec eta.Record) {
	classified := classify.Record(rec, a.threshold)
	a.count++

	cg, ok := a.cities[rec.City]
	if !ok {
		cg = newGroup()
		a.cities[rec.City] = cg
	}
	cg.add(classified, a.provider)

	bg, ok := a.buckets[rec.TimeBucket]
	if !ok {
		bg = newGroup()
		a.buckets[rec.TimeBucket] = bg
	}
	bg.add(classified, a.provider)
}

// Count returns the number of records folded so far.
func (a *Accumulator) Count() int { return a.count }

// CityStats finalizes the per-city rollup, sorted by city.
func (a *Accumulator) CityStats() []eta.CityStats {
	return cityStatsOf(a.cities)
}

// TimeBucketStats finalizes the per-bucket rollup in day order.
func (a *Accumulator) TimeBucketStats() []eta.TimeBucketStats {
	return bucketStatsOf(a.buckets)
}
