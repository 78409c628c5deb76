package aggregate

import (
	"math"
	"sort"

	"github.com/etabench/etabench/internal/eta"
)

// group accumulates counts for one city or time-bucket key.
type group struct {
	total   int
	similar int
	over    int
	under   int

	// Variation sums exclude records where either duration was zero; those
	// rows classify as Similar but must not drag the mean toward 0.
	varSum float64
	varN   int

	runIDs  map[string]struct{}
	lastRun string
}

func newGroup() *group {
	return &group{runIDs: make(map[string]struct{})}
}

// add folds one record's comparison against the given provider into the group.
func (g *group) add(rec eta.ClassifiedRecord, provider eta.Provider) {
	g.total++

	cls := rec.Comparison(provider)
	switch cls.Flag {
	case eta.FlagOverestimate:
		g.over++
	case eta.FlagUnderestimate:
		g.under++
	default:
		g.similar++
	}

	if rec.ReferenceETA > 0 && rec.ProviderETA(provider) > 0 {
		g.varSum += cls.VariationPct
		g.varN++
	}

	if rec.RunID != "" {
		g.runIDs[rec.RunID] = struct{}{}
		if rec.RunID > g.lastRun {
			g.lastRun = rec.RunID
		}
	}
}

func (g *group) avgVariation() float64 {
	if g.varN == 0 {
		return 0
	}
	return g.varSum / float64(g.varN)
}

// pct returns count/total as a percentage rounded to one decimal place.
func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ByCity groups records on the exact city string and rolls each group up for
// the given compared provider. Output is sorted by city so repeated calls on
// the same batch are byte-for-byte identical.
func ByCity(recs []eta.ClassifiedRecord, provider eta.Provider) []eta.CityStats {
	groups := make(map[string]*group)
	for _, rec := range recs {
		g, ok := groups[rec.City]
		if !ok {
			g = newGroup()
			groups[rec.City] = g
		}
		g.add(rec, provider)
	}
	return cityStatsOf(groups)
}

// ByTimeBucket is the analogous rollup keyed on the derived time bucket,
// emitted in day order (Morning, Afternoon, Evening, Midnight).
func ByTimeBucket(recs []eta.ClassifiedRecord, provider eta.Provider) []eta.TimeBucketStats {
	groups := make(map[eta.TimeBucket]*group)
	for _, rec := range recs {
		g, ok := groups[rec.TimeBucket]
		if !ok {
			g = newGroup()
			groups[rec.TimeBucket] = g
		}
		g.add(rec, provider)
	}
	return bucketStatsOf(groups)
}

func cityStatsOf(groups map[string]*group) []eta.CityStats {
	out := make([]eta.CityStats, 0, len(groups))
	for city, g := range groups {
		out = append(out, eta.CityStats{
			City:            city,
			TotalRecords:    g.total,
			SimilarCount:    g.similar,
			OverCount:       g.over,
			UnderCount:      g.under,
			SimilarPct:      pct(g.similar, g.total),
			OverPct:         pct(g.over, g.total),
			UnderPct:        pct(g.under, g.total),
			AvgVariationPct: g.avgVariation(),
			Iterations:      len(g.runIDs),
			LastBenchmark:   g.lastRun,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

func bucketStatsOf(groups map[eta.TimeBucket]*group) []eta.TimeBucketStats {
	out := make([]eta.TimeBucketStats, 0, len(groups))
	for _, bucket := range eta.AllBuckets {
		g, ok := groups[bucket]
		if !ok {
			continue
		}
		out = append(out, eta.TimeBucketStats{
			TimeBucket:      bucket,
			TotalRecords:    g.total,
			SimilarCount:    g.similar,
			OverCount:       g.over,
			UnderCount:      g.under,
			SimilarPct:      pct(g.similar, g.total),
			OverPct:         pct(g.over, g.total),
			UnderPct:        pct(g.under, g.total),
			AvgVariationPct: g.avgVariation(),
		})
	}
	return out
}
