package eta

// Provider identifies a routing/ETA provider. The set is closed: every
// comparison in the system is between one of these and the reference.
type Provider string

// Known providers.
const (
	// ProviderGoogle is the reference provider — its duration is treated as
	// ground truth for every comparison.
	ProviderGoogle Provider = "google"

	ProviderMappls Provider = "mappls"
	ProviderOAuth2 Provider = "oauth2"
)

// ComparedProviders is the ordered set of providers evaluated against the
// reference.
var ComparedProviders = []Provider{ProviderMappls, ProviderOAuth2}

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderMappls, ProviderOAuth2:
		return true
	}
	return false
}

// Flag is the three-way accuracy classification of a compared provider
// against the reference.
type Flag string

const (
	// FlagSimilar means the compared duration is within the threshold of the
	// reference, or that one of the durations was missing/zero (no data is
	// treated as neutral, never as an extreme signal).
	FlagSimilar Flag = "Similar"

	// FlagOverestimate means the compared provider predicted a longer
	// duration than the reference by more than the threshold.
	FlagOverestimate Flag = "Overestimate"

	// FlagUnderestimate means the compared provider predicted a shorter
	// duration than the reference by more than the threshold.
	FlagUnderestimate Flag = "Underestimate"
)

// TimeBucket is the coarse day-part category derived from a run id.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "Morning"
	BucketAfternoon TimeBucket = "Afternoon"
	BucketEvening   TimeBucket = "Evening"
	BucketMidnight  TimeBucket = "Midnight"
)

// AllBuckets lists the buckets in day order.
var AllBuckets = []TimeBucket{BucketMorning, BucketAfternoon, BucketEvening, BucketMidnight}

// Record is the canonical normalized benchmark record. It is created once by
// the normalizer and never mutated afterwards.
type Record struct {
	// RunID encodes the benchmark execution timestamp (YYYYMMDD_HHMMSS).
	RunID string `json:"runId"`

	// UID identifies the logical test case / route, stable across runs.
	UID string `json:"uid"`

	// City is the free-text city label; "Unknown" when absent.
	City string `json:"city"`

	// ReferenceETA is the reference provider's duration in seconds.
	ReferenceETA float64 `json:"referenceEta"`

	// ProviderETAs holds one duration per compared provider.
	ProviderETAs map[Provider]float64 `json:"providerEtas"`

	// TimeBucket is derived from RunID, never stored as input.
	TimeBucket TimeBucket `json:"timeBucket"`
}

// ProviderETA returns the duration recorded for p, or 0 when absent.
func (r Record) ProviderETA(p Provider) float64 {
	if p == ProviderGoogle {
		return r.ReferenceETA
	}
	return r.ProviderETAs[p]
}

// Classification is the outcome of comparing one provider against the
// reference for a single record.
type Classification struct {
	Flag         Flag    `json:"comparisonFlag"`
	VariationPct float64 `json:"variationPercent"`
}

// ClassifiedRecord is a Record plus one independent Classification per
// compared provider.
type ClassifiedRecord struct {
	Record
	Comparisons map[Provider]Classification `json:"comparisons"`
}

// Comparison returns the classification for p. A provider that was never
// classified reports Similar with zero variation, matching the "no data is
// neutral" rule.
func (r ClassifiedRecord) Comparison(p Provider) Classification {
	if c, ok := r.Comparisons[p]; ok {
		return c
	}
	return Classification{Flag: FlagSimilar}
}

// CityStats is the per-city rollup for one compared provider. Instances are
// created fresh per aggregation call and have no identity beyond the batch
// that produced them.
type CityStats struct {
	City         string `json:"city"`
	TotalRecords int    `json:"totalRecords"`

	SimilarCount int `json:"similarCount"`
	OverCount    int `json:"overCount"`
	UnderCount   int `json:"underCount"`

	// Percentages are rounded to one decimal place.
	SimilarPct float64 `json:"similarPct"`
	OverPct    float64 `json:"overPct"`
	UnderPct   float64 `json:"underPct"`

	// AvgVariationPct averages variation only over records where both
	// durations were positive; zero-value rows are skipped, not zero-filled.
	AvgVariationPct float64 `json:"avgVariationPct"`

	// Iterations is the number of distinct run ids seen in the group.
	Iterations int `json:"iterations"`

	// LastBenchmark is the lexicographic maximum run id in the group. Run ids
	// are zero-padded so string order equals time order.
	LastBenchmark string `json:"lastBenchmark,omitempty"`
}

// TimeBucketStats is the analogous rollup keyed by time bucket.
type TimeBucketStats struct {
	TimeBucket   TimeBucket `json:"timeBucket"`
	TotalRecords int        `json:"totalRecords"`

	SimilarCount int `json:"similarCount"`
	OverCount    int `json:"overCount"`
	UnderCount   int `json:"underCount"`

	SimilarPct float64 `json:"similarPct"`
	OverPct    float64 `json:"overPct"`
	UnderPct   float64 `json:"underPct"`

	AvgVariationPct float64 `json:"avgVariationPct"`
}
