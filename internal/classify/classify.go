package classify

import (
	"github.com/etabench/etabench/internal/eta"
)

// DefaultThreshold is the classification band in percentage points: a
// variation within ±10% of the reference counts as Similar.
const DefaultThreshold = 10.0

// Variation returns the signed percentage variation of compared against
// reference:
//
//	variation = (1 - compared/reference) * 100
//
// Positive variation means the compared provider predicted a SHORTER
// duration than the reference. If either duration is zero or negative the
// variation is 0 — no data is neutral, and division by zero is impossible.
func Variation(reference, compared float64) float64 {
	if reference <= 0 || compared <= 0 {
		return 0
	}
	return (1 - compared/reference) * 100
}

// Classify maps a reference/compared duration pair to a flag and variation.
// The threshold boundary is inclusive on the Similar side: a variation of
// exactly ±threshold classifies as Similar. Zero or negative durations force
// Similar with zero variation regardless of the other value.
func Classify(reference, compared, threshold float64) (eta.Flag, float64) {
	if reference <= 0 || compared <= 0 {
		return eta.FlagSimilar, 0
	}

	v := Variation(reference, compared)
	switch {
	case v > threshold:
		return eta.FlagUnderestimate, v
	case v < -threshold:
		return eta.FlagOverestimate, v
	default:
		return eta.FlagSimilar, v
	}
}

// Record classifies every compared provider of rec independently against the
// reference. Classifications do not interact: a record with two comparable
// providers yields two flags.
func Record(rec eta.Record, threshold float64) eta.ClassifiedRecord {
	out := eta.ClassifiedRecord{
		Record:      rec,
		Comparisons: make(map[eta.Provider]eta.Classification, len(rec.ProviderETAs)),
	}
	for provider, compared := range rec.ProviderETAs {
		flag, v := Classify(rec.ReferenceETA, compared, threshold)
		out.Comparisons[provider] = eta.Classification{Flag: flag, VariationPct: v}
	}
	return out
}

// Batch classifies a whole batch of records. A nil batch yields an empty
// slice.
func Batch(recs []eta.Record, threshold float64) []eta.ClassifiedRecord {
	out := make([]eta.ClassifiedRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Record(rec, threshold))
	}
	return out
}
