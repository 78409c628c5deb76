package ingest

import (
	"strings"

	"github.com/etabench/etabench/internal/eta"
)

// UnknownCity is the city label applied when a row carries none.
const UnknownCity = "Unknown"

// Normalize produces the canonical record from adapted fields. It never
// fails: an all-empty input yields a degenerate record with zero ETAs, city
// "Unknown" and the Midnight bucket. City labels are trimmed but their case
// is preserved; grouping keys on the exact string.
func Normalize(rf RawFields) eta.Record {
	city := strings.TrimSpace(rf.City)
	if city == "" {
		city = UnknownCity
	}

	providerEtas := make(map[eta.Provider]float64, len(eta.ComparedProviders))
	for _, p := range eta.ComparedProviders {
		providerEtas[p] = rf.Durations[p]
	}

	return eta.Record{
		RunID:        rf.RunID,
		UID:          rf.UID,
		City:         city,
		ReferenceETA: rf.Durations[eta.ProviderGoogle],
		ProviderETAs: providerEtas,
		TimeBucket:   eta.DeriveTimeBucket(rf.RunID),
	}
}

// NormalizeRow adapts and normalizes one raw row.
func NormalizeRow(row RawRow) eta.Record {
	return Normalize(Adapt(row))
}

// NormalizeRows maps a whole batch. A nil batch yields an empty slice.
func NormalizeRows(rows []RawRow) []eta.Record {
	out := make([]eta.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, NormalizeRow(row))
	}
	return out
}
