package ingest

import (
	"github.com/etabench/etabench/internal/eta"
)

// RawRow is an untyped external-origin row: one CSV record keyed by header
// name, or one document-store document. It carries no invariants and is
// consumed exactly once by Adapt.
type RawRow map[string]any

// RawFields is the adapter's output: the looked-up values for every concept
// the normalizer needs, with all field-name variance already resolved.
type RawFields struct {
	RunID string
	UID   string
	City  string

	// Durations holds one value per provider, including the reference.
	// A provider whose field was absent or malformed carries 0 — the adapter
	// cannot distinguish a legitimate zero from a missing value.
	Durations map[eta.Provider]float64
}

// Alias tables. Each list is a closed, ordered set of historically-used
// field names for one concept; lookup tries them in priority order. The
// duration lists put the ETA-duration variant before the plain-duration
// variant, matching how the exports evolved.
var (
	runIDAliases = []string{"RunID", "runId", "Run_ID"}
	uidAliases   = []string{"UID", "uid"}
	cityAliases  = []string{"City", "city"}

	durationAliases = map[eta.Provider][]string{
		eta.ProviderGoogle: {"Google_Duration", "Google Duration", "googleETA"},
		eta.ProviderMappls: {
			"Mappls_ETADuration", "Mappls ETADuration",
			"Mappls_Duration", "Mappls Duration",
			"mapplsETA",
		},
		eta.ProviderOAuth2: {"Oauth2_ETADuration", "Oauth2_RouteDuration", "oauth2ETA"},
	}
)

// Adapt extracts the normalizer's input fields from one raw row. It is a
// pure function: absent or malformed fields resolve to ""/0, never to an
// error, so a single bad row can never abort a batch.
func Adapt(row RawRow) RawFields {
	rf := RawFields{
		RunID:     lookupString(row, runIDAliases),
		UID:       lookupString(row, uidAliases),
		City:      lookupString(row, cityAliases),
		Durations: make(map[eta.Provider]float64, len(durationAliases)),
	}
	for provider, aliases := range durationAliases {
		rf.Durations[provider] = lookupNumber(row, aliases)
	}
	return rf
}

// lookupString returns the first alias present in the row, coerced to a
// string. A key that is present but empty still wins over later aliases.
func lookupString(row RawRow, aliases []string) string {
	for _, key := range aliases {
		if v, ok := row[key]; ok {
			return CoerceString(v)
		}
	}
	return ""
}

// lookupNumber returns the first alias present in the row, coerced to a
// number. Presence decides, exactly as in lookupString: a present-but-blank
// preferred field resolves to 0 and later aliases are never consulted.
func lookupNumber(row RawRow, aliases []string) float64 {
	for _, key := range aliases {
		if v, ok := row[key]; ok {
			return Coerce(v)
		}
	}
	return 0
}
