package api

import (
	"time"

	"github.com/etabench/etabench/internal/catalog"
	"github.com/etabench/etabench/internal/eta"
)

// etaRequest is the body of POST /api/eta and POST /api/sources/mongo.
// Run-id bounds win over date bounds; a preset wins over both.
type etaRequest struct {
	FromRunID string `json:"fromRunId"`
	ToRunID   string `json:"toRunId"`

	// FromDate/ToDate accept YYYY-MM-DD and expand to whole-day run-id
	// bounds.
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`

	// Preset is LAST_7_DAYS or LAST_30_DAYS.
	Preset string `json:"preset"`

	City       string `json:"city"`
	Comparison string `json:"comparison"`

	// Mode selects the response shape: "full" (default) returns classified
	// records, "aggregated" returns pre-computed rollups only.
	Mode  string `json:"mode"`
	Limit int64  `json:"limit"`
}

// recordResponse is one classified record in a full-mode response. The
// legacy single-comparison fields mirror the Mappls comparison, matching
// what older dashboard builds expect.
type recordResponse struct {
	RunID      string         `json:"runId"`
	UID        string         `json:"uid"`
	City       string         `json:"city"`
	TimeBucket eta.TimeBucket `json:"timeBucket"`

	GoogleETA float64 `json:"googleETA"`
	MapplsETA float64 `json:"mapplsETA"`
	OAuth2ETA float64 `json:"oauth2ETA"`

	MapplsComparisonFlag eta.Flag `json:"mapplsComparisonFlag"`
	MapplsVariationPct   float64  `json:"mapplsVariationPct"`
	OAuth2ComparisonFlag eta.Flag `json:"oauth2ComparisonFlag"`
	OAuth2VariationPct   float64  `json:"oauth2VariationPct"`

	ComparisonFlag eta.Flag `json:"comparisonFlag"`
	VariationPct   float64  `json:"variationPercent"`
}

// etaResponse is the payload for POST /api/eta.
type etaResponse struct {
	CollectionName string `json:"collectionName"`
	Count          int    `json:"count"`

	Data []recordResponse `json:"data,omitempty"`

	CityStats       []eta.CityStats       `json:"cityStats,omitempty"`
	TimeBucketStats []eta.TimeBucketStats `json:"timeBucketStats,omitempty"`
}

// sourceResponse summarizes one catalog source.
type sourceResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
	AddedAt string `json:"addedAt"` // RFC3339
}

// analysisResponse is the payload for GET /api/analysis.
type analysisResponse struct {
	Comparison      eta.Provider          `json:"comparison"`
	TotalRecords    int                   `json:"totalRecords"`
	CityStats       []eta.CityStats       `json:"cityStats"`
	TimeBucketStats []eta.TimeBucketStats `json:"timeBucketStats"`
	GeneratedAt     string                `json:"generatedAt"` // RFC3339
}

// healthResponse is the payload for GET /api/v1/health.
type healthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"storeConnected"`
	SourceCount    int    `json:"sourceCount"`
	TotalRecords   int    `json:"totalRecords"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func toRecordResponse(rec eta.ClassifiedRecord) recordResponse {
	mappls := rec.Comparison(eta.ProviderMappls)
	oauth2 := rec.Comparison(eta.ProviderOAuth2)
	return recordResponse{
		RunID:      rec.RunID,
		UID:        rec.UID,
		City:       rec.City,
		TimeBucket: rec.TimeBucket,

		GoogleETA: rec.ReferenceETA,
		MapplsETA: rec.ProviderETA(eta.ProviderMappls),
		OAuth2ETA: rec.ProviderETA(eta.ProviderOAuth2),

		MapplsComparisonFlag: mappls.Flag,
		MapplsVariationPct:   mappls.VariationPct,
		OAuth2ComparisonFlag: oauth2.Flag,
		OAuth2VariationPct:   oauth2.VariationPct,

		ComparisonFlag: mappls.Flag,
		VariationPct:   mappls.VariationPct,
	}
}

func toSourceResponse(src *catalog.Source) sourceResponse {
	return sourceResponse{
		ID:      src.ID,
		Name:    src.Name,
		Kind:    src.Kind,
		Records: len(src.Records),
		AddedAt: src.AddedAt.UTC().Format(time.RFC3339),
	}
}
