package classify

import (
	"math"
	"testing"

	"github.com/etabench/etabench/internal/eta"
)

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		name      string
		reference float64
		compared  float64
		wantFlag  eta.Flag
		wantVar   float64
	}{
		// Spec scenario: reference 100 against 95 / 130 / 70.
		{"within band", 100, 95, eta.FlagSimilar, 5},
		{"30% longer", 100, 130, eta.FlagOverestimate, -30},
		{"30% shorter", 100, 70, eta.FlagUnderestimate, 30},

		// Boundary is inclusive on the Similar side.
		{"exactly +10", 100, 90, eta.FlagSimilar, 10},
		{"exactly -10", 100, 110, eta.FlagSimilar, -10},
		{"just above +10", 100, 89.9999, eta.FlagUnderestimate, 10.0001},
		{"just below -10", 100, 110.0001, eta.FlagOverestimate, -10.0001},

		// No-data rows are neutral, never an extreme signal.
		{"zero reference", 0, 500, eta.FlagSimilar, 0},
		{"zero compared", 500, 0, eta.FlagSimilar, 0},
		{"negative reference", -10, 500, eta.FlagSimilar, 0},
		{"both zero", 0, 0, eta.FlagSimilar, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag, v := Classify(tt.reference, tt.compared, DefaultThreshold)
			if flag != tt.wantFlag {
				t.Errorf("flag = %q, want %q", flag, tt.wantFlag)
			}
			if math.Abs(v-tt.wantVar) > 1e-9 {
				t.Errorf("variation = %v, want %v", v, tt.wantVar)
			}
		})
	}
}

func TestClassify_NeverNaNOrInf(t *testing.T) {
	for _, pair := range [][2]float64{{0, 0}, {0, 100}, {100, 0}, {-1, -1}} {
		_, v := Classify(pair[0], pair[1], DefaultThreshold)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("Classify(%v, %v) produced %v", pair[0], pair[1], v)
		}
	}
}

func TestRecord_IndependentComparisons(t *testing.T) {
	rec := eta.Record{
		RunID:        "20251129_130103",
		UID:          "u1",
		City:         "Delhi",
		ReferenceETA: 100,
		ProviderETAs: map[eta.Provider]float64{
			eta.ProviderMappls: 70,  // +30% → Underestimate
			eta.ProviderOAuth2: 130, // -30% → Overestimate
		},
		TimeBucket: eta.BucketAfternoon,
	}

	out := Record(rec, DefaultThreshold)

	if got := out.Comparison(eta.ProviderMappls); got.Flag != eta.FlagUnderestimate || got.VariationPct != 30 {
		t.Errorf("mappls = %+v", got)
	}
	if got := out.Comparison(eta.ProviderOAuth2); got.Flag != eta.FlagOverestimate || got.VariationPct != -30 {
		t.Errorf("oauth2 = %+v", got)
	}
	// The input record is copied through untouched.
	if out.City != "Delhi" || out.TimeBucket != eta.BucketAfternoon {
		t.Errorf("record fields lost: %+v", out.Record)
	}
}

func TestComparison_UnknownProviderIsNeutral(t *testing.T) {
	out := Record(eta.Record{ReferenceETA: 100}, DefaultThreshold)
	if got := out.Comparison(eta.Provider("acme")); got.Flag != eta.FlagSimilar || got.VariationPct != 0 {
		t.Errorf("unknown provider = %+v, want neutral Similar", got)
	}
}

func TestBatch_Empty(t *testing.T) {
	if got := Batch(nil, DefaultThreshold); got == nil || len(got) != 0 {
		t.Errorf("Batch(nil) = %v, want empty non-nil slice", got)
	}
}
