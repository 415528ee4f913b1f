package score

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
)

func TestSpearman(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{"perfect agreement", []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}, 1},
		{"perfect inversion", []float64{1, 2, 3, 4}, []float64{40, 30, 20, 10}, -1},
		{"monotone nonlinear", []float64{1, 2, 3, 4}, []float64{1, 8, 27, 64}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rho, ok := spearman(tt.a, tt.b)
			if !ok {
				t.Fatal("spearman reported degenerate input")
			}
			if math.Abs(rho-tt.expected) > 1e-12 {
				t.Fatalf("rho = %v, want %v", rho, tt.expected)
			}
		})
	}
}

func TestSpearmanDegenerate(t *testing.T) {
	if _, ok := spearman([]float64{1, 1, 1}, []float64{1, 2, 3}); ok {
		t.Fatal("constant input must be reported degenerate")
	}
}

func TestRanksWithTies(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", got, want)
		}
	}
}

func intensitySet(rel []float64) *template.ExpectationSet {
	set := &template.ExpectationSet{Modality: feature.ModalityAtomicEmission, Source: "lines@1.0"}
	for i, r := range rel {
		set.Expected = append(set.Expected, template.ExpectedFeature{
			Center: float64(1000 + 100*i), LibrarySigma: 1,
			RelIntensity: r, HasIntensity: true,
		})
	}
	return set
}

func intensityObs(values []float64, reliable bool) []feature.Feature {
	out := make([]feature.Feature, len(values))
	for i, v := range values {
		out[i] = feature.Feature{
			ID: string(rune('a' + i)), Modality: feature.ModalityAtomicEmission,
			Center: float64(1000 + 100*i), CenterSigma: 1,
			Intensity: v, IntensitySigma: 0.05 * v, IntensityUnit: "counts",
			IntensityReliable: reliable,
		}
	}
	return out
}

func identityMatches(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestIntensitySpearmanComponent(t *testing.T) {
	set := intensitySet([]float64{1, 2, 3, 4})
	obs := intensityObs([]float64{10, 20, 30, 40}, true)
	cfg := sparseConfig()

	v, used, reason := intensityComponent(obs, set, identityMatches(4), cfg)
	if !used {
		t.Fatalf("component must be used, reason %q", reason)
	}
	if v != 1 {
		t.Fatalf("s_int = %v, want 1 for perfect rank agreement", v)
	}
}

func TestIntensityOmittedWhenUnreliable(t *testing.T) {
	set := intensitySet([]float64{1, 2, 3, 4})
	obs := intensityObs([]float64{10, 20, 30, 40}, false)

	_, used, _ := intensityComponent(obs, set, identityMatches(4), sparseConfig())
	if used {
		t.Fatal("unreliable intensities must omit the component")
	}
}

func TestIntensityOmittedWhenTooFewPairs(t *testing.T) {
	set := intensitySet([]float64{1, 2})
	obs := intensityObs([]float64{10, 20}, true)

	_, used, _ := intensityComponent(obs, set, identityMatches(2), sparseConfig())
	if used {
		t.Fatal("two pairs are below the rank-correlation minimum")
	}
}

func TestIntensityOmittedWhenZeroWeight(t *testing.T) {
	cfg := sparseConfig()
	cfg.Weights = rubric.ComponentWeights{Position: 0.5, Coverage: 0.3, Penalty: 0.2}

	set := intensitySet([]float64{1, 2, 3, 4})
	obs := intensityObs([]float64{10, 20, 30, 40}, true)

	_, used, _ := intensityComponent(obs, set, identityMatches(4), cfg)
	if used {
		t.Fatal("zero-weight component must be omitted")
	}
}

func TestIntensityChiSquare(t *testing.T) {
	cfg := sparseConfig()
	cfg.Intensity = rubric.IntensityChiSquare

	set := intensitySet([]float64{1, 2, 3, 4})
	// Observed proportional to expected: chi-square of zero, likelihood 1.
	obs := intensityObs([]float64{10, 20, 30, 40}, true)

	v, used, reason := intensityComponent(obs, set, identityMatches(4), cfg)
	if !used {
		t.Fatalf("component must be used, reason %q", reason)
	}
	if math.Abs(v-1) > 1e-9 {
		t.Fatalf("s_int = %v, want 1 for exact relative intensities", v)
	}
}

func TestIntensityChiSquareMissingSigmas(t *testing.T) {
	cfg := sparseConfig()
	cfg.Intensity = rubric.IntensityChiSquare

	set := intensitySet([]float64{1, 2, 3, 4})
	obs := intensityObs([]float64{10, 20, 30, 40}, true)
	for i := range obs {
		obs[i].IntensitySigma = 0
	}

	_, used, reason := intensityComponent(obs, set, identityMatches(4), cfg)
	if used {
		t.Fatal("missing sigmas must omit the component")
	}
	if reason == "" {
		t.Fatal("omission from missing sigmas must carry a degraded reason")
	}
}

func TestIntensityChiSquareRobustToOutlier(t *testing.T) {
	cfg := sparseConfig()
	cfg.Intensity = rubric.IntensityChiSquare

	set := intensitySet([]float64{1, 2, 3, 4, 5})
	// One grossly wrong line among four exact ones; the median keeps the
	// component from collapsing to zero.
	obs := intensityObs([]float64{10, 20, 30, 40, 500}, true)

	v, used, _ := intensityComponent(obs, set, identityMatches(5), cfg)
	if !used {
		t.Fatal("component must be used")
	}
	if v <= 0.01 {
		t.Fatalf("s_int = %v, want robust (non-collapsed) value", v)
	}
}
