package score

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/numeric"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
)

// minIntensityPairs is the smallest matched-pair count for which a rank
// correlation is meaningful; below it the intensity component is omitted.
const minIntensityPairs = 3

// pair is one candidate expected-observed assignment considered by the
// greedy matcher.
type pair struct {
	expIdx int
	obsIdx int
	dist   float64
	sigma  float64
}

// Sparse scores one (candidate, modality) pair in sparse mode: greedy
// one-to-one nearest assignment of expected centers to observed features,
// blended into S = w_pos·s_pos + w_cov·s_cov + w_pen·s_pen + w_int·s_int.
//
// Assignment order is a total order over candidate pairs: ascending
// distance, then descending combined sigma (a wider uncertainty window wins
// ties, favoring conservative matches), then expected index, then observed
// feature id. The order is independent of input permutation, so repeated
// runs produce identical matches.
func Sparse(obs []feature.Feature, qc feature.QC, set *template.ExpectationSet, cfg rubric.Modality) Result {
	res := Result{
		Modality: set.Modality,
		Expected: len(set.Expected),
		Observed: len(obs),
	}

	if len(obs) == 0 {
		// No features for this modality: the modality contributes zero but
		// never fails the candidate.
		res.FalseNegatives = len(set.Expected)
		for _, ef := range set.Expected {
			res.Unmatched = append(res.Unmatched, Unmatched{
				Modality: set.Modality,
				Expected: ef.Center,
				Sigma:    combinedSigma(0, qc.Resolution, ef.LibrarySigma),
			})
		}
		return res
	}

	// Enumerate all assignments within the 2-sigma acceptance window.
	pairs := make([]pair, 0, len(set.Expected))
	for i, ef := range set.Expected {
		for j, f := range obs {
			sigma := combinedSigma(f.CenterSigma, qc.Resolution, ef.LibrarySigma)
			dist := math.Abs(f.Center - ef.Center)
			if sigma <= 0 || dist > 2*sigma {
				continue
			}
			pairs = append(pairs, pair{expIdx: i, obsIdx: j, dist: dist, sigma: sigma})
		}
	}

	sort.Slice(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		if pa.dist != pb.dist {
			return pa.dist < pb.dist
		}
		if pa.sigma != pb.sigma {
			return pa.sigma > pb.sigma
		}
		if pa.expIdx != pb.expIdx {
			return pa.expIdx < pb.expIdx
		}
		return obs[pa.obsIdx].ID < obs[pb.obsIdx].ID
	})

	expClaimed := make([]bool, len(set.Expected))
	obsClaimed := make([]bool, len(obs))
	matchedBy := make([]int, len(set.Expected))
	for i := range matchedBy {
		matchedBy[i] = -1
	}

	var logLSum float64
	for _, p := range pairs {
		if expClaimed[p.expIdx] || obsClaimed[p.obsIdx] {
			continue
		}
		expClaimed[p.expIdx] = true
		obsClaimed[p.obsIdx] = true
		matchedBy[p.expIdx] = p.obsIdx

		z := p.dist / p.sigma
		logL := -0.5 * z * z
		logLSum += logL

		res.Matches = append(res.Matches, Match{
			FeatureID:  obs[p.obsIdx].ID,
			Expected:   set.Expected[p.expIdx].Center,
			Observed:   obs[p.obsIdx].Center,
			Sigma:      p.sigma,
			Likelihood: math.Exp(logL),
		})
	}

	// Book-keeping for unmatched expectations: false negatives, plus the
	// best likelihood any observed feature achieved, which drives Tier C
	// follow-up recommendations.
	for i, ef := range set.Expected {
		if matchedBy[i] >= 0 {
			continue
		}
		res.FalseNegatives++
		res.Unmatched = append(res.Unmatched, bestUnmatched(set.Modality, ef, obs, qc))
	}
	// Observed features no expectation claimed are candidate-relative false
	// positives.
	for _, claimed := range obsClaimed {
		if !claimed {
			res.FalsePositives++
		}
	}

	matched := len(res.Matches)
	if matched > 0 {
		// Geometric mean of position likelihoods: the exp link maps the
		// mean matched log-likelihood into (0,1].
		res.Components.Position = numeric.Clamp(math.Exp(logLSum/float64(matched)), 0, 1)
	}
	res.Components.Coverage = numeric.Clamp(float64(matched)/math.Max(1, float64(len(set.Expected))), 0, 1)
	res.Components.Penalty = numeric.Clamp(
		1-cfg.Alpha*float64(res.FalseNegatives)/math.Max(1, float64(len(set.Expected)))-
			cfg.Beta*float64(res.FalsePositives)/math.Max(1, float64(len(obs))),
		0, 1)

	intensity, used, reason := intensityComponent(obs, set, matchedBy, cfg)
	res.Components.Intensity = intensity
	res.IntensityUsed = used
	if reason != "" {
		res.Degraded = true
		res.Reason = reason
	}

	res.Value = blend(res.Components, cfg.Weights, used)
	return res
}

// blend combines the components under the rubric weights. When the
// intensity component is omitted its weight is redistributed over the
// remaining components, keeping the score's reachable range at [0,1].
func blend(c Components, w rubric.ComponentWeights, intensityUsed bool) float64 {
	if intensityUsed || w.Intensity == 0 {
		return numeric.Clamp(
			w.Position*c.Position+w.Coverage*c.Coverage+w.Penalty*c.Penalty+w.Intensity*c.Intensity,
			0, 1)
	}

	rest := w.Position + w.Coverage + w.Penalty
	if rest <= 0 {
		return 0
	}
	return numeric.Clamp(
		(w.Position*c.Position+w.Coverage*c.Coverage+w.Penalty*c.Penalty)/rest,
		0, 1)
}

// combinedSigma folds the observed center uncertainty, the local instrument
// resolution, and the library uncertainty into one sigma.
func combinedSigma(centerSigma, resolution, librarySigma float64) float64 {
	return math.Sqrt(centerSigma*centerSigma + resolution*resolution + librarySigma*librarySigma)
}

func bestUnmatched(m feature.Modality, ef template.ExpectedFeature, obs []feature.Feature, qc feature.QC) Unmatched {
	u := Unmatched{
		Modality: m,
		Expected: ef.Center,
		Sigma:    combinedSigma(0, qc.Resolution, ef.LibrarySigma),
	}
	for _, f := range obs {
		sigma := combinedSigma(f.CenterSigma, qc.Resolution, ef.LibrarySigma)
		if sigma <= 0 {
			continue
		}
		z := (f.Center - ef.Center) / sigma
		if l := math.Exp(-0.5 * z * z); l > u.BestLikelihood {
			u.BestLikelihood = l
			u.Sigma = sigma
		}
	}
	return u
}
