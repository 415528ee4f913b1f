// Package fuse combines per-modality scores and priors into ranked,
// tier-classified hypotheses.
//
// The fusion rule is a log-linear opinion pool: each modality contributes
// its score through the rubric's log-odds link, scaled by the modality's
// fusion weight and instrument-quality multiplier, on top of the supplied
// log prior and minus a parsimony penalty for multi-component hypotheses.
// Ranking uses the raw log posterior; the logistic squash G is reported for
// humans but never ranked on, since it saturates near 0 and 1.
package fuse

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-specid/candidate"
	"github.com/cwbudde/algo-specid/evidence"
	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/numeric"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/score"
)

// Tier is the discrete confidence classification of a run's top hypothesis.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Alternative references a competing hypothesis and its log-posterior gap to
// the owner.
type Alternative struct {
	Label string  `json:"label" msgpack:"label"`
	Gap   float64 `json:"gap" msgpack:"gap"`
}

// FollowUp recommends the next measurement that would most improve
// discrimination: the expected-but-unmatched feature with the lowest
// achieved match likelihood among the top two candidates.
type FollowUp struct {
	Modality   feature.Modality `json:"modality" msgpack:"modality"`
	Center     float64          `json:"center" msgpack:"center"`
	Likelihood float64          `json:"likelihood" msgpack:"likelihood"`
}

// Hypothesis is one fully scored candidate. Never mutated after the run
// that created it completes; a re-run creates fresh Hypothesis values.
type Hypothesis struct {
	Label      string   `json:"label" msgpack:"label"`
	Components []string `json:"components,omitempty" msgpack:"components"`

	LogPrior     float64 `json:"log_prior" msgpack:"log_prior"`
	LogPosterior float64 `json:"log_posterior" msgpack:"log_posterior"`

	// G is the human-facing logistic squash of the log posterior, in (0,1).
	G float64 `json:"g" msgpack:"g"`

	Scores  map[feature.Modality]score.Result `json:"scores" msgpack:"scores"`
	Weights map[feature.Modality]float64      `json:"weights" msgpack:"weights"`

	Tier Tier `json:"tier,omitempty" msgpack:"tier"`

	// SingleModalityException records that Tier A was evaluated under the
	// stricter single-modality diagnostic rule.
	SingleModalityException bool `json:"single_modality_exception,omitempty" msgpack:"single_modality_exception"`

	Alternatives []Alternative     `json:"alternatives,omitempty" msgpack:"alternatives"`
	FollowUps    []FollowUp        `json:"followups,omitempty" msgpack:"followups"`
	Warnings     []feature.Warning `json:"warnings,omitempty" msgpack:"warnings"`

	Graph *evidence.Graph `json:"graph,omitempty" msgpack:"graph"`
}

// Fuse computes the posterior for one candidate from its per-modality score
// results. Modalities are folded in ascending modality order, so the
// floating-point reduction is independent of scoring completion order.
func Fuse(entry candidate.Entry, results []score.Result, r *rubric.Rubric) *Hypothesis {
	h := &Hypothesis{
		Label:      entry.Label,
		Components: entry.Components,
		LogPrior:   entry.LogPrior,
		Scores:     make(map[feature.Modality]score.Result, len(results)),
		Weights:    make(map[feature.Modality]float64, len(results)),
	}

	sorted := make([]score.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Modality < sorted[j].Modality })

	logPost := entry.LogPrior
	for _, res := range sorted {
		mc, ok := r.ModalityConfig(res.Modality)
		if !ok {
			continue
		}
		w := mc.Lambda * res.Quality
		h.Scores[res.Modality] = res
		h.Weights[res.Modality] = w
		logPost += w * numeric.LogLink(res.Value, r.Epsilon)
	}
	logPost -= parsimony(entry, r)

	h.LogPosterior = logPost
	h.G = numeric.Logistic(logPost)
	return h
}

// parsimony is the L1-style complexity penalty: proportional to the number
// of components beyond the first, so single-component hypotheses carry none.
func parsimony(entry candidate.Entry, r *rubric.Rubric) float64 {
	extra := len(entry.Components) - 1
	if extra < 0 {
		extra = 0
	}
	return r.Parsimony * float64(extra)
}

// Rank orders hypotheses by descending raw log posterior. Exact ties are
// broken by, in order: more corroborating modalities (score at or above
// s_min), higher minimum single-modality score, then lexical label order.
// After ranking, each hypothesis carries its alternatives with log-posterior
// gaps.
func Rank(hyps []*Hypothesis, r *rubric.Rubric) {
	sort.Slice(hyps, func(i, j int) bool {
		a, b := hyps[i], hyps[j]
		if a.LogPosterior != b.LogPosterior {
			return a.LogPosterior > b.LogPosterior
		}
		ca, cb := corroborating(a, r.Tiers.SMin), corroborating(b, r.Tiers.SMin)
		if ca != cb {
			return ca > cb
		}
		ma, mb := minModalityScore(a), minModalityScore(b)
		if ma != mb {
			return ma > mb
		}
		return a.Label < b.Label
	})

	for i, h := range hyps {
		h.Alternatives = h.Alternatives[:0]
		for j, other := range hyps {
			if i == j {
				continue
			}
			h.Alternatives = append(h.Alternatives, Alternative{
				Label: other.Label,
				Gap:   h.LogPosterior - other.LogPosterior,
			})
		}
	}
}

func corroborating(h *Hypothesis, sMin float64) int {
	n := 0
	for _, res := range h.Scores {
		if res.Value >= sMin {
			n++
		}
	}
	return n
}

func minModalityScore(h *Hypothesis) float64 {
	min := math.Inf(1)
	for _, res := range h.Scores {
		if res.Value < min {
			min = res.Value
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// Classify assigns the confidence tier to the top hypothesis of a ranked
// list and, for Tier C, fills in the recommended follow-up measurement.
// The classification is a pure function of (G(M1), gap, per-modality score
// set); it reads nothing else.
func Classify(ranked []*Hypothesis, r *rubric.Rubric) {
	if len(ranked) == 0 {
		return
	}
	top := ranked[0]

	// Gap to the runner-up in squashed space. A run with a single candidate
	// has no competitor; the gap is taken as maximal.
	gap := 1.0
	if len(ranked) > 1 {
		gap = top.G - ranked[1].G
	}

	tiers := r.Tiers
	scored := len(top.Scores)

	strong := 0
	for _, res := range top.Scores {
		if res.Value >= tiers.SMin {
			strong++
		}
	}

	tierA := top.G >= tiers.ThetaA && gap >= tiers.DeltaA
	if tierA {
		if scored == 1 {
			// Single-modality exception: Tier A needs the stricter
			// diagnostic matched-feature count, recorded explicitly.
			top.SingleModalityException = true
			tierA = singleModalityMatches(top) >= tiers.SingleModalityMinMatches &&
				strong >= 1
		} else {
			tierA = strong >= 2
		}
	}
	if tierA {
		top.Tier = TierA
		return
	}

	if top.G >= tiers.ThetaB {
		if gap >= tiers.DeltaB || (hasStrongModality(top, tiers.SStrong) && !hasContradiction(top, tiers.SMin)) {
			top.Tier = TierB
			return
		}
	}

	top.Tier = TierC
	top.FollowUps = recommendFollowUp(ranked)
}

func singleModalityMatches(h *Hypothesis) int {
	for _, res := range h.Scores {
		return len(res.Matches)
	}
	return 0
}

func hasStrongModality(h *Hypothesis, sStrong float64) bool {
	for _, res := range h.Scores {
		if res.Value >= sStrong {
			return true
		}
	}
	return false
}

// hasContradiction reports whether any modality scores below half the
// minimum-corroboration threshold.
func hasContradiction(h *Hypothesis, sMin float64) bool {
	for _, res := range h.Scores {
		if res.Value < sMin/2 {
			return true
		}
	}
	return false
}

// recommendFollowUp picks the single most informative next measurement: the
// expected-but-unmatched feature with the lowest achieved match likelihood
// across the top two candidates. Ties resolve by modality then center so
// the recommendation is deterministic.
func recommendFollowUp(ranked []*Hypothesis) []FollowUp {
	limit := len(ranked)
	if limit > 2 {
		limit = 2
	}

	var best *FollowUp
	for _, h := range ranked[:limit] {
		mods := make([]feature.Modality, 0, len(h.Scores))
		for m := range h.Scores {
			mods = append(mods, m)
		}
		sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })

		for _, m := range mods {
			for _, u := range h.Scores[m].Unmatched {
				cand := FollowUp{Modality: u.Modality, Center: u.Expected, Likelihood: u.BestLikelihood}
				if best == nil || less(cand, *best) {
					c := cand
					best = &c
				}
			}
		}
	}

	if best == nil {
		return nil
	}
	return []FollowUp{*best}
}

func less(a, b FollowUp) bool {
	if a.Likelihood != b.Likelihood {
		return a.Likelihood < b.Likelihood
	}
	if a.Modality != b.Modality {
		return a.Modality < b.Modality
	}
	return a.Center < b.Center
}
