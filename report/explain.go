package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/fuse"
	"github.com/cwbudde/algo-specid/score"
)

// Row is one expected reference feature and how it fared against the
// observation: matched rows carry the observed position and the accepted
// likelihood, unmatched rows carry the best likelihood any observation
// achieved.
type Row struct {
	FeatureID  string  `json:"feature_id,omitempty"`
	Expected   float64 `json:"expected"`
	Observed   float64 `json:"observed,omitempty"`
	Sigma      float64 `json:"sigma"`
	Likelihood float64 `json:"likelihood"`
	Matched    bool    `json:"matched"`
}

// ModalityBreakdown explains one modality's contribution to a hypothesis.
type ModalityBreakdown struct {
	Modality   feature.Modality `json:"modality"`
	Score      float64          `json:"score"`
	Components score.Components `json:"components"`
	Quality    float64          `json:"quality"`
	Weight     float64          `json:"weight"`
	Rows       []Row            `json:"rows,omitempty"`
	Degraded   bool             `json:"degraded,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Explanation is the per-feature decomposition of one hypothesis, the
// answer to "why did this candidate land where it did".
type Explanation struct {
	Label        string              `json:"label"`
	Tier         fuse.Tier           `json:"tier,omitempty"`
	G            float64             `json:"g"`
	LogPosterior float64             `json:"log_posterior"`
	Modalities   []ModalityBreakdown `json:"modalities"`
	FollowUps    []fuse.FollowUp     `json:"followups,omitempty"`
}

// Explain decomposes a hypothesis into per-modality, per-feature rows in
// deterministic modality order.
func Explain(h *fuse.Hypothesis) *Explanation {
	e := &Explanation{
		Label:        h.Label,
		Tier:         h.Tier,
		G:            h.G,
		LogPosterior: h.LogPosterior,
		FollowUps:    h.FollowUps,
	}

	mods := make([]feature.Modality, 0, len(h.Scores))
	for m := range h.Scores {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })

	for _, m := range mods {
		r := h.Scores[m]
		b := ModalityBreakdown{
			Modality:   m,
			Score:      r.Value,
			Components: r.Components,
			Quality:    r.Quality,
			Weight:     h.Weights[m],
			Degraded:   r.Degraded,
			Reason:     r.Reason,
		}
		for _, match := range r.Matches {
			b.Rows = append(b.Rows, Row{
				FeatureID:  match.FeatureID,
				Expected:   match.Expected,
				Observed:   match.Observed,
				Sigma:      match.Sigma,
				Likelihood: match.Likelihood,
				Matched:    true,
			})
		}
		for _, u := range r.Unmatched {
			b.Rows = append(b.Rows, Row{
				Expected:   u.Expected,
				Sigma:      u.Sigma,
				Likelihood: u.BestLikelihood,
			})
		}
		e.Modalities = append(e.Modalities, b)
	}
	return e
}

// Render writes the explanation as an aligned text table.
func (e *Explanation) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "candidate\t%s\n", e.Label)
	if e.Tier != "" {
		fmt.Fprintf(tw, "tier\t%s\n", e.Tier)
	}
	fmt.Fprintf(tw, "confidence\t%.4f\n", e.G)
	fmt.Fprintf(tw, "log posterior\t%.4f\n", e.LogPosterior)

	for _, b := range e.Modalities {
		fmt.Fprintf(tw, "\n[%s]\tS=%.4f\tq=%.3f\tweight=%.3f\n",
			b.Modality, b.Score, b.Quality, b.Weight)
		fmt.Fprintf(tw, "\tpos=%.3f\tcov=%.3f\tpen=%.3f\tint=%.3f\n",
			b.Components.Position, b.Components.Coverage,
			b.Components.Penalty, b.Components.Intensity)
		if b.Degraded {
			fmt.Fprintf(tw, "\tdegraded: %s\n", b.Reason)
		}
		for _, r := range b.Rows {
			if r.Matched {
				fmt.Fprintf(tw, "\t%.2f\t-> %s @ %.2f\tL=%.3f\n",
					r.Expected, r.FeatureID, r.Observed, r.Likelihood)
			} else {
				fmt.Fprintf(tw, "\t%.2f\tunmatched\tbest L=%.3f\n",
					r.Expected, r.Likelihood)
			}
		}
	}

	for _, f := range e.FollowUps {
		fmt.Fprintf(tw, "\nfollow-up\t%s near %.2f\tbest L=%.3f\n", f.Modality, f.Center, f.Likelihood)
	}
	return tw.Flush()
}
