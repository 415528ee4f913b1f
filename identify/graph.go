package identify

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-specid/evidence"
	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/fuse"
)

// buildGraph assembles the evidence graph for one fused hypothesis: one
// hypothesis node, one feature node per claimed feature with a supports
// edge weighted by its position likelihood, context nodes for environmental
// parameters that conditioned the prior, and degradation flags on the
// hypothesis node. The graph is sealed before it is attached, so it is
// read-only from the moment reporting can see it.
func buildGraph(in Input, h *fuse.Hypothesis) *evidence.Graph {
	g := evidence.New(in.Session, in.Dataset, h.Label)

	hypID := "hyp:" + h.Label
	hypNode := evidence.Node{
		ID:    hypID,
		Kind:  evidence.NodeHypothesis,
		Label: h.Label,
		Value: h.G,
	}

	mods := make([]feature.Modality, 0, len(h.Scores))
	for m := range h.Scores {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })

	for _, m := range mods {
		res := h.Scores[m]
		if res.Degraded {
			hypNode.Flags = append(hypNode.Flags, fmt.Sprintf("%s: degraded: %s", m, res.Reason))
		}
	}

	// AddNode and AddEdge only fail on sealed graphs or unknown node ids;
	// neither can happen while this function owns the graph.
	_, _ = g.AddNode(hypNode)

	for _, m := range mods {
		for _, match := range h.Scores[m].Matches {
			featID := "feat:" + match.FeatureID
			_, _ = g.AddNode(evidence.Node{
				ID:    featID,
				Kind:  evidence.NodeFeature,
				Label: match.FeatureID,
				Value: match.Observed,
			})
			_ = g.AddEdge(featID, hypID, evidence.RelSupports, match.Likelihood)
		}
	}

	if in.Gates.HasTemp {
		_, _ = g.AddNode(evidence.Node{
			ID:    "param:temperature",
			Kind:  evidence.NodeParameter,
			Label: "temperature",
			Value: in.Gates.Temperature,
		})
		_ = g.AddEdge("param:temperature", hypID, evidence.RelConditions, 1)
	}
	if in.Gates.Phase != "" {
		_, _ = g.AddNode(evidence.Node{
			ID:    "param:phase",
			Kind:  evidence.NodeParameter,
			Label: string(in.Gates.Phase),
			Value: 1,
		})
		_ = g.AddEdge("param:phase", hypID, evidence.RelConditions, 1)
	}

	g.Seal()
	return g
}
