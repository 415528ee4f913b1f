// Package evidence builds the inspectable justification graph attached to
// each scored hypothesis: feature nodes, one hypothesis node, optional
// parameter/context nodes, and weighted edges tagged with their relation.
//
// Graphs are arenas: nodes live in a flat slice addressed by index, edges in
// a flat list referencing node indices. There are no pointers between nodes,
// so a graph serializes directly and is trivially read-only after
// construction.
package evidence

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by graph construction.
var (
	ErrSealed      = errors.New("evidence: graph is sealed")
	ErrUnknownNode = errors.New("evidence: unknown node id")
)

// NodeKind classifies graph nodes.
type NodeKind string

const (
	NodeFeature    NodeKind = "feature"
	NodeHypothesis NodeKind = "hypothesis"
	NodeParameter  NodeKind = "parameter"
)

// Relation tags an edge.
type Relation string

const (
	// RelSupports links a feature to the hypothesis it corroborates; the
	// edge weight is the feature's position-likelihood contribution.
	RelSupports Relation = "supports"

	// RelConditions links a context parameter (e.g. estimated temperature)
	// to the hypothesis it conditioned.
	RelConditions Relation = "conditions"
)

// Node is one graph vertex. ID is unique within the graph; Label carries
// the human-readable description (feature id, candidate label, parameter
// name). Flags records degradations affecting this node.
type Node struct {
	ID    string   `json:"id" msgpack:"id"`
	Kind  NodeKind `json:"kind" msgpack:"kind"`
	Label string   `json:"label" msgpack:"label"`
	Value float64  `json:"value,omitempty" msgpack:"value"`
	Flags []string `json:"flags,omitempty" msgpack:"flags"`
}

// Edge connects two nodes by arena index.
type Edge struct {
	From     int      `json:"from" msgpack:"from"`
	To       int      `json:"to" msgpack:"to"`
	Relation Relation `json:"relation" msgpack:"relation"`
	Weight   float64  `json:"weight" msgpack:"weight"`
}

// Graph is the evidence arena for one (session, dataset, hypothesis) tuple.
// Append-only while building; Seal freezes it.
type Graph struct {
	Session    string `json:"session,omitempty" msgpack:"session"`
	Dataset    string `json:"dataset,omitempty" msgpack:"dataset"`
	Hypothesis string `json:"hypothesis" msgpack:"hypothesis"`

	Nodes []Node `json:"nodes" msgpack:"nodes"`
	Edges []Edge `json:"edges" msgpack:"edges"`

	sealed bool
	index  map[string]int
}

// New creates an empty graph for the given identity tuple.
func New(session, dataset, hypothesis string) *Graph {
	return &Graph{
		Session:    session,
		Dataset:    dataset,
		Hypothesis: hypothesis,
		index:      make(map[string]int),
	}
}

// AddNode appends a node and returns its arena index. Adding an id twice
// returns the existing index unchanged.
func (g *Graph) AddNode(n Node) (int, error) {
	if g.sealed {
		return 0, ErrSealed
	}
	if i, ok := g.index[n.ID]; ok {
		return i, nil
	}

	g.Nodes = append(g.Nodes, n)
	i := len(g.Nodes) - 1
	g.index[n.ID] = i
	return i, nil
}

// AddEdge appends an edge between two existing nodes identified by id.
func (g *Graph) AddEdge(fromID, toID string, rel Relation, weight float64) error {
	if g.sealed {
		return ErrSealed
	}

	from, ok := g.index[fromID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, fromID)
	}
	to, ok := g.index[toID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, toID)
	}

	g.Edges = append(g.Edges, Edge{From: from, To: to, Relation: rel, Weight: weight})
	return nil
}

// Seal freezes the graph. Further mutation returns ErrSealed.
func (g *Graph) Seal() {
	g.sealed = true
}

// Sealed reports whether the graph has been sealed.
func (g *Graph) Sealed() bool {
	return g.sealed
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	if g.index != nil {
		if i, ok := g.index[id]; ok {
			return g.Nodes[i], true
		}
		return Node{}, false
	}

	// Graphs reloaded from a serialized document have no index; scan.
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Supports returns the supports-edges sorted by descending weight, then by
// source node id for determinism.
func (g *Graph) Supports() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Relation == RelSupports {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return g.Nodes[out[i].From].ID < g.Nodes[out[j].From].ID
	})
	return out
}

// Rebuild reconstructs the internal id index after deserialization, so a
// reloaded graph answers NodeByID in constant time and validates as a
// well-formed arena.
func (g *Graph) Rebuild() error {
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := g.index[n.ID]; dup {
			return fmt.Errorf("evidence: duplicate node id %q", n.ID)
		}
		g.index[n.ID] = i
	}
	for _, e := range g.Edges {
		if e.From < 0 || e.From >= len(g.Nodes) || e.To < 0 || e.To >= len(g.Nodes) {
			return fmt.Errorf("evidence: edge references node out of range (%d -> %d)", e.From, e.To)
		}
	}
	g.sealed = true
	return nil
}
