// Package layout places a provenance graph on a 2-D plane. Nodes are grouped
// into rows by breadth-first distance from the root and each row is centered
// on the vertical axis. The computation is pure: the same graph always yields
// the same coordinates.
package layout

import "github.com/JaimeStill/lineage/internal/forensics"

const (
	DefaultNodeWidth = 180.0
	DefaultRowHeight = 120.0
)

// Options sets the spacing between adjacent nodes in a row and between rows.
// Zero values fall back to the defaults.
type Options struct {
	NodeWidth float64 `toml:"node_width"`
	RowHeight float64 `toml:"row_height"`
}

// Position is a node's placement.
type Position struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Level int     `json:"level"`
}

// EdgeHint carries render hints for an edge. Primary marks derived_from lineage.
type EdgeHint struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
	Primary      bool   `json:"primary"`
}

// Result holds node positions in input order and edge hints in input order.
type Result struct {
	Nodes []Position `json:"nodes"`
	Edges []EdgeHint `json:"edges"`
}

// Position returns the placement for id.
func (r Result) Position(id string) (Position, bool) {
	for _, p := range r.Nodes {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

func (o Options) withDefaults() Options {
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	return o
}

// Compute lays out g. It never fails: an empty graph yields an empty result,
// a root absent from the node list still seeds the traversal so nodes reached
// through its edges are leveled from 1, and cycles terminate because a node is leveled on first discovery only.
//
// Nodes the traversal never reaches are placed on level 0 beside the root.
// Duplicate node ids are placed once, at their first occurrence.
func Compute(g forensics.Graph, opts Options) Result {
	opts = opts.withDefaults()
	levels := Levels(g)

	order := make([]string, 0, len(g.Nodes))
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		order = append(order, n.ID)
	}

	rows := make(map[int][]string)
	for _, id := range order {
		rows[levels[id]] = append(rows[levels[id]], id)
	}

	index := make(map[string]int, len(order))
	for _, ids := range rows {
		for i, id := range ids {
			index[id] = i
		}
	}

	result := Result{
		Nodes: make([]Position, 0, len(order)),
		Edges: make([]EdgeHint, 0, len(g.Edges)),
	}

	for _, id := range order {
		level := levels[id]
		k := len(rows[level])
		i := index[id]
		result.Nodes = append(result.Nodes, Position{
			ID:    id,
			X:     (float64(i) - float64(k-1)/2) * opts.NodeWidth,
			Y:     float64(level) * opts.RowHeight,
			Level: level,
		})
	}

	for _, e := range g.Edges {
		result.Edges = append(result.Edges, EdgeHint{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
			Primary:      e.Relationship == forensics.RelationshipDerivedFrom,
		})
	}

	return result
}

// Levels returns the breadth-first distance from the root for every node in
// g, following edges forward. Unreached nodes map to 0.
func Levels(g forensics.Graph) map[string]int {
	adjacency := make(map[string][]string, len(g.Edges))
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	levels := map[string]int{g.RootNodeID: 0}
	queue := []string{g.RootNodeID}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range adjacency[u] {
			if _, ok := levels[v]; ok {
				continue
			}
			levels[v] = levels[u] + 1
			queue = append(queue, v)
		}
	}

	for _, n := range g.Nodes {
		if _, ok := levels[n.ID]; !ok {
			levels[n.ID] = 0
		}
	}

	return levels
}
