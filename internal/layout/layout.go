// Package layout positions scene nodes automatically.
//
// Nodes linked by execution edges form chains, laid out one chain per row
// from top to bottom. Everything else is a single, placed in one extra row
// below the chains. Data edges are ignored.
package layout

import "github.com/AaronLay10/FrameScene/internal/scene"

const (
	HorizontalGap = 100.0
	ChainGap      = 50.0
	TopMargin     = 50.0
	LeftMargin    = 100.0

	// FallbackSize is used for nodes that were never measured.
	FallbackSize = 200.0
)

// Arrange returns copies of nodes with new positions. The result has the
// same order as the input; only positions differ. Given the same nodes and
// edges in the same order the output is identical.
func Arrange(nodes []scene.Node, edges []scene.Edge) []scene.Node {
	chains, singles := Chains(nodes, edges)

	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
	}

	out := make([]scene.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}

	y := TopMargin
	for _, chain := range chains {
		x := LeftMargin
		rowHeight := 0.0
		for _, id := range chain {
			n := &out[byID[id]]
			w, h := size(*n)
			n.Position = scene.Position{X: x, Y: y}
			x += w + HorizontalGap
			if h > rowHeight {
				rowHeight = h
			}
		}
		y += rowHeight + ChainGap
	}

	x := LeftMargin
	for _, id := range singles {
		n := &out[byID[id]]
		w, _ := size(*n)
		n.Position = scene.Position{X: x, Y: y}
		x += w + HorizontalGap
	}
	return out
}

// ArrangeScene returns a copy of s with its nodes arranged.
func ArrangeScene(s *scene.Scene) *scene.Scene {
	out := s.Clone()
	if len(out.Nodes) > 0 {
		out.Nodes = Arrange(s.Nodes, s.Edges)
	}
	return out
}

// Chains splits nodes into execution chains of two or more nodes, in
// discovery order, and singles in input order. Traversal starts from nodes
// that are not the target of an execution edge, then from any node not yet
// visited so that pure cycles are covered too. Every node appears exactly
// once in the result.
func Chains(nodes []scene.Node, edges []scene.Edge) (chains [][]string, singles []string) {
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}

	next := make(map[string]string)
	isTarget := make(map[string]bool)
	linked := make(map[string]bool)
	for _, e := range edges {
		if !e.IsExecution() || e.Source == e.Target {
			continue
		}
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		if _, dup := next[e.Source]; !dup {
			next[e.Source] = e.Target
		}
		isTarget[e.Target] = true
		linked[e.Source] = true
		linked[e.Target] = true
	}

	visited := make(map[string]bool, len(nodes))
	walk := func(start string) []string {
		var chain []string
		for id, ok := start, true; ok && !visited[id]; id, ok = next[id] {
			visited[id] = true
			chain = append(chain, id)
		}
		return chain
	}

	inChain := make(map[string]bool)
	collect := func(chain []string) {
		if len(chain) < 2 {
			return
		}
		chains = append(chains, chain)
		for _, id := range chain {
			inChain[id] = true
		}
	}

	for _, n := range nodes {
		if linked[n.ID] && !isTarget[n.ID] && !visited[n.ID] {
			collect(walk(n.ID))
		}
	}
	for _, n := range nodes {
		if linked[n.ID] && !visited[n.ID] {
			collect(walk(n.ID))
		}
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if !inChain[n.ID] && !seen[n.ID] {
			singles = append(singles, n.ID)
		}
		seen[n.ID] = true
	}
	return chains, singles
}

func size(n scene.Node) (float64, float64) {
	w, h := FallbackSize, FallbackSize
	if n.Size != nil {
		if n.Size.W > 0 {
			w = n.Size.W
		}
		if n.Size.H > 0 {
			h = n.Size.H
		}
	}
	return w, h
}
