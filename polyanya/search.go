// Package polyanya implements the shortest-path search over a visibility
// graph of triangle-edge portals: a priority-queue search
// whose nodes track a root point, the portal being crossed, the triangle
// already traversed (for step pruning) and a g+h lower bound, followed by a
// funnel pass that turns the winning portal sequence into a taut polyline.
//
// The search keeps Polyanya's node shape (portal crossed, triangle already
// traversed for step pruning, g+h lower bound, step/open-set safeguards,
// best-node-seen fallback) but orders nodes by portal-midpoint distance
// rather than propagating per-edge visibility intervals through the open
// list, then recovers tautness with a classical funnel pass (funnel.go)
// over the winning portal corridor.
package polyanya

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/geomutil"
	"github.com/digitalextinction/movementcore/navmesh"
	"github.com/digitalextinction/movementcore/visgraph"
)

// Properties constrains how close the returned path's endpoint must land to
// the originally requested target.
type Properties struct {
	MinDistance float64
	MaxDistance float64
}

// Path is an ordered polyline from source to target (or to the closest
// feasible point within Properties).
type Path struct {
	Waypoints []r2.Point
}

// Length returns the polyline length of p.
func (p Path) Length() float64 {
	return geomutil.PolylineLength(p.Waypoints)
}

// Budgets bounds the search so a graph bug (e.g. a cycle that should not
// exist) cannot silently hang a tick. Exceeding a budget panics: it is a
// programmer error, not a recoverable query failure.
type Budgets struct {
	MaxSearchSteps int
	MaxOpenSetSize int
}

type searchNode struct {
	edge    visgraph.NodeID
	through int // triangle id already traversed to reach this node
	g       float64
	f       float64
	parent  *searchNode
}

type openHeap []*searchNode

func (h openHeap) Len() int           { return len(h) }
func (h openHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)        { *h = append(*h, x.(*searchNode)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type dominanceKey struct {
	edge    visgraph.NodeID
	through int
}

// Search finds a path from source to target over mesh/graph subject to
// props. It returns (path, true) on success. When the open set drains
// without reaching the target, the best node seen is retained so a
// best-effort path toward it can still be offered, subject to the same
// distance-band check as a real result.
func Search(mesh *navmesh.Mesh, graph *visgraph.Graph, source, target r2.Point, props Properties, budgets Budgets) (Path, bool) {
	if source == target {
		return Path{Waypoints: []r2.Point{source}}, true
	}

	sourceTri, ok := mesh.TriangleContaining(source)
	if !ok {
		return Path{}, false
	}
	targetTri, ok := mesh.TriangleContaining(target)
	if !ok {
		return Path{}, false
	}
	if sourceTri == targetTri {
		return trimToProps(Path{Waypoints: []r2.Point{source, target}}, target, props)
	}

	open := &openHeap{}
	heap.Init(open)
	best := make(map[dominanceKey]float64)

	for _, nodeID := range graph.NodesOf(sourceTri) {
		node := graph.Nodes[nodeID]
		g := source.Sub(node.Midpoint).Norm()
		heap.Push(open, &searchNode{edge: nodeID, through: sourceTri, g: g, f: g + heuristic(node.Midpoint, target)})
	}

	var bestNode *searchNode
	bestF := math.Inf(1)
	steps := 0

	for open.Len() > 0 {
		steps++
		if steps > budgets.MaxSearchSteps {
			panic(fmt.Sprintf("polyanya: exceeded MaxSearchSteps (%d)", budgets.MaxSearchSteps))
		}
		if open.Len() > budgets.MaxOpenSetSize {
			panic(fmt.Sprintf("polyanya: open set exceeded MaxOpenSetSize (%d)", budgets.MaxOpenSetSize))
		}

		cur := heap.Pop(open).(*searchNode)
		if cur.f < bestF {
			bestF = cur.f
			bestNode = cur
		}

		key := dominanceKey{edge: cur.edge, through: cur.through}
		if prevG, seen := best[key]; seen && prevG <= cur.g {
			continue // dominated: an equal-or-cheaper path already reached this edge/side
		}
		best[key] = cur.g

		node := graph.Nodes[cur.edge]
		farTri := node.OtherTriangle(cur.through)
		if farTri == targetTri {
			return trimToProps(reconstruct(graph, cur, source, target), target, props)
		}

		for _, nb := range graph.NodesOf(farTri) {
			if nb == cur.edge {
				continue // skip stepping back across the portal just crossed
			}
			nbNode := graph.Nodes[nb]
			g := cur.g + node.Midpoint.Sub(nbNode.Midpoint).Norm()
			heap.Push(open, &searchNode{edge: nb, through: farTri, g: g, f: g + heuristic(nbNode.Midpoint, target), parent: cur})
		}
	}

	if bestNode == nil {
		return Path{}, false
	}
	// The open set drained without touching the target's triangle: the
	// target is unreachable from here. Funnel to the most promising portal
	// seen instead; the distance-band check in trimToProps then decides
	// whether that best-effort endpoint is acceptable to the caller.
	approx := reconstruct(graph, bestNode, source, graph.Nodes[bestNode.edge].Midpoint)
	return trimToProps(approx, target, props)
}

func heuristic(from, target r2.Point) float64 {
	return from.Sub(target).Norm()
}

// reconstruct walks the parent chain to recover the ordered portal
// corridor from source to target, then funnels it into the shortest taut
// polyline that stays within that corridor. Each search node's `through`
// field names the triangle it departs from to cross `edge`, which is
// exactly what visgraph.Node.LeavingOrientation needs to pick a left/right
// side consistent across the whole chain.
func reconstruct(graph *visgraph.Graph, n *searchNode, source, target r2.Point) Path {
	var chain []*searchNode
	for cur := n; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i] // chain was target-to-source; reverse to source-to-target
	}

	portals := make([]funnelPortal, 0, len(chain))
	for _, sn := range chain {
		left, right, ok := graph.Nodes[sn.edge].LeavingOrientation(sn.through)
		if !ok {
			continue
		}
		portals = append(portals, funnelPortal{Left: left, Right: right})
	}
	waypoints := runFunnel(source, target, portals)
	return Path{Waypoints: waypoints}
}
