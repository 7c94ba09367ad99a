// Package visgraph builds the visibility graph searched by the Polyanya
// planner: one node per interior (two-triangle) mesh edge, with up to four
// neighbors being the other edges of its one or two adjacent triangles
// Boundary edges (shared by only one triangle, lying on the map or an
// inflated obstacle footprint) are not portals and are not represented as
// nodes; a path can never cross them.
package visgraph

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/digitalextinction/movementcore/navmesh"
)

// NodeID identifies a visibility-graph node (a portal edge).
type NodeID uint32

// Neighbor is one step from a node to an adjacent portal, together with the
// id of the triangle the step passes through so the search can avoid
// stepping back into the triangle it just crossed.
type Neighbor struct {
	Node     NodeID
	Triangle int
}

// Node is a portal: a mesh edge shared by exactly two triangles. RefA/RefB
// record the edge's endpoints in each adjacent triangle's own CCW winding
// order (RefA[i]->RefB[i] keeps that triangle's interior on the left), which
// is what lets the funnel algorithm pick a consistent left/right side when
// reconstructing a path that leaves Triangles[i] through this portal.
type Node struct {
	ID        NodeID
	A, B      r2.Point
	Midpoint  r2.Point
	Triangles [2]int
	RefA      [2]r2.Point
	RefB      [2]r2.Point
	Neighbors []Neighbor
}

// LeavingOrientation returns the (left, right) endpoints of this portal as
// seen when departing triangle fromTriangleID, or ok=false if fromTriangleID
// does not border this portal.
func (n Node) LeavingOrientation(fromTriangleID int) (left, right r2.Point, ok bool) {
	for i, t := range n.Triangles {
		if t == fromTriangleID {
			return n.RefA[i], n.RefB[i], true
		}
	}
	return r2.Point{}, r2.Point{}, false
}

// OtherTriangle returns the triangle on the far side of this portal from
// fromTriangleID.
func (n Node) OtherTriangle(fromTriangleID int) int {
	if n.Triangles[0] == fromTriangleID {
		return n.Triangles[1]
	}
	return n.Triangles[0]
}

// Graph is the built visibility graph plus a lookup from triangle id to the
// portal nodes bounding it (used to seed a Polyanya search from a point).
type Graph struct {
	Nodes           []Node
	trianglePortals map[int][]NodeID
	underlying      *simple.UndirectedGraph // exposed for connectivity checks in tests
}

// NodesOf returns the portal nodes bordering triangle id.
func (g *Graph) NodesOf(triangleID int) []NodeID {
	return g.trianglePortals[triangleID]
}

// Underlying exposes the gonum graph view of node adjacency (ignoring the
// per-step triangle id) so callers can run gonum's generic graph algorithms,
// e.g. connectivity checks, against the visibility graph in tests.
func (g *Graph) Underlying() graph.Undirected {
	return g.underlying
}

// Build derives the visibility graph from a triangulated mesh.
func Build(mesh *navmesh.Mesh) *Graph {
	g := &Graph{trianglePortals: make(map[int][]NodeID)}
	edgeToNode := make(map[int]NodeID) // index into mesh.Edges() groups -> node id, for interior edges only

	groups := mesh.Edges()
	for i, group := range groups {
		if len(group.Refs) != 2 {
			continue // boundary edge: not a portal
		}
		id := NodeID(len(g.Nodes))
		a, b := group.Refs[0].A, group.Refs[0].B
		g.Nodes = append(g.Nodes, Node{
			ID:        id,
			A:         a,
			B:         b,
			Midpoint:  r2.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
			Triangles: [2]int{group.Refs[0].Triangle, group.Refs[1].Triangle},
			RefA:      [2]r2.Point{group.Refs[0].A, group.Refs[1].A},
			RefB:      [2]r2.Point{group.Refs[0].B, group.Refs[1].B},
		})
		edgeToNode[i] = id
		for _, ref := range group.Refs {
			g.trianglePortals[ref.Triangle] = append(g.trianglePortals[ref.Triangle], id)
		}
	}

	// Two portals are neighbors iff they bound the same triangle; the step
	// between them passes through that shared triangle.
	for triID, portals := range g.trianglePortals {
		for _, from := range portals {
			for _, to := range portals {
				if from == to {
					continue
				}
				g.Nodes[from].Neighbors = append(g.Nodes[from].Neighbors, Neighbor{Node: to, Triangle: triID})
			}
		}
	}

	g.underlying = simple.NewUndirectedGraph()
	for _, n := range g.Nodes {
		g.underlying.AddNode(simple.Node(n.ID))
	}
	for _, n := range g.Nodes {
		for _, nb := range n.Neighbors {
			if !g.underlying.HasEdgeBetween(int64(n.ID), int64(nb.Node)) {
				g.underlying.SetEdge(g.underlying.NewEdge(simple.Node(n.ID), simple.Node(nb.Node)))
			}
		}
	}
	return g
}
