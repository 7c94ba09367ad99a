// Package navmesh builds the triangulated free-space mesh that the
// visibility graph and Polyanya search operate over: the map interior minus
// the union of static-obstacle footprints, each inflated by an exclusion
// offset so a unit disc touching a triangle boundary cannot clip the obstacle.
package navmesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

// Triangle is one triangulated cell of free space.
type Triangle struct {
	ID    int
	Verts [3]r2.Point
}

// Centroid returns the triangle's geometric centroid.
func (t Triangle) Centroid() r2.Point {
	return r2.Point{
		X: (t.Verts[0].X + t.Verts[1].X + t.Verts[2].X) / 3,
		Y: (t.Verts[0].Y + t.Verts[1].Y + t.Verts[2].Y) / 3,
	}
}

// edgeKey canonicalises an edge's two endpoints (rounded to damp floating
// point noise from bridging/inflation) so both triangles sharing an edge
// hash to the same key regardless of traversal direction.
type edgeKey struct {
	ax, ay, bx, by int64
}

const coordQuantum = 1e-6

func quantize(v float64) int64 {
	return int64(math.Round(v / coordQuantum))
}

func makeEdgeKey(a, b r2.Point) edgeKey {
	ax, ay := quantize(a.X), quantize(a.Y)
	bx, by := quantize(b.X), quantize(b.Y)
	if ax > bx || (ax == bx && ay > by) {
		ax, ay, bx, by = bx, by, ax, ay
	}
	return edgeKey{ax, ay, bx, by}
}

// EdgeRef records one triangle-local occurrence of an edge.
type EdgeRef struct {
	Triangle int
	A, B     r2.Point // endpoints in this triangle's winding order
}

// Mesh is the triangulated free-space navigation mesh.
type Mesh struct {
	Triangles []Triangle
	edges     map[edgeKey][]EdgeRef
}

// EdgeGroup is every occurrence of one geometric edge across the mesh.
type EdgeGroup struct {
	Key  edgeKey
	Refs []EdgeRef
}

// Edges returns every unique edge in the mesh together with the triangles
// referencing it (1 for a boundary edge, 2 for an interior edge; never more).
func (m *Mesh) Edges() []EdgeGroup {
	keys := make([]edgeKey, 0, len(m.edges))
	for k := range m.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ax != keys[j].ax {
			return keys[i].ax < keys[j].ax
		}
		if keys[i].ay != keys[j].ay {
			return keys[i].ay < keys[j].ay
		}
		if keys[i].bx != keys[j].bx {
			return keys[i].bx < keys[j].bx
		}
		return keys[i].by < keys[j].by
	})
	groups := make([]EdgeGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, EdgeGroup{Key: k, Refs: m.edges[k]})
	}
	return groups
}

// TriangleContaining returns the triangle id (and true) that contains pt,
// used to map arbitrary query points onto the mesh before searching.
func (m *Mesh) TriangleContaining(pt r2.Point) (int, bool) {
	for _, t := range m.Triangles {
		if pointInTriangleInclusive(pt, t.Verts[0], t.Verts[1], t.Verts[2]) {
			return t.ID, true
		}
	}
	return 0, false
}

func pointInTriangleInclusive(p, a, b, c r2.Point) bool {
	d1 := orient(p, a, b)
	d2 := orient(p, b, c)
	d3 := orient(p, c, a)
	hasNeg := d1 < -1e-9 || d2 < -1e-9 || d3 < -1e-9
	hasPos := d1 > 1e-9 || d2 > 1e-9 || d3 > 1e-9
	return !(hasNeg && hasPos)
}

func orient(a, b, c r2.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Build triangulates bounds (the map rectangle) minus obstacles, each
// inflated by exclusionOffset, via hole-bridging + ear clipping (see
// polygon.go — DESIGN.md explains why this replaces a constrained-Delaunay
// library call).
func Build(bounds Polygon, obstacles []Polygon, exclusionOffset float64) (*Mesh, error) {
	if len(bounds) < 3 {
		return nil, fmt.Errorf("navmesh: bounds polygon needs at least 3 vertices, got %d", len(bounds))
	}
	boundary := bounds.ensureCCW()

	inflated := make([]Polygon, 0, len(obstacles))
	for _, o := range obstacles {
		if len(o) < 3 {
			continue
		}
		inflated = append(inflated, o.Inflate(exclusionOffset))
	}
	sortPolygonsByBoundingBox(inflated)

	merged := boundary
	for _, hole := range inflated {
		merged = mergeHoleIntoBoundary(merged, hole)
	}

	triIdx := EarClipTriangulate(merged)
	mesh := &Mesh{edges: make(map[edgeKey][]EdgeRef)}
	for i, tri := range triIdx {
		a, b, c := merged[tri[0]], merged[tri[1]], merged[tri[2]]
		if math.Abs(orient(a, b, c)) < 1e-10 {
			continue // degenerate sliver from a coincident hole bridge
		}
		t := Triangle{ID: i, Verts: [3]r2.Point{a, b, c}}
		mesh.Triangles = append(mesh.Triangles, t)
		mesh.addEdge(t.ID, a, b)
		mesh.addEdge(t.ID, b, c)
		mesh.addEdge(t.ID, c, a)
	}
	return mesh, nil
}

func (m *Mesh) addEdge(triangleID int, a, b r2.Point) {
	k := makeEdgeKey(a, b)
	m.edges[k] = append(m.edges[k], EdgeRef{Triangle: triangleID, A: a, B: b})
}
