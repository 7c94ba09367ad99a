// Package collider implements the triangle-mesh collider used by both the
// spatial index (AABB overlap, ray casts) and the navigation-mesh builder
// (obstacle footprints). Shape variation stops at this single concrete
// mesh type; nothing in the module needs runtime shape polymorphism.
package collider

import (
	"math"

	"github.com/golang/geo/r3"
)

// AABB is an axis-aligned bounding box in whatever frame it was computed in.
type AABB struct {
	Min, Max r3.Vector
}

// Union returns the smallest AABB containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: r3.Vector{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y), Z: math.Min(a.Min.Z, b.Min.Z)},
		Max: r3.Vector{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y), Z: math.Max(a.Max.Z, b.Max.Z)},
	}
}

// Overlaps reports whether a and b intersect, including touching.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Isometry is a rigid transform: translation plus a rotation about the
// vertical (Y) axis, the only rotational freedom units and obstacles need in
// the horizontal plane.
type Isometry struct {
	Translation r3.Vector
	HeadingRad  float64
}

// Apply maps a local-space point into world space.
func (iso Isometry) Apply(p r3.Vector) r3.Vector {
	sin, cos := math.Sincos(iso.HeadingRad)
	return r3.Vector{
		X: p.X*cos - p.Z*sin + iso.Translation.X,
		Y: p.Y + iso.Translation.Y,
		Z: p.X*sin + p.Z*cos + iso.Translation.Z,
	}
}

// Triangle is three local-space vertices plus a precomputed pseudo-normal,
// which ray casts report as the hit normal.
type Triangle struct {
	A, B, C r3.Vector
	Normal  r3.Vector
}

func newTriangle(a, b, c r3.Vector) Triangle {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Norm() > 1e-12 {
		n = n.Normalize()
	}
	return Triangle{A: a, B: b, C: c, Normal: n}
}

// Mesh is a triangle-mesh collider with a cached local AABB.
type Mesh struct {
	Triangles []Triangle
	LocalAABB AABB
}

// NewMesh builds a Mesh from a flat vertex list and an index list grouping
// every three indices into a triangle, precomputing normals and the local
// AABB once at construction time.
func NewMesh(vertices []r3.Vector, indices []int) *Mesh {
	m := &Mesh{}
	if len(vertices) == 0 {
		return m
	}
	min, max := vertices[0], vertices[0]
	for _, v := range vertices {
		min = r3.Vector{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = r3.Vector{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}
	m.LocalAABB = AABB{Min: min, Max: max}

	for i := 0; i+2 < len(indices); i += 3 {
		m.Triangles = append(m.Triangles, newTriangle(vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]))
	}
	return m
}

// NewBoxMesh builds an axis-aligned box mesh centered on the origin with the
// given full extents, the common case for building/obstacle footprints.
func NewBoxMesh(extents r3.Vector) *Mesh {
	hx, hy, hz := extents.X/2, extents.Y/2, extents.Z/2
	v := []r3.Vector{
		{X: -hx, Y: -hy, Z: -hz}, {X: hx, Y: -hy, Z: -hz}, {X: hx, Y: hy, Z: -hz}, {X: -hx, Y: hy, Z: -hz},
		{X: -hx, Y: -hy, Z: hz}, {X: hx, Y: -hy, Z: hz}, {X: hx, Y: hy, Z: hz}, {X: -hx, Y: hy, Z: hz},
	}
	idx := []int{
		0, 1, 2, 0, 2, 3, // -Z side
		4, 6, 5, 4, 7, 6, // +Z side
		0, 4, 5, 0, 5, 1, // bottom (-Y)
		1, 5, 6, 1, 6, 2, // +X side
		2, 6, 7, 2, 7, 3, // top (+Y)
		3, 7, 4, 3, 4, 0, // -X side
	}
	return NewMesh(v, idx)
}

// WorldAABB derives the world-space AABB for iso from the mesh's cached
// local AABB by transforming and re-enclosing its eight corners.
func (m *Mesh) WorldAABB(iso Isometry) AABB {
	lo, hi := m.LocalAABB.Min, m.LocalAABB.Max
	corners := [8]r3.Vector{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z}, {X: hi.X, Y: hi.Y, Z: hi.Z},
	}
	world := iso.Apply(corners[0])
	aabb := AABB{Min: world, Max: world}
	for _, c := range corners[1:] {
		w := iso.Apply(c)
		aabb.Min = r3.Vector{X: math.Min(aabb.Min.X, w.X), Y: math.Min(aabb.Min.Y, w.Y), Z: math.Min(aabb.Min.Z, w.Z)}
		aabb.Max = r3.Vector{X: math.Max(aabb.Max.X, w.X), Y: math.Max(aabb.Max.Y, w.Y), Z: math.Max(aabb.Max.Z, w.Z)}
	}
	return aabb
}

// Ray is a half-line used for picking and line-of-sight queries.
type Ray struct {
	Origin, Dir r3.Vector
}

// RayIntersect returns the nearest hit of ray against m under iso, within
// [0, maxToI]. ok is false when there is no such hit.
func (m *Mesh) RayIntersect(ray Ray, iso Isometry, maxToI float64) (toi float64, normal r3.Vector, ok bool) {
	best := math.Inf(1)
	var bestNormal r3.Vector
	for _, tri := range m.Triangles {
		a := iso.Apply(tri.A)
		b := iso.Apply(tri.B)
		c := iso.Apply(tri.C)
		if t, hit := rayTriangle(ray, a, b, c); hit && t >= 0 && t <= maxToI && t < best {
			best = t
			sin, cos := math.Sincos(iso.HeadingRad)
			bestNormal = r3.Vector{X: tri.Normal.X*cos - tri.Normal.Z*sin, Y: tri.Normal.Y, Z: tri.Normal.X*sin + tri.Normal.Z*cos}
		}
	}
	if math.IsInf(best, 1) {
		return 0, r3.Vector{}, false
	}
	return best, bestNormal, true
}

// rayTriangle implements the Möller-Trumbore ray/triangle intersection test.
func rayTriangle(ray Ray, a, b, c r3.Vector) (float64, bool) {
	const epsilon = 1e-9
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	h := ray.Dir.Cross(edge2)
	det := edge1.Dot(h)
	if math.Abs(det) < epsilon {
		return 0, false
	}
	invDet := 1 / det
	s := ray.Origin.Sub(a)
	u := invDet * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := invDet * ray.Dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := invDet * edge2.Dot(q)
	if t < epsilon {
		return 0, false
	}
	return t, true
}

// Intersects reports whether m (under isoM) and other (under isoOther)
// overlap: either a triangle-triangle crossing, or full containment of one
// mesh inside the other, which a pure triangle-triangle sweep would miss.
func (m *Mesh) Intersects(isoM Isometry, other *Mesh, isoOther Isometry) bool {
	if !m.WorldAABB(isoM).Overlaps(other.WorldAABB(isoOther)) {
		return false
	}
	for _, t1 := range m.Triangles {
		a1, b1, c1 := isoM.Apply(t1.A), isoM.Apply(t1.B), isoM.Apply(t1.C)
		for _, t2 := range other.Triangles {
			a2, b2, c2 := isoOther.Apply(t2.A), isoOther.Apply(t2.B), isoOther.Apply(t2.C)
			if trianglesIntersect(a1, b1, c1, a2, b2, c2) {
				return true
			}
		}
	}
	if len(other.Triangles) > 0 && pointInMesh(isoOther.Apply(other.Triangles[0].A), m, isoM) {
		return containsAllVertices(other, isoOther, m, isoM)
	}
	if len(m.Triangles) > 0 && pointInMesh(isoM.Apply(m.Triangles[0].A), other, isoOther) {
		return containsAllVertices(m, isoM, other, isoOther)
	}
	return false
}

func containsAllVertices(inner *Mesh, isoInner Isometry, outer *Mesh, isoOuter Isometry) bool {
	for _, t := range inner.Triangles {
		for _, v := range []r3.Vector{t.A, t.B, t.C} {
			if !pointInMesh(isoInner.Apply(v), outer, isoOuter) {
				return false
			}
		}
	}
	return true
}

// pointInMesh tests containment via ray parity along +X, counting triangle
// crossings; correct for the closed, non-self-intersecting meshes this
// package constructs (boxes and extruded obstacle footprints).
func pointInMesh(p r3.Vector, m *Mesh, iso Isometry) bool {
	ray := Ray{Origin: p, Dir: r3.Vector{X: 1, Y: 0, Z: 0}}
	count := 0
	for _, tri := range m.Triangles {
		a, b, c := iso.Apply(tri.A), iso.Apply(tri.B), iso.Apply(tri.C)
		if _, hit := rayTriangle(ray, a, b, c); hit {
			count++
		}
	}
	return count%2 == 1
}

// trianglesIntersect is a coplanarity-aware separating-axis test sufficient
// for the convex obstacle footprints and unit discs extruded into prisms
// that this module's geometry actually produces.
func trianglesIntersect(a1, b1, c1, a2, b2, c2 r3.Vector) bool {
	axes := []r3.Vector{
		b1.Sub(a1).Cross(c1.Sub(a1)),
		b2.Sub(a2).Cross(c2.Sub(a2)),
	}
	edges1 := []r3.Vector{b1.Sub(a1), c1.Sub(b1), a1.Sub(c1)}
	edges2 := []r3.Vector{b2.Sub(a2), c2.Sub(b2), a2.Sub(c2)}
	for _, e1 := range edges1 {
		for _, e2 := range edges2 {
			axes = append(axes, e1.Cross(e2))
		}
	}
	// In-plane edge normals separate coplanar triangles, where every
	// edge-pair cross product collapses onto the shared face normal.
	normal1, normal2 := axes[0], axes[1]
	for _, e := range edges1 {
		axes = append(axes, normal1.Cross(e))
	}
	for _, e := range edges2 {
		axes = append(axes, normal2.Cross(e))
	}
	t1 := []r3.Vector{a1, b1, c1}
	t2 := []r3.Vector{a2, b2, c2}
	for _, axis := range axes {
		if axis.Norm() < 1e-12 {
			continue
		}
		min1, max1 := projectOnto(t1, axis)
		min2, max2 := projectOnto(t2, axis)
		if max1 < min2 || max2 < min1 {
			return false
		}
	}
	return true
}

func projectOnto(pts []r3.Vector, axis r3.Vector) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return
}
