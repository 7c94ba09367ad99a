package navmesh

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/geomutil"
)

// Polygon is a simple, closed, ordered list of vertices (no explicit closing
// duplicate of the first vertex).
type Polygon []r2.Point

// signedArea2 returns twice the signed area of p (positive for CCW winding).
func (p Polygon) signedArea2() float64 {
	sum := 0.0
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum
}

// ensureCCW returns p reordered to counter-clockwise winding if it is not
// already.
func (p Polygon) ensureCCW() Polygon {
	if p.signedArea2() >= 0 {
		return p
	}
	reversed := make(Polygon, len(p))
	for i, v := range p {
		reversed[len(p)-1-i] = v
	}
	return reversed
}

func (p Polygon) ensureCW() Polygon {
	if p.signedArea2() <= 0 {
		return p
	}
	reversed := make(Polygon, len(p))
	for i, v := range p {
		reversed[len(p)-1-i] = v
	}
	return reversed
}

// Inflate offsets a convex polygon outward by dist, translating each edge
// along its outward normal and re-intersecting consecutive edges. Obstacle
// footprints in this module are convex (boxes and convex building outlines),
// so this avoids needing a general polygon-offset (straight skeleton)
// library for the only case this module produces.
func (p Polygon) Inflate(dist float64) Polygon {
	ccw := p.ensureCCW()
	n := len(ccw)
	if n < 3 || dist == 0 {
		return ccw
	}

	type line struct {
		point, dir r2.Point
	}
	lines := make([]line, n)
	for i := 0; i < n; i++ {
		a := ccw[i]
		b := ccw[(i+1)%n]
		edge := b.Sub(a)
		normal := r2.Point{X: edge.Y, Y: -edge.X}.Normalize()
		lines[i] = line{point: a.Add(normal.Mul(dist)), dir: edge}
	}

	out := make(Polygon, n)
	for i := 0; i < n; i++ {
		prev := lines[(i-1+n)%n]
		cur := lines[i]
		pt, ok := lineIntersect(prev.point, prev.dir, cur.point, cur.dir)
		if !ok {
			pt = ccw[i] // degenerate (parallel edges); fall back to original vertex
		}
		out[i] = pt
	}
	return out
}

// lineIntersect finds the intersection of line (p1, d1) and (p2, d2), both
// given as a point and direction vector.
func lineIntersect(p1, d1, p2, d2 r2.Point) (r2.Point, bool) {
	denom := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(denom) < 1e-12 {
		return r2.Point{}, false
	}
	diff := p2.Sub(p1)
	t := (diff.X*d2.Y - diff.Y*d2.X) / denom
	return p1.Add(d1.Mul(t)), true
}

// ContainsPoint reports whether pt lies inside p (even-odd ray cast rule).
func (p Polygon) ContainsPoint(pt r2.Point) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// BoundingBox returns the min/max corner of p.
func (p Polygon) BoundingBox() (min, max r2.Point) {
	min, max = p[0], p[0]
	for _, v := range p[1:] {
		min = r2.Point{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y)}
		max = r2.Point{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y)}
	}
	return
}

// Rectangle returns the CCW polygon for an axis-aligned rectangle.
func Rectangle(min, max r2.Point) Polygon {
	return Polygon{
		{X: min.X, Y: min.Y},
		{X: max.X, Y: min.Y},
		{X: max.X, Y: max.Y},
		{X: min.X, Y: max.Y},
	}
}

// mergeHoleIntoBoundary splices hole into boundary by bridging the hole's
// rightmost vertex to the nearest boundary vertex at or to its right (see
// nearestBoundaryVertexToRight), a variant of the standard hole-merging technique for polygon-with-holes
// triangulation (used so a single ear-clipping pass can triangulate free
// space without a dedicated constrained-Delaunay library).
func mergeHoleIntoBoundary(boundary Polygon, hole Polygon) Polygon {
	hole = hole.ensureCW() // holes must wind opposite to the outer boundary
	holeStart := rightmostIndex(hole)
	bridgeTo := nearestBoundaryVertexToRight(boundary, hole[holeStart])

	merged := make(Polygon, 0, len(boundary)+len(hole)+2)
	merged = append(merged, boundary[:bridgeTo+1]...)
	for i := 0; i <= len(hole); i++ {
		merged = append(merged, hole[(holeStart+i)%len(hole)])
	}
	merged = append(merged, boundary[bridgeTo:]...)
	return merged
}

func rightmostIndex(p Polygon) int {
	best := 0
	for i, v := range p {
		if v.X > p[best].X {
			best = i
		}
	}
	return best
}

// nearestBoundaryVertexToRight returns the index of the boundary vertex
// nearest to from among those lying to from's right (x >= from.X), a
// conservative bridge target that avoids crossing convex obstacle holes for
// the footprints this module generates.
func nearestBoundaryVertexToRight(boundary Polygon, from r2.Point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range boundary {
		if v.X < from.X {
			continue
		}
		d := v.Sub(from).Norm()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		// fall back to globally nearest vertex if nothing lies at or to
		// the right.
		for i, v := range boundary {
			d := v.Sub(from).Norm()
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
	}
	return best
}

// EarClipTriangulate triangulates a simple polygon (already merged with any
// holes) and returns vertex-index triples.
func EarClipTriangulate(poly Polygon) [][3]int {
	flipped := poly.signedArea2() < 0
	poly = poly.ensureCCW()
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]int
	guard := 0
	for len(idx) > 3 && guard < len(poly)*len(poly)+16 {
		guard++
		earFound := false
		for i := range idx {
			prev := idx[(i-1+len(idx))%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isConvex(poly[prev], poly[cur], poly[next]) {
				continue
			}
			if anyVertexInTriangle(poly, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			earFound = true
			break
		}
		if !earFound {
			break // degenerate input; return whatever was clipped so far
		}
	}
	if len(idx) == 3 {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	if flipped {
		// Indices above refer to the reversed copy; map them back onto the
		// caller's vertex order.
		for i := range tris {
			for j := range tris[i] {
				tris[i][j] = len(poly) - 1 - tris[i][j]
			}
		}
	}
	return tris
}

func isConvex(a, b, c r2.Point) bool {
	return geomutil.Orient2D(a, b, c) > 1e-12
}

func anyVertexInTriangle(poly Polygon, idx []int, a, b, c int) bool {
	for _, vi := range idx {
		if vi == a || vi == b || vi == c {
			continue
		}
		// A hole bridge duplicates vertices; a copy sitting on a corner of
		// the candidate ear does not block it.
		if p := poly[vi]; p == poly[a] || p == poly[b] || p == poly[c] {
			continue
		}
		if pointInTriangle(poly[vi], poly[a], poly[b], poly[c]) {
			return true
		}
	}
	return false
}

func pointInTriangle(p, a, b, c r2.Point) bool {
	d1 := geomutil.Orient2D(p, a, b)
	d2 := geomutil.Orient2D(p, b, c)
	d3 := geomutil.Orient2D(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// sortPolygonsByBoundingBox orders holes for deterministic bridging.
func sortPolygonsByBoundingBox(polys []Polygon) {
	sort.Slice(polys, func(i, j int) bool {
		minI, _ := polys[i].BoundingBox()
		minJ, _ := polys[j].BoundingBox()
		if minI.X != minJ.X {
			return minI.X < minJ.X
		}
		return minI.Y < minJ.Y
	})
}
