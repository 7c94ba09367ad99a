package hrvo

import (
	"math"

	"github.com/golang/geo/r2"
)

// speedSlack, in raw fixed units, forgives the rounding of candidate
// points that sit exactly on the max-speed circle.
const speedSlack = 2

// Solve replaces desired with the closest velocity outside every region
// and inside the max-speed circle. If desired is already outside all
// regions it is returned unchanged; if no feasible candidate exists the
// unit stops.
func Solve(desired r2.Point, maxSpeed float64, regions []Region) r2.Point {
	if len(regions) == 0 {
		return desired
	}
	desiredFixed := FromPoint(desired)
	if !anyContains(regions, desiredFixed) {
		return desired
	}

	maxFixed := int64(math.Round(maxSpeed * Scale))
	limit := maxFixed + speedSlack
	limitSq := limit * limit

	var best Vec
	bestDist := int64(math.MaxInt64)
	consider := func(v Vec) {
		if v.LenSq() > limitSq {
			return
		}
		if anyContains(regions, v) {
			return
		}
		if d := distSq(v, desiredFixed); d < bestDist {
			bestDist = d
			best = v
		}
	}

	// Candidate points on each edge: the clamped projection of the desired
	// velocity, plus where the edge line leaves the max-speed circle. Left
	// edges are visited before right so exact ties (a desired velocity on
	// the cone midline) resolve the same way every tick.
	for _, reg := range regions {
		for _, e := range []Edge{reg.Left, reg.Right} {
			consider(projectOnEdge(e, desiredFixed))
			for _, v := range circleCrossings(e, maxSpeed) {
				consider(v)
			}
		}
	}

	// Pairwise intersections of edge lines: the corner points where two
	// wedge boundaries meet, the only remaining minimisers.
	edges := make([]Edge, 0, 2*len(regions))
	for _, reg := range regions {
		edges = append(edges, reg.Left, reg.Right)
	}
	for i := 0; i < len(edges); i++ {
		for j := i + 1; j < len(edges); j++ {
			if v, ok := intersectEdges(edges[i], edges[j]); ok {
				consider(v)
			}
		}
	}

	if bestDist == math.MaxInt64 {
		return r2.Point{} // boxed in on all sides: stop
	}
	return best.Point()
}

func anyContains(regions []Region, v Vec) bool {
	for _, r := range regions {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// divRound divides a by b rounding to nearest, for reconstructing fixed
// coordinates from int64 numerator/denominator pairs.
func divRound(a, b int64) int64 {
	if b < 0 {
		a, b = -a, -b
	}
	if a >= 0 {
		return (a + b/2) / b
	}
	return -((-a + b/2) / b)
}

// projectOnEdge returns the point on e's line closest to q, clamped to the
// apex side (the wedge only extends forward along the edge direction).
func projectOnEdge(e Edge, q Vec) Vec {
	num := e.Dir.Dot(q.Sub(e.Point))
	if num <= 0 {
		return e.Point
	}
	den := e.Dir.LenSq()
	return Vec{
		X: e.Point.X + int32(divRound(int64(e.Dir.X)*num, den)),
		Y: e.Point.Y + int32(divRound(int64(e.Dir.Y)*num, den)),
	}
}

// intersectEdges returns the intersection of the two edge lines, rejecting
// parallel lines and points behind either apex.
func intersectEdges(a, b Edge) (Vec, bool) {
	denom := a.Dir.Cross(b.Dir)
	if denom == 0 {
		return Vec{}, false
	}
	diff := b.Point.Sub(a.Point)
	tNum := diff.Cross(b.Dir)
	uNum := diff.Cross(a.Dir)
	// t = tNum/denom along a, u = uNum/denom along b; both must be >= 0.
	if (tNum < 0) != (denom < 0) && tNum != 0 {
		return Vec{}, false
	}
	if (uNum < 0) != (denom < 0) && uNum != 0 {
		return Vec{}, false
	}
	return Vec{
		X: a.Point.X + int32(divRound(int64(a.Dir.X)*tNum, denom)),
		Y: a.Point.Y + int32(divRound(int64(a.Dir.Y)*tNum, denom)),
	}, true
}

// circleCrossings returns where e's line crosses the max-speed circle, on
// the apex side only. The quadratic is solved in floats and re-quantised;
// the candidates it yields are filtered through the exact fixed-point
// region tests like every other candidate.
func circleCrossings(e Edge, maxSpeed float64) []Vec {
	p := e.Point.Point()
	d := e.Dir.Point()
	a := d.Dot(d)
	if a == 0 {
		return nil
	}
	b := 2 * p.Dot(d)
	c := p.Dot(p) - maxSpeed*maxSpeed
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sqrtDisc := math.Sqrt(disc)
	var out []Vec
	for _, t := range []float64{(-b - sqrtDisc) / (2 * a), (-b + sqrtDisc) / (2 * a)} {
		if t < 0 {
			continue
		}
		out = append(out, FromPoint(p.Add(d.Mul(t))))
	}
	return out
}
