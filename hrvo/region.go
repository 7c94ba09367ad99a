package hrvo

import (
	"math"

	"github.com/golang/geo/r2"
)

// positionEpsilon is the minimum separation below which two coincident
// discs produce no region at all; there is no meaningful cone direction.
const positionEpsilon = 1e-6

// midlineEpsilon is how close the relative velocity must lie to the cone
// midline before the hybrid apex construction degenerates to the plain VO
// apex.
const midlineEpsilon = 1e-3

// repulsionFactor scales the apex push-back applied when two discs are
// close; the shifted apex steers units apart before the cones alone would.
const repulsionFactor = 0.9

// Obstacle is one nearby disc as avoidance sees it: where it is, how it
// moves, and whether it participates reciprocally. Active obstacles are
// moving units that run the same avoidance and take half the detour;
// passive ones (statics, idle units) must be dodged entirely.
type Obstacle struct {
	Position r2.Point
	Velocity r2.Point
	Radius   float64
	Active   bool
}

// Edge is one side of a forbidden wedge: the line through Point along Dir,
// in fixed-point velocity space. Dir is unit length at fixed scale.
type Edge struct {
	Point Vec
	Dir   Vec
}

// sideOf returns the sign of the cross product from the edge direction to
// v, positive when v lies to the edge's left.
func (e Edge) sideOf(v Vec) int64 {
	return e.Dir.Cross(v.Sub(e.Point))
}

// Region is a forbidden wedge in velocity space: the area between its
// right and left edges, opening away from the apex.
type Region struct {
	Left, Right Edge
}

// boundaryMargin is one fixed-point quantum of perpendicular distance
// (cross products carry a factor of Scale). Candidate points are
// reconstructed from rounded integer division and may land a quantum past
// the edge line they were projected onto; within the margin counts as on
// the boundary, and boundary points are outside the wedge — a velocity
// sliding along a cone edge grazes the obstacle but does not hit it.
const boundaryMargin = Scale

// Contains reports whether v lies strictly inside the wedge.
func (r Region) Contains(v Vec) bool {
	return r.Right.sideOf(v) > boundaryMargin && r.Left.sideOf(v) < -boundaryMargin
}

func fixedDir(angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return Vec{X: int32(math.Round(cos * Scale)), Y: int32(math.Round(sin * Scale))}
}

// ComputeRegion builds the velocity-space wedge that selfPos/selfVel must
// avoid for ob. ok is false when the two discs are coincident and no cone
// direction exists.
func ComputeRegion(selfPos, selfVel r2.Point, selfRadius float64, ob Obstacle, maxSpeed float64) (Region, bool) {
	rel := ob.Position.Sub(selfPos)
	dist := rel.Norm()
	if dist < positionEpsilon {
		return Region{}, false
	}

	radiusSum := selfRadius + ob.Radius
	ratio := radiusSum / dist
	var halfAngle float64
	if ratio >= 1 {
		halfAngle = math.Pi / 2 // overlapping discs: the cone is a half-plane
	} else {
		halfAngle = math.Asin(ratio)
	}
	centerAngle := math.Atan2(rel.Y, rel.X)
	leftAngle := centerAngle + halfAngle
	rightAngle := centerAngle - halfAngle
	leftDir := r2.Point{X: math.Cos(leftAngle), Y: math.Sin(leftAngle)}
	rightDir := r2.Point{X: math.Cos(rightAngle), Y: math.Sin(rightAngle)}

	apex := ob.Velocity
	if ob.Active {
		apex = hybridApex(selfVel, ob.Velocity, rel, leftDir, rightDir)
	}

	// Push the apex away from the obstacle when the gap closes, so tightly
	// packed units start dodging before the cones alone would force it.
	gap := dist - radiusSum
	if mag := repulsionMagnitude(gap, maxSpeed); mag > 0 {
		apex = apex.Sub(rel.Mul(mag / dist))
	}

	apexFixed := FromPoint(apex)
	return Region{
		Left:  Edge{Point: apexFixed, Dir: fixedDir(leftAngle)},
		Right: Edge{Point: apexFixed, Dir: fixedDir(rightAngle)},
	}, true
}

// hybridApex places the wedge apex for an active (reciprocating) obstacle.
// The reciprocal apex is the velocity midpoint; the hybrid construction
// enlarges the side the relative velocity lies on by keeping that side's
// edge at the reciprocal apex and the other side's at the plain apex, and
// putting the apex at the two lines' intersection. Near the midline the
// plain apex wins, avoiding an unstable flip-flop between the two cases.
func hybridApex(selfVel, obVel, rel, leftDir, rightDir r2.Point) r2.Point {
	rvoApex := selfVel.Add(obVel).Mul(0.5)
	voApex := obVel

	relVel := selfVel.Sub(obVel)
	side := rel.X*relVel.Y - rel.Y*relVel.X
	if math.Abs(side) < midlineEpsilon {
		return voApex
	}

	var (
		p  r2.Point
		ok bool
	)
	if side > 0 {
		// Relative velocity lies left of the midline: left edge stays at
		// the reciprocal apex, right edge at the plain apex.
		p, ok = intersectLines(rvoApex, leftDir, voApex, rightDir)
	} else {
		p, ok = intersectLines(voApex, leftDir, rvoApex, rightDir)
	}
	if !ok {
		return voApex
	}
	return p
}

func intersectLines(p1, d1, p2, d2 r2.Point) (r2.Point, bool) {
	denom := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(denom) < 1e-12 {
		return r2.Point{}, false
	}
	diff := p2.Sub(p1)
	t := (diff.X*d2.Y - diff.Y*d2.X) / denom
	return p1.Add(d1.Mul(t)), true
}

// repulsionMagnitude maps the gap between two discs to an apex shift:
// nothing at comfortable range, the full factor when touching, the raw
// inverse-square of the gap (clamped to the full factor) in between.
func repulsionMagnitude(gap, maxSpeed float64) float64 {
	full := repulsionFactor * maxSpeed
	switch {
	case gap >= maxSpeed:
		return 0
	case gap <= 0:
		return full
	default:
		return math.Min(full, 1/(gap*gap))
	}
}
