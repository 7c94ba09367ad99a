// Package geomutil collects small planar-geometry helpers shared by the
// navigation, avoidance and kinematic packages: angle normalisation, segment
// projection, polyline length and truncation, and the orientation test, all
// built on github.com/golang/geo/r2.
package geomutil

import (
	"math"

	"github.com/golang/geo/r2"
)

// NormalizeAngle folds theta into (-π, π], matching the heading convention
// used throughout the kinematic integrator.
func NormalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	} else if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}

// ClampAngleDelta returns the signed shortest-arc difference from `from` to
// `to`, clamped in magnitude to maxStep.
func ClampAngleDelta(from, to, maxStep float64) float64 {
	delta := NormalizeAngle(to - from)
	if delta > maxStep {
		return maxStep
	}
	if delta < -maxStep {
		return -maxStep
	}
	return delta
}

// ProjectOnSegment returns the point on segment [a,b] closest to p, together
// with the interpolation parameter t in [0,1] along a->b.
func ProjectOnSegment(p, a, b r2.Point) (proj r2.Point, t float64) {
	ab := b.Sub(a)
	abLen2 := ab.Dot(ab)
	if abLen2 == 0 {
		return a, 0
	}
	t = p.Sub(a).Dot(ab) / abLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t)), t
}

// SegmentLength returns the Euclidean length of segment [a,b].
func SegmentLength(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// PolylineLength sums the length of consecutive waypoints.
func PolylineLength(waypoints []r2.Point) float64 {
	total := 0.0
	for i := 1; i < len(waypoints); i++ {
		total += SegmentLength(waypoints[i-1], waypoints[i])
	}
	return total
}

// TruncatePolyline removes trimLength worth of length from the tail end of
// waypoints (ordered start->end). It returns (waypoints, true) unchanged
// when trimLength <= 0, and (nil, false) when trimLength meets or exceeds
// the polyline's total length.
func TruncatePolyline(waypoints []r2.Point, trimLength float64) ([]r2.Point, bool) {
	if trimLength <= 0 {
		return waypoints, true
	}
	total := PolylineLength(waypoints)
	if trimLength >= total {
		return nil, false
	}
	remaining := total - trimLength

	result := []r2.Point{waypoints[0]}
	accum := 0.0
	for i := 1; i < len(waypoints); i++ {
		segLen := SegmentLength(waypoints[i-1], waypoints[i])
		if accum+segLen < remaining {
			accum += segLen
			result = append(result, waypoints[i])
			continue
		}
		t := 0.0
		if segLen > 0 {
			t = (remaining - accum) / segLen
		}
		pt := waypoints[i-1].Add(waypoints[i].Sub(waypoints[i-1]).Mul(t))
		result = append(result, pt)
		break
	}
	return result, true
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Orient2D returns the signed area of triangle (a, b, c), positive when the
// points are in counter-clockwise order. Used for the left/right tests the
// funnel and visibility-cone code need.
func Orient2D(a, b, c r2.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
