// Package hrvo computes Hybrid Reciprocal Velocity Obstacle avoidance: for
// each unit with a non-stopped desired velocity, the set of nearby discs is
// turned into forbidden wedges in velocity space and the desired velocity
// is replaced by the closest point outside every wedge.
//
// All velocity-space geometry runs on 10-fractional-bit integer arithmetic.
// 32-bit floats lose too much precision near cone apexes (two nearly
// parallel edges meeting at a point), and the integer substrate makes the
// inside/outside tests exact.
package hrvo

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/assertx"
)

// Scale is the fixed-point unit: 10 fractional bits.
const Scale = 1024

// MaxCoord bounds the absolute value of any coordinate convertible to
// fixed point. Products of two in-bounds fixed values then stay below
// 2^62 / 16, so the cross/dot products used in line intersection cannot
// overflow their int64 accumulators.
const MaxCoord = float64(math.MaxInt32-1) / (4 * Scale)

// Vec is a velocity-space vector in fixed-point coordinates.
type Vec struct {
	X, Y int32
}

// FromPoint converts p to fixed point, asserting the overflow bound.
func FromPoint(p r2.Point) Vec {
	assertx.True(math.Abs(p.X) <= MaxCoord && math.Abs(p.Y) <= MaxCoord,
		"hrvo: coordinate (%f, %f) exceeds fixed-point bound %f", p.X, p.Y, MaxCoord)
	assertx.True(!math.IsNaN(p.X) && !math.IsNaN(p.Y), "hrvo: non-finite coordinate")
	return Vec{X: int32(math.Round(p.X * Scale)), Y: int32(math.Round(p.Y * Scale))}
}

// Point converts v back to float coordinates.
func (v Vec) Point() r2.Point {
	return r2.Point{X: float64(v.X) / Scale, Y: float64(v.Y) / Scale}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

// Cross returns the z-component of v x o in raw fixed units squared.
func (v Vec) Cross(o Vec) int64 {
	return int64(v.X)*int64(o.Y) - int64(v.Y)*int64(o.X)
}

// Dot returns v . o in raw fixed units squared.
func (v Vec) Dot(o Vec) int64 {
	return int64(v.X)*int64(o.X) + int64(v.Y)*int64(o.Y)
}

// LenSq returns |v|^2 in raw fixed units squared.
func (v Vec) LenSq() int64 {
	return v.Dot(v)
}

// distSq returns |a-b|^2 in raw fixed units squared.
func distSq(a, b Vec) int64 {
	return a.Sub(b).LenSq()
}
