// Package kinematic converts desired planar velocities into bounded
// linear/angular acceleration and finally into transform updates clamped
// to the map's playable area.
package kinematic

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/digitalextinction/movementcore/assertx"
	"github.com/digitalextinction/movementcore/geomutil"
)

// sharpTurnThreshold is the heading error above which a unit brakes to a
// stop before continuing to turn, instead of carving a wide arc.
const sharpTurnThreshold = math.Pi / 4

// Limits bounds a unit's horizontal motion.
type Limits struct {
	MaxSpeed        float64
	MaxAcceleration float64
	MaxAngularSpeed float64
}

// Kinematics is a unit's current motion state: scalar speed along its
// heading, heading in (-π, π].
type Kinematics struct {
	Speed   float64
	Heading float64
}

// Velocity returns the horizontal 3-D velocity (X/Z plane; Y carries the
// vertical speed supplied by the altitude controller).
func (k Kinematics) Velocity(verticalSpeed float64) r3.Vector {
	sin, cos := math.Sincos(k.Heading)
	return r3.Vector{X: k.Speed * cos, Y: verticalSpeed, Z: k.Speed * sin}
}

// Step advances k one tick toward the desired planar velocity: rotate
// toward the desired heading at bounded angular speed, brake before sharp
// turns, and accelerate toward the desired magnitude at bounded linear
// acceleration.
func Step(k Kinematics, desired r2.Point, lim Limits, dt float64) Kinematics {
	assertx.True(dt > 0 && !math.IsNaN(dt), "kinematic: invalid dt %f", dt)
	assertx.True(!math.IsNaN(desired.X) && !math.IsNaN(desired.Y), "kinematic: non-finite desired velocity")

	desiredHeading := k.Heading
	if desired.X != 0 || desired.Y != 0 {
		desiredHeading = math.Atan2(desired.Y, desired.X)
	}

	k.Heading = geomutil.NormalizeAngle(
		k.Heading + geomutil.ClampAngleDelta(k.Heading, desiredHeading, lim.MaxAngularSpeed*dt))

	targetSpeed := desired.Norm()
	if math.Abs(geomutil.NormalizeAngle(desiredHeading-k.Heading)) > sharpTurnThreshold {
		targetSpeed = 0
	}

	maxDelta := lim.MaxAcceleration * dt
	delta := geomutil.Clamp(targetSpeed-k.Speed, -maxDelta, maxDelta)
	k.Speed = geomutil.Clamp(k.Speed+delta, 0, lim.MaxSpeed)
	return k
}

// Transform is a unit's world pose: 3-D position and horizontal heading.
type Transform struct {
	Pos     r3.Vector
	Heading float64
}

// Bounds is the playable rectangle in the horizontal (X/Z) plane.
type Bounds struct {
	Min, Max r2.Point
}

// Shrink insets the bounds by margin on every side.
func (b Bounds) Shrink(margin float64) Bounds {
	return Bounds{
		Min: r2.Point{X: b.Min.X + margin, Y: b.Min.Y + margin},
		Max: r2.Point{X: b.Max.X - margin, Y: b.Max.Y - margin},
	}
}

// Apply integrates tr by the mean of the previous and current tick's
// velocity, clamps the horizontal position into bounds, and rewrites the
// heading only when it actually changed so downstream change detection
// stays quiet for units that move straight.
func Apply(tr Transform, prevVel, vel r3.Vector, heading float64, bounds Bounds, dt float64) Transform {
	mean := r3.Vector{
		X: (prevVel.X + vel.X) / 2,
		Y: (prevVel.Y + vel.Y) / 2,
		Z: (prevVel.Z + vel.Z) / 2,
	}
	tr.Pos = tr.Pos.Add(mean.Mul(dt))
	tr.Pos.X = geomutil.Clamp(tr.Pos.X, bounds.Min.X, bounds.Max.X)
	tr.Pos.Z = geomutil.Clamp(tr.Pos.Z, bounds.Min.Y, bounds.Max.Y)
	if heading != tr.Heading {
		tr.Heading = heading
	}
	return tr
}
