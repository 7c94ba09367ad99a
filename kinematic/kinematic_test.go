package kinematic_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"

	"github.com/digitalextinction/movementcore/geomutil"
	"github.com/digitalextinction/movementcore/kinematic"
)

func limits() kinematic.Limits {
	return kinematic.Limits{MaxSpeed: 10, MaxAcceleration: 4, MaxAngularSpeed: math.Pi}
}

func TestStepIsFixedPointWhenDesiredMatchesCurrent(t *testing.T) {
	k := kinematic.Kinematics{Speed: 5, Heading: 0}
	desired := r2.Point{X: 5, Y: 0}
	next := kinematic.Step(k, desired, limits(), 0.1)
	assert.InDelta(t, k.Speed, next.Speed, 1e-12)
	assert.InDelta(t, k.Heading, next.Heading, 1e-12)
}

func TestStepSpeedStaysWithinBounds(t *testing.T) {
	k := kinematic.Kinematics{Speed: 9.9, Heading: 0}
	for i := 0; i < 100; i++ {
		k = kinematic.Step(k, r2.Point{X: 100, Y: 0}, limits(), 0.1)
		assert.GreaterOrEqual(t, k.Speed, 0.0)
		assert.LessOrEqual(t, k.Speed, limits().MaxSpeed)
	}
	assert.InDelta(t, limits().MaxSpeed, k.Speed, 1e-9)
}

func TestStepBrakesBeforeSharpTurn(t *testing.T) {
	// Desired velocity points straight behind the unit: it must decelerate,
	// not accelerate through a U-turn.
	k := kinematic.Kinematics{Speed: 8, Heading: 0}
	lim := kinematic.Limits{MaxSpeed: 10, MaxAcceleration: 4, MaxAngularSpeed: 0.1}
	next := kinematic.Step(k, r2.Point{X: -8, Y: 0}, lim, 0.1)
	assert.Less(t, next.Speed, k.Speed)
}

func TestStepRotatesAtMostMaxAngularSpeed(t *testing.T) {
	k := kinematic.Kinematics{Speed: 1, Heading: 0}
	lim := kinematic.Limits{MaxSpeed: 10, MaxAcceleration: 4, MaxAngularSpeed: 1.0}
	next := kinematic.Step(k, r2.Point{X: 0, Y: 1}, lim, 0.25)
	assert.InDelta(t, 0.25, next.Heading, 1e-12)
}

func TestStepStopsWhenDesiredIsZero(t *testing.T) {
	k := kinematic.Kinematics{Speed: 2, Heading: 1.0}
	for i := 0; i < 10; i++ {
		k = kinematic.Step(k, r2.Point{}, limits(), 0.1)
	}
	assert.InDelta(t, 0.0, k.Speed, 1e-9)
	assert.InDelta(t, 1.0, k.Heading, 1e-12, "heading is retained while stopping")
}

func TestNormalizeAngleRange(t *testing.T) {
	for theta := -10 * math.Pi; theta <= 10*math.Pi; theta += 0.37 {
		n := geomutil.NormalizeAngle(theta)
		assert.Greater(t, n, -math.Pi)
		assert.LessOrEqual(t, n, math.Pi)
	}
}

func TestApplyUsesMeanVelocityAndClampsToBounds(t *testing.T) {
	bounds := kinematic.Bounds{Min: r2.Point{X: -10, Y: -10}, Max: r2.Point{X: 10, Y: 10}}.Shrink(1)
	tr := kinematic.Transform{Pos: r3.Vector{X: 8, Y: 0, Z: 0}}

	prev := r3.Vector{X: 2, Y: 0, Z: 0}
	cur := r3.Vector{X: 4, Y: 0, Z: 0}
	next := kinematic.Apply(tr, prev, cur, 0, bounds, 1.0)
	// Mean velocity is 3 m/s but the bound at 9 cuts the move short.
	assert.InDelta(t, 9.0, next.Pos.X, 1e-12)

	next = kinematic.Apply(kinematic.Transform{Pos: r3.Vector{X: 0}}, prev, cur, 0, bounds, 1.0)
	assert.InDelta(t, 3.0, next.Pos.X, 1e-12)
}

func TestApplyKeepsHeadingValueWhenUnchanged(t *testing.T) {
	bounds := kinematic.Bounds{Min: r2.Point{X: -100, Y: -100}, Max: r2.Point{X: 100, Y: 100}}
	tr := kinematic.Transform{Pos: r3.Vector{}, Heading: 0.5}
	next := kinematic.Apply(tr, r3.Vector{}, r3.Vector{}, 0.5, bounds, 0.1)
	assert.Equal(t, 0.5, next.Heading)
}

func TestDesiredVerticalSpeedStopsAtTargetAltitude(t *testing.T) {
	p := kinematic.FlightProfile{MaxHeight: 20, MaxVSpeed: 5, MaxVAcceleration: 8, GAcceleration: 9.8}

	// Far below target while moving: full climb rate.
	assert.InDelta(t, 5.0, p.DesiredVerticalSpeed(0, true), 1e-9)
	// Just below target: the braking-limited square-root law applies.
	v := p.DesiredVerticalSpeed(19.5, true)
	assert.InDelta(t, math.Sqrt(2*0.5*9.8), v, 1e-9)
	// Parked: descend.
	assert.Negative(t, p.DesiredVerticalSpeed(10, false))
	// At target: hold.
	assert.Zero(t, p.DesiredVerticalSpeed(20, true))
}

func TestGroundedProfileNeverClimbs(t *testing.T) {
	var p kinematic.FlightProfile
	assert.True(t, p.Grounded())
	assert.Zero(t, p.DesiredVerticalSpeed(0, true))
}
