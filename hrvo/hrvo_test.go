package hrvo_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalextinction/movementcore/hrvo"
)

func TestSolveWithNoObstaclesKeepsDesired(t *testing.T) {
	desired := r2.Point{X: 1.5, Y: -0.5}
	got := hrvo.Solve(desired, 2.0, nil)
	assert.Equal(t, desired, got)
}

func TestSolveKeepsDesiredOutsideAllRegions(t *testing.T) {
	// Obstacle straight ahead; desired velocity pointing away from it.
	ob := hrvo.Obstacle{Position: r2.Point{X: 10, Y: 0}, Radius: 1}
	region, ok := hrvo.ComputeRegion(r2.Point{}, r2.Point{X: -1, Y: 0}, 1, ob, 2.0)
	require.True(t, ok)

	desired := r2.Point{X: -1.5, Y: 0}
	got := hrvo.Solve(desired, 2.0, []hrvo.Region{region})
	assert.Equal(t, desired, got)
}

func TestSolveAdjustsVelocityInsideRegion(t *testing.T) {
	ob := hrvo.Obstacle{Position: r2.Point{X: 8, Y: 0}, Radius: 1}
	region, ok := hrvo.ComputeRegion(r2.Point{}, r2.Point{X: 2, Y: 0}, 1, ob, 2.0)
	require.True(t, ok)

	desired := r2.Point{X: 2, Y: 0}
	got := hrvo.Solve(desired, 2.0, []hrvo.Region{region})
	assert.NotEqual(t, desired, got)
	assert.LessOrEqual(t, got.Norm(), 2.0+1e-2)
	assert.Greater(t, got.Norm(), 0.0)
}

func TestHeadOnUnitsVeerToOppositeSides(t *testing.T) {
	const maxSpeed = 2.0
	posA := r2.Point{X: -5, Y: 0}
	posB := r2.Point{X: 5, Y: 0}
	velA := r2.Point{X: maxSpeed, Y: 0}
	velB := r2.Point{X: -maxSpeed, Y: 0}

	regionA, ok := hrvo.ComputeRegion(posA, velA, 1, hrvo.Obstacle{Position: posB, Velocity: velB, Radius: 1, Active: true}, maxSpeed)
	require.True(t, ok)
	regionB, ok := hrvo.ComputeRegion(posB, velB, 1, hrvo.Obstacle{Position: posA, Velocity: velA, Radius: 1, Active: true}, maxSpeed)
	require.True(t, ok)

	adjA := hrvo.Solve(velA, maxSpeed, []hrvo.Region{regionA})
	adjB := hrvo.Solve(velB, maxSpeed, []hrvo.Region{regionB})

	require.NotZero(t, adjA.Y, "unit A must veer off the collision line")
	require.NotZero(t, adjB.Y, "unit B must veer off the collision line")
	assert.Less(t, adjA.Y*adjB.Y, 0.0, "units must veer to opposite sides")
	assert.Greater(t, adjA.Norm(), 0.0)
	assert.Greater(t, adjB.Norm(), 0.0)
}

func TestCoincidentDiscsProduceNoRegion(t *testing.T) {
	_, ok := hrvo.ComputeRegion(r2.Point{X: 1, Y: 1}, r2.Point{}, 1, hrvo.Obstacle{Position: r2.Point{X: 1, Y: 1}, Radius: 1}, 2.0)
	assert.False(t, ok)
}

func TestRegionContainment(t *testing.T) {
	// Passive obstacle dead ahead with zero velocity: the wedge opens
	// along +X from the origin.
	ob := hrvo.Obstacle{Position: r2.Point{X: 10, Y: 0}, Radius: 1}
	region, ok := hrvo.ComputeRegion(r2.Point{}, r2.Point{}, 1, ob, 2.0)
	require.True(t, ok)

	assert.True(t, region.Contains(hrvo.FromPoint(r2.Point{X: 1, Y: 0})))
	assert.False(t, region.Contains(hrvo.FromPoint(r2.Point{X: -1, Y: 0})))
	assert.False(t, region.Contains(hrvo.FromPoint(r2.Point{X: 0, Y: 1.5})))
}

func TestFixedPointRoundTrip(t *testing.T) {
	p := r2.Point{X: 1.25, Y: -3.5}
	got := hrvo.FromPoint(p).Point()
	assert.InDelta(t, p.X, got.X, 1.0/hrvo.Scale)
	assert.InDelta(t, p.Y, got.Y, 1.0/hrvo.Scale)
}

func TestFromPointRejectsOutOfRangeCoordinates(t *testing.T) {
	assert.Panics(t, func() {
		hrvo.FromPoint(r2.Point{X: hrvo.MaxCoord * 2, Y: 0})
	})
	assert.Panics(t, func() {
		hrvo.FromPoint(r2.Point{X: math.NaN(), Y: 0})
	})
}
