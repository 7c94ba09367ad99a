package geomutil_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"

	"github.com/digitalextinction/movementcore/geomutil"
)

func TestNormalizeAngleStaysInRange(t *testing.T) {
	for k := -10; k <= 10; k++ {
		theta := float64(k) * math.Pi
		got := geomutil.NormalizeAngle(theta)
		assert.GreaterOrEqual(t, got, -math.Pi)
		assert.LessOrEqual(t, got, math.Pi)
	}
}

func TestProjectOnSegmentClampsToEndpoints(t *testing.T) {
	a := r2.Point{X: 0, Y: 0}
	b := r2.Point{X: 10, Y: 0}

	proj, tt := geomutil.ProjectOnSegment(r2.Point{X: -5, Y: 3}, a, b)
	assert.Equal(t, 0.0, tt)
	assert.Equal(t, a, proj)

	proj, tt = geomutil.ProjectOnSegment(r2.Point{X: 15, Y: -3}, a, b)
	assert.Equal(t, 1.0, tt)
	assert.Equal(t, b, proj)

	proj, tt = geomutil.ProjectOnSegment(r2.Point{X: 4, Y: 7}, a, b)
	assert.InDelta(t, 0.4, tt, 1e-9)
	assert.InDelta(t, 4.0, proj.X, 1e-9)
}

func TestClampAngleDeltaRespectsMaxStep(t *testing.T) {
	delta := geomutil.ClampAngleDelta(0, math.Pi, math.Pi/4)
	assert.InDelta(t, math.Pi/4, delta, 1e-9)
}

func TestTruncatePolylineBoundaries(t *testing.T) {
	line := []r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 10, Y: 0}}

	// Truncating by zero returns the polyline unchanged.
	got, ok := geomutil.TruncatePolyline(line, 0)
	assert.True(t, ok)
	assert.Equal(t, line, got)

	// Truncating by the full length yields no path at all.
	_, ok = geomutil.TruncatePolyline(line, 10)
	assert.False(t, ok)

	// Truncating in between reduces the length by exactly that amount.
	got, ok = geomutil.TruncatePolyline(line, 3)
	assert.True(t, ok)
	assert.InDelta(t, 7.0, geomutil.PolylineLength(got), 1e-9)
	assert.Equal(t, r2.Point{X: 7, Y: 0}, got[len(got)-1])
}
