package sim_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/digitalextinction/movementcore/config"
	"github.com/digitalextinction/movementcore/index"
	"github.com/digitalextinction/movementcore/kinematic"
	"github.com/digitalextinction/movementcore/navmesh"
	"github.com/digitalextinction/movementcore/planner"
	"github.com/digitalextinction/movementcore/polyanya"
	"github.com/digitalextinction/movementcore/sim"
)

const dt = 0.1

type fixture struct {
	world *sim.World
	clk   *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	world, err := sim.NewWorld(zap.NewNop().Sugar(), clk, config.Default(), sim.MapBounds{Size: r2.Point{X: 100, Y: 100}})
	require.NoError(t, err)
	return &fixture{world: world, clk: clk}
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, f.world.Tick(context.Background(), dt))
	f.clk.Add(time.Duration(dt * float64(time.Second)))
}

// settle runs one tick so the initial finder snapshot exists, then waits
// out any planning that tick started.
func (f *fixture) settle(t *testing.T) {
	f.tick(t)
	f.world.WaitForPlanning()
}

func defaultTarget(x, y float64) planner.Target {
	return planner.Target{
		Location: r2.Point{X: x, Y: y},
		Props:    polyanya.Properties{MinDistance: 0, MaxDistance: 2},
	}
}

func TestUnitMarchesToTargetAndArrives(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	e := f.world.SpawnUnit(r3.Vector{X: 20, Z: 50}, 1, kinematic.FlightProfile{})
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), e, defaultTarget(60, 50)))
	f.world.WaitForPlanning()

	tuning := config.Default()
	u := f.world.Unit(e)
	prevCursor := math.MaxInt32
	arrived := false
	for i := 0; i < 300; i++ {
		f.tick(t)
		assert.GreaterOrEqual(t, u.Kin.Speed, 0.0)
		assert.LessOrEqual(t, u.Kin.Speed, tuning.MaxSpeed)
		assert.GreaterOrEqual(t, u.Transform.Pos.X, tuning.ExclusionOffset)
		assert.LessOrEqual(t, u.Transform.Pos.X, 100-tuning.ExclusionOffset)
		if u.Path != nil {
			assert.LessOrEqual(t, u.Path.Current(), prevCursor)
			prevCursor = u.Path.Current()
		}
		if u.Path == nil && u.Target == nil && i > 2 {
			arrived = true
			break
		}
	}
	require.True(t, arrived, "unit should consume its path within the tick budget")
	assert.InDelta(t, 60.0, u.Transform.Pos.X, tuning.TargetTolerance+1)
	assert.InDelta(t, 50.0, u.Transform.Pos.Z, tuning.TargetTolerance+1)
}

func TestTargetAlreadyWithinToleranceIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	e := f.world.SpawnUnit(r3.Vector{X: 30, Z: 30}, 1, kinematic.FlightProfile{})
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), e, defaultTarget(30.5, 30)))
	f.world.WaitForPlanning()
	f.tick(t)

	u := f.world.Unit(e)
	assert.Nil(t, u.Path, "no scheduled path for a target already in reach")
	assert.Nil(t, u.Target, "non-permanent target is dropped")
}

func TestPermanentTargetSurvivesNoOpResult(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	e := f.world.SpawnUnit(r3.Vector{X: 30, Z: 30}, 1, kinematic.FlightProfile{})
	target := defaultTarget(30.5, 30)
	target.Permanent = true
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), e, target))
	f.world.WaitForPlanning()
	f.tick(t)

	u := f.world.Unit(e)
	assert.Nil(t, u.Path)
	require.NotNil(t, u.Target, "permanent target is kept for future replans")
}

func TestNewObstacleTriggersReplanAroundIt(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	e := f.world.SpawnUnit(r3.Vector{X: 20, Z: 50}, 1, kinematic.FlightProfile{})
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), e, defaultTarget(90, 50)))
	f.world.WaitForPlanning()
	f.tick(t)

	u := f.world.Unit(e)
	require.NotNil(t, u.Path)

	// A wall rises across the remaining course.
	wall := navmesh.Rectangle(r2.Point{X: 60, Y: 20}, r2.Point{X: 64, Y: 80})
	f.world.SpawnStatic(wall, 10)
	f.tick(t) // rebuilds the finder and submits replans
	f.world.WaitForPlanning()
	f.tick(t) // applies the replanned path

	require.NotNil(t, u.Path, "the unit must receive a replacement path")
	remaining := u.Path.RemainingLength(u.Pos2())
	straight := u.Pos2().Sub(r2.Point{X: 90, Y: 50}).Norm()
	assert.Greater(t, remaining, straight+5,
		"replacement path must bend around the wall (remaining %f vs straight %f)", remaining, straight)
}

func TestDespawnRemovesEntityEverywhere(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	obstacle := f.world.SpawnStatic(navmesh.Rectangle(r2.Point{X: 40, Y: 40}, r2.Point{X: 44, Y: 44}), 5)
	f.tick(t)

	ray := index.Ray{Origin: r3.Vector{X: 42, Y: 1, Z: 30}, Dir: r3.Vector{Z: 1}}
	_, hit := f.world.Pick(ray, 100)
	require.True(t, hit, "obstacle should be pickable while alive")

	f.world.Despawn(obstacle)
	_, hit = f.world.Pick(ray, 100)
	assert.False(t, hit, "despawned obstacle must leave the spatial index")
}

func TestHeadOnUnitsPassEachOther(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	a := f.world.SpawnUnit(r3.Vector{X: 40, Z: 50}, 1, kinematic.FlightProfile{})
	b := f.world.SpawnUnit(r3.Vector{X: 60, Z: 50}, 1, kinematic.FlightProfile{})
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), a, defaultTarget(60, 50)))
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), b, defaultTarget(40, 50)))
	f.world.WaitForPlanning()

	ua, ub := f.world.Unit(a), f.world.Unit(b)
	minSeparation := math.Inf(1)
	for i := 0; i < 400; i++ {
		f.tick(t)
		sep := ua.Pos2().Sub(ub.Pos2()).Norm()
		if sep < minSeparation {
			minSeparation = sep
		}
		if ua.Path == nil && ub.Path == nil && ua.Target == nil && ub.Target == nil && i > 2 {
			break
		}
	}
	assert.Greater(t, minSeparation, 0.5, "avoidance must keep the units from overlapping")
}

func TestFlyingUnitClimbsWhileMoving(t *testing.T) {
	f := newFixture(t)
	f.settle(t)

	flight := kinematic.FlightProfile{MaxHeight: 15, MaxVSpeed: 4, MaxVAcceleration: 8, GAcceleration: 9.8}
	e := f.world.SpawnUnit(r3.Vector{X: 20, Z: 50}, 1, flight)
	require.NoError(t, f.world.UpdateEntityPath(context.Background(), e, defaultTarget(80, 50)))
	f.world.WaitForPlanning()

	u := f.world.Unit(e)
	for i := 0; i < 30; i++ {
		f.tick(t)
	}
	assert.Greater(t, u.Transform.Pos.Y, 1.0, "a moving flyer gains altitude")
}
