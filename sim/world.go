// Package sim glues the movement core together: it owns the entity arena,
// the per-unit component state, the spatial index and the path planner,
// and advances everything one tick at a time through the fixed stage order
// (pre-movement, movement, post-movement). Collaborators outside the core
// (spawner, UI picking, networking) talk to it only through the methods on
// World.
package sim

import (
	"fmt"
	"math"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digitalextinction/movementcore/assertx"
	"github.com/digitalextinction/movementcore/collider"
	"github.com/digitalextinction/movementcore/config"
	"github.com/digitalextinction/movementcore/entity"
	"github.com/digitalextinction/movementcore/index"
	"github.com/digitalextinction/movementcore/kinematic"
	"github.com/digitalextinction/movementcore/navmesh"
	"github.com/digitalextinction/movementcore/obscache"
	"github.com/digitalextinction/movementcore/pathfollow"
	"github.com/digitalextinction/movementcore/planner"
	"github.com/digitalextinction/movementcore/polyanya"
)

// MapBounds is the playable area, from the origin to Size, set once at
// game start.
type MapBounds struct {
	Size r2.Point
}

func (b MapBounds) kinematic() kinematic.Bounds {
	return kinematic.Bounds{Min: r2.Point{}, Max: b.Size}
}

// Unit is the full component set of one mobile actor.
type Unit struct {
	debugID uuid.UUID

	Transform kinematic.Transform
	Kin       kinematic.Kinematics
	Radius    float64
	Flight    kinematic.FlightProfile

	// Desired is the path-following velocity; adjusted is what avoidance
	// turned it into, consumed by integration in the following sub-stage.
	Desired  r2.Point
	adjusted r2.Point

	StaticNearby *obscache.Cache
	MovingNearby *obscache.Cache

	Path   *pathfollow.ScheduledPath
	Target *planner.Target

	prevVel r3.Vector
}

// Pos2 returns the horizontal projection of the unit's position.
func (u *Unit) Pos2() r2.Point {
	return r2.Point{X: u.Transform.Pos.X, Y: u.Transform.Pos.Z}
}

type static struct {
	footprint navmesh.Polygon
}

// World owns every entity and subsystem of the movement core.
type World struct {
	logger *zap.SugaredLogger
	clk    clock.Clock
	tuning config.Tuning
	bounds MapBounds

	arena   *entity.Arena
	index   *index.Index
	planner *planner.Planner

	units   map[entity.ID]*Unit
	statics map[entity.ID]*static

	finderDirty bool
}

// NewWorld validates tuning and builds an empty world. The initial finder
// snapshot (no obstacles) is built on the first Tick.
func NewWorld(logger *zap.SugaredLogger, clk clock.Clock, tuning config.Tuning, bounds MapBounds) (*World, error) {
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if bounds.Size.X <= 0 || bounds.Size.Y <= 0 {
		return nil, fmt.Errorf("sim: map bounds must be positive, got %v", bounds.Size)
	}
	// Entry-point assertions stay on in package tests, which never build a
	// World; production wiring turns them off here.
	assertx.Enabled = false
	budgets := polyanya.Budgets{MaxSearchSteps: tuning.MaxSearchSteps, MaxOpenSetSize: tuning.MaxOpenSetSize}
	return &World{
		logger:      logger,
		clk:         clk,
		tuning:      tuning,
		bounds:      bounds,
		arena:       entity.NewArena(),
		index:       index.New(tuning.TileSize),
		planner:     planner.New(logger, budgets, tuning.TargetTolerance),
		units:       make(map[entity.ID]*Unit),
		statics:     make(map[entity.ID]*static),
		finderDirty: true,
	}, nil
}

// SpawnUnit creates a mobile unit at pos with the given disc radius.
// Ground units pass a zero FlightProfile.
func (w *World) SpawnUnit(pos r3.Vector, radius float64, flight kinematic.FlightProfile) entity.ID {
	e := w.arena.Spawn()
	u := &Unit{
		debugID:      uuid.New(),
		Transform:    kinematic.Transform{Pos: pos},
		Radius:       radius,
		Flight:       flight,
		StaticNearby: obscache.NewCache(w.clk, w.tuning.CacheTTL),
		MovingNearby: obscache.NewCache(w.clk, w.tuning.CacheTTL),
	}
	w.units[e] = u
	w.index.Insert(e, index.LocalCollider{
		Mesh: collider.NewBoxMesh(r3.Vector{X: 2 * radius, Y: 2 * radius, Z: 2 * radius}),
		Iso:  collider.Isometry{Translation: pos},
	})
	w.logger.Debugw("unit spawned", "entity", e, "unit", u.debugID, "pos", pos)
	return e
}

// SpawnStatic creates an immobile obstacle from its horizontal footprint,
// extruded to height for the collision mesh. The free-space snapshot is
// rebuilt on the next tick.
func (w *World) SpawnStatic(footprint navmesh.Polygon, height float64) entity.ID {
	e := w.arena.Spawn()
	w.statics[e] = &static{footprint: footprint}
	w.index.Insert(e, index.LocalCollider{Mesh: prismMesh(footprint, height)})
	w.finderDirty = true
	w.logger.Debugw("static obstacle spawned", "entity", e, "vertices", len(footprint))
	return e
}

// Despawn removes an entity of either kind: its collider leaves the
// spatial index, any in-flight planning task is dropped, and other units'
// caches forget it.
func (w *World) Despawn(e entity.ID) {
	if !w.arena.Alive(e) {
		return
	}
	w.index.Remove(e)
	w.planner.Cancel(e)
	if _, isStatic := w.statics[e]; isStatic {
		delete(w.statics, e)
		w.finderDirty = true
	}
	delete(w.units, e)
	for _, u := range w.units {
		u.StaticNearby.Forget(e)
		u.MovingNearby.Forget(e)
	}
	w.arena.Despawn(e)
	w.logger.Debugw("entity despawned", "entity", e)
}

// Unit returns the component set of e, or nil if e is not a live unit.
func (w *World) Unit(e entity.ID) *Unit {
	return w.units[e]
}

// WaitForPlanning blocks until every in-flight planning task has
// finished. Results still surface on the next Tick; this exists for
// orderly shutdown and deterministic tests.
func (w *World) WaitForPlanning() {
	w.planner.Wait()
}

// Pick casts a ray against every tracked collider, the input-stage query
// behind cursor selection.
func (w *World) Pick(ray index.Ray, maxToI float64) (index.Hit, bool) {
	return w.index.CastRay(ray, maxToI, entity.ID{})
}

// prismMesh extrudes a horizontal footprint polygon into a closed triangle
// mesh of the given height.
func prismMesh(footprint navmesh.Polygon, height float64) *collider.Mesh {
	n := len(footprint)
	verts := make([]r3.Vector, 0, 2*n)
	for _, v := range footprint {
		verts = append(verts, r3.Vector{X: v.X, Y: 0, Z: v.Y})
	}
	for _, v := range footprint {
		verts = append(verts, r3.Vector{X: v.X, Y: height, Z: v.Y})
	}

	var idx []int
	for _, tri := range navmesh.EarClipTriangulate(footprint) {
		idx = append(idx, tri[0], tri[2], tri[1])       // bottom; normal +Y, into the prism
		idx = append(idx, n+tri[0], n+tri[1], n+tri[2]) // top; normal -Y, into the prism
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		idx = append(idx, i, j, n+j, i, n+j, n+i)
	}
	return collider.NewMesh(verts, idx)
}

// clampTargetToBounds keeps requested destinations inside the playable
// area so a click just past the map edge still produces a usable target.
func (w *World) clampTargetToBounds(p r2.Point) r2.Point {
	margin := w.tuning.ExclusionOffset
	return r2.Point{
		X: math.Min(math.Max(p.X, margin), w.bounds.Size.X-margin),
		Y: math.Min(math.Max(p.Y, margin), w.bounds.Size.Y-margin),
	}
}
