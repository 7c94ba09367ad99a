package sim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/digitalextinction/movementcore/collider"
	"github.com/digitalextinction/movementcore/entity"
	"github.com/digitalextinction/movementcore/geomutil"
	"github.com/digitalextinction/movementcore/hrvo"
	"github.com/digitalextinction/movementcore/kinematic"
	"github.com/digitalextinction/movementcore/navmesh"
	"github.com/digitalextinction/movementcore/obscache"
	"github.com/digitalextinction/movementcore/pathfollow"
	"github.com/digitalextinction/movementcore/planner"
)

// UpdateEntityPath requests (or replaces) a path for e toward target. A
// request for an entity with a task still in flight supersedes it.
func (w *World) UpdateEntityPath(ctx context.Context, e entity.ID, target planner.Target) error {
	u, ok := w.units[e]
	if !ok {
		return fmt.Errorf("sim: entity %s is not a movable unit", e)
	}
	target.Location = w.clampTargetToBounds(target.Location)
	u.Target = &target
	w.planner.Submit(ctx, e, u.Pos2(), target)
	return nil
}

// Tick advances the world by dt seconds, running the stages in their
// fixed order: planner orchestration and cache refresh, then avoidance,
// integration and transform writeback, then the spatial-index update.
func (w *World) Tick(ctx context.Context, dt float64) error {
	if err := w.preMovement(ctx); err != nil {
		return err
	}
	w.movement(dt)
	w.postMovement()
	return nil
}

func (w *World) preMovement(ctx context.Context) error {
	if w.finderDirty {
		if err := w.rebuildFinder(ctx); err != nil {
			return err
		}
	}
	w.applyPlannerResults()
	return w.refreshCaches(ctx)
}

// rebuildFinder builds a fresh free-space snapshot from the current static
// obstacle set, swaps it in, and replans every unit that still has an
// active target against it.
func (w *World) rebuildFinder(ctx context.Context) error {
	footprints := lo.MapToSlice(w.statics, func(_ entity.ID, s *static) navmesh.Polygon {
		return s.footprint
	})
	finder, err := planner.BuildFinder(r2.Point{}, w.bounds.Size, footprints, w.tuning.ExclusionOffset)
	if err != nil {
		return fmt.Errorf("sim: rebuilding path finder: %w", err)
	}
	w.planner.SetFinder(finder)
	w.finderDirty = false

	var snapshots []planner.UnitSnapshot
	for e, u := range w.units {
		if u.Target == nil {
			continue
		}
		snapshots = append(snapshots, planner.UnitSnapshot{
			Entity:   e,
			Position: u.Pos2(),
			Target:   *u.Target,
			HasPath:  u.Path != nil,
		})
	}
	w.planner.ReplanAll(ctx, snapshots)
	w.logger.Debugw("path finder rebuilt", "obstacles", len(footprints), "replans", len(snapshots))
	return nil
}

// applyPlannerResults installs finished paths. A nil path means the target
// is infeasible or already satisfied: any stale scheduled path goes away
// and a non-permanent target is dropped.
func (w *World) applyPlannerResults() {
	for _, res := range w.planner.Drain() {
		u, ok := w.units[res.Entity]
		if !ok {
			continue // despawned while the task ran
		}
		if len(res.Path) == 0 {
			u.Path = nil
			if u.Target != nil && !u.Target.Permanent {
				u.Target = nil
			}
			continue
		}
		u.Path = pathfollow.New(res.Path)
	}
}

// refreshCaches re-stamps every unit's nearby static and movable caches
// from the spatial index. Units are independent, so the refresh fans out
// over the worker pool; the index takes only read locks here.
func (w *World) refreshCaches(ctx context.Context) error {
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for e, u := range w.units {
		e, u := e, u
		group.Go(func() error {
			obscache.Refresh(w.index, u.Transform.Pos, e, w.isMovable, u.StaticNearby, u.MovingNearby)
			return nil
		})
	}
	return group.Wait()
}

func (w *World) isMovable(e entity.ID) bool {
	_, ok := w.units[e]
	return ok
}

func (w *World) movement(dt float64) {
	limits := kinematic.Limits{
		MaxSpeed:        w.tuning.MaxSpeed,
		MaxAcceleration: w.tuning.MaxAcceleration,
		MaxAngularSpeed: w.tuning.MaxAngularSpeed,
	}
	playable := w.bounds.kinematic().Shrink(w.tuning.ExclusionOffset)

	// Path following first: each unit's raw desired velocity for this tick.
	for _, u := range w.units {
		w.followPath(u, dt)
	}

	// Avoidance next, over all units' unadjusted state, so the order units
	// are visited in cannot change the outcome; the adjusted velocities
	// are only consumed by the integration pass below.
	for e, u := range w.units {
		u.adjusted = w.avoid(e, u)
	}

	for _, u := range w.units {
		u.Kin = kinematic.Step(u.Kin, u.adjusted, limits, dt)
		vertical := u.Flight.DesiredVerticalSpeed(u.Transform.Pos.Y, u.Kin.Speed > 0)
		vel := u.Kin.Velocity(vertical)
		u.Transform = kinematic.Apply(u.Transform, u.prevVel, vel, u.Kin.Heading, playable, dt)
		u.prevVel = vel
	}
}

// followPath advances the unit's scheduled path cursor and derives the
// desired velocity toward the returned steering point. Arrival within
// tolerance consumes the path and a non-permanent target with it.
func (w *World) followPath(u *Unit, dt float64) {
	if u.Path == nil {
		u.Desired = r2.Point{}
		return
	}
	pos := u.Pos2()
	advance := w.tuning.MaxSpeed * dt
	steer, reachedEnd := u.Path.Advance(pos, advance)

	if reachedEnd && pos.Sub(u.Path.Destination()).Norm() <= w.tuning.TargetTolerance {
		u.Path = nil
		if u.Target != nil && !u.Target.Permanent {
			u.Target = nil
		}
		u.Desired = r2.Point{}
		return
	}

	dir := steer.Sub(pos)
	dist := dir.Norm()
	if dist == 0 {
		u.Desired = r2.Point{}
		return
	}
	speed := w.tuning.MaxSpeed
	// Ease in on final approach so the unit does not orbit its target.
	if remaining := u.Path.RemainingLength(pos); remaining < speed {
		speed = remaining
	}
	u.Desired = dir.Mul(speed / dist)
}

// avoid builds the velocity-space regions for e's cached neighbours and
// picks the feasible velocity closest to its desired one. Moving peers get
// the reciprocal treatment; statics and parked units are dodged entirely.
func (w *World) avoid(e entity.ID, u *Unit) r2.Point {
	if u.Desired.X == 0 && u.Desired.Y == 0 {
		return u.Desired
	}
	pos := u.Pos2()
	selfVel := planarVelocity(u)

	var regions []hrvo.Region
	for _, other := range u.MovingNearby.Entries() {
		peer, ok := w.units[other]
		if !ok {
			continue
		}
		active := peer.Desired.X != 0 || peer.Desired.Y != 0
		region, ok := hrvo.ComputeRegion(pos, selfVel, u.Radius, hrvo.Obstacle{
			Position: peer.Pos2(),
			Velocity: planarVelocity(peer),
			Radius:   peer.Radius,
			Active:   active,
		}, w.tuning.MaxSpeed)
		if ok {
			regions = append(regions, region)
		}
	}
	for _, other := range u.StaticNearby.Entries() {
		s, ok := w.statics[other]
		if !ok {
			continue
		}
		// A static is felt through its closest boundary point, a passive
		// point obstacle. Approximating a long wall by its bounding disc
		// instead would forbid most of the velocity space for units
		// legitimately skirting it.
		region, ok := hrvo.ComputeRegion(pos, selfVel, u.Radius, hrvo.Obstacle{
			Position: closestBoundaryPoint(s.footprint, pos),
		}, w.tuning.MaxSpeed)
		if ok {
			regions = append(regions, region)
		}
	}
	return hrvo.Solve(u.Desired, w.tuning.MaxSpeed, regions)
}

func planarVelocity(u *Unit) r2.Point {
	v := u.Kin.Velocity(0)
	return r2.Point{X: v.X, Y: v.Z}
}

func closestBoundaryPoint(footprint navmesh.Polygon, from r2.Point) r2.Point {
	best := footprint[0]
	bestDist := math.Inf(1)
	n := len(footprint)
	for i := 0; i < n; i++ {
		proj, _ := geomutil.ProjectOnSegment(from, footprint[i], footprint[(i+1)%n])
		if d := proj.Sub(from).Norm(); d < bestDist {
			bestDist = d
			best = proj
		}
	}
	return best
}

// postMovement writes the tick's new transforms back into the spatial
// index, the sole writer of the tick.
func (w *World) postMovement() {
	for e, u := range w.units {
		w.index.Update(e, collider.Isometry{
			Translation: u.Transform.Pos,
			HeadingRad:  u.Transform.Heading,
		})
	}
}
