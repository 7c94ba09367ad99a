// Package planner orchestrates asynchronous path (re)computation: it owns
// the immutable free-space snapshot, runs at most one search task per
// entity on a bounded worker pool, and hands finished paths back to the
// simulation at the next tick boundary. A new request for an entity
// supersedes and cancels any task still in flight for it.
package planner

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/golang/geo/r2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/digitalextinction/movementcore/assertx"
	"github.com/digitalextinction/movementcore/entity"
	"github.com/digitalextinction/movementcore/polyanya"
)

// Target is where an entity wants to go and how precisely it must get
// there. Non-permanent targets are dropped once their path is consumed.
type Target struct {
	Location  r2.Point
	Props     polyanya.Properties
	Permanent bool
}

// Result is one finished planning task. Path is nil when no feasible path
// exists (or the entity is already close enough that no motion is needed);
// the consumer then removes any scheduled path and drops a non-permanent
// target.
type Result struct {
	Entity entity.ID
	Target Target
	Path   []r2.Point
}

// UnitSnapshot is the per-entity view ReplanAll needs: where the unit is,
// what it is targeting, and whether it is currently following a path.
type UnitSnapshot struct {
	Entity   entity.ID
	Position r2.Point
	Target   Target
	HasPath  bool
}

type task struct {
	cancel context.CancelFunc
	gen    uint64
}

// Planner runs search tasks against the current Finder snapshot.
type Planner struct {
	logger  *zap.SugaredLogger
	budgets polyanya.Budgets
	// arrivalTolerance widens the "already there" check during replans so
	// units parked just past their exact target do not get churned.
	arrivalTolerance float64

	group *errgroup.Group

	mu      sync.Mutex
	finder  *Finder
	tasks   map[entity.ID]task
	gens    map[entity.ID]uint64
	results []Result
}

// New returns a Planner with a worker pool sized to the machine.
func New(logger *zap.SugaredLogger, budgets polyanya.Budgets, arrivalTolerance float64) *Planner {
	group := &errgroup.Group{}
	group.SetLimit(runtime.GOMAXPROCS(0))
	return &Planner{
		logger:           logger,
		budgets:          budgets,
		arrivalTolerance: arrivalTolerance,
		group:            group,
		tasks:            make(map[entity.ID]task),
		gens:             make(map[entity.ID]uint64),
	}
}

// SetFinder atomically replaces the snapshot used by tasks submitted from
// now on. Tasks already running keep the snapshot they captured.
func (p *Planner) SetFinder(f *Finder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finder = f
}

// Submit requests a path for e from its current position to target,
// cancelling any in-flight task for e. Results surface through Drain.
func (p *Planner) Submit(ctx context.Context, e entity.ID, from r2.Point, target Target) {
	props := target.Props
	assertx.True(props.MinDistance >= 0 && props.MinDistance <= props.MaxDistance,
		"planner: invalid distance range [%f, %f]", props.MinDistance, props.MaxDistance)
	assertx.True(!math.IsNaN(from.X) && !math.IsNaN(from.Y), "planner: non-finite source")

	p.mu.Lock()
	finder := p.finder
	if old, ok := p.tasks[e]; ok {
		old.cancel()
	}
	p.gens[e]++
	gen := p.gens[e]

	// Already inside the requested distance band: nothing to plan. The
	// nil-path result still flows through Drain so the consumer clears
	// stale state the same way it would for an infeasible target. An
	// unbounded band never short-circuits; those are replans of units
	// committed to reaching the best feasible point.
	dist := from.Sub(target.Location).Norm()
	if !math.IsInf(props.MaxDistance, 1) && dist >= props.MinDistance && dist <= props.MaxDistance {
		delete(p.tasks, e)
		p.results = append(p.results, Result{Entity: e, Target: target})
		p.mu.Unlock()
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	p.tasks[e] = task{cancel: cancel, gen: gen}
	p.mu.Unlock()

	if finder == nil {
		p.logger.Debugw("path request before first finder snapshot", "entity", e)
		cancel()
		return
	}

	p.group.Go(func() error {
		defer cancel()
		path, ok := finder.FindPath(from, target.Location, props, p.budgets)
		if taskCtx.Err() != nil {
			return nil // superseded or shut down; result is stale
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gens[e] != gen {
			return nil
		}
		delete(p.tasks, e)
		res := Result{Entity: e, Target: target}
		if ok {
			res.Path = path.Waypoints
		}
		p.results = append(p.results, res)
		return nil
	})
}

// Cancel drops any in-flight task for e and discards results for it that
// have not been drained yet, used when e despawns or abandons its target.
func (p *Planner) Cancel(e entity.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tasks[e]; ok {
		t.cancel()
		delete(p.tasks, e)
	}
	p.gens[e]++
	kept := p.results[:0]
	for _, r := range p.results {
		if r.Entity != e {
			kept = append(kept, r)
		}
	}
	p.results = kept
}

// Drain returns the results completed since the last call.
func (p *Planner) Drain() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.results
	p.results = nil
	return out
}

// Wait blocks until every in-flight task has finished, for shutdown and
// deterministic tests.
func (p *Planner) Wait() {
	p.group.Wait() //nolint:errcheck // tasks never return errors
}

// ReplanAll re-submits a query for every unit that still has an active
// target after the snapshot changed. A unit already following a path has
// committed to moving and must reach the best feasible point, so its
// maximum distance is lifted to infinity; a parked unit already within
// tolerance of its target is left untouched.
func (p *Planner) ReplanAll(ctx context.Context, units []UnitSnapshot) {
	for _, u := range units {
		if !u.HasPath {
			dist := u.Position.Sub(u.Target.Location).Norm()
			if dist <= u.Target.Props.MaxDistance+p.arrivalTolerance {
				continue
			}
		}
		target := u.Target
		target.Props.MaxDistance = math.Inf(1)
		p.Submit(ctx, u.Entity, u.Position, target)
	}
}
