package planner

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/digitalextinction/movementcore/navmesh"
	"github.com/digitalextinction/movementcore/polyanya"
	"github.com/digitalextinction/movementcore/visgraph"
)

// Finder is one immutable snapshot of the searchable free space: the
// triangulated mesh plus its visibility graph. A snapshot is never edited
// after construction; obstacle changes build a replacement, and in-flight
// queries keep the snapshot they started with alive through their own
// reference.
type Finder struct {
	mesh  *navmesh.Mesh
	graph *visgraph.Graph
}

// BuildFinder triangulates the map rectangle minus the obstacle footprints
// (each inflated by exclusionOffset) and derives the visibility graph.
func BuildFinder(mapMin, mapMax r2.Point, obstacles []navmesh.Polygon, exclusionOffset float64) (*Finder, error) {
	mesh, err := navmesh.Build(navmesh.Rectangle(mapMin, mapMax), obstacles, exclusionOffset)
	if err != nil {
		return nil, fmt.Errorf("planner: building free-space mesh: %w", err)
	}
	return &Finder{mesh: mesh, graph: visgraph.Build(mesh)}, nil
}

// FindPath searches this snapshot for a path from source toward target.
func (f *Finder) FindPath(source, target r2.Point, props polyanya.Properties, budgets polyanya.Budgets) (polyanya.Path, bool) {
	return polyanya.Search(f.mesh, f.graph, source, target, props, budgets)
}
