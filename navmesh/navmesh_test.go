package navmesh_test

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalextinction/movementcore/navmesh"
)

func TestBuildEmptyMapProducesSingleRegion(t *testing.T) {
	bounds := navmesh.Rectangle(r2.Point{X: -20, Y: -20}, r2.Point{X: 20, Y: 20})
	mesh, err := navmesh.Build(bounds, nil, 1.0)
	require.NoError(t, err)
	assert.NotEmpty(t, mesh.Triangles)

	start, ok := mesh.TriangleContaining(r2.Point{X: 0, Y: 0})
	assert.True(t, ok)
	assert.GreaterOrEqual(t, start, 0)
}

func TestBuildWithObstacleKeepsFreeSpaceAroundIt(t *testing.T) {
	bounds := navmesh.Rectangle(r2.Point{X: -20, Y: -20}, r2.Point{X: 20, Y: 20})
	obstacle := navmesh.Rectangle(r2.Point{X: -2, Y: -2}, r2.Point{X: 2, Y: 2})
	mesh, err := navmesh.Build(bounds, []navmesh.Polygon{obstacle}, 1.0)
	require.NoError(t, err)
	require.NotEmpty(t, mesh.Triangles)

	_, onA := mesh.TriangleContaining(r2.Point{X: -10, Y: 0})
	_, onB := mesh.TriangleContaining(r2.Point{X: 10, Y: 0})
	assert.True(t, onA)
	assert.True(t, onB)
}

func TestEdgesAreSharedByAtMostTwoTriangles(t *testing.T) {
	bounds := navmesh.Rectangle(r2.Point{X: -10, Y: -10}, r2.Point{X: 10, Y: 10})
	mesh, err := navmesh.Build(bounds, nil, 1.0)
	require.NoError(t, err)

	for _, group := range mesh.Edges() {
		assert.LessOrEqual(t, len(group.Refs), 2)
	}
}
