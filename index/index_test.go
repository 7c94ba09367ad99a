package index_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalextinction/movementcore/collider"
	"github.com/digitalextinction/movementcore/entity"
	"github.com/digitalextinction/movementcore/index"
)

func box(pos r3.Vector) index.LocalCollider {
	return index.LocalCollider{
		Mesh: collider.NewBoxMesh(r3.Vector{X: 1, Y: 1, Z: 1}),
		Iso:  collider.Isometry{Translation: pos},
	}
}

func TestInsertThenRemoveReturnsToObservablyEqualState(t *testing.T) {
	idx := index.New(5)
	a := entity.ID{Index: 1}

	before := idx.QueryAABB(collider.AABB{Min: r3.Vector{X: -100, Y: -100, Z: -100}, Max: r3.Vector{X: 100, Y: 100, Z: 100}}, entity.ID{})
	require.Empty(t, before)

	idx.Insert(a, box(r3.Vector{X: 2, Y: 0, Z: 2}))
	idx.Remove(a)

	after := idx.QueryAABB(collider.AABB{Min: r3.Vector{X: -100, Y: -100, Z: -100}, Max: r3.Vector{X: 100, Y: 100, Z: 100}}, entity.ID{})
	assert.Empty(t, after)
	assert.Equal(t, 0, idx.Len())
}

func TestInsertDuplicateFails(t *testing.T) {
	idx := index.New(5)
	a := entity.ID{Index: 1}
	assert.True(t, idx.Insert(a, box(r3.Vector{})))
	assert.False(t, idx.Insert(a, box(r3.Vector{})))
}

func TestQueryAABBDedupsAcrossTilesAndExcludes(t *testing.T) {
	idx := index.New(5)
	e1, e2, e3 := entity.ID{Index: 1}, entity.ID{Index: 2}, entity.ID{Index: 3}

	// e1 straddles two tiles within the query rect; e2 straddles two other
	// tiles within the rect; e3 sits far outside.
	idx.Insert(e1, index.LocalCollider{Mesh: collider.NewBoxMesh(r3.Vector{X: 6, Y: 1, Z: 1}), Iso: collider.Isometry{Translation: r3.Vector{X: 5, Y: 0, Z: 1}}})
	idx.Insert(e2, index.LocalCollider{Mesh: collider.NewBoxMesh(r3.Vector{X: 6, Y: 1, Z: 1}), Iso: collider.Isometry{Translation: r3.Vector{X: 5, Y: 0, Z: 11}}})
	idx.Insert(e3, box(r3.Vector{X: 500, Y: 0, Z: 500}))

	query := collider.AABB{Min: r3.Vector{X: -20, Y: -1, Z: -20}, Max: r3.Vector{X: 20, Y: 1, Z: 20}}
	got := idx.QueryAABB(query, entity.ID{})
	assert.ElementsMatch(t, []entity.ID{e1, e2}, got)

	gotExcl := idx.QueryAABB(query, e1)
	assert.ElementsMatch(t, []entity.ID{e2}, gotExcl)
	assert.NotContains(t, gotExcl, e1)
}

func TestUpdateMovesEntityBetweenTiles(t *testing.T) {
	idx := index.New(5)
	a := entity.ID{Index: 1}
	idx.Insert(a, box(r3.Vector{X: 0, Y: 0, Z: 0}))

	nearQuery := collider.AABB{Min: r3.Vector{X: -2, Y: -2, Z: -2}, Max: r3.Vector{X: 2, Y: 2, Z: 2}}
	assert.ElementsMatch(t, []entity.ID{a}, idx.QueryAABB(nearQuery, entity.ID{}))

	idx.Update(a, collider.Isometry{Translation: r3.Vector{X: 100, Y: 0, Z: 100}})
	assert.Empty(t, idx.QueryAABB(nearQuery, entity.ID{}))

	farQuery := collider.AABB{Min: r3.Vector{X: 98, Y: -2, Z: 98}, Max: r3.Vector{X: 102, Y: 2, Z: 102}}
	assert.ElementsMatch(t, []entity.ID{a}, idx.QueryAABB(farQuery, entity.ID{}))
}

func TestCastRayReturnsNearestHit(t *testing.T) {
	idx := index.New(5)
	near := entity.ID{Index: 1}
	far := entity.ID{Index: 2}
	idx.Insert(near, box(r3.Vector{X: 5, Y: 0, Z: 0}))
	idx.Insert(far, box(r3.Vector{X: 15, Y: 0, Z: 0}))

	ray := index.Ray{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Dir: r3.Vector{X: 1, Y: 0, Z: 0}}
	hit, ok := idx.CastRay(ray, 100, entity.ID{})
	require.True(t, ok)
	assert.Equal(t, near, hit.Entity)
}

func TestCastRayExcludesEntity(t *testing.T) {
	idx := index.New(5)
	a := entity.ID{Index: 1}
	idx.Insert(a, box(r3.Vector{X: 5, Y: 0, Z: 0}))

	ray := index.Ray{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Dir: r3.Vector{X: 1, Y: 0, Z: 0}}
	_, ok := idx.CastRay(ray, 100, a)
	assert.False(t, ok)
}
