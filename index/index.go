// Package index implements the uniform-grid spatial index: AABB-overlap and
// ray-cast queries over the world's static and dynamic colliders, backed by
// a tile hash map. It is single-writer/many-reader: writes happen only in
// the post-movement stage, reads anywhere else in the tick.
package index

import (
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/digitalextinction/movementcore/collider"
	"github.com/digitalextinction/movementcore/entity"
)

type tileCoord struct{ X, Y int32 }

// LocalCollider pairs a collider mesh with its current world isometry, the
// per-entity sidecar record backing every query.
type LocalCollider struct {
	Mesh *collider.Mesh
	Iso  collider.Isometry
}

func (lc LocalCollider) worldAABB() collider.AABB {
	return lc.Mesh.WorldAABB(lc.Iso)
}

// Index is the tile-keyed spatial index. The zero value is not usable; use
// New.
type Index struct {
	tileSize float64

	mu       sync.RWMutex
	tiles    map[tileCoord]map[entity.ID]struct{}
	sidecars map[entity.ID]LocalCollider
}

// New returns an empty Index with the given uniform tile size.
func New(tileSize float64) *Index {
	return &Index{
		tileSize: tileSize,
		tiles:    make(map[tileCoord]map[entity.ID]struct{}),
		sidecars: make(map[entity.ID]LocalCollider),
	}
}

func (idx *Index) tilesFor(aabb collider.AABB) (minT, maxT tileCoord) {
	minT = tileCoord{
		X: int32(math.Floor(aabb.Min.X / idx.tileSize)),
		Y: int32(math.Floor(aabb.Min.Z / idx.tileSize)),
	}
	maxT = tileCoord{
		X: int32(math.Floor(aabb.Max.X / idx.tileSize)),
		Y: int32(math.Floor(aabb.Max.Z / idx.tileSize)),
	}
	return
}

func (idx *Index) forEachTile(aabb collider.AABB, fn func(tileCoord)) {
	minT, maxT := idx.tilesFor(aabb)
	for x := minT.X; x <= maxT.X; x++ {
		for y := minT.Y; y <= maxT.Y; y++ {
			fn(tileCoord{X: x, Y: y})
		}
	}
}

// Insert adds entity e with the given collider state. It returns false
// without mutating the index if e is already present.
func (idx *Index) Insert(e entity.ID, lc LocalCollider) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.sidecars[e]; exists {
		return false
	}
	idx.sidecars[e] = lc
	idx.forEachTile(lc.worldAABB(), func(tc tileCoord) {
		set, ok := idx.tiles[tc]
		if !ok {
			set = make(map[entity.ID]struct{})
			idx.tiles[tc] = set
		}
		set[e] = struct{}{}
	})
	return true
}

// Remove drops entity e from the index. Absent entities are a no-op.
func (idx *Index) Remove(e entity.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	lc, ok := idx.sidecars[e]
	if !ok {
		return
	}
	idx.forEachTile(lc.worldAABB(), func(tc tileCoord) {
		set := idx.tiles[tc]
		delete(set, e)
		if len(set) == 0 {
			delete(idx.tiles, tc)
		}
	})
	delete(idx.sidecars, e)
}

// Update moves entity e to iso, recomputing and diffing tile coverage. For
// entities that stay within the same tiles this touches only those tiles.
func (idx *Index) Update(e entity.ID, iso collider.Isometry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	lc, ok := idx.sidecars[e]
	if !ok {
		return
	}
	oldAABB := lc.worldAABB()
	lc.Iso = iso
	newAABB := lc.worldAABB()

	oldTiles := make(map[tileCoord]struct{})
	idx.forEachTile(oldAABB, func(tc tileCoord) { oldTiles[tc] = struct{}{} })
	newTiles := make(map[tileCoord]struct{})
	idx.forEachTile(newAABB, func(tc tileCoord) { newTiles[tc] = struct{}{} })

	for tc := range oldTiles {
		if _, stillCovered := newTiles[tc]; !stillCovered {
			set := idx.tiles[tc]
			delete(set, e)
			if len(set) == 0 {
				delete(idx.tiles, tc)
			}
		}
	}
	for tc := range newTiles {
		if _, wasCovered := oldTiles[tc]; !wasCovered {
			set, exists := idx.tiles[tc]
			if !exists {
				set = make(map[entity.ID]struct{})
				idx.tiles[tc] = set
			}
			set[e] = struct{}{}
		}
	}
	idx.sidecars[e] = lc
}

// QueryAABB returns, deduplicated, every entity whose world AABB overlaps
// aabb, excluding the given entity (pass the zero entity.ID for no
// exclusion).
func (idx *Index) QueryAABB(aabb collider.AABB, exclude entity.ID) []entity.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	minT, maxT := idx.tilesFor(aabb)
	seenPrevRow := make(map[entity.ID]struct{})
	seenThisRow := make(map[entity.ID]struct{})
	var result []entity.ID

	for y := minT.Y; y <= maxT.Y; y++ {
		for k := range seenThisRow {
			delete(seenThisRow, k)
		}
		for x := minT.X; x <= maxT.X; x++ {
			set := idx.tiles[tileCoord{X: x, Y: y}]
			for e := range set {
				if e == exclude {
					continue
				}
				if _, ok := seenPrevRow[e]; ok {
					seenThisRow[e] = struct{}{} // carry forward so the next row skips it too
					continue
				}
				if _, ok := seenThisRow[e]; ok {
					continue
				}
				lc := idx.sidecars[e]
				if !lc.worldAABB().Overlaps(aabb) {
					continue
				}
				seenThisRow[e] = struct{}{}
				result = append(result, e)
			}
		}
		seenPrevRow, seenThisRow = seenThisRow, seenPrevRow
	}
	return result
}

// Ray is a 2-D-projected ray cast against the colliders tracked by the
// index (the collider package's full 3-D Ray, but tile traversal happens in
// the horizontal plane).
type Ray = collider.Ray

// Hit describes the nearest ray/collider intersection found by CastRay.
type Hit struct {
	Entity entity.ID
	ToI    float64
	Normal r3.Vector
}

// CastRay walks tiles along ray in order of increasing parameter (a DDA
// traversal) and returns the nearest hit among candidate colliders, honoring
// maxToI and an optional excluded entity.
func (idx *Index) CastRay(ray Ray, maxToI float64, exclude entity.ID) (Hit, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	dirX, dirZ := ray.Dir.X, ray.Dir.Z
	if dirX == 0 && dirZ == 0 {
		return Hit{}, false
	}

	var best Hit
	bestToI := math.Inf(1)
	found := false

	for _, tc := range idx.tilesAlongRay(ray, maxToI) {
		tileEnterToI, tileExitToI := idx.tileRange(tc, ray)
		if found && bestToI <= tileEnterToI {
			break // early exit: nearest hit so far beats every remaining tile
		}
		_ = tileExitToI
		for e := range idx.tiles[tc] {
			if e == exclude {
				continue
			}
			lc := idx.sidecars[e]
			if toi, normal, ok := lc.Mesh.RayIntersect(ray, lc.Iso, maxToI); ok && toi < bestToI {
				bestToI = toi
				best = Hit{Entity: e, ToI: toi, Normal: normal}
				found = true
			}
		}
	}
	return best, found
}

// tilesAlongRay enumerates tiles intersected by ray up to maxToI, ordered by
// increasing entry parameter (a simple supercover DDA rasterisation; the
// index's tile counts are small enough that an explicit sort beats a
// hand-tuned incremental DDA in code complexity without materially costing
// query time).
func (idx *Index) tilesAlongRay(ray Ray, maxToI float64) []tileCoord {
	type entry struct {
		tc  tileCoord
		toi float64
	}
	startX := int32(math.Floor(ray.Origin.X / idx.tileSize))
	startY := int32(math.Floor(ray.Origin.Z / idx.tileSize))
	endPoint := r3.Vector{X: ray.Origin.X + ray.Dir.X*maxToI, Y: 0, Z: ray.Origin.Z + ray.Dir.Z*maxToI}
	endX := int32(math.Floor(endPoint.X / idx.tileSize))
	endY := int32(math.Floor(endPoint.Z / idx.tileSize))

	minX, maxX := startX, endX
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := startY, endY
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var entries []entry
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tc := tileCoord{X: x, Y: y}
			enter, exit := idx.tileRange(tc, ray)
			if exit < 0 || enter > maxToI || enter > exit {
				continue
			}
			entries = append(entries, entry{tc: tc, toi: math.Max(enter, 0)})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].toi < entries[j].toi })
	out := make([]tileCoord, len(entries))
	for i, e := range entries {
		out[i] = e.tc
	}
	return out
}

// tileRange returns the [enter, exit] ray parameter range over which ray
// lies within tile tc's horizontal footprint.
func (idx *Index) tileRange(tc tileCoord, ray Ray) (enter, exit float64) {
	lo := r3.Vector{X: float64(tc.X) * idx.tileSize, Z: float64(tc.Y) * idx.tileSize}
	hi := r3.Vector{X: lo.X + idx.tileSize, Z: lo.Z + idx.tileSize}

	enter, exit = math.Inf(-1), math.Inf(1)
	for _, axis := range []struct{ origin, dir, lo, hi float64 }{
		{ray.Origin.X, ray.Dir.X, lo.X, hi.X},
		{ray.Origin.Z, ray.Dir.Z, lo.Z, hi.Z},
	} {
		if axis.dir == 0 {
			if axis.origin < axis.lo || axis.origin > axis.hi {
				return 1, -1 // empty range
			}
			continue
		}
		t1 := (axis.lo - axis.origin) / axis.dir
		t2 := (axis.hi - axis.origin) / axis.dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > enter {
			enter = t1
		}
		if t2 < exit {
			exit = t2
		}
	}
	return
}

// Len returns the number of entities currently tracked.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.sidecars)
}
