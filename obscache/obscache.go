// Package obscache maintains the per-unit caches of nearby obstacles that
// local avoidance consumes. Two caches are kept per unit because static and
// movable obstacles are treated differently by avoidance: statics are plain
// velocity obstacles, movables get the reciprocal treatment.
package obscache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"github.com/digitalextinction/movementcore/collider"
	"github.com/digitalextinction/movementcore/entity"
	"github.com/digitalextinction/movementcore/index"
)

// NearbyHalfExtent is the half-extent, in metres, of the square queried
// around each unit when refreshing its caches.
const NearbyHalfExtent = 10.0

// DefaultTTL is how long an entry survives after it was last seen by a
// refresh. Entries are aged out rather than dropped immediately so a unit
// skirting the query boundary does not flicker in and out of avoidance.
const DefaultTTL = 500 * time.Millisecond

// Cache is a decaying set of entity ids. Refresh re-stamps every id it is
// given; ids not re-stamped within the TTL age out on the next read.
type Cache struct {
	clk      clock.Clock
	ttl      time.Duration
	lastSeen map[entity.ID]time.Time
}

// NewCache returns an empty cache aging entries against clk.
func NewCache(clk clock.Clock, ttl time.Duration) *Cache {
	return &Cache{clk: clk, ttl: ttl, lastSeen: make(map[entity.ID]time.Time)}
}

// Refresh stamps ids as seen now.
func (c *Cache) Refresh(ids []entity.ID) {
	now := c.clk.Now()
	for _, id := range ids {
		c.lastSeen[id] = now
	}
}

// Entries returns the ids still within their TTL, dropping expired ones.
func (c *Cache) Entries() []entity.ID {
	now := c.clk.Now()
	out := make([]entity.ID, 0, len(c.lastSeen))
	for id, seen := range c.lastSeen {
		if now.Sub(seen) > c.ttl {
			delete(c.lastSeen, id)
			continue
		}
		out = append(out, id)
	}
	return out
}

// Forget drops id unconditionally, used when the entity despawns.
func (c *Cache) Forget(id entity.ID) {
	delete(c.lastSeen, id)
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	return len(c.Entries())
}

// Classifier reports whether an entity is movable (a unit) as opposed to a
// static obstacle. The world glue provides it; this package does not track
// entity kinds itself.
type Classifier func(entity.ID) bool

// Refresh queries idx for everything near center (excluding self) and
// splits the result between the static and movable caches using isMovable.
func Refresh(idx *index.Index, center r3.Vector, self entity.ID, isMovable Classifier, static, movable *Cache) {
	query := collider.AABB{
		Min: r3.Vector{X: center.X - NearbyHalfExtent, Y: center.Y - NearbyHalfExtent, Z: center.Z - NearbyHalfExtent},
		Max: r3.Vector{X: center.X + NearbyHalfExtent, Y: center.Y + NearbyHalfExtent, Z: center.Z + NearbyHalfExtent},
	}
	nearby := idx.QueryAABB(query, self)
	movers := lo.Filter(nearby, func(id entity.ID, _ int) bool { return isMovable(id) })
	statics := lo.Filter(nearby, func(id entity.ID, _ int) bool { return !isMovable(id) })
	movable.Refresh(movers)
	static.Refresh(statics)
}
