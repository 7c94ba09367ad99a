// Package entity provides a generational-index arena for referencing mobile
// units and static obstacles without owning Go pointers.
package entity

import "fmt"

// ID identifies an entity by arena slot and generation. A recycled slot gets
// a new Generation, so a stale ID never aliases the entity that replaced it.
type ID struct {
	Index      uint32
	Generation uint32
}

// String renders the id as "index:generation", useful in logs and debuggers.
func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Index, id.Generation)
}

// IsZero reports whether id is the zero value, never a valid allocated id.
func (id ID) IsZero() bool {
	return id == ID{}
}

type slot struct {
	generation uint32
	alive      bool
}

// Arena allocates and recycles entity ids. It does not store component data
// itself; callers key their own component maps/slices by ID.
type Arena struct {
	slots []slot
	free  []uint32
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Spawn allocates a fresh id, reusing a freed slot's index when available.
func (a *Arena) Spawn() ID {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].alive = true
		return ID{Index: idx, Generation: a.slots[idx].generation}
	}
	idx := uint32(len(a.slots))
	// Generations start at 1 so the zero ID is never handed out.
	a.slots = append(a.slots, slot{generation: 1, alive: true})
	return ID{Index: idx, Generation: 1}
}

// Despawn retires id. A later Spawn may reuse its index with a bumped
// generation, invalidating any ID value still holding the old generation.
func (a *Arena) Despawn(id ID) {
	if !a.Alive(id) {
		return
	}
	s := &a.slots[id.Index]
	s.alive = false
	s.generation++
	a.free = append(a.free, id.Index)
}

// Alive reports whether id refers to a currently live entity.
func (a *Arena) Alive(id ID) bool {
	if int(id.Index) >= len(a.slots) {
		return false
	}
	s := a.slots[id.Index]
	return s.alive && s.generation == id.Generation
}

// Len returns the number of currently live entities.
func (a *Arena) Len() int {
	n := 0
	for _, s := range a.slots {
		if s.alive {
			n++
		}
	}
	return n
}
