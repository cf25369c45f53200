package ecs

import (
	"iter"
	"slices"
	"sync"
)

// ArchetypeMatch is one archetype matched by a query, with the member of each
// declared group that the archetype satisfied it with. For AtLeastOneOf groups
// that is the lowest matching ComponentID.
type ArchetypeMatch struct {
	Archetype    *Archetype
	AtLeastOneOf []ComponentID
	ExactlyOneOf []ComponentID
}

// QueryDescription is a compiled, world-cached query. It remembers which
// archetypes matched so that each archetype is evaluated once over the
// lifetime of the world.
type QueryDescription struct {
	world     *World
	predicate predicate

	mu      sync.Mutex
	matches []ArchetypeMatch
	scanned int
}

// World returns the world the query was built for.
func (q *QueryDescription) World() *World {
	return q.world
}

// Include returns the canonical Include list.
func (q *QueryDescription) Include() []ComponentID {
	return slices.Clone(q.predicate.include)
}

// Exclude returns the canonical Exclude list, including the implicit Phantom.
func (q *QueryDescription) Exclude() []ComponentID {
	return slices.Clone(q.predicate.exclude)
}

// AtLeastOneOf returns the canonical AtLeastOneOf groups.
func (q *QueryDescription) AtLeastOneOf() [][]ComponentID {
	return cloneGroups(q.predicate.atLeastOneOf)
}

// ExactlyOneOf returns the canonical ExactlyOneOf groups.
func (q *QueryDescription) ExactlyOneOf() [][]ComponentID {
	return cloneGroups(q.predicate.exactlyOneOf)
}

func cloneGroups(groups [][]ComponentID) [][]ComponentID {
	out := make([][]ComponentID, len(groups))
	for i, g := range groups {
		out[i] = slices.Clone(g)
	}
	return out
}

// GetArchetypes returns every matching archetype. Archetypes created since the
// previous call are evaluated first; the rest come from the cache. The returned
// slice must not be modified.
func (q *QueryDescription) GetArchetypes() []ArchetypeMatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := q.world.archetypes
	for ; q.scanned < len(all); q.scanned++ {
		if m, ok := q.predicate.match(all[q.scanned]); ok {
			q.matches = append(q.matches, m)
		}
	}
	return q.matches[:len(q.matches):len(q.matches)]
}

// Matches reports whether a satisfies the query.
func (q *QueryDescription) Matches(a *Archetype) bool {
	return q.predicate.matches(a)
}

// Contains reports whether e exists and its archetype matches. It never panics.
func (q *QueryDescription) Contains(e Entity) bool {
	if e.world != q.world {
		return false
	}
	slot, ok := q.world.index.lookup(e.EntityId)
	return ok && q.predicate.matches(slot.archetype)
}

// Count returns the number of entities matched.
func (q *QueryDescription) Count() int {
	n := 0
	for _, m := range q.GetArchetypes() {
		n += m.Archetype.entityCount
	}
	return n
}

// Chunks iterates over every non-empty chunk of the matching archetypes.
func (q *QueryDescription) Chunks() iter.Seq[*Chunk] {
	return func(yield func(*Chunk) bool) {
		for _, m := range q.GetArchetypes() {
			for _, c := range m.Archetype.chunks {
				if c.count == 0 {
					continue
				}
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Entities iterates over every matched entity.
func (q *QueryDescription) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for c := range q.Chunks() {
			for row := range c.count {
				if !yield(c.Entity(row)) {
					return
				}
			}
		}
	}
}

// ForEach calls fn for every non-empty matching chunk.
func (q *QueryDescription) ForEach(fn func(*Chunk)) {
	for c := range q.Chunks() {
		fn(c)
	}
}

// ForEachEntity calls fn for every matched entity.
func (q *QueryDescription) ForEachEntity(fn func(Entity)) {
	for e := range q.Entities() {
		fn(e)
	}
}

// chunks collects the non-empty matching chunks, for handing out to workers.
func (q *QueryDescription) chunks() []*Chunk {
	var out []*Chunk
	for c := range q.Chunks() {
		out = append(out, c)
	}
	return out
}
