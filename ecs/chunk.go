package ecs

import "github.com/rotisserie/eris"

// Chunk is a fixed-capacity block of rows inside one archetype. Each component
// of the archetype has one dense column; rows [0, Len()) are live.
type Chunk struct {
	archetype *Archetype
	entities  []EntityId
	columns   []column
	count     int
}

// Len returns the number of live rows.
func (c *Chunk) Len() int {
	return c.count
}

// Capacity returns the fixed row capacity.
func (c *Chunk) Capacity() int {
	return len(c.entities)
}

// Archetype returns the owning archetype.
func (c *Chunk) Archetype() *Archetype {
	return c.archetype
}

// EntityIds returns the ids of the live rows. The slice aliases chunk storage.
func (c *Chunk) EntityIds() []EntityId {
	return c.entities[:c.count]
}

// Entity returns the entity stored at row.
func (c *Chunk) Entity(row int) Entity {
	return Entity{EntityId: c.entities[row], world: c.archetype.world}
}

// HasComponent reports whether the chunk's archetype carries id.
func (c *Chunk) HasComponent(id ComponentID) bool {
	return c.archetype.HasComponent(id)
}

// Component returns a pointer to the component id at row, as an untyped value.
// Panics if the archetype does not carry id.
func (c *Chunk) Component(row int, id ComponentID) any {
	return c.column(id).get(row)
}

func (c *Chunk) column(id ComponentID) column {
	slot := c.archetype.slot(id)
	if slot < 0 {
		panic(eris.Wrapf(ErrComponentNotInArchetype, "component %d not in archetype %d", id, c.archetype.id))
	}
	return c.columns[slot]
}
