package ecs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// EntityId identifies an entity slot. Version 0 never refers to a live entity,
// so the zero EntityId is always invalid.
type EntityId struct {
	ID      uint32
	Version uint32
}

// IsZero reports whether the id is the zero value.
func (id EntityId) IsZero() bool {
	return id.Version == 0
}

func (id EntityId) String() string {
	return fmt.Sprintf("%d:%d", id.ID, id.Version)
}

// nextVersion returns the version to hand out when a slot is reused.
func nextVersion(v uint32) uint32 {
	v++
	if v == 0 {
		v = 1
	}
	return v
}

// Entity is an EntityId bound to the World that issued it.
type Entity struct {
	EntityId
	world *World
}

// World returns the world this entity belongs to, or nil for the zero Entity.
func (e Entity) World() *World {
	return e.world
}

// Exists reports whether the entity has not been destroyed. Phantom entities exist.
func (e Entity) Exists() bool {
	return e.world != nil && e.world.Exists(e.EntityId)
}

// IsAlive reports whether the entity exists and is not a phantom.
func (e Entity) IsAlive() bool {
	return e.world != nil && e.world.IsAlive(e.EntityId)
}

// IsPhantom reports whether the entity has been deleted but is kept around
// because it still holds phantom-marker components.
func (e Entity) IsPhantom() bool {
	return e.world != nil && e.world.IsPhantom(e.EntityId)
}

// HasComponent reports whether the entity exists and carries the component.
func (e Entity) HasComponent(id ComponentID) bool {
	if e.world == nil {
		return false
	}
	slot, ok := e.world.index.lookup(e.EntityId)
	return ok && slot.archetype.HasComponent(id)
}

// Archetype returns the archetype currently holding the entity.
// Panics if the entity does not exist.
func (e Entity) Archetype() *Archetype {
	if e.world == nil {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s has no world", e.EntityId))
	}
	return e.world.mustLocate(e.EntityId).archetype
}

// Components returns the component ids of the entity's current signature.
// Panics if the entity does not exist.
func (e Entity) Components() []ComponentID {
	return e.Archetype().Signature()
}
