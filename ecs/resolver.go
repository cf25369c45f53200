package ecs

import "github.com/rotisserie/eris"

// Resolver maps the BufferedEntity handles of one playback to the entities they
// became. It is only valid until its buffer plays back again.
type Resolver struct {
	buffer   *CommandBuffer
	epoch    uint32
	entities []EntityId
	cascade  []*Resolver
	released bool
}

// Resolve returns the entity created for b. Panics with ErrResolverMismatch if
// b was not created by the playback that produced r, or if r is stale.
func (r *Resolver) Resolve(b BufferedEntity) Entity {
	if r.released {
		panic(eris.Wrap(ErrResolverReleased, "resolve"))
	}
	if b.buffer != r.buffer || b.epoch != r.epoch || r.buffer.played != r.epoch {
		panic(eris.Wrapf(ErrResolverMismatch, "buffered entity %d", b.index))
	}
	return Entity{EntityId: r.entities[b.index], world: r.buffer.world}
}

// Len returns the number of entities created by the playback.
func (r *Resolver) Len() int {
	return len(r.entities)
}

// Entities returns the created entities in creation order.
func (r *Resolver) Entities() []Entity {
	out := make([]Entity, len(r.entities))
	for i, id := range r.entities {
		out[i] = Entity{EntityId: id, world: r.buffer.world}
	}
	return out
}

// Cascade returns one resolver per follow-up pass run for commands that
// Disposer callbacks queued on their AuxBuffer, in pass order. Entities created
// through AuxBuffer.Commands resolve against the pass their buffer ran in.
func (r *Resolver) Cascade() []*Resolver {
	return r.cascade
}

// Release drops the resolver's mapping, and that of its cascade. Any later
// Resolve panics.
func (r *Resolver) Release() {
	r.released = true
	r.entities = nil
	for _, c := range r.cascade {
		c.Release()
	}
	r.cascade = nil
}
