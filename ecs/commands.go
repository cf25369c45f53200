package ecs

import (
	"cmp"
	"slices"

	"github.com/rotisserie/eris"
)

// CommandBuffer records structural changes against a World and applies them in
// one pass with Playback. A buffer is reusable after playback but must not be
// written from several goroutines without external locking.
type CommandBuffer struct {
	world  *World
	epoch  uint32
	played uint32 // epoch of the most recent playback, 0 if none

	creates []bufferedCreate
	ops     []entityOp
}

type pendingComponent struct {
	id    ComponentID
	value any
}

// bufferedCreate keeps its components sorted by id, which is also the column
// order of the archetype it will land in.
type bufferedCreate struct {
	components []pendingComponent
}

type opKind uint8

const (
	opSet opKind = iota
	opRemove
	opDelete
)

type entityOp struct {
	kind   opKind
	entity EntityId
	id     ComponentID
	value  any
}

// NewCommandBuffer creates an empty buffer for w.
func (w *World) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{world: w, epoch: 1}
}

// World returns the world the buffer plays back into.
func (cb *CommandBuffer) World() *World {
	return cb.world
}

// Create queues a new entity. Its final Entity is available from the Resolver
// returned by the next Playback.
func (cb *CommandBuffer) Create() BufferedEntity {
	cb.creates = append(cb.creates, bufferedCreate{})
	return BufferedEntity{buffer: cb, index: len(cb.creates) - 1, epoch: cb.epoch}
}

// Set queues adding or overwriting a component on an existing entity. The
// component is passed by value or by pointer and must be registered.
func (cb *CommandBuffer) Set(e Entity, component any) {
	cb.checkEntity(e)
	id := cb.world.registry.idOf(component)
	if id == PhantomID {
		panic(eris.Wrapf(ErrPhantomMarker, "set on entity %s", e.EntityId))
	}
	cb.ops = append(cb.ops, entityOp{kind: opSet, entity: e.EntityId, id: id, value: component})
}

// Remove queues removing a component from an existing entity. Removing a
// component the entity does not carry is a no-op.
func (cb *CommandBuffer) Remove(e Entity, id ComponentID) {
	cb.checkEntity(e)
	if id == PhantomID {
		panic(eris.Wrapf(ErrPhantomMarker, "remove on entity %s", e.EntityId))
	}
	cb.world.registry.descriptor(id)
	cb.ops = append(cb.ops, entityOp{kind: opRemove, entity: e.EntityId, id: id})
}

// Delete queues deleting an entity. Entities holding phantom-marker components
// become phantoms instead of being destroyed.
func (cb *CommandBuffer) Delete(e Entity) {
	cb.checkEntity(e)
	cb.ops = append(cb.ops, entityOp{kind: opDelete, entity: e.EntityId})
}

// Len returns the number of queued creates and operations.
func (cb *CommandBuffer) Len() int {
	return len(cb.creates) + len(cb.ops)
}

// IsEmpty reports whether nothing is queued.
func (cb *CommandBuffer) IsEmpty() bool {
	return cb.Len() == 0
}

// Clear discards everything queued. Buffered entities of the discarded batch
// can no longer be modified or resolved.
func (cb *CommandBuffer) Clear() {
	cb.reset()
}

func (cb *CommandBuffer) reset() {
	clear(cb.creates)
	cb.creates = cb.creates[:0]
	clear(cb.ops)
	cb.ops = cb.ops[:0]
	cb.epoch++
	if cb.epoch == 0 {
		cb.epoch = 1
	}
}

func (cb *CommandBuffer) checkEntity(e Entity) {
	if e.world == nil {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s has no world", e.EntityId))
	}
	if e.world != cb.world {
		panic(eris.Wrapf(ErrEntityOfOtherWorld, "entity %s", e.EntityId))
	}
	if !cb.world.Exists(e.EntityId) {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s", e.EntityId))
	}
}

// BufferedEntity is an entity queued by CommandBuffer.Create. It is only
// meaningful to the buffer that created it, until that buffer plays back.
type BufferedEntity struct {
	buffer *CommandBuffer
	index  int
	epoch  uint32
}

// Buffer returns the buffer the entity was created in.
func (b BufferedEntity) Buffer() *CommandBuffer {
	return b.buffer
}

// Set attaches a component to the pending entity. Panics with
// ErrComponentAlreadySet if the type was already set; use Overwrite to replace.
func (b BufferedEntity) Set(component any) BufferedEntity {
	return b.set(component, false)
}

// Overwrite attaches a component, replacing a previously set value of the same type.
func (b BufferedEntity) Overwrite(component any) BufferedEntity {
	return b.set(component, true)
}

// Has reports whether a component of id has been set on the pending entity.
func (b BufferedEntity) Has(id ComponentID) bool {
	b.checkLive()
	_, found := findPending(b.buffer.creates[b.index].components, id)
	return found
}

func (b BufferedEntity) set(component any, overwrite bool) BufferedEntity {
	b.checkLive()
	cb := b.buffer
	id := cb.world.registry.idOf(component)
	if id == PhantomID {
		panic(eris.Wrap(ErrPhantomMarker, "set on buffered entity"))
	}

	c := &cb.creates[b.index]
	i, found := findPending(c.components, id)
	if found {
		if !overwrite {
			panic(eris.Wrapf(ErrComponentAlreadySet, "%s", cb.world.registry.Type(id)))
		}
		c.components[i].value = component
		return b
	}
	c.components = slices.Insert(c.components, i, pendingComponent{id: id, value: component})
	return b
}

func (b BufferedEntity) checkLive() {
	if b.buffer == nil || b.epoch != b.buffer.epoch {
		panic(eris.Wrapf(ErrBufferedEntityExpired, "buffered entity %d", b.index))
	}
}

func findPending(components []pendingComponent, id ComponentID) (int, bool) {
	return slices.BinarySearchFunc(components, id, func(p pendingComponent, id ComponentID) int {
		return cmp.Compare(p.id, id)
	})
}
