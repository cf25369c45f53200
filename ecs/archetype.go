package ecs

import (
	"iter"
	"slices"

	"go.uber.org/zap"
)

// Archetype stores every entity sharing one exact component signature. Its
// signature never changes after creation and archetypes are never destroyed.
type Archetype struct {
	id          int
	world       *World
	signature   []ComponentID
	slots       []int32 // ComponentID -> column index, -1 if absent
	hash        ArchetypeHash
	descriptors []*componentDescriptor
	disposable  []int // column indexes whose type implements Disposer
	markers     int   // number of phantom-marker components in the signature
	phantom     bool

	chunks      []*Chunk
	spare       *Chunk
	capacity    int
	entityCount int
}

// newArchetype creates an archetype for a sorted, duplicate-free signature.
func newArchetype(w *World, id int, signature []ComponentID, hash ArchetypeHash) *Archetype {
	a := &Archetype{
		id:          id,
		world:       w,
		signature:   signature,
		hash:        hash,
		descriptors: make([]*componentDescriptor, len(signature)),
		capacity:    w.config.ChunkCapacity,
	}

	maxID := ComponentID(0)
	if len(signature) > 0 {
		maxID = signature[len(signature)-1]
	}
	a.slots = make([]int32, maxID+1)
	for i := range a.slots {
		a.slots[i] = -1
	}

	for idx, cid := range signature {
		d := w.registry.descriptor(cid)
		a.descriptors[idx] = d
		a.slots[cid] = int32(idx)
		if d.disposable {
			a.disposable = append(a.disposable, idx)
		}
		if d.phantomMarker {
			a.markers++
		}
		if cid == PhantomID {
			a.phantom = true
		}
	}
	return a
}

// ID returns the archetype's position in its world, in creation order.
func (a *Archetype) ID() int {
	return a.id
}

// Signature returns a copy of the sorted component ids.
func (a *Archetype) Signature() []ComponentID {
	return slices.Clone(a.signature)
}

// Hash returns the archetype hash of the signature.
func (a *Archetype) Hash() ArchetypeHash {
	return a.hash
}

// EntityCount returns the number of rows across all chunks.
func (a *Archetype) EntityCount() int {
	return a.entityCount
}

// Chunks returns the chunk list. Only the last chunk may be partially filled.
func (a *Archetype) Chunks() []*Chunk {
	return a.chunks
}

// IsPhantom reports whether the signature contains the Phantom marker.
func (a *Archetype) IsPhantom() bool {
	return a.phantom
}

// HasPhantomMarkers reports whether the signature holds any phantom-marker component.
func (a *Archetype) HasPhantomMarkers() bool {
	return a.markers > 0
}

// HasComponent reports whether the signature contains id.
func (a *Archetype) HasComponent(id ComponentID) bool {
	return a.slot(id) >= 0
}

func (a *Archetype) slot(id ComponentID) int {
	if int(id) >= len(a.slots) {
		return -1
	}
	return int(a.slots[id])
}

// Entities iterates over every entity in the archetype, chunk by chunk.
func (a *Archetype) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, c := range a.chunks {
			for _, id := range c.entities[:c.count] {
				if !yield(Entity{EntityId: id, world: a.world}) {
					return
				}
			}
		}
	}
}

// AddEntity appends a row for e to the last chunk, allocating a chunk when it is
// full. Component slots of the new row hold zero values.
func (a *Archetype) AddEntity(e EntityId) (chunkIndex, rowIndex int) {
	if len(a.chunks) == 0 || a.chunks[len(a.chunks)-1].count == a.capacity {
		a.chunks = append(a.chunks, a.newChunk())
	}
	chunkIndex = len(a.chunks) - 1
	c := a.chunks[chunkIndex]
	rowIndex = c.count
	c.entities[rowIndex] = e
	c.count++
	a.entityCount++
	return chunkIndex, rowIndex
}

// RemoveEntity removes the row at (chunkIndex, rowIndex) by moving the
// archetype's last row into it. It returns the id of the moved entity, if any,
// so the caller can update its location. Disposal must happen before this call.
func (a *Archetype) RemoveEntity(chunkIndex, rowIndex int) (moved EntityId, relocated bool) {
	lastIndex := len(a.chunks) - 1
	last := a.chunks[lastIndex]
	lastRow := last.count - 1

	if chunkIndex != lastIndex || rowIndex != lastRow {
		dst := a.chunks[chunkIndex]
		for k, col := range dst.columns {
			col.copyFrom(last.columns[k], rowIndex, lastRow)
		}
		moved = last.entities[lastRow]
		dst.entities[rowIndex] = moved
		relocated = true
	}

	for _, col := range last.columns {
		col.clear(lastRow)
	}
	last.entities[lastRow] = EntityId{}
	last.count--
	a.entityCount--

	if last.count == 0 {
		a.chunks[lastIndex] = nil
		a.chunks = a.chunks[:lastIndex]
		if a.spare == nil {
			a.spare = last
		}
	}
	return moved, relocated
}

// disposeRow runs Dispose on every disposable component of the row that is not
// carried over into keep. A nil keep disposes all of them.
func (a *Archetype) disposeRow(chunkIndex, rowIndex int, keep *Archetype, aux *AuxBuffer) {
	if len(a.disposable) == 0 {
		return
	}
	c := a.chunks[chunkIndex]
	for _, idx := range a.disposable {
		if keep != nil && keep.HasComponent(a.signature[idx]) {
			continue
		}
		c.columns[idx].dispose(rowIndex, aux)
	}
}

// copyRowTo copies every component shared with dst from src row to dst row.
func (a *Archetype) copyRowTo(dst *Archetype, srcChunk, srcRow, dstChunk, dstRow int) {
	from := a.chunks[srcChunk]
	to := dst.chunks[dstChunk]
	for idx, cid := range dst.signature {
		slot := a.slot(cid)
		if slot < 0 {
			continue
		}
		to.columns[idx].copyFrom(from.columns[slot], dstRow, srcRow)
	}
}

func (a *Archetype) newChunk() *Chunk {
	if c := a.spare; c != nil {
		a.spare = nil
		return c
	}
	c := &Chunk{
		archetype: a,
		entities:  make([]EntityId, a.capacity),
		columns:   make([]column, len(a.descriptors)),
	}
	for idx, d := range a.descriptors {
		c.columns[idx] = d.newColumn(a.capacity)
	}
	a.world.logger.Debug("chunk allocated",
		zap.Int("archetype", a.id),
		zap.Int("chunks", len(a.chunks)+1),
	)
	return c
}
