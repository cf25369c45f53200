package ecs

import (
	"math"
	"math/bits"
)

// entitySlot is the location of one entity id. A slot whose archetype is nil is
// free; its version is the last one handed out.
type entitySlot struct {
	archetype *Archetype
	chunk     int32
	row       int32
	version   uint32
}

// entityIndex maps entity ids to locations. Storage grows in segments that
// double in size, so slot pointers stay valid while the index grows.
type entityIndex struct {
	segments [][]entitySlot
	base     uint64
	baseBits int
	next     uint32
	free     []uint32
	live     int
}

func newEntityIndex(segmentSize int) entityIndex {
	base := uint64(1) << bits.Len64(uint64(segmentSize-1))
	return entityIndex{
		base:     base,
		baseBits: bits.Len64(base),
	}
}

func (x *entityIndex) locate(id uint32) (segment int, offset int) {
	v := uint64(id) + x.base
	segment = bits.Len64(v) - x.baseBits
	offset = int(v - x.base<<segment)
	return segment, offset
}

func (x *entityIndex) slot(id uint32) *entitySlot {
	seg, off := x.locate(id)
	return &x.segments[seg][off]
}

// lookup returns the slot of a live id. It never panics.
func (x *entityIndex) lookup(e EntityId) (*entitySlot, bool) {
	if e.Version == 0 || e.ID >= x.next {
		return nil, false
	}
	s := x.slot(e.ID)
	if s.archetype == nil || s.version != e.Version {
		return nil, false
	}
	return s, true
}

// alloc hands out a recycled id with a bumped version, or a fresh id.
func (x *entityIndex) alloc() EntityId {
	if n := len(x.free); n > 0 {
		id := x.free[n-1]
		x.free = x.free[:n-1]
		s := x.slot(id)
		s.version = nextVersion(s.version)
		x.live++
		return EntityId{ID: id, Version: s.version}
	}

	if x.next == math.MaxUint32 {
		panic("ecs: entity id space exhausted")
	}
	id := x.next
	seg, _ := x.locate(id)
	for seg >= len(x.segments) {
		x.segments = append(x.segments, make([]entitySlot, x.base<<len(x.segments)))
	}
	x.next++
	s := x.slot(id)
	s.version = 1
	x.live++
	return EntityId{ID: id, Version: 1}
}

func (x *entityIndex) place(id uint32, a *Archetype, chunk, row int) {
	s := x.slot(id)
	s.archetype = a
	s.chunk = int32(chunk)
	s.row = int32(row)
}

func (x *entityIndex) release(id uint32) {
	s := x.slot(id)
	s.archetype = nil
	s.chunk = -1
	s.row = -1
	x.free = append(x.free, id)
	x.live--
}
