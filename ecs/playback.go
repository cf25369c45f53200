package ecs

import (
	"slices"
	"time"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AuxBuffer is handed to Disposer callbacks. The command buffer behind it is
// only allocated if a callback asks for it, and is played back as the next
// pass once the current one is done.
type AuxBuffer struct {
	world  *World
	buffer *CommandBuffer
}

// World returns the world being played back into.
func (a *AuxBuffer) World() *World {
	return a.world
}

// Commands returns the buffer for follow-up structural changes. Entities it
// creates are resolved through Resolver.Cascade of the triggering playback.
func (a *AuxBuffer) Commands() *CommandBuffer {
	if a.buffer == nil {
		a.buffer = a.world.NewCommandBuffer()
	}
	return a.buffer
}

func (a *AuxBuffer) pending() bool {
	return a.buffer != nil && !a.buffer.IsEmpty()
}

// Playback applies every queued create, Set, Remove and Delete to the world
// and returns a Resolver for the buffered entities. The buffer is empty and
// reusable afterwards.
//
// Creates are applied first, grouped by final signature. Operations on
// existing entities are then replayed per entity in log order: consecutive
// Set and Remove operations are folded so the entity migrates at most once per
// run, and a Delete takes effect where it was recorded. Operations on entities
// that no longer exist are skipped. Commands queued by Disposer callbacks run
// as follow-up passes, breadth first, up to Config.MaxDisposalDepth passes;
// Resolver.Cascade resolves the entities those passes created.
func (cb *CommandBuffer) Playback() *Resolver {
	w := cb.world
	if w.playing {
		panic(eris.Wrap(ErrPlaybackInProgress, "playback"))
	}
	w.playing = true
	defer func() { w.playing = false }()

	start := time.Now()
	p := newPass(w, 0)
	entities := p.applyCreates(cb.creates)
	p.applyOps(cb.ops)

	r := &Resolver{buffer: cb, epoch: cb.epoch, entities: entities}
	cb.played = cb.epoch
	cb.reset()

	r.cascade = w.drain(p)
	passes := len(r.cascade) + 1
	w.logger.Debug("playback",
		zap.Int("created", len(entities)),
		zap.Int("migrated", p.migrated),
		zap.Int("destroyed", p.destroyed),
		zap.Int("phantoms", p.phantoms),
		zap.Int("skipped", p.skipped),
		zap.Int("passes", passes),
		zap.Duration("elapsed", time.Since(start)),
	)
	return r
}

// pass applies one batch of commands; disposal callbacks of the batch share aux.
type pass struct {
	world   *World
	depth   int
	aux     AuxBuffer
	scratch []ComponentID

	migrated  int
	destroyed int
	phantoms  int
	skipped   int
}

func newPass(w *World, depth int) *pass {
	return &pass{world: w, depth: depth, aux: AuxBuffer{world: w}}
}

// drain plays back commands queued by disposal callbacks until none remain
// and returns one resolver per follow-up pass.
func (w *World) drain(p *pass) []*Resolver {
	var resolvers []*Resolver
	for p.aux.pending() {
		next := p.aux.buffer
		depth := p.depth + 1
		if depth > w.config.MaxDisposalDepth {
			w.logger.Error("disposal cascade too deep",
				zap.Int("depth", depth),
				zap.Int("pending", next.Len()),
			)
			panic(eris.Wrapf(ErrDisposalDepthExceeded, "depth %d", depth))
		}

		p = newPass(w, depth)
		entities := p.applyCreates(next.creates)
		p.applyOps(next.ops)
		resolvers = append(resolvers, &Resolver{buffer: next, epoch: next.epoch, entities: entities})
		next.played = next.epoch
		next.reset()

		w.logger.Debug("disposal pass",
			zap.Int("depth", depth),
			zap.Int("destroyed", p.destroyed),
			zap.Int("migrated", p.migrated),
		)
	}
	return resolvers
}

type createGroup struct {
	signature []ComponentID
	hash      ArchetypeHash
	members   []int
}

// applyCreates places buffered creates, looking up each distinct signature once.
func (p *pass) applyCreates(creates []bufferedCreate) []EntityId {
	if len(creates) == 0 {
		return nil
	}
	w := p.world

	var groups []*createGroup
	byHash := make(map[ArchetypeHash][]*createGroup)
	for i := range creates {
		comps := creates[i].components
		p.scratch = p.scratch[:0]
		for _, c := range comps {
			p.scratch = append(p.scratch, c.id)
		}
		h := HashOf(p.scratch...)

		var group *createGroup
		for _, g := range byHash[h] {
			if slices.Equal(g.signature, p.scratch) {
				group = g
				break
			}
		}
		if group == nil {
			group = &createGroup{signature: slices.Clone(p.scratch), hash: h}
			byHash[h] = append(byHash[h], group)
			groups = append(groups, group)
		}
		group.members = append(group.members, i)
	}

	out := make([]EntityId, len(creates))
	for _, g := range groups {
		a := w.getOrCreateArchetype(g.signature, g.hash)
		for _, i := range g.members {
			e, ci, ri := w.createEntity(a)
			chunk := a.chunks[ci]
			for k, c := range creates[i].components {
				chunk.columns[k].set(ri, c.value)
			}
			out[i] = e
		}
	}
	return out
}

// entityChange is the folded effect of a run of Set and Remove operations on
// one entity, up to the next Delete.
type entityChange struct {
	sets    []pendingComponent
	removes []ComponentID
}

func (c *entityChange) set(id ComponentID, value any) {
	c.removes = slices.DeleteFunc(c.removes, func(r ComponentID) bool { return r == id })
	for i := range c.sets {
		if c.sets[i].id == id {
			c.sets[i].value = value
			return
		}
	}
	c.sets = append(c.sets, pendingComponent{id: id, value: value})
}

func (c *entityChange) remove(id ComponentID) {
	c.sets = slices.DeleteFunc(c.sets, func(s pendingComponent) bool { return s.id == id })
	if !slices.Contains(c.removes, id) {
		c.removes = append(c.removes, id)
	}
}

func (c *entityChange) empty() bool {
	return len(c.sets) == 0 && len(c.removes) == 0
}

func (c *entityChange) reset() {
	clear(c.sets)
	c.sets = c.sets[:0]
	c.removes = c.removes[:0]
}

// entityLog is every operation recorded for one entity, in log order.
type entityLog struct {
	entity EntityId
	ops    []entityOp
}

func entityKey(e EntityId) uint64 {
	return uint64(e.ID)<<32 | uint64(e.Version)
}

// applyOps groups operations per entity, in order of first appearance, and
// replays each entity's operations in log order.
func (p *pass) applyOps(ops []entityOp) {
	if len(ops) == 0 {
		return
	}

	positions := intmap.New[uint64, int](len(ops))
	logs := make([]entityLog, 0, len(ops))
	for _, op := range ops {
		key := entityKey(op.entity)
		idx, ok := positions.Get(key)
		if !ok {
			idx = len(logs)
			logs = append(logs, entityLog{entity: op.entity})
			positions.Put(key, idx)
		}
		logs[idx].ops = append(logs[idx].ops, op)
	}

	var ch entityChange
	for i := range logs {
		p.applyLog(&logs[i], &ch)
	}
}

// applyLog folds Set and Remove operations until a Delete, applies the fold,
// then the Delete. Operations after a Delete that destroyed the entity are
// skipped; a phantom keeps receiving them.
func (p *pass) applyLog(log *entityLog, ch *entityChange) {
	ch.reset()
	for i, op := range log.ops {
		switch op.kind {
		case opSet:
			ch.set(op.id, op.value)
		case opRemove:
			ch.remove(op.id)
		case opDelete:
			slot, ok := p.applyChange(log.entity, ch)
			ch.reset()
			if ok {
				p.delete(slot, log.entity)
				_, ok = p.world.index.lookup(log.entity)
			}
			if !ok {
				p.skipped += len(log.ops) - i - 1
				return
			}
		}
	}
	p.applyChange(log.entity, ch)
}

// applyChange applies a folded change to e and returns e's slot, or false if e
// does not exist afterwards.
func (p *pass) applyChange(e EntityId, ch *entityChange) (*entitySlot, bool) {
	w := p.world
	slot, ok := w.index.lookup(e)
	if !ok {
		p.skipped++
		return nil, false
	}
	if ch.empty() {
		return slot, true
	}

	if from := slot.archetype; !p.sameSignature(from, ch) {
		hash := from.hash
		for _, s := range ch.sets {
			if !from.HasComponent(s.id) {
				hash = hash.Toggle(s.id)
			}
		}
		for _, id := range ch.removes {
			if from.HasComponent(id) {
				hash = hash.Toggle(id)
			}
		}
		to := w.getOrCreateArchetype(p.targetSignature(from, ch), hash)
		w.moveEntity(slot, e, to, &p.aux)
		p.migrated++
	}

	chunk := slot.archetype.chunks[slot.chunk]
	for _, s := range ch.sets {
		chunk.column(s.id).set(int(slot.row), s.value)
	}

	if p.settlePhantom(slot, e) {
		return nil, false
	}
	return slot, true
}

// sameSignature reports whether applying ch leaves from's signature unchanged,
// in which case values are written in place.
func (p *pass) sameSignature(from *Archetype, ch *entityChange) bool {
	for _, s := range ch.sets {
		if !from.HasComponent(s.id) {
			return false
		}
	}
	for _, id := range ch.removes {
		if from.HasComponent(id) {
			return false
		}
	}
	return true
}

// targetSignature builds (from ∪ sets) \ removes into the pass scratch slice.
func (p *pass) targetSignature(from *Archetype, ch *entityChange) []ComponentID {
	p.scratch = p.scratch[:0]
	for _, id := range from.signature {
		if !slices.Contains(ch.removes, id) {
			p.scratch = append(p.scratch, id)
		}
	}
	for _, s := range ch.sets {
		if !from.HasComponent(s.id) {
			p.scratch = append(p.scratch, s.id)
		}
	}
	slices.Sort(p.scratch)
	return p.scratch
}
