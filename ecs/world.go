package ecs

import (
	"reflect"
	"slices"
	"sync"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// World owns every archetype, the entity index and the compiled query cache.
//
// Structural changes only happen through CommandBuffer.Playback. Reads and
// parallel queries may run concurrently with each other, but never with a
// playback on the same World; that ordering is the caller's responsibility.
type World struct {
	registry *ComponentRegistry
	config   Config
	logger   *zap.Logger

	archetypes []*Archetype
	byHash     *intmap.Map[ArchetypeHash, []*Archetype]
	index      entityIndex
	queries    *intmap.Map[uint64, []*QueryDescription]
	queryMu    sync.Mutex
	singletons map[reflect.Type]any

	playing  bool
	poolOnce sync.Once
	pool     Pool
}

// Option configures a World.
type Option func(*World)

// WithConfig replaces DefaultConfig. NewWorld panics if cfg does not validate.
func WithConfig(cfg Config) Option {
	return func(w *World) {
		w.config = cfg
	}
}

// WithLogger sets the logger used for engine diagnostics. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithPool sets the pool returned by World.Pool.
func WithPool(pool Pool) Option {
	return func(w *World) {
		w.pool = pool
	}
}

// NewWorld creates an empty world bound to registry.
func NewWorld(registry *ComponentRegistry, opts ...Option) *World {
	w := &World{
		registry:   registry,
		config:     DefaultConfig(),
		logger:     zap.NewNop(),
		byHash:     intmap.New[ArchetypeHash, []*Archetype](64),
		queries:    intmap.New[uint64, []*QueryDescription](64),
		singletons: make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.config.Validate(); err != nil {
		panic(err)
	}
	w.index = newEntityIndex(w.config.IndexSegmentSize)
	return w
}

// Registry returns the component registry the world was created with.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Config returns the world's configuration.
func (w *World) Config() Config {
	return w.config
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger {
	return w.logger
}

// Archetypes returns every archetype in creation order.
func (w *World) Archetypes() []*Archetype {
	return w.archetypes
}

// EntityCount returns the number of existing entities, phantoms included.
func (w *World) EntityCount() int {
	return w.index.live
}

// Archetype returns the archetype for the given components in any order,
// creating it if needed. Panics with ErrDuplicateComponent if an id repeats.
func (w *World) Archetype(ids ...ComponentID) *Archetype {
	return w.GetOrCreateArchetype(ids, HashOf(ids...))
}

// GetOrCreateArchetype returns the archetype whose signature equals the given
// set, creating and registering it on a miss. hash must be the ArchetypeHash of
// signature. Candidates are filtered by hash first and confirmed by exact set
// comparison, so hash collisions are harmless.
func (w *World) GetOrCreateArchetype(signature []ComponentID, hash ArchetypeHash) *Archetype {
	sig := slices.Clone(signature)
	slices.Sort(sig)
	for i := 1; i < len(sig); i++ {
		if sig[i] == sig[i-1] {
			panic(eris.Wrapf(ErrDuplicateComponent, "component %d", sig[i]))
		}
	}
	if HashOf(sig...) != hash {
		panic(eris.Wrapf(ErrHashMismatch, "signature %v", sig))
	}
	for _, id := range sig {
		w.registry.descriptor(id)
	}
	return w.getOrCreateArchetype(sig, hash)
}

// getOrCreateArchetype expects a sorted, duplicate-free signature. The slice is
// copied if a new archetype is created, so callers may pass scratch space.
func (w *World) getOrCreateArchetype(signature []ComponentID, hash ArchetypeHash) *Archetype {
	bucket, _ := w.byHash.Get(hash)
	for _, a := range bucket {
		if slices.Equal(a.signature, signature) {
			return a
		}
	}

	a := newArchetype(w, len(w.archetypes), slices.Clone(signature), hash)
	w.archetypes = append(w.archetypes, a)
	w.byHash.Put(hash, append(bucket, a))

	w.logger.Debug("archetype created",
		zap.Int("archetype", a.id),
		zap.Int("components", len(a.signature)),
		zap.Bool("phantom", a.phantom),
		zap.Int("hash_bucket", len(bucket)+1),
	)
	return a
}

// Entity binds id to this world. The result may refer to a dead entity.
func (w *World) Entity(id EntityId) Entity {
	return Entity{EntityId: id, world: w}
}

// Exists reports whether id refers to an entity that has not been destroyed.
// It never panics.
func (w *World) Exists(id EntityId) bool {
	_, ok := w.index.lookup(id)
	return ok
}

// IsAlive reports whether id exists and is not a phantom. It never panics.
func (w *World) IsAlive(id EntityId) bool {
	slot, ok := w.index.lookup(id)
	return ok && !slot.archetype.phantom
}

// IsPhantom reports whether id exists as a phantom. It never panics.
func (w *World) IsPhantom(id EntityId) bool {
	slot, ok := w.index.lookup(id)
	return ok && slot.archetype.phantom
}

// Component returns a pointer to the component id of e as an untyped value.
// Phantoms are accepted. Panics if e does not exist or lacks the component.
func (w *World) Component(e Entity, id ComponentID) any {
	slot := w.mustLocate(e.EntityId)
	return slot.archetype.chunks[slot.chunk].Component(int(slot.row), id)
}

// AliveComponent is Component for alive entities only. It also panics with
// ErrEntityNotAlive if e is a phantom.
func (w *World) AliveComponent(e Entity, id ComponentID) any {
	slot := w.mustLocateAlive(e.EntityId)
	return slot.archetype.chunks[slot.chunk].Component(int(slot.row), id)
}

func (w *World) mustLocate(id EntityId) *entitySlot {
	slot, ok := w.index.lookup(id)
	if !ok {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s", id))
	}
	return slot
}

func (w *World) mustLocateAlive(id EntityId) *entitySlot {
	slot := w.mustLocate(id)
	if slot.archetype.phantom {
		panic(eris.Wrapf(ErrEntityNotAlive, "entity %s", id))
	}
	return slot
}

// Pool returns the world's worker pool, built from Config.Workers unless one
// was given with WithPool.
func (w *World) Pool() Pool {
	w.poolOnce.Do(func() {
		if w.pool == nil {
			w.pool = NewPool(w.config.Workers)
		}
	})
	return w.pool
}

// createEntity allocates an id and appends its row to a.
func (w *World) createEntity(a *Archetype) (EntityId, int, int) {
	e := w.index.alloc()
	ci, ri := a.AddEntity(e)
	w.index.place(e.ID, a, ci, ri)
	return e, ci, ri
}

// moveEntity migrates e's row into to, copying shared components and disposing
// the ones to does not carry.
func (w *World) moveEntity(slot *entitySlot, e EntityId, to *Archetype, aux *AuxBuffer) {
	from := slot.archetype
	ci, ri := int(slot.chunk), int(slot.row)

	nci, nri := to.AddEntity(e)
	from.copyRowTo(to, ci, ri, nci, nri)
	from.disposeRow(ci, ri, to, aux)
	moved, relocated := from.RemoveEntity(ci, ri)

	slot.archetype = to
	slot.chunk = int32(nci)
	slot.row = int32(nri)
	if relocated {
		w.index.place(moved.ID, from, ci, ri)
	}
}

// destroyEntity disposes every component of e, removes its row and frees the id.
func (w *World) destroyEntity(slot *entitySlot, e EntityId, aux *AuxBuffer) {
	a := slot.archetype
	ci, ri := int(slot.chunk), int(slot.row)

	a.disposeRow(ci, ri, nil, aux)
	moved, relocated := a.RemoveEntity(ci, ri)
	if relocated {
		w.index.place(moved.ID, a, ci, ri)
	}
	w.index.release(e.ID)
}
