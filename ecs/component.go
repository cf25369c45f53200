package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// ComponentID is the dense, ordered identity of a registered component type.
type ComponentID uint32

// Phantom is the implicit marker carried by soft-deleted entities. It always has
// PhantomID and can never be set or removed through a command buffer.
type Phantom struct{}

// PhantomID is the ComponentID of Phantom in every registry.
const PhantomID ComponentID = 0

// Disposer is implemented (on the pointer receiver) by components that must
// release something when they are permanently removed from an entity. Dispose
// runs exactly once per removal, before the slot is overwritten. Structural
// changes must go through aux; it is played back after the current pass.
type Disposer interface {
	Dispose(aux *AuxBuffer)
}

// componentDescriptor is the static, per-type description stored in a registry.
type componentDescriptor struct {
	id            ComponentID
	typ           reflect.Type
	phantomMarker bool
	disposable    bool
	newColumn     func(capacity int) column
}

// ComponentOption configures a component type at registration.
type ComponentOption func(*componentDescriptor)

// AsPhantomMarker marks the component type as a phantom marker: deleting an
// entity that carries one turns it into a phantom instead of destroying it.
func AsPhantomMarker() ComponentOption {
	return func(d *componentDescriptor) {
		d.phantomMarker = true
	}
}

// ComponentRegistry assigns ComponentIDs to component types. Each World is bound
// to one registry; several worlds may share a registry. Registration is not
// safe for concurrent use and is expected to happen at startup.
type ComponentRegistry struct {
	descriptors []*componentDescriptor
	byType      map[reflect.Type]ComponentID
}

// NewComponentRegistry creates a registry with Phantom pre-registered as PhantomID.
func NewComponentRegistry() *ComponentRegistry {
	r := &ComponentRegistry{
		byType: make(map[reflect.Type]ComponentID),
	}
	RegisterComponent[Phantom](r)
	return r
}

// RegisterComponent registers T and returns its typed handle. Registering the
// same type again returns the existing handle and ignores opts.
func RegisterComponent[T any](r *ComponentRegistry, opts ...ComponentOption) ComponentType[T] {
	t := reflect.TypeFor[T]()
	if id, ok := r.byType[t]; ok {
		return ComponentType[T]{id: id}
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		panic("components cannot be pointers, interfaces, channels, or functions: " + t.String())
	}

	d := &componentDescriptor{
		id:        ComponentID(len(r.descriptors)),
		typ:       t,
		newColumn: newTypedColumn[T],
	}
	_, d.disposable = any((*T)(nil)).(Disposer)
	for _, opt := range opts {
		opt(d)
	}
	if t == reflect.TypeFor[Phantom]() {
		d.phantomMarker = false
	}

	r.descriptors = append(r.descriptors, d)
	r.byType[t] = d.id
	return ComponentType[T]{id: d.id}
}

// ComponentOf returns the handle of an already registered T.
func ComponentOf[T any](r *ComponentRegistry) ComponentType[T] {
	t := reflect.TypeFor[T]()
	id, ok := r.byType[t]
	if !ok {
		panic(eris.Wrapf(ErrComponentNotRegistered, "%s", t))
	}
	return ComponentType[T]{id: id}
}

// ID returns the ComponentID registered for t.
func (r *ComponentRegistry) ID(t reflect.Type) (ComponentID, bool) {
	id, ok := r.byType[t]
	return id, ok
}

// Type returns the Go type registered under id.
func (r *ComponentRegistry) Type(id ComponentID) reflect.Type {
	return r.descriptor(id).typ
}

// Len returns the number of registered types, including Phantom.
func (r *ComponentRegistry) Len() int {
	return len(r.descriptors)
}

// IsPhantomMarker reports whether id was registered with AsPhantomMarker.
func (r *ComponentRegistry) IsPhantomMarker(id ComponentID) bool {
	return r.descriptor(id).phantomMarker
}

func (r *ComponentRegistry) descriptor(id ComponentID) *componentDescriptor {
	if int(id) >= len(r.descriptors) {
		panic(eris.Wrapf(ErrComponentNotRegistered, "component id %d", id))
	}
	return r.descriptors[id]
}

// idOf resolves the ComponentID of a component value passed as T or *T.
func (r *ComponentRegistry) idOf(value any) ComponentID {
	t := reflect.TypeOf(value)
	if t == nil {
		panic(eris.Wrap(ErrComponentNotRegistered, "nil component value"))
	}
	if id, ok := r.byType[t]; ok {
		return id
	}
	if t.Kind() == reflect.Pointer {
		if id, ok := r.byType[t.Elem()]; ok {
			return id
		}
	}
	panic(eris.Wrapf(ErrComponentNotRegistered, "%s", t))
}

// ComponentType is the typed handle of a registered component, used for fast
// typed access to component data.
type ComponentType[T any] struct {
	id ComponentID
}

// ID returns the component's ComponentID.
func (c ComponentType[T]) ID() ComponentID {
	return c.id
}

// Has reports whether e exists and carries the component.
func (c ComponentType[T]) Has(e Entity) bool {
	return e.HasComponent(c.id)
}

// Get returns a pointer to the entity's component. The pointer is valid until
// the next playback touching the entity's archetype.
// Phantoms are accepted so their retained data can be read; use GetAlive to
// reject them. Panics if the entity does not exist or does not carry the
// component.
func (c ComponentType[T]) Get(e Entity) *T {
	if e.world == nil {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s has no world", e.EntityId))
	}
	return c.at(e.world.mustLocate(e.EntityId))
}

// GetAlive is Get for alive entities only. It also panics with
// ErrEntityNotAlive if the entity is a phantom.
func (c ComponentType[T]) GetAlive(e Entity) *T {
	if e.world == nil {
		panic(eris.Wrapf(ErrEntityNotFound, "entity %s has no world", e.EntityId))
	}
	return c.at(e.world.mustLocateAlive(e.EntityId))
}

func (c ComponentType[T]) at(slot *entitySlot) *T {
	col := slot.archetype.chunks[slot.chunk].column(c.id)
	return &col.(*typedColumn[T]).data[slot.row]
}

// Column returns the chunk's live rows of this component.
// Panics if the chunk's archetype does not carry the component.
func (c ComponentType[T]) Column(chunk *Chunk) []T {
	return chunk.column(c.id).(*typedColumn[T]).data[:chunk.count]
}
