package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// View is a typed accessor over a struct of component pointers.
// The type T should be a struct whose fields are pointers to registered
// component types. Named fields can be marked as optional with the
// `ecs:"optional"` struct tag; embedded fields are always required.
//
//	type Mover struct {
//		*Position
//		*Velocity
//		Sprite *Sprite `ecs:"optional"`
//	}
type View[T any] struct {
	world       *World
	ids         []ComponentID
	optional    []bool
	fieldOffset []uintptr
	query       *QueryDescription
}

// NewView creates a view of T over w. Every field type must already be registered.
func NewView[T any](w *World) *View[T] {
	v := &View[T]{}
	v.Init(w)
	return v
}

// Init binds the view to w. The Scheduler calls it for View fields of
// registered systems.
func (v *View[T]) Init(w *World) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v.world = w
	v.ids = make([]ComponentID, 0, structType.NumField())
	v.optional = make([]bool, 0, structType.NumField())
	v.fieldOffset = make([]uintptr, 0, structType.NumField())

	var required []ComponentID
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		id, ok := w.registry.ID(field.Type.Elem())
		if !ok {
			panic(eris.Wrapf(ErrComponentNotRegistered, "%s in view %s", field.Type.Elem(), structType))
		}

		isOptional := false
		if !field.Anonymous {
			switch tag := field.Tag.Get("ecs"); tag {
			case "":
			case "optional":
				isOptional = true
			default:
				panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
			}
		}

		v.ids = append(v.ids, id)
		v.optional = append(v.optional, isOptional)
		v.fieldOffset = append(v.fieldOffset, field.Offset)
		if !isOptional {
			required = append(required, id)
		}
	}

	v.query = NewQuery().Include(required...).Build(w)
}

// Query returns the compiled query matching the view's required components.
func (v *View[T]) Query() *QueryDescription {
	return v.query
}

// Fill points the fields of ptr at e's components. It returns false if e does
// not exist or lacks a required component. Missing optional fields are set to nil.
func (v *View[T]) Fill(e Entity, ptr *T) bool {
	if e.world != v.world {
		return false
	}
	slot, ok := v.world.index.lookup(e.EntityId)
	if !ok || !v.query.Matches(slot.archetype) {
		return false
	}
	v.fill(slot.archetype.chunks[slot.chunk], int(slot.row), unsafe.Pointer(ptr))
	return true
}

// Get returns a populated view struct for e, or nil if e does not match.
func (v *View[T]) Get(e Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

func (v *View[T]) fill(c *Chunk, row int, structPtr unsafe.Pointer) {
	for i, id := range v.ids {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		slot := c.archetype.slot(id)
		if slot < 0 {
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = c.columns[slot].pointer(row)
	}
}

// Iter yields every matching entity with its populated view struct. The
// pointers stay valid until the next playback.
func (v *View[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		var result T
		resultPtr := unsafe.Pointer(&result)
		for c := range v.query.Chunks() {
			for row := range c.count {
				v.fill(c, row, resultPtr)
				if !yield(c.Entity(row), result) {
					return
				}
			}
		}
	}
}

// Values yields just the view structs.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Create queues a new entity holding a copy of every non-nil field of data.
// Panics if a required field is nil.
func (v *View[T]) Create(cb *CommandBuffer, data T) BufferedEntity {
	structPtr := unsafe.Pointer(&data)
	b := cb.Create()
	for i, id := range v.ids {
		componentPtr := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i]))
		if componentPtr == nil {
			if !v.optional[i] {
				panic("required component is nil in View.Create")
			}
			continue
		}
		t := v.world.registry.Type(id)
		b.Set(reflect.NewAt(t, componentPtr).Elem().Interface())
	}
	return b
}
