package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// column is a type-erased dense array holding one component type for every row
// of a chunk.
type column interface {
	set(row int, value any)
	get(row int) any
	pointer(row int) unsafe.Pointer
	copyFrom(src column, dstRow, srcRow int)
	clear(row int)
	dispose(row int, aux *AuxBuffer)
}

// typedColumn is the only column implementation; T is the component type.
type typedColumn[T any] struct {
	data []T
}

func newTypedColumn[T any](capacity int) column {
	return &typedColumn[T]{data: make([]T, capacity)}
}

// set accepts either a T or a *T, the same way components are passed to Set.
func (c *typedColumn[T]) set(row int, value any) {
	switch v := value.(type) {
	case T:
		c.data[row] = v
	case *T:
		c.data[row] = *v
	default:
		panic(eris.Wrapf(ErrComponentTypeMismatch, "expected %s, got %T", reflect.TypeFor[T](), value))
	}
}

// get returns a pointer into the column.
func (c *typedColumn[T]) get(row int) any {
	return &c.data[row]
}

func (c *typedColumn[T]) pointer(row int) unsafe.Pointer {
	return unsafe.Pointer(&c.data[row])
}

func (c *typedColumn[T]) copyFrom(src column, dstRow, srcRow int) {
	c.data[dstRow] = src.(*typedColumn[T]).data[srcRow]
}

func (c *typedColumn[T]) clear(row int) {
	var zero T
	c.data[row] = zero
}

func (c *typedColumn[T]) dispose(row int, aux *AuxBuffer) {
	if d, ok := any(&c.data[row]).(Disposer); ok {
		d.Dispose(aux)
	}
}
