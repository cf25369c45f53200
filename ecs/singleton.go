package ecs

import "reflect"

// Singleton gives access to a single value of T owned by the world rather than
// by an entity. Use it for global state such as configuration or scores.
type Singleton[T any] struct {
	world *World
	value *T
}

// NewSingleton returns the world's singleton of T, creating it from initializer
// (or the zero value) if it does not exist yet.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{world: w}
	if !s.Exists() {
		v := new(T)
		if len(initializer) > 0 {
			*v = initializer[0]
		}
		w.singletons[reflect.TypeFor[T]()] = v
		s.value = v
	}
	return s
}

// Init binds the singleton to w. The Scheduler calls it for Singleton fields of
// registered systems.
func (s *Singleton[T]) Init(w *World) {
	s.world = w
	s.value = nil
}

// Get returns the value, or nil if the world holds no T.
func (s *Singleton[T]) Get() *T {
	if s.value == nil && s.world != nil {
		if v, ok := s.world.singletons[reflect.TypeFor[T]()]; ok {
			s.value = v.(*T)
		}
	}
	return s.value
}

// Exists reports whether the world holds a T.
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}
