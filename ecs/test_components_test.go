package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/entitydb/ecs"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type Score int32

type Frozen struct{}

type Circle struct{ Radius float32 }

type Square struct{ Side float32 }

// Ghost and Anchor are phantom markers.
type Ghost struct{ Note string }

type Anchor struct{}

// Hook runs Fn when disposed.
type Hook struct {
	Label string
	Fn    func(label string, aux *ecs.AuxBuffer)
}

func (h *Hook) Dispose(aux *ecs.AuxBuffer) {
	if h.Fn != nil {
		h.Fn(h.Label, aux)
	}
}

type testComponents struct {
	registry *ecs.ComponentRegistry
	position ecs.ComponentType[Position]
	velocity ecs.ComponentType[Velocity]
	name     ecs.ComponentType[Name]
	health   ecs.ComponentType[Health]
	score    ecs.ComponentType[Score]
	frozen   ecs.ComponentType[Frozen]
	circle   ecs.ComponentType[Circle]
	square   ecs.ComponentType[Square]
	ghost    ecs.ComponentType[Ghost]
	anchor   ecs.ComponentType[Anchor]
	hook     ecs.ComponentType[Hook]
}

func newTestComponents() testComponents {
	r := ecs.NewComponentRegistry()
	return testComponents{
		registry: r,
		position: ecs.RegisterComponent[Position](r),
		velocity: ecs.RegisterComponent[Velocity](r),
		name:     ecs.RegisterComponent[Name](r),
		health:   ecs.RegisterComponent[Health](r),
		score:    ecs.RegisterComponent[Score](r),
		frozen:   ecs.RegisterComponent[Frozen](r),
		circle:   ecs.RegisterComponent[Circle](r),
		square:   ecs.RegisterComponent[Square](r),
		ghost:    ecs.RegisterComponent[Ghost](r, ecs.AsPhantomMarker()),
		anchor:   ecs.RegisterComponent[Anchor](r, ecs.AsPhantomMarker()),
		hook:     ecs.RegisterComponent[Hook](r),
	}
}

func newTestWorld(opts ...ecs.Option) (*ecs.World, testComponents) {
	c := newTestComponents()
	return ecs.NewWorld(c.registry, opts...), c
}

// smallChunks keeps chunk-boundary cases cheap to reach.
func smallChunks(capacity int) ecs.Option {
	cfg := ecs.DefaultConfig()
	cfg.ChunkCapacity = capacity
	cfg.IndexSegmentSize = 4
	return ecs.WithConfig(cfg)
}

// spawn creates one entity with the given components and plays it back.
func spawn(w *ecs.World, components ...any) ecs.Entity {
	cb := w.NewCommandBuffer()
	b := cb.Create()
	for _, c := range components {
		b.Set(c)
	}
	return cb.Playback().Resolve(b)
}

// apply records with fn into a fresh buffer and plays it back.
func apply(w *ecs.World, fn func(cb *ecs.CommandBuffer)) *ecs.Resolver {
	cb := w.NewCommandBuffer()
	fn(cb)
	return cb.Playback()
}

// assertPanicsWith asserts that fn panics with an error matching target.
func assertPanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic wrapping %v", target)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, target)
	}()
	fn()
}

// checkArchetypes verifies the storage invariants of every archetype.
func checkArchetypes(t *testing.T, w *ecs.World) {
	t.Helper()
	total := 0
	for _, a := range w.Archetypes() {
		chunks := a.Chunks()
		rows := 0
		for i, c := range chunks {
			assert.Positive(t, c.Len(), "archetype %d keeps an empty chunk", a.ID())
			if i < len(chunks)-1 {
				assert.Equal(t, c.Capacity(), c.Len(), "archetype %d chunk %d is partial", a.ID(), i)
			}
			for _, id := range c.EntityIds() {
				e := w.Entity(id)
				require.True(t, e.Exists(), "row holds dead entity %s", id)
				assert.Same(t, a, e.Archetype())
			}
			rows += c.Len()
		}
		iterated := 0
		for range a.Entities() {
			iterated++
		}
		assert.Equal(t, a.EntityCount(), rows)
		assert.Equal(t, a.EntityCount(), iterated)
		total += rows
	}
	assert.Equal(t, w.EntityCount(), total)
}
