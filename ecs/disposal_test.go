package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/entitydb/ecs"
)

// disposals records every Dispose call by label.
type disposals map[string]int

func (d disposals) hook(label string) Hook {
	return Hook{Label: label, Fn: func(label string, _ *ecs.AuxBuffer) { d[label]++ }}
}

func TestDisposeOnRemove(t *testing.T) {
	w, c := newTestWorld()
	d := disposals{}
	e := spawn(w, Position{}, d.hook("a"))

	apply(w, func(cb *ecs.CommandBuffer) { cb.Set(e, Velocity{}) })
	assert.Empty(t, d, "migration keeping the component must not dispose it")

	apply(w, func(cb *ecs.CommandBuffer) { cb.Remove(e, c.hook.ID()) })
	assert.Equal(t, disposals{"a": 1}, d)
	assert.True(t, e.IsAlive())
}

func TestDisposeOnDelete(t *testing.T) {
	w, _ := newTestWorld(smallChunks(2))
	d := disposals{}
	a := spawn(w, d.hook("a"))
	b := spawn(w, d.hook("b"))
	spawn(w, d.hook("c"))

	apply(w, func(cb *ecs.CommandBuffer) {
		cb.Delete(a)
		cb.Delete(b)
	})
	assert.Equal(t, disposals{"a": 1, "b": 1}, d)
	checkArchetypes(t, w)
}

func TestDisposalCascade(t *testing.T) {
	w, c := newTestWorld()
	target := spawn(w, Position{}, Name{Value: "target"})

	var created []ecs.BufferedEntity
	owner := spawn(w, Hook{Fn: func(_ string, aux *ecs.AuxBuffer) {
		require.Same(t, w, aux.World())
		aux.Commands().Delete(target)
		created = append(created, aux.Commands().Create().Set(Name{Value: "spawned"}))
	}})

	r := apply(w, func(cb *ecs.CommandBuffer) {
		cb.Set(target, Velocity{DX: 1})
		cb.Delete(owner)
	})

	assert.False(t, owner.Exists())
	assert.False(t, target.Exists())
	require.Len(t, created, 1)

	require.Len(t, r.Cascade(), 1)
	follow := r.Cascade()[0]
	assert.Equal(t, 1, follow.Len())
	e := follow.Resolve(created[0])
	assert.True(t, e.IsAlive())
	assert.Equal(t, "spawned", c.name.Get(e).Value)
	assertPanicsWith(t, ecs.ErrResolverMismatch, func() { r.Resolve(created[0]) })

	spawned := 0
	for e := range ecs.NewQuery().Include(c.name.ID()).Build(w).Entities() {
		assert.Equal(t, "spawned", c.name.Get(e).Value)
		spawned++
	}
	assert.Equal(t, 1, spawned)
}

// chain creates n entities where deleting entity k deletes entity k+1.
func chain(w *ecs.World, n int) []ecs.Entity {
	entities := make([]ecs.Entity, n)
	cb := w.NewCommandBuffer()
	pending := make([]ecs.BufferedEntity, n)
	for k := range n {
		pending[k] = cb.Create().Set(Hook{Fn: func(_ string, aux *ecs.AuxBuffer) {
			if k+1 < n {
				aux.Commands().Delete(entities[k+1])
			}
		}})
	}
	r := cb.Playback()
	for k, b := range pending {
		entities[k] = r.Resolve(b)
	}
	return entities
}

func TestDisposalCascadeDepth(t *testing.T) {
	cfg := ecs.DefaultConfig()
	cfg.MaxDisposalDepth = 3

	t.Run("within limit", func(t *testing.T) {
		w, _ := newTestWorld(ecs.WithConfig(cfg))
		entities := chain(w, 4)
		apply(w, func(cb *ecs.CommandBuffer) { cb.Delete(entities[0]) })
		for _, e := range entities {
			assert.False(t, e.Exists())
		}
	})

	t.Run("too deep", func(t *testing.T) {
		w, _ := newTestWorld(ecs.WithConfig(cfg))
		entities := chain(w, 5)
		assertPanicsWith(t, ecs.ErrDisposalDepthExceeded, func() {
			apply(w, func(cb *ecs.CommandBuffer) { cb.Delete(entities[0]) })
		})
	})
}

func TestAuxBufferIsLazy(t *testing.T) {
	w, _ := newTestWorld()
	calls := 0
	e := spawn(w, Hook{Fn: func(string, *ecs.AuxBuffer) { calls++ }})

	r := apply(w, func(cb *ecs.CommandBuffer) { cb.Delete(e) })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, w.EntityCount())
	assert.Empty(t, r.Cascade())
}

func TestNothingDisposedForSetAfterDelete(t *testing.T) {
	w, _ := newTestWorld()
	d := disposals{}
	e := spawn(w, Position{})

	apply(w, func(cb *ecs.CommandBuffer) {
		cb.Delete(e)
		cb.Set(e, d.hook("late"))
	})
	assert.False(t, e.Exists())
	assert.Empty(t, d)
}

func TestSetBeforeDeleteIsDisposed(t *testing.T) {
	w, _ := newTestWorld()
	d := disposals{}
	e := spawn(w, Position{})

	apply(w, func(cb *ecs.CommandBuffer) {
		cb.Set(e, d.hook("early"))
		cb.Delete(e)
	})
	assert.False(t, e.Exists())
	assert.Equal(t, disposals{"early": 1}, d)
}
