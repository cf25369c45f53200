package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/entitydb/ecs"
)

type mover struct {
	*Position
	*Velocity
	Name *Name `ecs:"optional"`
}

func TestViewFillAndGet(t *testing.T) {
	w, c := newTestWorld()
	named := spawn(w, Position{X: 1}, Velocity{DX: 2}, Name{Value: "n"})
	unnamed := spawn(w, Position{X: 3}, Velocity{DX: 4})
	still := spawn(w, Position{X: 5})

	view := ecs.NewView[mover](w)

	var m mover
	require.True(t, view.Fill(named, &m))
	assert.Equal(t, float32(1), m.X)
	assert.Equal(t, "n", m.Name.Value)

	got := view.Get(unnamed)
	require.NotNil(t, got)
	assert.Nil(t, got.Name)
	assert.Equal(t, float32(4), got.DX)

	assert.Nil(t, view.Get(still))
	assert.Nil(t, view.Get(ecs.Entity{}))

	// fields point into storage
	got.X = 30
	assert.Equal(t, float32(30), c.position.Get(unnamed).X)
}

func TestViewIter(t *testing.T) {
	w, _ := newTestWorld(smallChunks(2))
	for i := range 5 {
		spawn(w, Position{X: float32(i)}, Velocity{DX: 1})
	}
	spawn(w, Position{X: 100})

	view := ecs.NewView[mover](w)
	var sum float32
	n := 0
	for e, m := range view.Iter() {
		assert.True(t, e.IsAlive())
		sum += m.X
		m.X += m.DX
		n++
	}
	assert.Equal(t, 5, n)
	assert.Equal(t, float32(10), sum)

	sum = 0
	for m := range view.Values() {
		sum += m.X
	}
	assert.Equal(t, float32(15), sum)
	assert.Equal(t, 5, view.Query().Count())
}

func TestViewCreate(t *testing.T) {
	w, c := newTestWorld()
	view := ecs.NewView[mover](w)

	pos := &Position{X: 7}
	cb := w.NewCommandBuffer()
	b := view.Create(cb, mover{Position: pos, Velocity: &Velocity{DX: 1}})
	pos.X = 99
	e := cb.Playback().Resolve(b)

	assert.Equal(t, float32(7), c.position.Get(e).X)
	assert.False(t, c.name.Has(e))

	assert.Panics(t, func() {
		view.Create(w.NewCommandBuffer(), mover{Position: &Position{}})
	})
}

func TestNewViewValidation(t *testing.T) {
	w, _ := newTestWorld()
	assert.Panics(t, func() { ecs.NewView[int](w) })
	assert.Panics(t, func() { ecs.NewView[struct{ P Position }](w) })
	assert.Panics(t, func() {
		ecs.NewView[struct {
			P *Position `ecs:"sometimes"`
		}](w)
	})
	assertPanicsWith(t, ecs.ErrComponentNotRegistered, func() {
		ecs.NewView[struct{ *Temperature }](w)
	})
}

type Temperature struct{ C float64 }
