package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/entitydb/ecs"
)

func archetypesOf(q *ecs.QueryDescription) []*ecs.Archetype {
	var out []*ecs.Archetype
	for _, m := range q.GetArchetypes() {
		out = append(out, m.Archetype)
	}
	return out
}

func TestQueryBuildIsCanonicalAndCached(t *testing.T) {
	w, c := newTestWorld()
	spawn(w, Position{}, Velocity{}, Circle{})
	spawn(w, Position{}, Square{})

	a := ecs.NewQuery().
		Include(c.position.ID(), c.velocity.ID()).
		Exclude(c.frozen.ID()).
		ExactlyOneOf(c.circle.ID(), c.square.ID()).
		AtLeastOneOf(c.name.ID(), c.health.ID()).
		Build(w)
	b := ecs.NewQuery().
		AtLeastOneOf(c.health.ID(), c.name.ID(), c.health.ID()).
		ExactlyOneOf(c.square.ID(), c.circle.ID()).
		Exclude(c.frozen.ID(), c.frozen.ID()).
		Include(c.velocity.ID()).
		Include(c.position.ID()).
		Build(w)

	assert.Same(t, a, b)
	assert.Equal(t, []ecs.ComponentID{c.position.ID(), c.velocity.ID()}, a.Include())
	assert.Equal(t, []ecs.ComponentID{ecs.PhantomID, c.frozen.ID()}, a.Exclude())
	assert.Equal(t, [][]ecs.ComponentID{{c.name.ID(), c.health.ID()}}, a.AtLeastOneOf())
	assert.Equal(t, [][]ecs.ComponentID{{c.circle.ID(), c.square.ID()}}, a.ExactlyOneOf())

	other := ecs.NewQuery().Include(c.position.ID()).Build(w)
	assert.NotSame(t, a, other)
	assert.NotSame(t, other, ecs.NewQuery().Exclude(c.position.ID()).Build(w))
}

func TestQueryGroupsAreOrderIndependent(t *testing.T) {
	w, c := newTestWorld()

	a := ecs.NewQuery().
		AtLeastOneOf(c.circle.ID(), c.square.ID()).
		AtLeastOneOf(c.name.ID(), c.health.ID()).
		Build(w)
	b := ecs.NewQuery().
		AtLeastOneOf(c.health.ID(), c.name.ID()).
		AtLeastOneOf(c.square.ID(), c.circle.ID()).
		Build(w)
	assert.Same(t, a, b)
	assert.Len(t, a.AtLeastOneOf(), 2)
}

func TestQueryRoleConflicts(t *testing.T) {
	w, c := newTestWorld()

	conflicts := map[string]*ecs.QueryBuilder{
		"include/exclude":      ecs.NewQuery().Include(c.position.ID()).Exclude(c.position.ID()),
		"include/atLeastOneOf": ecs.NewQuery().Include(c.position.ID()).AtLeastOneOf(c.position.ID(), c.name.ID()),
		"exclude/exactlyOneOf": ecs.NewQuery().Exclude(c.circle.ID()).ExactlyOneOf(c.circle.ID(), c.square.ID()),
		"groups":               ecs.NewQuery().AtLeastOneOf(c.circle.ID()).ExactlyOneOf(c.circle.ID(), c.square.ID()),
	}
	for name, b := range conflicts {
		t.Run(name, func(t *testing.T) {
			assertPanicsWith(t, ecs.ErrQueryRoleConflict, func() { b.Build(w) })
		})
	}

	// the same role in two groups is fine
	assert.NotPanics(t, func() {
		ecs.NewQuery().
			AtLeastOneOf(c.circle.ID(), c.name.ID()).
			AtLeastOneOf(c.circle.ID(), c.square.ID()).
			Build(w)
	})
	assertPanicsWith(t, ecs.ErrComponentNotRegistered, func() {
		ecs.NewQuery().Include(ecs.ComponentID(77)).Build(w)
	})
}

func TestQueryMatchCacheExtendsIncrementally(t *testing.T) {
	r := ecs.NewComponentRegistry()
	i32 := ecs.RegisterComponent[int32](r)
	f32 := ecs.RegisterComponent[float32](r)
	w := ecs.NewWorld(r)

	intOnly := w.Archetype(i32.ID())
	floatOnly := w.Archetype(f32.ID())

	q := ecs.NewQuery().Include(f32.ID()).Build(w)
	assert.Equal(t, []*ecs.Archetype{floatOnly}, archetypesOf(q))
	assert.False(t, q.Matches(intOnly))

	both := w.Archetype(i32.ID(), f32.ID())
	same := ecs.NewQuery().Include(f32.ID()).Build(w)
	require.Same(t, q, same)
	assert.Equal(t, []*ecs.Archetype{floatOnly, both}, archetypesOf(q))
}

func TestQueryGroupMatching(t *testing.T) {
	w, c := newTestWorld()
	circle := w.Archetype(c.position.ID(), c.circle.ID())
	square := w.Archetype(c.position.ID(), c.square.ID())
	both := w.Archetype(c.position.ID(), c.circle.ID(), c.square.ID())
	neither := w.Archetype(c.position.ID())
	named := w.Archetype(c.position.ID(), c.circle.ID(), c.name.ID(), c.health.ID())

	exactly := ecs.NewQuery().ExactlyOneOf(c.circle.ID(), c.square.ID()).Build(w)
	matches := exactly.GetArchetypes()
	require.Len(t, matches, 3)
	assert.Same(t, circle, matches[0].Archetype)
	assert.Equal(t, []ecs.ComponentID{c.circle.ID()}, matches[0].ExactlyOneOf)
	assert.Same(t, square, matches[1].Archetype)
	assert.Equal(t, []ecs.ComponentID{c.square.ID()}, matches[1].ExactlyOneOf)
	assert.Same(t, named, matches[2].Archetype)
	assert.False(t, exactly.Matches(both))
	assert.False(t, exactly.Matches(neither))

	atLeast := ecs.NewQuery().AtLeastOneOf(c.health.ID(), c.name.ID()).Build(w)
	matches = atLeast.GetArchetypes()
	require.Len(t, matches, 1)
	assert.Same(t, named, matches[0].Archetype)
	// lowest matching id wins
	assert.Equal(t, []ecs.ComponentID{c.name.ID()}, matches[0].AtLeastOneOf)

	excluding := ecs.NewQuery().Include(c.position.ID()).Exclude(c.square.ID()).Build(w)
	assert.Equal(t, []*ecs.Archetype{circle, neither, named}, archetypesOf(excluding))
}

func TestQueryIteration(t *testing.T) {
	w, c := newTestWorld(smallChunks(4))
	r := apply(w, func(cb *ecs.CommandBuffer) {
		for i := range 10 {
			cb.Create().Set(Position{X: float32(i)})
			cb.Create().Set(Position{X: float32(i)}).Set(Velocity{})
			cb.Create().Set(Velocity{})
		}
	})
	require.Equal(t, 30, r.Len())

	q := ecs.NewQuery().Include(c.position.ID()).Build(w)
	assert.Equal(t, 20, q.Count())

	chunks := 0
	for chunk := range q.Chunks() {
		assert.Positive(t, chunk.Len())
		chunks++
	}
	assert.Equal(t, 6, chunks) // 10 rows in two archetypes of capacity 4

	var sum float32
	n := 0
	for e := range q.Entities() {
		assert.True(t, q.Contains(e))
		sum += c.position.Get(e).X
		n++
	}
	assert.Equal(t, 20, n)
	assert.Equal(t, float32(90), sum)

	n = 0
	q.ForEachEntity(func(ecs.Entity) { n++ })
	assert.Equal(t, 20, n)

	rows := 0
	q.ForEach(func(chunk *ecs.Chunk) { rows += len(c.position.Column(chunk)) })
	assert.Equal(t, 20, rows)

	// early exit
	n = 0
	for range q.Entities() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)

	for _, e := range r.Entities() {
		assert.Equal(t, c.position.Has(e), q.Contains(e))
	}
	assert.False(t, q.Contains(ecs.Entity{}))
}

func TestEmptyQueryMatchesAllLiveArchetypes(t *testing.T) {
	w, c := newTestWorld()
	spawn(w, Position{})
	spawn(w)
	ghost := spawn(w, Ghost{})
	apply(w, func(cb *ecs.CommandBuffer) { cb.Delete(ghost) })

	q := ecs.NewQuery().Build(w)
	assert.Equal(t, 2, q.Count())
	assert.Len(t, q.GetArchetypes(), 3) // {Position}, {}, {Ghost}
	assert.True(t, q.Matches(w.Archetype(c.ghost.ID())))
	assert.False(t, q.Matches(w.Archetype(ecs.PhantomID, c.ghost.ID())))
}
