package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/entitydb/ecs"
)

type GameConfig struct {
	MaxPlayers int
	Difficulty string
}

func TestSingleton(t *testing.T) {
	w, _ := newTestWorld()

	config := ecs.NewSingleton[GameConfig](w, GameConfig{MaxPlayers: 4, Difficulty: "Normal"})
	assert.True(t, config.Exists())
	config.Get().Difficulty = "Hard"

	// later initializers are ignored
	same := ecs.NewSingleton[GameConfig](w, GameConfig{MaxPlayers: 1})
	assert.Same(t, config.Get(), same.Get())
	assert.Equal(t, GameConfig{MaxPlayers: 4, Difficulty: "Hard"}, *same.Get())

	zero := ecs.NewSingleton[Score](w)
	assert.Equal(t, Score(0), *zero.Get())

	var unbound ecs.Singleton[Health]
	assert.False(t, unbound.Exists())
	assert.Nil(t, unbound.Get())
	unbound.Init(w)
	assert.False(t, unbound.Exists())
}
