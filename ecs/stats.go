package ecs

import (
	"slices"
)

// WorldStats is a point-in-time summary of a world's storage.
type WorldStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	PhantomCount       int
	ChunkCount         int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ID             int
	Hash           ArchetypeHash
	ComponentTypes []string
	EntityCount    int
	ChunkCount     int
	Phantom        bool
}

// CollectStats walks every archetype and singleton. Archetypes that have never
// held an entity are still listed.
func (w *World) CollectStats() *WorldStats {
	stats := &WorldStats{
		ArchetypeCount:     len(w.archetypes),
		ArchetypeBreakdown: make([]ArchetypeStats, 0, len(w.archetypes)),
		SingletonCount:     len(w.singletons),
	}

	for _, a := range w.archetypes {
		names := make([]string, len(a.descriptors))
		for i, d := range a.descriptors {
			names[i] = d.typ.String()
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             a.id,
			Hash:           a.hash,
			ComponentTypes: names,
			EntityCount:    a.entityCount,
			ChunkCount:     len(a.chunks),
			Phantom:        a.phantom,
		})
		stats.TotalEntityCount += a.entityCount
		stats.ChunkCount += len(a.chunks)
		if a.phantom {
			stats.PhantomCount += a.entityCount
		}
	}

	for t := range w.singletons {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	slices.Sort(stats.SingletonTypes)
	return stats
}
