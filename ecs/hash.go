package ecs

// ArchetypeHash is an order independent hash of a component set. It is only a
// fast reject; equal hashes still need an exact signature comparison.
type ArchetypeHash uint64

// Toggle adds id to the hashed set if absent, removes it if present.
func (h ArchetypeHash) Toggle(id ComponentID) ArchetypeHash {
	return h ^ ArchetypeHash(mixComponentID(id))
}

// HashOf returns the hash of the given component set.
func HashOf(ids ...ComponentID) ArchetypeHash {
	var h ArchetypeHash
	for _, id := range ids {
		h = h.Toggle(id)
	}
	return h
}

// mixComponentID is the splitmix64 finalizer, spreading dense ids over 64 bits.
func mixComponentID(id ComponentID) uint64 {
	z := uint64(id) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
