package ecs

// Phantom lifecycle:
//
//	Alive   --Delete, no marker-->      Destroyed
//	Alive   --Delete, >=1 marker-->     Phantom
//	Phantom --Delete-->                 Destroyed
//	Phantom --last marker removed-->    Destroyed
//
// The Phantom component itself is derived state and is only ever added here.

// settlePhantom destroys e if it is a phantom whose last phantom-marker
// component was just removed. It reports whether e was destroyed.
func (p *pass) settlePhantom(slot *entitySlot, e EntityId) bool {
	a := slot.archetype
	if !a.phantom || a.markers > 0 {
		return false
	}
	p.world.destroyEntity(slot, e, &p.aux)
	p.destroyed++
	return true
}

// delete applies a Delete to e: phantoms and entities without marker
// components are destroyed, anything else becomes a phantom.
func (p *pass) delete(slot *entitySlot, e EntityId) {
	w := p.world
	from := slot.archetype
	if from.phantom || from.markers == 0 {
		w.destroyEntity(slot, e, &p.aux)
		p.destroyed++
		return
	}

	// PhantomID is 0, so prepending keeps the signature sorted.
	p.scratch = append(p.scratch[:0], PhantomID)
	p.scratch = append(p.scratch, from.signature...)
	to := w.getOrCreateArchetype(p.scratch, from.hash.Toggle(PhantomID))
	w.moveEntity(slot, e, to, &p.aux)
	p.phantoms++
}
