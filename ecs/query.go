package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
)

// QueryBuilder collects the parts of a query predicate. Call Build to get the
// world's compiled QueryDescription for it.
//
//	q := ecs.NewQuery().
//		Include(position.ID()).
//		Exclude(frozen.ID()).
//		ExactlyOneOf(circle.ID(), square.ID()).
//		Build(w)
type QueryBuilder struct {
	include      []ComponentID
	exclude      []ComponentID
	atLeastOneOf [][]ComponentID
	exactlyOneOf [][]ComponentID
}

// NewQuery starts an empty query. An empty query matches every non-phantom archetype.
func NewQuery() *QueryBuilder {
	return &QueryBuilder{}
}

// Include requires every given component.
func (b *QueryBuilder) Include(ids ...ComponentID) *QueryBuilder {
	b.include = append(b.include, ids...)
	return b
}

// Exclude rejects archetypes holding any given component.
func (b *QueryBuilder) Exclude(ids ...ComponentID) *QueryBuilder {
	b.exclude = append(b.exclude, ids...)
	return b
}

// AtLeastOneOf adds a group of which an archetype must hold one or more members.
// Each call declares a separate group. An empty group is ignored.
func (b *QueryBuilder) AtLeastOneOf(ids ...ComponentID) *QueryBuilder {
	if len(ids) > 0 {
		b.atLeastOneOf = append(b.atLeastOneOf, slices.Clone(ids))
	}
	return b
}

// ExactlyOneOf adds a group of which an archetype must hold exactly one member.
// Each call declares a separate group. An empty group is ignored.
func (b *QueryBuilder) ExactlyOneOf(ids ...ComponentID) *QueryBuilder {
	if len(ids) > 0 {
		b.exactlyOneOf = append(b.exactlyOneOf, slices.Clone(ids))
	}
	return b
}

// Build validates and canonicalizes the predicate and returns w's cached
// description for it, compiling one on first use. Equal predicates built in any
// order share one description.
//
// Panics with ErrQueryRoleConflict if a component appears in more than one role,
// and with ErrComponentNotRegistered for unknown ids.
func (b *QueryBuilder) Build(w *World) *QueryDescription {
	p := b.canonical()
	p.validate(w.registry)

	key := p.key()
	w.queryMu.Lock()
	defer w.queryMu.Unlock()
	bucket, _ := w.queries.Get(key)
	for _, q := range bucket {
		if q.predicate.equal(p) {
			return q
		}
	}

	q := &QueryDescription{world: w, predicate: p}
	w.queries.Put(key, append(bucket, q))
	return q
}

// predicate is the canonical form of a query: every list sorted and free of
// duplicates, groups ordered lexicographically.
type predicate struct {
	include      []ComponentID
	exclude      []ComponentID
	atLeastOneOf [][]ComponentID
	exactlyOneOf [][]ComponentID
}

func (b *QueryBuilder) canonical() predicate {
	p := predicate{
		include:      sortedSet(b.include),
		exclude:      sortedSet(b.exclude),
		atLeastOneOf: sortedGroups(b.atLeastOneOf),
		exactlyOneOf: sortedGroups(b.exactlyOneOf),
	}
	if !p.names(PhantomID) {
		p.exclude = slices.Insert(p.exclude, 0, PhantomID)
	}
	return p
}

func sortedSet(ids []ComponentID) []ComponentID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedGroups(groups [][]ComponentID) [][]ComponentID {
	out := make([][]ComponentID, len(groups))
	for i, g := range groups {
		out[i] = sortedSet(g)
	}
	slices.SortFunc(out, slices.Compare[[]ComponentID])
	return slices.CompactFunc(out, slices.Equal[[]ComponentID])
}

// names reports whether id appears in any role.
func (p *predicate) names(id ComponentID) bool {
	if slices.Contains(p.include, id) || slices.Contains(p.exclude, id) {
		return true
	}
	for _, g := range p.atLeastOneOf {
		if slices.Contains(g, id) {
			return true
		}
	}
	for _, g := range p.exactlyOneOf {
		if slices.Contains(g, id) {
			return true
		}
	}
	return false
}

type queryRole uint8

const (
	roleInclude queryRole = iota + 1
	roleExclude
	roleAtLeastOneOf
	roleExactlyOneOf
)

func (r queryRole) String() string {
	switch r {
	case roleInclude:
		return "Include"
	case roleExclude:
		return "Exclude"
	case roleAtLeastOneOf:
		return "AtLeastOneOf"
	case roleExactlyOneOf:
		return "ExactlyOneOf"
	}
	return "unknown"
}

// validate panics if any component is used in two roles. Appearing in several
// groups of the same role is allowed.
func (p *predicate) validate(r *ComponentRegistry) {
	roles := make(map[ComponentID]queryRole)
	claim := func(id ComponentID, role queryRole) {
		r.descriptor(id)
		if prev, ok := roles[id]; ok && prev != role {
			panic(eris.Wrapf(ErrQueryRoleConflict, "component %d in %s and %s", id, prev, role))
		}
		roles[id] = role
	}
	for _, id := range p.include {
		claim(id, roleInclude)
	}
	for _, id := range p.exclude {
		claim(id, roleExclude)
	}
	for _, g := range p.atLeastOneOf {
		for _, id := range g {
			claim(id, roleAtLeastOneOf)
		}
	}
	for _, g := range p.exactlyOneOf {
		for _, id := range g {
			claim(id, roleExactlyOneOf)
		}
	}
}

// key is an FNV-1a hash of the canonical form. Sections and groups are
// separated by markers outside the ComponentID range so that, for example,
// Include(1) and Exclude(1) hash differently.
func (p *predicate) key() uint64 {
	const (
		offset uint64 = 14695981039346656037
		prime  uint64 = 1099511628211
	)
	h := offset
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= v & 0xff
			h *= prime
			v >>= 8
		}
	}
	section := func(tag uint64, ids []ComponentID) {
		mix(tag << 32)
		for _, id := range ids {
			mix(uint64(id))
		}
	}
	section(1, p.include)
	section(2, p.exclude)
	for _, g := range p.atLeastOneOf {
		section(3, g)
	}
	for _, g := range p.exactlyOneOf {
		section(4, g)
	}
	return h
}

func (p *predicate) equal(o predicate) bool {
	return slices.Equal(p.include, o.include) &&
		slices.Equal(p.exclude, o.exclude) &&
		slices.EqualFunc(p.atLeastOneOf, o.atLeastOneOf, slices.Equal[[]ComponentID]) &&
		slices.EqualFunc(p.exactlyOneOf, o.exactlyOneOf, slices.Equal[[]ComponentID])
}

// matches reports whether a satisfies the predicate.
func (p *predicate) matches(a *Archetype) bool {
	for _, id := range p.include {
		if !a.HasComponent(id) {
			return false
		}
	}
	for _, id := range p.exclude {
		if a.HasComponent(id) {
			return false
		}
	}
	for _, g := range p.atLeastOneOf {
		if firstPresent(a, g) < 0 {
			return false
		}
	}
	for _, g := range p.exactlyOneOf {
		if _, n := countPresent(a, g); n != 1 {
			return false
		}
	}
	return true
}

// match evaluates a and records the matched member of every group.
func (p *predicate) match(a *Archetype) (ArchetypeMatch, bool) {
	if !p.matches(a) {
		return ArchetypeMatch{}, false
	}
	m := ArchetypeMatch{Archetype: a}
	if len(p.atLeastOneOf) > 0 {
		m.AtLeastOneOf = make([]ComponentID, len(p.atLeastOneOf))
		for i, g := range p.atLeastOneOf {
			m.AtLeastOneOf[i] = g[firstPresent(a, g)]
		}
	}
	if len(p.exactlyOneOf) > 0 {
		m.ExactlyOneOf = make([]ComponentID, len(p.exactlyOneOf))
		for i, g := range p.exactlyOneOf {
			m.ExactlyOneOf[i], _ = countPresent(a, g)
		}
	}
	return m, true
}

// firstPresent returns the index of the lowest group member a holds, or -1.
func firstPresent(a *Archetype, group []ComponentID) int {
	for i, id := range group {
		if a.HasComponent(id) {
			return i
		}
	}
	return -1
}

func countPresent(a *Archetype, group []ComponentID) (ComponentID, int) {
	var found ComponentID
	n := 0
	for _, id := range group {
		if a.HasComponent(id) {
			found = id
			n++
		}
	}
	return found, n
}
