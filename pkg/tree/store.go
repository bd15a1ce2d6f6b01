package tree

import (
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store is the flat, parent-indexed tree.
type Store struct {
	elements map[string]*domain.Element
	roots    []string
	version  uint64
}

// New builds a Store from a flat element list and validates it.
//
// Elements are accepted in any order. The root list follows the order in which
// root elements appear in the input. If an element's parent lists no children at
// all, children are derived from ParentID in input order; otherwise the parent's
// Children list is authoritative and must agree with ParentID.
func New(elements []domain.Element) (*Store, error) {
	s, err := build(elements)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Unchecked builds a Store without validating it. It is meant for loading
// snapshots that may be inconsistent so that Repair can fix them.
// Elements with empty or duplicate IDs are skipped.
func Unchecked(elements []domain.Element) *Store {
	s := &Store{
		elements: make(map[string]*domain.Element, len(elements)),
		roots:    []string{},
	}
	for _, e := range elements {
		if e.ID == "" || s.Has(e.ID) {
			continue
		}
		c := e.Clone()
		s.elements[e.ID] = &c
		if c.IsRoot() {
			s.roots = append(s.roots, c.ID)
		}
	}
	return s
}

func build(elements []domain.Element) (*Store, error) {
	s := &Store{
		elements: make(map[string]*domain.Element, len(elements)),
		roots:    []string{},
	}
	for _, e := range elements {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: element with empty id", domain.ErrInvariantViolation)
		}
		if s.Has(e.ID) {
			return nil, fmt.Errorf("%w: duplicate element id %q", domain.ErrInvariantViolation, e.ID)
		}
		c := e.Clone()
		s.elements[e.ID] = &c
	}

	derived := make(map[string][]string)
	var order []string
	for _, e := range elements {
		if e.IsRoot() {
			s.roots = append(s.roots, e.ID)
			continue
		}
		if _, ok := derived[e.ParentID]; !ok {
			order = append(order, e.ParentID)
		}
		derived[e.ParentID] = append(derived[e.ParentID], e.ID)
	}
	for _, parentID := range order {
		kids := derived[parentID]
		p, ok := s.elements[parentID]
		if !ok {
			return nil, fmt.Errorf("%w: element %q references missing parent %q",
				domain.ErrInvariantViolation, kids[0], parentID)
		}
		if len(p.Children) == 0 {
			p.Children = kids
		}
	}
	return s, nil
}

// Len returns the number of elements.
func (s *Store) Len() int {
	return len(s.elements)
}

// Version is incremented on every successful mutation.
func (s *Store) Version() uint64 {
	return s.version
}

// Has reports whether id exists.
func (s *Store) Has(id string) bool {
	_, ok := s.elements[id]
	return ok
}

// Get returns a copy of the element.
func (s *Store) Get(id string) (domain.Element, bool) {
	e, ok := s.elements[id]
	if !ok {
		return domain.Element{}, false
	}
	return e.Clone(), true
}

// Roots returns a copy of the root list.
func (s *Store) Roots() []string {
	return slices.Clone(s.roots)
}

// Children returns a copy of the ordered children of parentID.
// RootID returns the root list. Unknown parents return nil.
func (s *Store) Children(parentID string) []string {
	if parentID == domain.RootID {
		return s.Roots()
	}
	p, ok := s.elements[parentID]
	if !ok {
		return nil
	}
	return slices.Clone(p.Children)
}

// Position returns the parent and sibling index of id.
func (s *Store) Position(id string) (parentID string, index int, ok bool) {
	e, found := s.elements[id]
	if !found {
		return "", -1, false
	}
	idx := slices.Index(s.siblings(e.ParentID), id)
	return e.ParentID, idx, idx >= 0
}

// IsAncestor reports whether ancestorID is a strict ancestor of id.
// The walk is bounded by the tree size so corrupted parent links cannot loop forever.
func (s *Store) IsAncestor(ancestorID, id string) bool {
	if ancestorID == domain.RootID {
		return s.Has(id)
	}
	cur, ok := s.elements[id]
	for steps := 0; ok && steps <= len(s.elements); steps++ {
		if cur.ParentID == domain.RootID {
			return false
		}
		if cur.ParentID == ancestorID {
			return true
		}
		cur, ok = s.elements[cur.ParentID]
	}
	return false
}

// Snapshot returns every element depth-first in sibling order.
// Elements unreachable from the root list (only possible in an invalid tree) are appended last.
func (s *Store) Snapshot() []domain.Element {
	out := make([]domain.Element, 0, len(s.elements))
	seen := make(map[string]bool, len(s.elements))
	var walk func(id string)
	walk = func(id string) {
		e, ok := s.elements[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, e.Clone())
		for _, ch := range e.Children {
			walk(ch)
		}
	}
	for _, id := range s.roots {
		walk(id)
	}
	if len(out) < len(s.elements) {
		rest := make([]string, 0, len(s.elements)-len(out))
		for id := range s.elements {
			if !seen[id] {
				rest = append(rest, id)
			}
		}
		slices.Sort(rest)
		for _, id := range rest {
			walk(id)
		}
	}
	return out
}

// Clone returns a deep copy that shares nothing with s.
func (s *Store) Clone() *Store {
	c := &Store{
		elements: make(map[string]*domain.Element, len(s.elements)),
		roots:    slices.Clone(s.roots),
		version:  s.version,
	}
	for id, e := range s.elements {
		cp := e.Clone()
		c.elements[id] = &cp
	}
	return c
}

// Swap replaces the contents of s with other and bumps the version.
// other must not be used afterwards.
func (s *Store) Swap(other *Store) {
	s.elements = other.elements
	s.roots = other.roots
	s.version++
}

// SetChildren replaces the ordered children of parentID with ids.
// ids must be a permutation of the current children.
func (s *Store) SetChildren(parentID string, ids []string) error {
	cur := s.siblings(parentID)
	if parentID != domain.RootID && !s.Has(parentID) {
		return fmt.Errorf("%w: unknown parent %q", domain.ErrInvariantViolation, parentID)
	}
	if !samePermutation(cur, ids) {
		return fmt.Errorf("%w: children of %q are not a permutation of the current list",
			domain.ErrInvariantViolation, parentID)
	}
	if slices.Equal(cur, ids) {
		return nil
	}
	s.setSiblings(parentID, slices.Clone(ids))
	s.version++
	return nil
}

// Detach removes id from its parent's children. The element keeps a stale ParentID
// until Attach is called; callers must only use it on a Clone.
func (s *Store) Detach(id string) (parentID string, index int, ok bool) {
	parentID, index, ok = s.Position(id)
	if !ok {
		return "", -1, false
	}
	sibs := s.siblings(parentID)
	s.setSiblings(parentID, slices.Delete(slices.Clone(sibs), index, index+1))
	return parentID, index, true
}

// Attach inserts id into parentID's children at index (clamped) and updates ParentID.
// It returns the index actually used.
func (s *Store) Attach(id, parentID string, index int) int {
	e := s.elements[id]
	sibs := s.siblings(parentID)
	index = max(0, min(index, len(sibs)))
	s.setSiblings(parentID, slices.Insert(slices.Clone(sibs), index, id))
	e.ParentID = parentID
	return index
}

func (s *Store) siblings(parentID string) []string {
	if parentID == domain.RootID {
		return s.roots
	}
	if p, ok := s.elements[parentID]; ok {
		return p.Children
	}
	return nil
}

func (s *Store) setSiblings(parentID string, ids []string) {
	if parentID == domain.RootID {
		s.roots = ids
		return
	}
	if p, ok := s.elements[parentID]; ok {
		p.Children = ids
	}
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
