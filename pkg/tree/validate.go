package tree

import (
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Validate checks the structural invariants and returns the first violation found,
// wrapped around domain.ErrInvariantViolation.
func (s *Store) Validate() error {
	listedIn := make(map[string]string, len(s.elements))

	check := func(owner string, ids []string) error {
		for _, id := range ids {
			e, ok := s.elements[id]
			if !ok {
				return fmt.Errorf("%w: %q lists unknown child %q", domain.ErrInvariantViolation, owner, id)
			}
			if prev, dup := listedIn[id]; dup {
				return fmt.Errorf("%w: %q listed under both %q and %q", domain.ErrInvariantViolation, id, prev, owner)
			}
			if e.ParentID != owner {
				return fmt.Errorf("%w: %q has parent %q but is listed under %q",
					domain.ErrInvariantViolation, id, e.ParentID, owner)
			}
			listedIn[id] = owner
		}
		return nil
	}

	if err := check(domain.RootID, s.roots); err != nil {
		return err
	}
	for id, e := range s.elements {
		if err := check(id, e.Children); err != nil {
			return err
		}
	}

	for id, e := range s.elements {
		if e.ParentID != domain.RootID && !s.Has(e.ParentID) {
			return fmt.Errorf("%w: %q references missing parent %q", domain.ErrInvariantViolation, id, e.ParentID)
		}
		if _, ok := listedIn[id]; !ok {
			return fmt.Errorf("%w: %q is missing from its parent's children", domain.ErrInvariantViolation, id)
		}
		if s.inCycle(id) {
			return fmt.Errorf("%w: %q is its own ancestor", domain.ErrInvariantViolation, id)
		}
	}
	return nil
}

func (s *Store) inCycle(id string) bool {
	visited := map[string]bool{}
	cur := s.elements[id]
	for cur.ParentID != domain.RootID {
		if cur.ParentID == id {
			return true
		}
		if visited[cur.ParentID] {
			return false
		}
		visited[cur.ParentID] = true
		next, ok := s.elements[cur.ParentID]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// RepairReport lists what Repair changed.
type RepairReport struct {
	DuplicatesRemoved []string `json:"duplicates_removed,omitempty"`
	DanglingRemoved   []string `json:"dangling_removed,omitempty"`
	Reattached        []string `json:"reattached,omitempty"`
	CyclesBroken      []string `json:"cycles_broken,omitempty"`
}

// Changed reports whether Repair modified the tree.
func (r RepairReport) Changed() bool {
	return len(r.DuplicatesRemoved)+len(r.DanglingRemoved)+len(r.Reattached)+len(r.CyclesBroken) > 0
}

// Repair restores the invariants after a structural inconsistency.
//
// Duplicate and unknown IDs are dropped from children lists, IDs listed under the
// wrong owner are removed, elements with a missing parent move to the root list,
// elements missing from their parent's list are appended to it, and cycles are
// broken by moving one member to the end of the root list.
func (s *Store) Repair() RepairReport {
	var rep RepairReport

	clean := func(owner string, ids []string) []string {
		seen := make(map[string]bool, len(ids))
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			e, ok := s.elements[id]
			switch {
			case !ok:
				rep.DanglingRemoved = append(rep.DanglingRemoved, id)
			case seen[id]:
				rep.DuplicatesRemoved = append(rep.DuplicatesRemoved, id)
			case e.ParentID != owner:
				rep.DanglingRemoved = append(rep.DanglingRemoved, id)
			default:
				seen[id] = true
				out = append(out, id)
			}
		}
		return out
	}

	s.roots = clean(domain.RootID, s.roots)
	for _, id := range s.sortedIDs() {
		e := s.elements[id]
		e.Children = clean(id, e.Children)
	}

	for _, id := range s.sortedIDs() {
		e := s.elements[id]
		if e.ParentID != domain.RootID && !s.Has(e.ParentID) {
			e.ParentID = domain.RootID
		}
	}
	for _, id := range s.sortedIDs() {
		e := s.elements[id]
		if s.inCycle(id) {
			if _, idx, ok := s.Position(id); ok {
				sibs := s.siblings(e.ParentID)
				s.setSiblings(e.ParentID, slices.Delete(slices.Clone(sibs), idx, idx+1))
			}
			e.ParentID = domain.RootID
			s.roots = append(s.roots, id)
			rep.CyclesBroken = append(rep.CyclesBroken, id)
		}
	}
	for _, id := range s.sortedIDs() {
		e := s.elements[id]
		if !slices.Contains(s.siblings(e.ParentID), id) {
			s.setSiblings(e.ParentID, append(slices.Clone(s.siblings(e.ParentID)), id))
			rep.Reattached = append(rep.Reattached, id)
		}
	}

	if rep.Changed() {
		s.version++
	}
	return rep
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.elements))
	for id := range s.elements {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
