package domain

import "slices"

// TreeDiff represents the changes between two tree snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type TreeDiff struct {
	// DocumentID is always present to identify the target.
	DocumentID string `json:"document_id"`

	Version uint64 `json:"version"`

	// Parents maps element IDs to their new parent (RootID for root).
	Parents map[string]string `json:"parents,omitempty"`

	// Children maps parent IDs to their complete new children list.
	// The root list is keyed by RootID.
	Children map[string][]string `json:"children,omitempty"`

	// Removed lists element IDs present in the old snapshot but not the new one.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between two snapshots of the same document.
// If oldElems is nil, it returns a diff describing the entire new tree (initial load).
// It returns nil when nothing changed.
func Diff(documentID string, version uint64, oldElems, newElems []Element) *TreeDiff {
	diff := &TreeDiff{
		DocumentID: documentID,
		Version:    version,
		Parents:    make(map[string]string),
		Children:   make(map[string][]string),
	}

	oldByID := index(oldElems)
	newByID := index(newElems)

	oldRoots := rootsOf(oldElems)
	newRoots := rootsOf(newElems)
	if oldElems == nil || !slices.Equal(oldRoots, newRoots) {
		diff.Children[RootID] = newRoots
	}

	for _, e := range newElems {
		prev, existed := oldByID[e.ID]
		if !existed || prev.ParentID != e.ParentID {
			diff.Parents[e.ID] = e.ParentID
		}
		if !existed || !slices.Equal(prev.Children, e.Children) {
			if len(e.Children) > 0 || existed {
				diff.Children[e.ID] = append([]string{}, e.Children...)
			}
		}
	}

	for _, e := range oldElems {
		if _, ok := newByID[e.ID]; !ok {
			diff.Removed = append(diff.Removed, e.ID)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *TreeDiff) IsEmpty() bool {
	return len(d.Parents) == 0 && len(d.Children) == 0 && len(d.Removed) == 0
}

func index(elems []Element) map[string]Element {
	out := make(map[string]Element, len(elems))
	for _, e := range elems {
		out[e.ID] = e
	}
	return out
}

func rootsOf(elems []Element) []string {
	roots := []string{}
	for _, e := range elems {
		if e.IsRoot() {
			roots = append(roots, e.ID)
		}
	}
	return roots
}
