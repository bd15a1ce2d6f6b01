package domain

// RootID is the parent ID of top-level elements.
const RootID = ""

// Element is a node in the edited tree.
//
// Children mirrors the reverse of ParentID and is the sole source of truth for
// render order. Payload is opaque layout/style data passed through unchanged.
type Element struct {
	ID          string         `json:"id" yaml:"id"`
	ParentID    string         `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Children    []string       `json:"children,omitempty" yaml:"children,omitempty"`
	IsContainer bool           `json:"is_container,omitempty" yaml:"is_container,omitempty"`
	IsVirtual   bool           `json:"is_virtual,omitempty" yaml:"is_virtual,omitempty"`
	IsSlot      bool           `json:"is_slot,omitempty" yaml:"is_slot,omitempty"`
	Payload     map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// IsRoot reports whether the element sits in the root list.
func (e Element) IsRoot() bool {
	return e.ParentID == RootID
}

// Draggable reports whether the element may be the subject of a drag.
func (e Element) Draggable() bool {
	return !e.IsVirtual && !e.IsSlot
}

// AcceptsDrops reports whether the element can receive dropped children.
func (e Element) AcceptsDrops() bool {
	return e.IsContainer && !e.IsVirtual && !e.IsSlot
}

// Clone returns a copy that shares no slices or maps with e.
func (e Element) Clone() Element {
	out := e
	if e.Children != nil {
		out.Children = append([]string(nil), e.Children...)
	}
	if e.Payload != nil {
		out.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			out.Payload[k] = v
		}
	}
	return out
}
