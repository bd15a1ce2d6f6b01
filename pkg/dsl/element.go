package dsl

import (
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// ElementBuilder provides a fluent API for configuring an element.
type ElementBuilder struct {
	element domain.Element
	builder *Builder
}

// In attaches the element as the last child of parentID, detaching it from any previous parent.
// Passing domain.RootID moves it back to the root list.
func (e *ElementBuilder) In(parentID string) *ElementBuilder {
	b := e.builder
	id := e.element.ID
	if !e.element.IsRoot() {
		old := e.element.ParentID
		b.children[old] = slices.DeleteFunc(b.children[old], func(c string) bool { return c == id })
	}
	e.element.ParentID = parentID
	if parentID != domain.RootID {
		b.children[parentID] = append(b.children[parentID], id)
	}
	return e
}

// Container marks the element as able to receive dropped children.
func (e *ElementBuilder) Container() *ElementBuilder {
	e.element.IsContainer = true
	return e
}

// Virtual marks the element as a render-only placeholder. It cannot be dragged or dropped into.
func (e *ElementBuilder) Virtual() *ElementBuilder {
	e.element.IsVirtual = true
	return e
}

// Slot marks the element as a fixed slot of its parent.
func (e *ElementBuilder) Slot() *ElementBuilder {
	e.element.IsSlot = true
	return e
}

// Payload sets an opaque payload entry.
func (e *ElementBuilder) Payload(key string, value any) *ElementBuilder {
	if e.element.Payload == nil {
		e.element.Payload = make(map[string]any)
	}
	e.element.Payload[key] = value
	return e
}

// Layout records explicit layout metadata for axis inference.
func (e *ElementBuilder) Layout(layout domain.Layout) *ElementBuilder {
	entry := map[string]any{"direction": string(layout.Direction)}
	if layout.GridColumns > 0 {
		entry["grid_columns"] = layout.GridColumns
	}
	if layout.GridRows > 0 {
		entry["grid_rows"] = layout.GridRows
	}
	return e.Payload("layout", entry)
}

// Style records CSS-like style metadata ("display", "flexDirection", ...).
func (e *ElementBuilder) Style(props map[string]string) *ElementBuilder {
	entry := make(map[string]any, len(props))
	for k, v := range props {
		entry[k] = v
	}
	return e.Payload("style", entry)
}

// Build returns the element as configured so far, without its children.
// This is primarily used by the Builder, but exposed for advanced usage.
func (e *ElementBuilder) Build() domain.Element {
	return e.element.Clone()
}
