package runtime

import (
	"context"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
)

// resolve finds the drop slot under pointer. It returns the target (nil when nothing
// valid is under the pointer) and the id of the element that was hit.
//
// Hovering a container that accepts drops resolves among its children. Hovering
// anything else (a leaf, a virtual or slot container, the subject itself) resolves
// before or after that element in the nearest ancestor list that accepts drops.
func (c *Controller) resolve(ctx context.Context, subjectID string, pointer domain.Point) (*domain.Target, string) {
	if c.layout == nil {
		return nil, ""
	}
	hoverID, ok := c.layout.ElementAt(pointer)
	if !ok {
		return nil, ""
	}
	if c.store.IsAncestor(subjectID, hoverID) {
		// Pointer is over part of the subject: treat the subject as the hovered sibling.
		hoverID = subjectID
	}

	id := hoverID
	for steps := 0; steps <= c.store.Len(); steps++ {
		e, ok := c.store.Get(id)
		if !ok {
			return nil, hoverID
		}
		if e.ID != subjectID && e.AcceptsDrops() {
			return c.resolveIn(ctx, e, subjectID, pointer), hoverID
		}
		if t, ok := c.resolveAround(ctx, e, subjectID, pointer); ok {
			return t, hoverID
		}
		if e.IsRoot() {
			return nil, hoverID
		}
		id = e.ParentID
	}
	return nil, hoverID
}

// resolveIn places the pointer among the visible children of container.
func (c *Controller) resolveIn(ctx context.Context, container domain.Element, subjectID string, pointer domain.Point) *domain.Target {
	boxes := geometry.Boxes(c.layout, container.Children, subjectID)
	res := c.resolver.Resolve(c.layoutOf(ctx, container), boxes, pointer)
	return &domain.Target{
		ContainerID:    container.ID,
		InsertIndex:    res.InsertIndex,
		InsertBeforeID: res.InsertBeforeID,
	}
}

// resolveAround places the pointer before or after sibling inside sibling's parent.
// It reports false when the parent does not accept drops or sibling has no bounds.
func (c *Controller) resolveAround(ctx context.Context, sibling domain.Element, subjectID string, pointer domain.Point) (*domain.Target, bool) {
	var layout domain.Layout
	if !sibling.IsRoot() {
		parent, ok := c.store.Get(sibling.ParentID)
		if !ok || !parent.AcceptsDrops() || c.store.IsAncestor(subjectID, parent.ID) || parent.ID == subjectID {
			return nil, false
		}
		layout = c.layoutOf(ctx, parent)
	}
	rect, ok := c.layout.Bounds(sibling.ID)
	if !ok {
		return nil, false
	}

	siblings := slices.DeleteFunc(c.store.Children(sibling.ParentID), func(id string) bool { return id == subjectID })
	// The axis comes from the whole list; only the hovered sibling's halves matter.
	axis := geometry.InferAxis(layout, geometry.Boxes(c.layout, siblings))
	res := c.resolver.ResolveAlong(axis, []geometry.Box{{ID: sibling.ID, Rect: rect}}, pointer)

	t := &domain.Target{ContainerID: sibling.ParentID}
	if sibling.ID == subjectID {
		// Dropping onto its own footprint keeps the subject in place.
		_, index, _ := c.store.Position(subjectID)
		t.InsertIndex = index
	} else {
		t.InsertIndex = slices.Index(siblings, sibling.ID) + res.InsertIndex
	}
	if t.InsertIndex < len(siblings) {
		t.InsertBeforeID = siblings[t.InsertIndex]
	}
	return t, true
}

func (c *Controller) layoutOf(ctx context.Context, e domain.Element) domain.Layout {
	layout, err := geometry.LayoutOf(e)
	if err != nil {
		c.logger.WarnContext(ctx, "ignoring unreadable layout metadata", "element", e.ID, "err", err)
	}
	return layout
}
