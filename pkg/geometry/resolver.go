package geometry

import (
	"math"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

const (
	// DefaultMargin extends zones outward, past the first and last child and across the cross axis.
	DefaultMargin = 12.0
	// DefaultOverlap is how far adjacent zones bleed into each other along the main axis.
	DefaultOverlap = 2.0
)

// Box is a child and its bounding box.
type Box struct {
	ID   string
	Rect domain.Rect
}

// Zone is the region that claims one insertion slot.
type Zone struct {
	Index int
	Rect  domain.Rect
}

// Result is a resolved slot inside a container.
// InsertBeforeID is empty when inserting after the last child.
type Result struct {
	InsertIndex    int
	InsertBeforeID string
}

// Resolver computes insertion slots. The zero value is usable and falls back to the defaults.
type Resolver struct {
	Margin  float64
	Overlap float64
}

// NewResolver returns a Resolver with the given margin; non-positive values select the default.
func NewResolver(margin float64) Resolver {
	return Resolver{Margin: margin, Overlap: DefaultOverlap}
}

func (r Resolver) margin() float64 {
	if r.Margin <= 0 {
		return DefaultMargin
	}
	return r.Margin
}

func (r Resolver) overlap() float64 {
	if r.Overlap < 0 {
		return 0
	}
	if r.Overlap == 0 {
		return DefaultOverlap
	}
	return r.Overlap
}

// Resolve returns the insertion slot for pointer among children.
// children must already exclude the drag subject and any placeholder.
func (r Resolver) Resolve(layout domain.Layout, children []Box, pointer domain.Point) Result {
	return r.ResolveAlong(InferAxis(layout, children), children, pointer)
}

// ResolveAlong is Resolve with the main axis already decided, for callers that resolve
// against a subset of a container's children.
func (r Resolver) ResolveAlong(axis domain.Axis, children []Box, pointer domain.Point) Result {
	if len(children) == 0 {
		return Result{}
	}
	zones := r.Zones(axis, children)

	hit := -1
	for i, z := range zones {
		if z.Rect.Contains(pointer) {
			hit = i
			break
		}
	}
	if hit < 0 {
		best := math.Inf(1)
		for i, z := range zones {
			if d := z.Rect.Center().Distance(pointer); d < best {
				best, hit = d, i
			}
		}
	}

	res := Result{InsertIndex: zones[hit].Index}
	if res.InsertIndex < len(children) {
		res.InsertBeforeID = children[res.InsertIndex].ID
	}
	return res
}

// Zones builds len(children)+1 zones in document order.
//
// Along the main axis, zone i spans from the center of child i-1 to the center of
// child i; the first and last zones extend past the outer edge by the margin.
// Across the axis, each zone covers its neighbours' extent plus the margin.
func (r Resolver) Zones(axis domain.Axis, children []Box) []Zone {
	n := len(children)
	m := r.margin()
	ov := r.overlap()
	zones := make([]Zone, 0, n+1)

	for i := 0; i <= n; i++ {
		var (
			lo, hi           float64
			crossLo, crossHi float64
		)
		switch {
		case i == 0:
			first := children[0].Rect
			lo = mainStart(axis, first) - m
			hi = mainCenter(axis, first) + ov
			crossLo, crossHi = crossSpan(axis, first)
		case i == n:
			last := children[n-1].Rect
			lo = mainCenter(axis, last) - ov
			hi = mainEnd(axis, last) + m
			crossLo, crossHi = crossSpan(axis, last)
		default:
			prev, next := children[i-1].Rect, children[i].Rect
			a, b := mainCenter(axis, prev), mainCenter(axis, next)
			lo, hi = math.Min(a, b)-ov, math.Max(a, b)+ov
			pl, ph := crossSpan(axis, prev)
			nl, nh := crossSpan(axis, next)
			crossLo, crossHi = math.Min(pl, nl), math.Max(ph, nh)
		}
		crossLo -= m
		crossHi += m

		var rect domain.Rect
		if axis == domain.AxisHorizontal {
			rect = domain.Rect{X: lo, Y: crossLo, Width: hi - lo, Height: crossHi - crossLo}
		} else {
			rect = domain.Rect{X: crossLo, Y: lo, Width: crossHi - crossLo, Height: hi - lo}
		}
		zones = append(zones, Zone{Index: i, Rect: rect})
	}
	return zones
}

// InferAxis picks the main layout axis.
//
// Explicit row/column metadata wins. A grid with exactly one multi-track dimension
// flows along the other one. Otherwise the first two children decide: vertical when
// their vertical separation exceeds the horizontal one. Anything indeterminate is vertical.
func InferAxis(layout domain.Layout, children []Box) domain.Axis {
	switch layout.Direction {
	case domain.LayoutRow:
		return domain.AxisHorizontal
	case domain.LayoutColumn:
		return domain.AxisVertical
	case domain.LayoutGrid:
		cols, rows := layout.GridColumns > 1, layout.GridRows > 1
		if cols && !rows {
			return domain.AxisHorizontal
		}
		if rows && !cols {
			return domain.AxisVertical
		}
	}

	if len(children) < 2 {
		return domain.AxisVertical
	}
	a, b := children[0].Rect.Center(), children[1].Rect.Center()
	dx, dy := math.Abs(b.X-a.X), math.Abs(b.Y-a.Y)
	if dx > dy {
		return domain.AxisHorizontal
	}
	return domain.AxisVertical
}

// Boxes looks up bounds for ids in order, skipping excluded IDs and IDs the layout cannot place.
func Boxes(layout ports.Layout, ids []string, exclude ...string) []Box {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		if id != "" {
			skip[id] = true
		}
	}
	out := make([]Box, 0, len(ids))
	for _, id := range ids {
		if skip[id] {
			continue
		}
		rect, ok := layout.Bounds(id)
		if !ok {
			continue
		}
		out = append(out, Box{ID: id, Rect: rect})
	}
	return out
}

func mainStart(axis domain.Axis, r domain.Rect) float64 {
	if axis == domain.AxisHorizontal {
		return r.Left()
	}
	return r.Top()
}

func mainEnd(axis domain.Axis, r domain.Rect) float64 {
	if axis == domain.AxisHorizontal {
		return r.Right()
	}
	return r.Bottom()
}

func mainCenter(axis domain.Axis, r domain.Rect) float64 {
	c := r.Center()
	if axis == domain.AxisHorizontal {
		return c.X
	}
	return c.Y
}

func crossSpan(axis domain.Axis, r domain.Rect) (float64, float64) {
	if axis == domain.AxisHorizontal {
		return r.Top(), r.Bottom()
	}
	return r.Left(), r.Right()
}
