package geometry

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

var _ ports.Layout = (*Frame)(nil)

// Frame is a host-supplied snapshot of element bounds.
//
// Order lists IDs in paint order; later entries sit on top. IDs missing from Order
// are treated as painted before every ordered ID.
type Frame struct {
	Rects map[string]domain.Rect `json:"rects" yaml:"rects"`
	Order []string               `json:"order,omitempty" yaml:"order,omitempty"`
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{Rects: make(map[string]domain.Rect)}
}

// Set records the bounds of id and appends it to the paint order.
func (f *Frame) Set(id string, r domain.Rect) *Frame {
	if f.Rects == nil {
		f.Rects = make(map[string]domain.Rect)
	}
	if _, seen := f.Rects[id]; !seen {
		f.Order = append(f.Order, id)
	}
	f.Rects[id] = r
	return f
}

// Bounds implements ports.Layout.
func (f *Frame) Bounds(id string) (domain.Rect, bool) {
	if f == nil {
		return domain.Rect{}, false
	}
	r, ok := f.Rects[id]
	return r, ok
}

// ElementAt implements ports.Layout.
// The smallest rect containing p wins, approximating the deepest element;
// equal areas fall back to paint order.
func (f *Frame) ElementAt(p domain.Point) (string, bool) {
	if f == nil {
		return "", false
	}
	rank := make(map[string]int, len(f.Order))
	for i, id := range f.Order {
		rank[id] = i + 1
	}

	var (
		best     string
		bestArea float64
		found    bool
	)
	for id, r := range f.Rects {
		if !r.Contains(p) {
			continue
		}
		area := r.Width * r.Height
		switch {
		case !found, area < bestArea:
		case area == bestArea && (rank[id] > rank[best] || rank[id] == rank[best] && id > best):
		default:
			continue
		}
		best, bestArea, found = id, area, true
	}
	return best, found
}
