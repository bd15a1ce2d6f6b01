package ports

import "github.com/aretw0/arbor/pkg/domain"

// Layout is the host's geometric view of the rendered tree.
// The engine queries it during a drag and never caches the answers.
type Layout interface {
	// ElementAt returns the deepest element under p.
	ElementAt(p domain.Point) (string, bool)

	// Bounds returns the bounding box of id in the same coordinate space as pointer events.
	Bounds(id string) (domain.Rect, bool)
}
