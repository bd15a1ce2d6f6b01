package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Builder manages the tree construction.
type Builder struct {
	order    []string
	nodes    map[string]*ElementBuilder
	children map[string][]string // parent ID -> attached child IDs
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{
		nodes:    make(map[string]*ElementBuilder),
		children: make(map[string][]string),
	}
}

// Add creates a new element in the root list.
// If the element already exists, it returns the existing builder.
func (b *Builder) Add(id string) *ElementBuilder {
	if eb, ok := b.nodes[id]; ok {
		return eb
	}
	eb := &ElementBuilder{
		element: domain.Element{ID: id},
		builder: b,
	}
	b.nodes[id] = eb
	b.order = append(b.order, id)
	return eb
}

// Build compiles the declared elements into a validated flat list, in declaration order.
// Parents referenced with In but never added make the tree invalid.
func (b *Builder) Build() ([]domain.Element, error) {
	elements := make([]domain.Element, 0, len(b.order))
	for _, id := range b.order {
		e := b.nodes[id].element.Clone()
		e.Children = append([]string(nil), b.children[id]...)
		elements = append(elements, e)
	}

	if _, err := tree.New(elements); err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	return elements, nil
}

// Document wraps the built tree in a document with the given ID.
func (b *Builder) Document(id string) (*domain.Document, error) {
	elements, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, Elements: elements}, nil
}
