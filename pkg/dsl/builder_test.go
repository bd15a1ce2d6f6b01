package dsl

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Board(t *testing.T) {
	// 1. Build the tree using DSL
	b := New()

	b.Add("board").Container().Layout(domain.Layout{Direction: domain.LayoutRow})
	b.Add("todo").In("board").Container()
	b.Add("done").In("board").Container()
	b.Add("a").In("todo")
	b.Add("b").In("todo")
	b.Add("footer").Virtual()

	// 2. Compile
	elements, err := b.Build()
	require.NoError(t, err)
	require.Len(t, elements, 6)

	byID := make(map[string]domain.Element)
	for _, e := range elements {
		byID[e.ID] = e
	}

	// 3. Verify structure
	assert.Equal(t, []string{"todo", "done"}, byID["board"].Children)
	assert.Equal(t, []string{"a", "b"}, byID["todo"].Children)
	assert.Nil(t, byID["done"].Children)
	assert.Equal(t, "todo", byID["a"].ParentID)
	assert.True(t, byID["footer"].IsRoot())
	assert.True(t, byID["footer"].IsVirtual)

	layout, err := geometry.LayoutOf(byID["board"])
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutRow, layout.Direction)
}

func TestBuilder_Reparent(t *testing.T) {
	b := New()
	b.Add("left").Container()
	b.Add("right").Container()
	b.Add("x").In("left").In("right")

	elements, err := b.Build()
	require.NoError(t, err)

	assert.Nil(t, elements[0].Children)
	assert.Equal(t, []string{"x"}, elements[1].Children)
	assert.Equal(t, "right", elements[2].ParentID)
}

func TestBuilder_BackToRoot(t *testing.T) {
	b := New()
	b.Add("list").Container()
	b.Add("x").In("list").In(domain.RootID)

	elements, err := b.Build()
	require.NoError(t, err)

	assert.Nil(t, elements[0].Children)
	assert.True(t, elements[1].IsRoot())
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	first := b.Add("x")
	assert.Same(t, first, b.Add("x"))

	elements, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, elements, 1)
}

func TestBuilder_MissingParent(t *testing.T) {
	b := New()
	b.Add("orphan").In("ghost")

	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestBuilder_StyleAndSlot(t *testing.T) {
	b := New()
	b.Add("grid").Container().Style(map[string]string{
		"display":             "grid",
		"gridTemplateColumns": "1fr 1fr 1fr",
	})
	b.Add("cell").In("grid").Slot()

	doc, err := b.Document("layout")
	require.NoError(t, err)
	assert.Equal(t, "layout", doc.ID)

	layout, err := geometry.LayoutOf(doc.Elements[0])
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutGrid, layout.Direction)
	assert.Equal(t, 3, layout.GridColumns)

	cell := b.Add("cell").Build()
	assert.True(t, cell.IsSlot)
	assert.False(t, cell.Draggable())
}
