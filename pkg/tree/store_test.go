package tree_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	board
//	  column1: card1, card2
//	  column2: card3
//	footer
func sample() []domain.Element {
	return []domain.Element{
		{ID: "board", IsContainer: true},
		{ID: "column1", ParentID: "board", IsContainer: true},
		{ID: "card1", ParentID: "column1"},
		{ID: "card2", ParentID: "column1"},
		{ID: "column2", ParentID: "board", IsContainer: true},
		{ID: "card3", ParentID: "column2"},
		{ID: "footer"},
	}
}

func TestNew_DerivesChildren(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	assert.Equal(t, 7, s.Len())
	assert.Equal(t, []string{"board", "footer"}, s.Roots())
	assert.Equal(t, []string{"column1", "column2"}, s.Children("board"))
	assert.Equal(t, []string{"card1", "card2"}, s.Children("column1"))
	assert.Equal(t, s.Roots(), s.Children(domain.RootID))
	assert.Nil(t, s.Children("missing"))
	assert.Zero(t, s.Version())
}

func TestNew_ExplicitChildrenAreAuthoritative(t *testing.T) {
	s, err := tree.New([]domain.Element{
		{ID: "list", IsContainer: true, Children: []string{"b", "a"}},
		{ID: "a", ParentID: "list"},
		{ID: "b", ParentID: "list"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, s.Children("list"))
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		elements []domain.Element
	}{
		{"empty id", []domain.Element{{ID: ""}}},
		{"duplicate id", []domain.Element{{ID: "a"}, {ID: "a"}}},
		{"missing parent", []domain.Element{{ID: "a", ParentID: "ghost"}}},
		{"children disagree with parent", []domain.Element{
			{ID: "list", IsContainer: true, Children: []string{"a"}},
			{ID: "a"},
		}},
		{"unlisted child", []domain.Element{
			{ID: "list", IsContainer: true, Children: []string{"a"}},
			{ID: "a", ParentID: "list"},
			{ID: "b", ParentID: "list"},
		}},
		{"cycle", []domain.Element{
			{ID: "a", ParentID: "b", IsContainer: true, Children: []string{"b"}},
			{ID: "b", ParentID: "a", IsContainer: true, Children: []string{"a"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.New(tt.elements)
			assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		})
	}
}

func TestStore_Queries(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	parent, idx, ok := s.Position("card2")
	assert.True(t, ok)
	assert.Equal(t, "column1", parent)
	assert.Equal(t, 1, idx)

	parent, idx, ok = s.Position("footer")
	assert.True(t, ok)
	assert.Equal(t, domain.RootID, parent)
	assert.Equal(t, 1, idx)

	_, _, ok = s.Position("missing")
	assert.False(t, ok)

	assert.True(t, s.IsAncestor("board", "card3"))
	assert.True(t, s.IsAncestor("column2", "card3"))
	assert.False(t, s.IsAncestor("column1", "card3"))
	assert.False(t, s.IsAncestor("card3", "card3"))
	assert.True(t, s.IsAncestor(domain.RootID, "card3"))
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	e, ok := s.Get("column1")
	require.True(t, ok)
	e.Children[0] = "mutated"

	assert.Equal(t, []string{"card1", "card2"}, s.Children("column1"))
}

func TestStore_SnapshotIsDepthFirst(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	var ids []string
	for _, e := range s.Snapshot() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"board", "column1", "card1", "card2", "column2", "card3", "footer"}, ids)

	// A snapshot is a valid input for New.
	again, err := tree.New(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), again.Snapshot())
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	c := s.Clone()
	require.NoError(t, c.SetChildren("column1", []string{"card2", "card1"}))

	assert.Equal(t, []string{"card1", "card2"}, s.Children("column1"))
	assert.Equal(t, []string{"card2", "card1"}, c.Children("column1"))
}

func TestStore_SetChildren(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	require.NoError(t, s.SetChildren("column1", []string{"card1", "card2"}))
	assert.Zero(t, s.Version(), "identical order is not a mutation")

	require.NoError(t, s.SetChildren(domain.RootID, []string{"footer", "board"}))
	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, []string{"footer", "board"}, s.Roots())

	err = s.SetChildren("column1", []string{"card1"})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	err = s.SetChildren("column1", []string{"card1", "card3"})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	err = s.SetChildren("ghost", nil)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	assert.NoError(t, s.Validate())
}

func TestStore_SwapBumpsVersion(t *testing.T) {
	s, err := tree.New(sample())
	require.NoError(t, err)

	next := s.Clone()
	next.Detach("card1")
	next.Attach("card1", "column2", 0)
	s.Swap(next)

	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, []string{"card1", "card3"}, s.Children("column2"))
	assert.NoError(t, s.Validate())
}

func TestRepair(t *testing.T) {
	s := tree.Unchecked([]domain.Element{
		{ID: "list", IsContainer: true, Children: []string{"a", "a", "ghost", "orphan"}},
		{ID: "a", ParentID: "list"},
		{ID: "b", ParentID: "list"},
		{ID: "orphan", ParentID: "missing"},
		{ID: "x", ParentID: "y", IsContainer: true, Children: []string{"y"}},
		{ID: "y", ParentID: "x", IsContainer: true, Children: []string{"x"}},
	})
	require.ErrorIs(t, s.Validate(), domain.ErrInvariantViolation)

	rep := s.Repair()
	require.True(t, rep.Changed())
	assert.Contains(t, rep.DuplicatesRemoved, "a")
	assert.Contains(t, rep.DanglingRemoved, "ghost")
	assert.Contains(t, rep.Reattached, "b")
	assert.NotEmpty(t, rep.CyclesBroken)

	require.NoError(t, s.Validate())
	assert.Equal(t, 6, s.Len(), "repair never drops elements")
	assert.Equal(t, []string{"a", "b"}, s.Children("list"))
	assert.Contains(t, s.Roots(), "orphan")
	assert.Equal(t, uint64(1), s.Version())

	again := s.Repair()
	assert.False(t, again.Changed())
	assert.Equal(t, uint64(1), s.Version())
}

func TestUnchecked_SkipsBadIDs(t *testing.T) {
	s := tree.Unchecked([]domain.Element{{ID: ""}, {ID: "a"}, {ID: "a", IsContainer: true}})
	assert.Equal(t, 1, s.Len())
	e, _ := s.Get("a")
	assert.False(t, e.IsContainer, "first occurrence wins")
	assert.NoError(t, s.Validate())
}
