package workspace_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column() []domain.Element {
	return []domain.Element{
		{ID: "col", IsContainer: true},
		{ID: "a", ParentID: "col"},
		{ID: "b", ParentID: "col"},
		{ID: "c", ParentID: "col"},
	}
}

func columnFrame() *geometry.Frame {
	return geometry.NewFrame().
		Set("col", domain.Rect{X: 0, Y: 0, Width: 200, Height: 200}).
		Set("a", domain.Rect{X: 0, Y: 0, Width: 200, Height: 40}).
		Set("b", domain.Rect{X: 0, Y: 50, Width: 200, Height: 40}).
		Set("c", domain.Rect{X: 0, Y: 100, Width: 200, Height: 40})
}

func setup(t *testing.T, opts ...workspace.Option) (*workspace.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := workspace.New(session.NewManager(store), opts...)
	_, err := svc.Put(context.Background(), "doc1", column())
	require.NoError(t, err)
	return svc, store
}

func TestService_PutAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	doc, err := svc.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), doc.Version)
	assert.Len(t, doc.Elements, 4)

	ids, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, ids)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestService_PutRejectsInvalidTree(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Put(context.Background(), "bad", []domain.Element{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestService_DragPersistsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	var diffs []*domain.TreeDiff
	unsubscribe := svc.Subscribe(func(d *domain.TreeDiff) { diffs = append(diffs, d) })
	defer unsubscribe()

	frame := columnFrame()
	sess, err := svc.BeginDrag(ctx, "doc1", "a", domain.Point{X: 100, Y: 20}, frame)
	require.NoError(t, err)
	assert.Equal(t, domain.DragPreparing, sess.State)

	sess, err = svc.UpdateDrag(ctx, "doc1", sess.ID, domain.Point{X: 100, Y: 130}, frame)
	require.NoError(t, err)
	assert.Equal(t, domain.DragDragging, sess.State)
	assert.Empty(t, diffs, "moving the pointer does not touch the tree")

	res, err := svc.EndDrag(ctx, "doc1", sess.ID, domain.Point{X: 100, Y: 130}, frame)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCommitted, res.Outcome)

	doc, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), doc.Version)
	for _, e := range doc.Elements {
		if e.ID == "col" {
			assert.Equal(t, []string{"b", "c", "a"}, e.Children)
		}
	}

	require.Len(t, diffs, 1)
	assert.Equal(t, "doc1", diffs[0].DocumentID)
	assert.Equal(t, uint64(2), diffs[0].Version)
	assert.Equal(t, []string{"b", "c", "a"}, diffs[0].Children["col"])
}

func TestService_ClickDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	frame := columnFrame()

	sess, err := svc.BeginDrag(ctx, "doc1", "a", domain.Point{X: 100, Y: 20}, frame)
	require.NoError(t, err)
	res, err := svc.EndDrag(ctx, "doc1", sess.ID, domain.Point{X: 101, Y: 21}, frame)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeClicked, res.Outcome)

	doc, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), doc.Version)
}

func TestService_CancelDrag(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	frame := columnFrame()

	sess, err := svc.BeginDrag(ctx, "doc1", "a", domain.Point{X: 100, Y: 20}, frame)
	require.NoError(t, err)
	require.NoError(t, svc.CancelDrag(ctx, "doc1"))

	_, err = svc.EndDrag(ctx, "doc1", sess.ID, domain.Point{}, frame)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestService_MoveAndReconcile(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	move, err := svc.Move(ctx, "doc1", "c", domain.Target{ContainerID: "col", InsertIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, move.NewIndex)

	report, err := svc.Reconcile(ctx, "doc1", "col", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, report.Order)

	doc, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), doc.Version)

	_, err = svc.Move(ctx, "doc1", "b", domain.Target{ContainerID: "a"})
	assert.ErrorIs(t, err, domain.ErrTargetNotContainer)

	_, err = svc.Move(ctx, "missing", "a", domain.Target{})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestService_RepairsStoredDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, &domain.Document{
		ID:      "broken",
		Version: 7,
		Elements: []domain.Element{
			{ID: "col", IsContainer: true, Children: []string{"a", "a", "ghost"}},
			{ID: "a", ParentID: "col"},
		},
	}))
	svc := workspace.New(session.NewManager(store))

	_, err := svc.Move(ctx, "broken", "a", domain.Target{ContainerID: domain.RootID})
	require.NoError(t, err)

	doc, err := store.Load(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), doc.Version, "one bump for the repair, one for the move")
}

func TestService_ReloadsNewerStoredVersion(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	_, err := svc.Move(ctx, "doc1", "c", domain.Target{ContainerID: "col", InsertIndex: 0})
	require.NoError(t, err)

	// Another replica replaces the document behind our back.
	require.NoError(t, store.Save(ctx, &domain.Document{
		ID:       "doc1",
		Version:  10,
		Elements: []domain.Element{{ID: "x"}, {ID: "y"}},
	}))

	move, err := svc.Move(ctx, "doc1", "y", domain.Target{ContainerID: domain.RootID, InsertIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, move.OldIndex)

	doc, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), doc.Version)
}

func TestService_EngineOptions(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, workspace.WithEngineOptions(arbor.WithThreshold(500)))
	frame := columnFrame()

	sess, err := svc.BeginDrag(ctx, "doc1", "a", domain.Point{X: 100, Y: 20}, frame)
	require.NoError(t, err)
	sess, err = svc.UpdateDrag(ctx, "doc1", sess.ID, domain.Point{X: 100, Y: 130}, frame)
	require.NoError(t, err)
	assert.Equal(t, domain.DragPreparing, sess.State)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	require.NoError(t, svc.Delete(ctx, "doc1"))
	_, err := svc.Get(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "doc1"), domain.ErrDocumentNotFound)
}
