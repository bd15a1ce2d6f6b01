package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore implementation
// adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")

	sample := func(id string) *domain.Document {
		return &domain.Document{
			ID: id,
			Elements: []domain.Element{
				{ID: "list", IsContainer: true, Children: []string{"a", "b"}},
				{ID: "a", ParentID: "list", Payload: map[string]any{"label": "first"}},
				{ID: "b", ParentID: "list"},
			},
			Version:   3,
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		doc := sample(docID)
		require.NoError(t, store.Save(ctx, doc), "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc.ID, loaded.ID)
		assert.Equal(t, doc.Version, loaded.Version)
		require.Len(t, loaded.Elements, 3)
		assert.Equal(t, []string{"a", "b"}, loaded.Elements[0].Children)
		assert.Equal(t, "list", loaded.Elements[1].ParentID)
		assert.Equal(t, "first", loaded.Elements[1].Payload["label"])
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(docID)))

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		loaded.Elements[0].Children[0] = "mutated"

		again, err := store.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "a", again.Elements[0].Children[0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(docID)))

		require.NoError(t, store.Delete(ctx, docID), "Delete should not return error")

		_, err := store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		_ = store.Save(ctx, sample(id1))
		_ = store.Save(ctx, sample(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
