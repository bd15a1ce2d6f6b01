package reconcile_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/mutator"
	"github.com/aretw0/arbor/pkg/reconcile"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corrupted() *tree.Store {
	return tree.Unchecked([]domain.Element{
		{ID: "list", IsContainer: true, Children: []string{"a", "a", "b", "ghost"}},
		{ID: "a", ParentID: "list"},
		{ID: "b", ParentID: "list"},
	})
}

func TestSupervisor_RepairsAndRetries(t *testing.T) {
	store := corrupted()
	sup := reconcile.NewSupervisor(reconcile.New(mutator.New(store)))

	report, err := sup.Reconcile(context.Background(), "list", []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repairs)
	assert.True(t, report.Changed())
	assert.Equal(t, []string{"b", "a"}, store.Children("list"))
	assert.NoError(t, store.Validate())
}

func TestSupervisor_RespectsAttemptBound(t *testing.T) {
	store := corrupted()
	sup := reconcile.NewSupervisor(reconcile.New(mutator.New(store)), reconcile.WithMaxRepairAttempts(0))

	_, err := sup.Reconcile(context.Background(), "list", []string{"b", "a"})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Error(t, store.Validate(), "no repair was attempted")
}

func TestSupervisor_DoesNotRetryMismatch(t *testing.T) {
	store := corrupted()
	sup := reconcile.NewSupervisor(reconcile.New(mutator.New(store)))

	report, err := sup.Reconcile(context.Background(), "list", []string{"b", "zzz"})
	assert.ErrorIs(t, err, domain.ErrReconciliationMismatch)
	assert.Equal(t, 1, report.Repairs, "repair happens first, the mismatch is final")
	assert.NoError(t, store.Validate())
}
