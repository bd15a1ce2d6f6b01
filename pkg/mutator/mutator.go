// Package mutator applies resolved drops to a tree.Store.
package mutator

import (
	"log/slog"
	"slices"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Mutator commits (subject, target) pairs into a Store.
type Mutator struct {
	store  *tree.Store
	logger *slog.Logger
}

// Option configures the Mutator.
type Option func(*Mutator)

// WithLogger configures a logger for the Mutator.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mutator) {
		m.logger = logger
	}
}

// New creates a Mutator bound to store.
func New(store *tree.Store, opts ...Option) *Mutator {
	m := &Mutator{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying tree store.
func (m *Mutator) Store() *tree.Store {
	return m.store
}

// Check reports whether subjectID may be moved into target.ContainerID without applying anything.
func (m *Mutator) Check(subjectID string, target domain.Target) error {
	if !m.store.Has(subjectID) {
		return domain.Reject(domain.ReasonSubjectNotFound, subjectID, target.ContainerID)
	}
	dest := target.ContainerID
	if dest == domain.RootID {
		return nil
	}
	if dest == subjectID {
		return domain.Reject(domain.ReasonTargetIsSubject, subjectID, dest)
	}
	parent, ok := m.store.Get(dest)
	if !ok {
		return domain.Reject(domain.ReasonTargetNotContainer, subjectID, dest)
	}
	if m.store.IsAncestor(subjectID, dest) {
		return domain.Reject(domain.ReasonTargetIsDescendant, subjectID, dest)
	}
	if !parent.AcceptsDrops() {
		return domain.Reject(domain.ReasonTargetNotContainer, subjectID, dest)
	}
	return nil
}

// Commit moves subjectID into target.
//
// The subject is removed from its current parent, re-parented, and inserted
// immediately before target.InsertBeforeID when that sibling can be located in
// the destination list after removal; otherwise at target.InsertIndex, clamped
// to [0, len]. The index is relative to the destination list after removal.
// All steps run on a clone that replaces the store only on success.
func (m *Mutator) Commit(subjectID string, target domain.Target) (domain.Move, error) {
	if err := m.Check(subjectID, target); err != nil {
		m.logger.Debug("commit rejected", "subject", subjectID, "target", target.ContainerID, "err", err)
		return domain.Move{}, err
	}

	next := m.store.Clone()
	oldParent, oldIndex, ok := next.Detach(subjectID)
	if !ok {
		// Subject exists but is not listed anywhere: the tree is corrupted.
		return domain.Move{}, domain.Reject(domain.ReasonSubjectNotFound, subjectID, target.ContainerID)
	}

	index := target.InsertIndex
	if target.InsertBeforeID != "" && target.InsertBeforeID != subjectID {
		if i := slices.Index(next.Children(target.ContainerID), target.InsertBeforeID); i >= 0 {
			index = i
		}
	}
	newIndex := next.Attach(subjectID, target.ContainerID, index)

	move := domain.Move{
		SubjectID:   subjectID,
		OldParentID: oldParent,
		NewParentID: target.ContainerID,
		OldIndex:    oldIndex,
		NewIndex:    newIndex,
	}
	if move.IsNoop() {
		return move, nil
	}

	m.store.Swap(next)
	m.logger.Debug("commit applied",
		"subject", subjectID,
		"from", oldParent, "from_index", oldIndex,
		"to", target.ContainerID, "to_index", newIndex,
	)
	return move, nil
}
