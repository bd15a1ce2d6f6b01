package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeService is the document-level API exposed to transports (HTTP, MCP).
// Every mutating call is serialized per document.
type TreeService interface {
	// List returns the IDs of known documents.
	List(ctx context.Context) ([]string, error)

	// Get returns the current snapshot of a document.
	Get(ctx context.Context, docID string) (*domain.Document, error)

	// Put replaces a document's elements. The elements must form a valid tree.
	Put(ctx context.Context, docID string, elements []domain.Element) (*domain.Document, error)

	// Delete removes a document.
	Delete(ctx context.Context, docID string) error

	// BeginDrag starts a gesture on subjectID.
	BeginDrag(ctx context.Context, docID, subjectID string, pointer domain.Point, layout Layout) (domain.DragSession, error)

	// UpdateDrag feeds a pointer move to the active gesture.
	UpdateDrag(ctx context.Context, docID, sessionID string, pointer domain.Point, layout Layout) (domain.DragSession, error)

	// EndDrag releases the pointer and commits, rejects or reports a click.
	EndDrag(ctx context.Context, docID, sessionID string, pointer domain.Point, layout Layout) (domain.DragResult, error)

	// CancelDrag aborts the active gesture, if any.
	CancelDrag(ctx context.Context, docID string) error

	// Move relocates subjectID to target without a gesture.
	Move(ctx context.Context, docID, subjectID string, target domain.Target) (domain.Move, error)

	// Reconcile folds a host-observed child order back into the tree.
	Reconcile(ctx context.Context, docID, parentID string, observed []string) (domain.ReconcileReport, error)

	// Subscribe registers fn for every committed tree change and returns a function that removes it.
	Subscribe(fn func(*domain.TreeDiff)) (unsubscribe func())
}
