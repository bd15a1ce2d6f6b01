package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured log line per event.
// Pointer moves are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDragStart: func(ctx context.Context, e *domain.DragEvent) {
			logger.InfoContext(ctx, "drag_start", "session_id", e.SessionID, "subject", e.SubjectID)
		},
		OnDragMove: func(ctx context.Context, e *domain.DragEvent) {
			attrs := []any{"session_id", e.SessionID, "x", e.Pointer.X, "y", e.Pointer.Y}
			if e.Target != nil {
				attrs = append(attrs, "container", e.Target.ContainerID, "index", e.Target.InsertIndex)
			}
			logger.DebugContext(ctx, "drag_move", attrs...)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.InfoContext(ctx, "commit",
				"session_id", e.SessionID,
				"subject", e.Move.SubjectID,
				"from", e.Move.OldParentID, "from_index", e.Move.OldIndex,
				"to", e.Move.NewParentID, "to_index", e.Move.NewIndex,
			)
		},
		OnReject: func(ctx context.Context, e *domain.RejectEvent) {
			logger.WarnContext(ctx, "reject", "session_id", e.SessionID, "subject", e.SubjectID, "reason", e.Reason)
		},
		OnCancel: func(ctx context.Context, e *domain.DragEvent) {
			logger.InfoContext(ctx, "cancel", "session_id", e.SessionID, "subject", e.SubjectID)
		},
		OnReconcile: func(ctx context.Context, e *domain.ReconcileEvent) {
			logger.InfoContext(ctx, "reconcile", "parent", e.ParentID, "kind", e.Kind)
		},
	}
}
