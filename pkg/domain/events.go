package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDragStart EventType = "drag_start"
	EventDragMove  EventType = "drag_move"
	EventCommit    EventType = "commit"
	EventReject    EventType = "reject"
	EventCancel    EventType = "cancel"
	EventReconcile EventType = "reconcile"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// DragEvent reports a transition of the drag state machine.
type DragEvent struct {
	EventBase
	SubjectID string  `json:"subject_id"`
	Pointer   Point   `json:"pointer"`
	Target    *Target `json:"target,omitempty"`
}

// CommitEvent is emitted once per successful commit.
type CommitEvent struct {
	EventBase
	Move Move `json:"move"`
}

// RejectEvent is emitted when a commit was refused.
type RejectEvent struct {
	EventBase
	SubjectID string          `json:"subject_id"`
	Reason    RejectionReason `json:"reason"`
	Err       error           `json:"-"`
}

// ReconcileEvent is emitted after an externally observed order was folded into the tree.
type ReconcileEvent struct {
	EventBase
	ParentID string        `json:"parent_id"`
	Kind     ReconcileKind `json:"kind"`
	Changed  bool          `json:"changed"`
}

// LifecycleHooks defines callbacks for engine observability and host reactions.
// All hooks are optional.
type LifecycleHooks struct {
	OnDragStart func(context.Context, *DragEvent)
	OnDragMove  func(context.Context, *DragEvent)
	OnCommit    func(context.Context, *CommitEvent)
	OnReject    func(context.Context, *RejectEvent)
	OnCancel    func(context.Context, *DragEvent)
	OnReconcile func(context.Context, *ReconcileEvent)
}

// Merge returns hooks that call h first and then o for every event.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDragStart: chain(h.OnDragStart, o.OnDragStart),
		OnDragMove:  chain(h.OnDragMove, o.OnDragMove),
		OnCommit:    chain(h.OnCommit, o.OnCommit),
		OnReject:    chain(h.OnReject, o.OnReject),
		OnCancel:    chain(h.OnCancel, o.OnCancel),
		OnReconcile: chain(h.OnReconcile, o.OnReconcile),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
