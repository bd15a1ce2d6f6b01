package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/mutator"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/google/uuid"
)

// Controller drives one drag gesture at a time against a tree.
type Controller struct {
	store     *tree.Store
	mutator   *mutator.Mutator
	resolver  geometry.Resolver
	layout    ports.Layout
	threshold float64
	mode      domain.InteractionMode
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	session *domain.DragSession
}

// NewController creates a Controller over store.
func NewController(store *tree.Store, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		resolver:  geometry.NewResolver(geometry.DefaultMargin),
		threshold: DefaultThreshold,
		mode:      domain.ModeDefault,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mutator = mutator.New(store, mutator.WithLogger(c.logger))
	return c
}

// Store returns the tree the controller mutates.
func (c *Controller) Store() *tree.Store {
	return c.store
}

// Mutator returns the mutator bound to the controller's store.
func (c *Controller) Mutator() *mutator.Mutator {
	return c.mutator
}

// SetLayout replaces the host layout. Hosts that re-render between events call it before each event.
func (c *Controller) SetLayout(layout ports.Layout) {
	c.layout = layout
}

// Threshold returns the configured drag threshold.
func (c *Controller) Threshold() float64 {
	return c.threshold
}

// Mode returns the active interaction mode.
func (c *Controller) Mode() domain.InteractionMode {
	return c.mode
}

// SetMode switches the interaction mode. Leaving the default mode cancels an active gesture.
func (c *Controller) SetMode(ctx context.Context, mode domain.InteractionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown interaction mode %q", mode)
	}
	c.mode = mode
	if !mode.AllowsDrag() {
		c.Cancel(ctx)
	}
	return nil
}

// Session returns a copy of the active session.
func (c *Controller) Session() (domain.DragSession, bool) {
	if c.session == nil {
		return domain.DragSession{}, false
	}
	return c.session.Snapshot(), true
}

// Begin opens a session on subjectID. It fails without side effects when a session is
// already active, the mode does not allow drags, or the subject is missing, virtual or a slot.
func (c *Controller) Begin(ctx context.Context, subjectID string, pointer domain.Point) (string, error) {
	if c.session != nil {
		return "", domain.ErrSessionActive
	}
	if !c.mode.AllowsDrag() {
		return "", fmt.Errorf("%w: interaction mode %q", domain.ErrInvalidSubject, c.mode)
	}
	subject, ok := c.store.Get(subjectID)
	if !ok {
		return "", fmt.Errorf("%w: %q not found", domain.ErrInvalidSubject, subjectID)
	}
	if !subject.Draggable() {
		return "", fmt.Errorf("%w: %q is virtual or a slot", domain.ErrInvalidSubject, subjectID)
	}

	parentID, index, _ := c.store.Position(subjectID)
	var offset domain.Point
	if c.layout != nil {
		if r, ok := c.layout.Bounds(subjectID); ok {
			offset = pointer.Sub(r.Origin())
		}
	}

	c.session = &domain.DragSession{
		ID:               uuid.NewString(),
		State:            domain.DragPreparing,
		SubjectID:        subjectID,
		Origin:           pointer,
		Current:          pointer,
		Offset:           offset,
		OriginalParentID: parentID,
		OriginalIndex:    index,
		StartedAt:        time.Now(),
	}
	c.logger.DebugContext(ctx, "drag session opened", "session_id", c.session.ID, "subject", subjectID)
	return c.session.ID, nil
}

// Move feeds a pointer position to the session. Crossing the threshold promotes the session
// to Dragging; while dragging the drop slot under the pointer is recomputed and cached.
func (c *Controller) Move(ctx context.Context, sessionID string, pointer domain.Point) error {
	if err := c.check(sessionID); err != nil {
		return err
	}
	s := c.session
	s.Current = pointer

	if s.State == domain.DragPreparing {
		if pointer.Distance(s.Origin) < c.threshold {
			return nil
		}
		s.State = domain.DragDragging
		c.logger.DebugContext(ctx, "drag started", "session_id", s.ID, "subject", s.SubjectID)
		if c.hooks.OnDragStart != nil {
			c.hooks.OnDragStart(ctx, c.dragEvent(domain.EventDragStart, s))
		}
	}

	s.ResolvedTarget, s.HoverID = c.resolve(ctx, s.SubjectID, pointer)
	if c.hooks.OnDragMove != nil {
		c.hooks.OnDragMove(ctx, c.dragEvent(domain.EventDragMove, s))
	}
	return nil
}

// End releases the pointer. A session that never crossed the threshold ends as a click.
// A dragging session commits once into its cached target, recomputed if stale and falling
// back to the end of the root list. The session is cleared whatever the commit result.
func (c *Controller) End(ctx context.Context, sessionID string, pointer domain.Point) (domain.DragResult, error) {
	if err := c.check(sessionID); err != nil {
		return domain.DragResult{}, err
	}
	s := c.session
	c.session = nil
	s.Current = pointer

	if s.State != domain.DragDragging {
		c.logger.DebugContext(ctx, "drag ended as click", "session_id", s.ID)
		return domain.DragResult{Outcome: domain.OutcomeClicked, Session: *s}, nil
	}

	target := s.ResolvedTarget
	if target != nil && c.stale(target) {
		c.logger.DebugContext(ctx, "cached target is stale, resolving again",
			"session_id", s.ID, "container", target.ContainerID, "before", target.InsertBeforeID)
		target, _ = c.resolve(ctx, s.SubjectID, pointer)
		if target != nil && c.stale(target) {
			target = nil
		}
	}
	if target == nil {
		fallback := domain.RootTarget(len(c.store.Roots()))
		target = &fallback
	}
	s.ResolvedTarget = target

	res := domain.DragResult{Session: s.Snapshot(), Target: s.Snapshot().ResolvedTarget}
	move, err := c.mutator.Commit(s.SubjectID, *target)
	if err != nil {
		res.Outcome = domain.OutcomeRejected
		res.Reason = domain.ReasonOf(err)
		c.logger.InfoContext(ctx, "drop rejected", "session_id", s.ID, "subject", s.SubjectID, "reason", res.Reason)
		if c.hooks.OnReject != nil {
			c.hooks.OnReject(ctx, &domain.RejectEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventReject, SessionID: s.ID},
				SubjectID: s.SubjectID,
				Reason:    res.Reason,
				Err:       err,
			})
		}
		return res, nil
	}

	res.Outcome = domain.OutcomeCommitted
	res.Move = &move
	if !move.IsNoop() && c.hooks.OnCommit != nil {
		c.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit, SessionID: s.ID},
			Move:      move,
		})
	}
	return res, nil
}

// Cancel discards the active session, if any. It never touches the tree.
func (c *Controller) Cancel(ctx context.Context) {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	c.logger.DebugContext(ctx, "drag cancelled", "session_id", s.ID)
	if c.hooks.OnCancel != nil {
		c.hooks.OnCancel(ctx, c.dragEvent(domain.EventCancel, s))
	}
}

func (c *Controller) check(sessionID string) error {
	if c.session == nil {
		return domain.ErrNoSession
	}
	if c.session.ID != sessionID {
		return fmt.Errorf("%w: got %q", domain.ErrSessionMismatch, sessionID)
	}
	return nil
}

// stale reports whether target refers to elements that no longer exist.
func (c *Controller) stale(t *domain.Target) bool {
	if t.ContainerID != domain.RootID && !c.store.Has(t.ContainerID) {
		return true
	}
	return t.InsertBeforeID != "" && !c.store.Has(t.InsertBeforeID)
}

func (c *Controller) dragEvent(typ domain.EventType, s *domain.DragSession) *domain.DragEvent {
	snap := s.Snapshot()
	return &domain.DragEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, SessionID: s.ID},
		SubjectID: s.SubjectID,
		Pointer:   s.Current,
		Target:    snap.ResolvedTarget,
	}
}
