package arbor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/reconcile"
	"github.com/aretw0/arbor/pkg/tree"
)

// Engine is the high-level entry point for the Arbor library.
// It owns one tree and wires the drag controller, the mutator and reconciliation around it.
//
// An Engine is not safe for concurrent use; hosts serving several clients serialize
// calls per document (pkg/workspace does this with pkg/session).
type Engine struct {
	store      *tree.Store
	controller *runtime.Controller
	supervisor *reconcile.Supervisor

	threshold  float64
	margin     float64
	maxRepairs int
	mode       domain.InteractionMode
	layout     ports.Layout
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	Name       string

	mu      sync.Mutex
	subs    map[int]func(domain.Move)
	nextSub int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithThreshold sets the pointer travel, in pixels, that turns a press into a drag.
func WithThreshold(px float64) Option {
	return func(e *Engine) {
		e.threshold = px
	}
}

// WithZoneMargin sets how far drop zones extend past children.
func WithZoneMargin(px float64) Option {
	return func(e *Engine) {
		e.margin = px
	}
}

// WithMaxRepairAttempts bounds repair-and-retry cycles during reconciliation.
func WithMaxRepairAttempts(n int) Option {
	return func(e *Engine) {
		e.maxRepairs = n
	}
}

// WithLayout sets the host layout used for hit-testing and bounds.
func WithLayout(layout ports.Layout) Option {
	return func(e *Engine) {
		e.layout = layout
	}
}

// WithInteractionMode sets the initial interaction mode.
func WithInteractionMode(mode domain.InteractionMode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName labels the engine; the name is attached to every log line.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New builds an Engine over elements, which must form a valid tree.
func New(elements []domain.Element, opts ...Option) (*Engine, error) {
	store, err := tree.New(elements)
	if err != nil {
		return nil, err
	}
	return newEngine(store, opts), nil
}

// NewRepaired builds an Engine over elements, repairing structural inconsistencies
// instead of failing. Elements with empty or duplicate IDs are dropped.
func NewRepaired(elements []domain.Element, opts ...Option) (*Engine, tree.RepairReport) {
	store := tree.Unchecked(elements)
	report := store.Repair()
	return newEngine(store, opts), report
}

func newEngine(store *tree.Store, opts []Option) *Engine {
	eng := &Engine{
		store:      store,
		threshold:  runtime.DefaultThreshold,
		margin:     geometry.DefaultMargin,
		maxRepairs: reconcile.DefaultMaxRepairAttempts,
		mode:       domain.ModeDefault,
		subs:       make(map[int]func(domain.Move)),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("document", eng.Name)
	}

	hooks := eng.hooks.Merge(domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, ev *domain.CommitEvent) {
			eng.notify(ev.Move)
		},
	})

	eng.controller = runtime.NewController(store,
		runtime.WithThreshold(eng.threshold),
		runtime.WithResolver(geometry.NewResolver(eng.margin)),
		runtime.WithLayout(eng.layout),
		runtime.WithMode(eng.mode),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(eng.logger),
	)
	reconciler := reconcile.New(eng.controller.Mutator(),
		reconcile.WithLifecycleHooks(hooks),
		reconcile.WithLogger(eng.logger),
	)
	eng.supervisor = reconcile.NewSupervisor(reconciler,
		reconcile.WithMaxRepairAttempts(eng.maxRepairs),
		reconcile.WithSupervisorLogger(eng.logger),
	)
	return eng
}

// Begin starts a gesture on subjectID at pointer. See runtime.Controller.Begin.
func (e *Engine) Begin(ctx context.Context, subjectID string, pointer domain.Point) (string, error) {
	return e.controller.Begin(ctx, subjectID, pointer)
}

// Move feeds a pointer move to the active gesture.
func (e *Engine) Move(ctx context.Context, sessionID string, pointer domain.Point) error {
	return e.controller.Move(ctx, sessionID, pointer)
}

// End releases the pointer, committing at most once.
func (e *Engine) End(ctx context.Context, sessionID string, pointer domain.Point) (domain.DragResult, error) {
	return e.controller.End(ctx, sessionID, pointer)
}

// Cancel aborts the active gesture, if any.
func (e *Engine) Cancel(ctx context.Context) {
	e.controller.Cancel(ctx)
}

// Session returns the active gesture, if any.
func (e *Engine) Session() (domain.DragSession, bool) {
	return e.controller.Session()
}

// SetLayout replaces the host layout consulted by subsequent pointer events.
func (e *Engine) SetLayout(layout ports.Layout) {
	e.controller.SetLayout(layout)
}

// Mode returns the active interaction mode.
func (e *Engine) Mode() domain.InteractionMode {
	return e.controller.Mode()
}

// SetMode switches the interaction mode.
func (e *Engine) SetMode(ctx context.Context, mode domain.InteractionMode) error {
	return e.controller.SetMode(ctx, mode)
}

// MoveElement commits subjectID into target without a gesture (keyboard moves, API calls).
// Rejections are returned as errors and reported through OnReject. A move that leaves
// subjectID where it was is returned without firing OnCommit or notifying subscribers.
func (e *Engine) MoveElement(ctx context.Context, subjectID string, target domain.Target) (domain.Move, error) {
	move, err := e.controller.Mutator().Commit(subjectID, target)
	if err != nil {
		if e.hooks.OnReject != nil {
			e.hooks.OnReject(ctx, &domain.RejectEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventReject},
				SubjectID: subjectID,
				Reason:    domain.ReasonOf(err),
				Err:       err,
			})
		}
		return move, err
	}
	if move.IsNoop() {
		return move, nil
	}
	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit},
			Move:      move,
		})
	}
	e.notify(move)
	return move, nil
}

// Reconcile folds an externally observed child order of parentID back into the tree.
func (e *Engine) Reconcile(ctx context.Context, parentID string, observed []string) (domain.ReconcileReport, error) {
	return e.supervisor.Reconcile(ctx, parentID, observed)
}

// GetSnapshot returns the current tree, depth-first in sibling order.
func (e *Engine) GetSnapshot() []domain.Element {
	return e.store.Snapshot()
}

// Version is incremented on every tree mutation.
func (e *Engine) Version() uint64 {
	return e.store.Version()
}

// Store exposes the underlying tree for read-only queries.
func (e *Engine) Store() *tree.Store {
	return e.store
}

// Subscribe registers fn to be called once per successful commit and returns a
// function that removes it.
func (e *Engine) Subscribe(fn func(domain.Move)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) notify(move domain.Move) {
	e.mu.Lock()
	fns := make([]func(domain.Move), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(move)
	}
}
