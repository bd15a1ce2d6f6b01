package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/mutator"
)

// Reconciler diffs observed orders against the tree owned by a Mutator.
type Reconciler struct {
	mutator *mutator.Mutator
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithLogger configures a logger for the Reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers the OnCommit and OnReconcile callbacks (other hooks are ignored).
// OnCommit fires for every single-element move a reconciliation commits.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Reconciler) {
		r.hooks = hooks
	}
}

// New creates a Reconciler that commits through m.
func New(m *mutator.Mutator, opts ...Option) *Reconciler {
	r := &Reconciler{
		mutator: m,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile makes the children of parentID match observed.
//
// Children missing from observed are assumed not rendered and kept at the end in
// their previous relative order. An element observed under parentID but recorded
// elsewhere is moved in with a single commit. Running Reconcile twice with the same
// observation changes nothing the second time.
func (r *Reconciler) Reconcile(ctx context.Context, parentID string, observed []string) (domain.ReconcileReport, error) {
	store := r.mutator.Store()
	report := domain.ReconcileReport{ParentID: parentID, Kind: domain.ReconcileNone}

	if err := store.Validate(); err != nil {
		return report, err
	}
	if parentID != domain.RootID && !store.Has(parentID) {
		return report, mismatch(parentID, parentID)
	}

	var foreign []string
	seen := make(map[string]bool, len(observed))
	for _, id := range observed {
		e, ok := store.Get(id)
		if !ok {
			return report, mismatch(parentID, id)
		}
		if seen[id] {
			return report, fmt.Errorf("%w: %q observed twice under %q", domain.ErrReconciliationMismatch, id, parentID)
		}
		seen[id] = true
		if e.ParentID != parentID {
			foreign = append(foreign, id)
		}
	}
	if len(foreign) > 1 {
		return report, fmt.Errorf("%w: %d elements moved into %q at once", domain.ErrReconciliationMismatch, len(foreign), parentID)
	}

	if len(foreign) == 1 {
		// Position the newcomer among the observed ids that already live here.
		subject := foreign[0]
		local := slices.DeleteFunc(slices.Clone(observed), func(id string) bool {
			e, _ := store.Get(id)
			return id != subject && e.ParentID != parentID
		})
		idx := slices.Index(local, subject)
		target := domain.Target{ContainerID: parentID, InsertIndex: idx}
		if idx+1 < len(local) {
			target.InsertBeforeID = local[idx+1]
		}
		move, err := r.commit(ctx, subject, target)
		if err != nil {
			return report, err
		}
		report.Kind = domain.ReconcileMove
		report.Move = &move
	}

	current := store.Children(parentID)
	desired, appended := desiredOrder(current, observed)
	report.Appended = appended

	if !slices.Equal(current, desired) {
		if x, ok := singleDisplacement(current, desired); ok && report.Move == nil {
			idx := slices.Index(desired, x)
			target := domain.Target{ContainerID: parentID, InsertIndex: idx}
			if idx+1 < len(desired) {
				target.InsertBeforeID = desired[idx+1]
			}
			move, err := r.commit(ctx, x, target)
			if err != nil {
				return report, err
			}
			report.Kind = domain.ReconcileMove
			report.Move = &move
		} else {
			if err := store.SetChildren(parentID, desired); err != nil {
				return report, err
			}
			if report.Kind == domain.ReconcileNone {
				report.Kind = domain.ReconcileReorder
			}
		}
	}
	report.Order = store.Children(parentID)

	if report.Changed() {
		r.logger.DebugContext(ctx, "reconciled observed order",
			"parent", parentID, "kind", report.Kind, "appended", len(report.Appended))
		if r.hooks.OnReconcile != nil {
			r.hooks.OnReconcile(ctx, &domain.ReconcileEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventReconcile},
				ParentID:  parentID,
				Kind:      report.Kind,
				Changed:   true,
			})
		}
	}
	return report, nil
}

func (r *Reconciler) commit(ctx context.Context, subjectID string, target domain.Target) (domain.Move, error) {
	move, err := r.mutator.Commit(subjectID, target)
	if err != nil || move.IsNoop() {
		return move, err
	}
	if r.hooks.OnCommit != nil {
		r.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit},
			Move:      move,
		})
	}
	return move, nil
}

func mismatch(parentID, id string) error {
	return domain.Reject(domain.ReasonReconciliationUnknown, id, parentID)
}

// desiredOrder is the observed order followed by current children the observation
// left out, in their current relative order.
func desiredOrder(current, observed []string) (desired, appended []string) {
	inObserved := make(map[string]bool, len(observed))
	for _, id := range observed {
		inObserved[id] = true
	}
	desired = make([]string, 0, len(current))
	inCurrent := make(map[string]bool, len(current))
	for _, id := range current {
		inCurrent[id] = true
	}
	for _, id := range observed {
		if inCurrent[id] {
			desired = append(desired, id)
		}
	}
	for _, id := range current {
		if !inObserved[id] {
			desired = append(desired, id)
			appended = append(appended, id)
		}
	}
	return desired, appended
}

// singleDisplacement reports the one element whose relocation turns current into desired.
func singleDisplacement(current, desired []string) (string, bool) {
	i := 0
	for i < len(current) && current[i] == desired[i] {
		i++
	}
	if i == len(current) {
		return "", false
	}
	for _, x := range []string{current[i], desired[i]} {
		if slices.Equal(without(current, x), without(desired, x)) {
			return x, true
		}
	}
	return "", false
}

func without(ids []string, x string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == x })
}
