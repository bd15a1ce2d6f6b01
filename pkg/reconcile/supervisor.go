package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultMaxRepairAttempts bounds how often Supervisor repairs the tree for one call.
const DefaultMaxRepairAttempts = 2

// Supervisor runs reconciliation behind a bounded repair-and-retry policy.
// Only structural inconsistencies (domain.ErrInvariantViolation) are retried;
// mismatches and rejections are returned as-is.
type Supervisor struct {
	reconciler  *Reconciler
	maxAttempts int
	logger      *slog.Logger
}

// SupervisorOption configures the Supervisor.
type SupervisorOption func(*Supervisor)

// WithMaxRepairAttempts sets the retry bound. Negative values select the default.
func WithMaxRepairAttempts(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n >= 0 {
			s.maxAttempts = n
		}
	}
}

// WithSupervisorLogger configures a logger for the Supervisor.
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// NewSupervisor wraps r.
func NewSupervisor(r *Reconciler, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		reconciler:  r,
		maxAttempts: DefaultMaxRepairAttempts,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile calls Reconciler.Reconcile, repairing the tree and retrying on invariant violations.
// The returned report counts the repairs performed.
func (s *Supervisor) Reconcile(ctx context.Context, parentID string, observed []string) (domain.ReconcileReport, error) {
	store := s.reconciler.mutator.Store()
	for attempt := 0; ; attempt++ {
		report, err := s.reconciler.Reconcile(ctx, parentID, observed)
		report.Repairs = attempt
		if err == nil || !errors.Is(err, domain.ErrInvariantViolation) || attempt >= s.maxAttempts {
			return report, err
		}

		repair := store.Repair()
		s.logger.WarnContext(ctx, "tree inconsistent, repaired before retrying reconciliation",
			"parent", parentID,
			"attempt", attempt+1,
			"err", err,
			"duplicates", len(repair.DuplicatesRemoved),
			"dangling", len(repair.DanglingRemoved),
			"reattached", len(repair.Reattached),
			"cycles", len(repair.CyclesBroken),
		)
		if !repair.Changed() {
			return report, err
		}
	}
}
