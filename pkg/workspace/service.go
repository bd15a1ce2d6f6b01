package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/tree"
)

var _ ports.TreeService = (*Service)(nil)

// entry is a live engine and the store version it was built from.
type entry struct {
	eng  *arbor.Engine
	base uint64
	last []domain.Element
}

// version is the document version the engine currently represents.
func (e *entry) version() uint64 {
	return e.base + e.eng.Version()
}

// Service implements ports.TreeService on top of a session.Manager.
type Service struct {
	manager    *session.Manager
	engineOpts []arbor.Option
	logger     *slog.Logger

	mu      sync.Mutex
	engines map[string]*entry

	subMu   sync.Mutex
	subs    map[int]func(*domain.TreeDiff)
	nextSub int
}

// Option configures the Service.
type Option func(*Service)

// WithEngineOptions sets the options every document engine is built with.
func WithEngineOptions(opts ...arbor.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service persisting through manager.
func New(manager *session.Manager, opts ...Option) *Service {
	s := &Service{
		manager: manager,
		logger:  logging.NewNop(),
		engines: make(map[string]*entry),
		subs:    make(map[int]func(*domain.TreeDiff)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the IDs of known documents.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.manager.List(ctx)
}

// Get returns the stored snapshot of a document.
func (s *Service) Get(ctx context.Context, docID string) (*domain.Document, error) {
	return s.manager.Load(ctx, docID)
}

// Put replaces a document's elements, creating the document if needed.
// Any gesture in flight on the previous tree is discarded.
func (s *Service) Put(ctx context.Context, docID string, elements []domain.Element) (*domain.Document, error) {
	if _, err := tree.New(elements); err != nil {
		return nil, err
	}

	var doc *domain.Document
	err := s.manager.WithLock(ctx, docID, func(ctx context.Context) error {
		var (
			prevElems   []domain.Element
			prevVersion uint64
		)
		prev, err := s.manager.Store().Load(ctx, docID)
		switch {
		case err == nil:
			prevElems, prevVersion = prev.Elements, prev.Version
		case !errors.Is(err, domain.ErrDocumentNotFound):
			return fmt.Errorf("failed to load document: %w", err)
		}

		eng, err := arbor.New(elements, s.options(docID)...)
		if err != nil {
			return err
		}
		ent := &entry{eng: eng, base: prevVersion + 1}
		doc, err = s.persist(ctx, docID, ent, prevElems)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.engines[docID] = ent
		s.mu.Unlock()
		return nil
	})
	return doc, err
}

// Delete removes a document and drops its engine.
func (s *Service) Delete(ctx context.Context, docID string) error {
	return s.manager.WithLock(ctx, docID, func(ctx context.Context) error {
		if _, err := s.manager.Store().Load(ctx, docID); err != nil {
			return err
		}
		if err := s.manager.Store().Delete(ctx, docID); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.engines, docID)
		s.mu.Unlock()
		return nil
	})
}

// BeginDrag starts a gesture on subjectID.
func (s *Service) BeginDrag(ctx context.Context, docID, subjectID string, pointer domain.Point, layout ports.Layout) (domain.DragSession, error) {
	var out domain.DragSession
	err := s.mutate(ctx, docID, layout, func(eng *arbor.Engine) error {
		if _, err := eng.Begin(ctx, subjectID, pointer); err != nil {
			return err
		}
		out, _ = eng.Session()
		return nil
	})
	return out, err
}

// UpdateDrag feeds a pointer move to the active gesture.
func (s *Service) UpdateDrag(ctx context.Context, docID, sessionID string, pointer domain.Point, layout ports.Layout) (domain.DragSession, error) {
	var out domain.DragSession
	err := s.mutate(ctx, docID, layout, func(eng *arbor.Engine) error {
		if err := eng.Move(ctx, sessionID, pointer); err != nil {
			return err
		}
		out, _ = eng.Session()
		return nil
	})
	return out, err
}

// EndDrag releases the pointer. A committed move is persisted before EndDrag returns.
func (s *Service) EndDrag(ctx context.Context, docID, sessionID string, pointer domain.Point, layout ports.Layout) (domain.DragResult, error) {
	var out domain.DragResult
	err := s.mutate(ctx, docID, layout, func(eng *arbor.Engine) error {
		var err error
		out, err = eng.End(ctx, sessionID, pointer)
		return err
	})
	return out, err
}

// CancelDrag aborts the active gesture, if any.
func (s *Service) CancelDrag(ctx context.Context, docID string) error {
	return s.mutate(ctx, docID, nil, func(eng *arbor.Engine) error {
		eng.Cancel(ctx)
		return nil
	})
}

// Move relocates subjectID to target without a gesture.
func (s *Service) Move(ctx context.Context, docID, subjectID string, target domain.Target) (domain.Move, error) {
	var out domain.Move
	err := s.mutate(ctx, docID, nil, func(eng *arbor.Engine) error {
		var err error
		out, err = eng.MoveElement(ctx, subjectID, target)
		return err
	})
	return out, err
}

// Reconcile folds a host-observed child order back into the tree.
func (s *Service) Reconcile(ctx context.Context, docID, parentID string, observed []string) (domain.ReconcileReport, error) {
	var out domain.ReconcileReport
	err := s.mutate(ctx, docID, nil, func(eng *arbor.Engine) error {
		var err error
		out, err = eng.Reconcile(ctx, parentID, observed)
		return err
	})
	return out, err
}

// Subscribe registers fn for every persisted tree change.
// fn runs while the document lock is held and must not block.
func (s *Service) Subscribe(fn func(*domain.TreeDiff)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// mutate runs fn against the document engine under the document lock and persists
// the tree if fn changed it, even when fn also returned an error.
func (s *Service) mutate(ctx context.Context, docID string, layout ports.Layout, fn func(*arbor.Engine) error) error {
	return s.manager.WithLock(ctx, docID, func(ctx context.Context) error {
		ent, err := s.open(ctx, docID)
		if err != nil {
			return err
		}
		if layout != nil {
			ent.eng.SetLayout(layout)
		}

		before := ent.version()
		ferr := fn(ent.eng)
		if ent.version() != before {
			if _, err := s.persist(ctx, docID, ent, ent.last); err != nil {
				return err
			}
		}
		return ferr
	})
}

// open returns the engine for docID, rebuilding it when the store holds a newer
// version than the cached one (another replica wrote it).
func (s *Service) open(ctx context.Context, docID string) (*entry, error) {
	doc, err := s.manager.Store().Load(ctx, docID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ent, ok := s.engines[docID]
	s.mu.Unlock()
	if ok && ent.version() == doc.Version {
		return ent, nil
	}

	eng, report := arbor.NewRepaired(doc.Elements, s.options(docID)...)
	ent = &entry{eng: eng, base: doc.Version, last: doc.Elements}
	if report.Changed() {
		s.logger.WarnContext(ctx, "Repaired stored document",
			"document_id", docID,
			"duplicates", len(report.DuplicatesRemoved),
			"dangling", len(report.DanglingRemoved),
			"reattached", len(report.Reattached),
			"cycles", len(report.CyclesBroken),
		)
		if _, err := s.persist(ctx, docID, ent, doc.Elements); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.engines[docID] = ent
	s.mu.Unlock()
	return ent, nil
}

// persist saves the engine's tree and broadcasts the diff against prev.
func (s *Service) persist(ctx context.Context, docID string, ent *entry, prev []domain.Element) (*domain.Document, error) {
	doc := &domain.Document{
		ID:        docID,
		Elements:  ent.eng.GetSnapshot(),
		Version:   ent.version(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.manager.Store().Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	ent.last = doc.Elements
	s.logger.DebugContext(ctx, "document saved", "document_id", docID, "version", doc.Version)

	if diff := domain.Diff(docID, doc.Version, prev, doc.Elements); diff != nil {
		s.broadcast(diff)
	}
	return doc, nil
}

func (s *Service) broadcast(diff *domain.TreeDiff) {
	s.subMu.Lock()
	fns := make([]func(*domain.TreeDiff), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(diff)
	}
}

func (s *Service) options(docID string) []arbor.Option {
	opts := make([]arbor.Option, 0, len(s.engineOpts)+2)
	opts = append(opts, arbor.WithLogger(s.logger))
	opts = append(opts, s.engineOpts...)
	return append(opts, arbor.WithName(docID))
}
