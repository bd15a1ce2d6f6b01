// Package cli holds the wiring shared by the arbor commands: store selection,
// engine options and element file handling.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/workspace"
)

// lockPrefix namespaces lock keys; the locker appends "lock:<id>".
const lockPrefix = "arbor:"

// Backend is an opened document store plus the optional distributed locker that goes with it.
type Backend struct {
	Store  ports.DocumentStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the connections held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the document store selected by cfg.Store.
// Redis connections are checked with a ping before returning.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		b.Store = memory.NewStore()
	case config.BackendFile:
		b.Store = file.New(cfg.Store.Path)
	case config.BackendRedis:
		rc := cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB,
			redis.WithPrefix(rc.Prefix),
			redis.WithTTL(time.Duration(rc.TTL)),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
		}
		b.Store = store
		b.Locker = redis.NewLocker(store.Client(), lockPrefix)
		b.close = store.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.Store.EncryptionKey)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Store = middleware.Chain(b.Store, mw)
	}

	return b, nil
}

// EngineOptions translates cfg into engine options. Every engine logs its lifecycle
// through logger; metrics, when non-nil, also receives the events.
func EngineOptions(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) []arbor.Option {
	opts := []arbor.Option{
		arbor.WithThreshold(cfg.Drag.Threshold),
		arbor.WithZoneMargin(cfg.Geometry.ZoneMargin),
		arbor.WithMaxRepairAttempts(cfg.Reconcile.MaxRepairAttempts),
		arbor.WithLogger(logger),
		arbor.WithLifecycleHooks(observability.LogHooks(logger)),
	}
	if metrics != nil {
		opts = append(opts, arbor.WithLifecycleHooks(metrics.Hooks()))
	}
	return opts
}

// NewWorkspace builds the document service on top of an opened backend.
func NewWorkspace(cfg *config.Config, b *Backend, logger *slog.Logger, metrics *observability.Metrics) *workspace.Service {
	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(time.Duration(cfg.Store.LockTTL)),
	}
	if b.Locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(b.Locker))
	}
	manager := session.NewManager(b.Store, managerOpts...)

	return workspace.New(manager,
		workspace.WithLogger(logger),
		workspace.WithEngineOptions(EngineOptions(cfg, logger, metrics)...),
	)
}
