package runtime

import (
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultThreshold is the pointer travel, in device-independent pixels, that turns a press into a drag.
const DefaultThreshold = 5.0

// Option configures the Controller.
type Option func(*Controller)

// WithThreshold sets the drag threshold. Non-positive values select DefaultThreshold.
func WithThreshold(px float64) Option {
	return func(c *Controller) {
		if px > 0 {
			c.threshold = px
		}
	}
}

// WithResolver replaces the geometry resolver.
func WithResolver(r geometry.Resolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithLayout sets the host layout used for hit-testing and bounds.
func WithLayout(layout ports.Layout) Option {
	return func(c *Controller) {
		c.layout = layout
	}
}

// WithLifecycleHooks registers callbacks for drag events.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger configures a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMode sets the initial interaction mode.
func WithMode(mode domain.InteractionMode) Option {
	return func(c *Controller) {
		if mode.Valid() {
			c.mode = mode
		}
	}
}
