package adapter

import (
	"context"
	"sync"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// Registry holds all platform adapters and routes URLs to them.
//
// Routing is deliberately order-dependent: when more than one adapter could
// claim an ambiguous URL, the first registered wins. That tie-break is part
// of the registry's contract and is covered by tests.
type Registry struct {
	mu       sync.RWMutex
	order    []schema.Platform
	adapters map[schema.Platform]Adapter
	logger   logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		adapters: make(map[schema.Platform]Adapter),
		logger:   log,
	}
}

// Register adds an adapter. Registering the same platform twice replaces
// the adapter but keeps its original position in routing order.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	platform := a.Platform()
	if _, exists := r.adapters[platform]; !exists {
		r.order = append(r.order, platform)
	}
	r.adapters[platform] = a
	r.logger.Info("registered adapter", logger.String("platform", string(platform)))
}

// Get returns the adapter for a platform, or nil.
func (r *Registry) Get(platform schema.Platform) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[platform]
}

// RouteByURL returns the first registered adapter that claims the URL, or
// nil when no adapter does. A nil result is not an error: the caller
// decides how to surface unsupported platforms.
func (r *Registry) RouteByURL(rawURL string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, platform := range r.order {
		if a := r.adapters[platform]; a.CanHandle(rawURL) {
			return a
		}
	}
	return nil
}

// Platforms returns the registered platforms in registration order.
func (r *Registry) Platforms() []schema.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Platform, len(r.order))
	copy(out, r.order)
	return out
}

// First returns the first registered adapter, or nil when the registry is
// empty. Used by paste mode when no platform hint is given.
func (r *Registry) First() Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.adapters[r.order[0]]
}

// HealthCheckAll probes every adapter and aggregates the results. A panic
// in one adapter's probe becomes a false entry rather than aborting the
// aggregate report.
func (r *Registry) HealthCheckAll(ctx context.Context) map[schema.Platform]bool {
	r.mu.RLock()
	adapters := make(map[schema.Platform]Adapter, len(r.adapters))
	for p, a := range r.adapters {
		adapters[p] = a
	}
	r.mu.RUnlock()

	results := make(map[schema.Platform]bool, len(adapters))
	for platform, a := range adapters {
		results[platform] = r.safeHealthCheck(ctx, a)
	}
	return results
}

func (r *Registry) safeHealthCheck(ctx context.Context, a Adapter) (healthy bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("adapter health check panicked",
				logger.String("platform", string(a.Platform())),
				logger.Any("panic", rec))
			healthy = false
		}
	}()

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return a.HealthCheck(checkCtx)
}
