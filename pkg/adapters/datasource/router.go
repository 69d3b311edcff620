package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/logging"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// Factory builds an Engine on first use. Engines are created lazily so a
// misconfigured backend surfaces as BackendUnavailable on the request that
// needs it instead of failing startup.
type Factory func(ctx context.Context) (Engine, error)

// ResolutionHint carries the data-shape heuristic input used to resolve the
// analytics umbrella dialect.
type ResolutionHint struct {
	// EstimatedBytes is the caller's estimate of the data size the project
	// will work with.
	EstimatedBytes int64
}

// Router maps dialects to backend engines. Engines are shared across all
// projects and safe for concurrent use.
type Router struct {
	mu                  sync.Mutex
	factories           map[models.Dialect]Factory
	engines             map[models.Dialect]Engine
	sparkThresholdBytes int64
	logger              *zap.Logger
}

// NewRouter creates a router with no registered backends.
func NewRouter(sparkThresholdBytes int64, logger *zap.Logger) *Router {
	return &Router{
		factories:           make(map[models.Dialect]Factory),
		engines:             make(map[models.Dialect]Engine),
		sparkThresholdBytes: sparkThresholdBytes,
		logger:              logger.Named("dialect-router"),
	}
}

// Register installs the factory for a concrete dialect.
func (r *Router) Register(dialect models.Dialect, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[dialect] = factory
}

// Resolve returns the engine for a dialect. For the analytics umbrella
// dialect, actualEngine (a previous resolution persisted on the project)
// wins; otherwise the hint decides, deterministically, and the chosen
// concrete dialect is returned so the caller can persist it.
func (r *Router) Resolve(ctx context.Context, dialect, actualEngine models.Dialect, hint *ResolutionHint) (Engine, models.Dialect, error) {
	concrete := dialect

	if dialect == models.DialectAnalytics {
		switch {
		case actualEngine != "":
			if actualEngine != models.DialectTrino && actualEngine != models.DialectSpark {
				return nil, "", fmt.Errorf("%w: analytics resolved to %q", apperrors.ErrUnknownDialect, actualEngine)
			}
			concrete = actualEngine
		default:
			concrete = r.resolveUmbrella(hint)
			r.logger.Info("Resolved analytics dialect",
				zap.String("engine", string(concrete)))
		}
	}

	if !concrete.IsConcrete() {
		return nil, "", fmt.Errorf("%w: %q", apperrors.ErrUnknownDialect, dialect)
	}

	engine, err := r.engine(ctx, concrete)
	if err != nil {
		return nil, "", err
	}
	return engine, concrete, nil
}

// resolveUmbrella picks the concrete engine for an unresolved analytics
// project. Large estimated data sizes go to the big-data engine.
func (r *Router) resolveUmbrella(hint *ResolutionHint) models.Dialect {
	if hint != nil && hint.EstimatedBytes >= r.sparkThresholdBytes {
		return models.DialectSpark
	}
	return models.DialectTrino
}

// engine returns the cached engine for a concrete dialect, creating and
// pinging it on first use.
func (r *Router) engine(ctx context.Context, dialect models.Dialect) (Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[dialect]; ok {
		return engine, nil
	}

	factory, ok := r.factories[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: no %s backend configured", apperrors.ErrBackendUnavailable, dialect)
	}

	engine, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %s", apperrors.ErrBackendUnavailable, dialect, logging.SanitizeError(err))
	}
	if err := engine.Ping(ctx); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("%w: ping %s: %s", apperrors.ErrBackendUnavailable, dialect, logging.SanitizeError(err))
	}

	r.engines[dialect] = engine
	r.logger.Info("Connected backend engine", zap.String("dialect", string(dialect)))
	return engine, nil
}

// Close releases every connected engine.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for dialect, engine := range r.engines {
		if err := engine.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.engines, dialect)
	}
	return firstErr
}
