package di

import (
	"context"

	"go.uber.org/zap"

	"screengraph-backend/application/ports"
	appservices "screengraph-backend/application/services"
	"screengraph-backend/infrastructure/config"
	"screengraph-backend/infrastructure/tracing"
	"screengraph-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Collector
	Tracer        *tracing.TracerProvider
	TuningWatcher *config.TuningWatcher
	Cache         ports.LayoutCacheStore
	Notifier      *appservices.Notifier
	Orchestrator  *appservices.GraphOrchestrator
}

// Shutdown releases container resources in reverse dependency order
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if c.Orchestrator != nil {
		c.Orchestrator.Close()
	}
	if c.TuningWatcher != nil {
		c.TuningWatcher.Stop()
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	return firstErr
}
