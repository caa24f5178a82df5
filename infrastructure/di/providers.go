// Package di wires application dependencies with google/wire. The generated
// initializer lives in wire_gen.go; providers here stay free of wire imports
// so they can be called directly in tests.
package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"screengraph-backend/application/ports"
	appservices "screengraph-backend/application/services"
	"screengraph-backend/domain/core/valueobjects"
	"screengraph-backend/domain/layout"
	domainservices "screengraph-backend/domain/services"
	"screengraph-backend/infrastructure/config"
	"screengraph-backend/infrastructure/persistence"
	"screengraph-backend/infrastructure/tracing"
	"screengraph-backend/pkg/observability"
)

// ProvideLogger creates the application logger
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("screengraph")
}

// ProvideTracerProvider initializes tracing when enabled
func ProvideTracerProvider(cfg *config.Config, logger *zap.Logger) (*tracing.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	tp, err := tracing.InitTracing("screengraph-backend", cfg.Environment, cfg.TracingEndpoint)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	logger.Info("tracing enabled", zap.String("endpoint", cfg.TracingEndpoint))
	return tp, nil
}

// ProvideTuningWatcher starts the tuning file watcher; nil when no tuning
// file is configured
func ProvideTuningWatcher(cfg *config.Config, logger *zap.Logger) (*config.TuningWatcher, error) {
	if cfg.TuningPath == "" {
		return nil, nil
	}
	watcher, err := config.NewTuningWatcher(cfg.TuningPath, logger)
	if err != nil {
		return nil, fmt.Errorf("starting tuning watcher: %w", err)
	}
	return watcher, nil
}

// ProvideTuning resolves the effective tuning: the watcher's current file
// contents, or the in-code defaults
func ProvideTuning(watcher *config.TuningWatcher) *config.TuningConfig {
	if watcher != nil {
		return watcher.Current()
	}
	return config.DefaultTuningConfig()
}

// ProvideCacheStore creates the configured layout cache backend
func ProvideCacheStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.LayoutCacheStore, error) {
	return persistence.NewLayoutCacheStore(ctx, cfg, logger)
}

// ProvideGraphBuilder assembles the scoring pipeline from the tuning
func ProvideGraphBuilder(tuning *config.TuningConfig) domainservices.GraphBuilder {
	analyzer := domainservices.NewDefaultTextAnalyzer()
	scorer := domainservices.NewDefaultRelationshipScorer(tuning.ToScorerConfig(), analyzer)
	tracker := domainservices.NewDefaultChangeTracker()
	return domainservices.NewDefaultGraphBuilder(domainservices.DefaultBuilderConfig(), scorer, tracker)
}

// ProvideChangeTracker creates the fingerprint tracker
func ProvideChangeTracker() domainservices.ChangeTracker {
	return domainservices.NewDefaultChangeTracker()
}

// ProvideLayoutEngine creates the force-directed layout engine
func ProvideLayoutEngine(tuning *config.TuningConfig) *layout.Engine {
	return layout.NewEngine(tuning.ToLayoutConfig())
}

// ProvideNotifier creates the staleness notifier
func ProvideNotifier() *appservices.Notifier {
	return appservices.NewNotifier()
}

// ProvideOrchestratorConfig maps application config onto the orchestrator
func ProvideOrchestratorConfig(cfg *config.Config) (*appservices.OrchestratorConfig, error) {
	bounds, err := valueobjects.NewBounds(0, 0, cfg.LayoutBoundsW, cfg.LayoutBoundsH)
	if err != nil {
		return nil, fmt.Errorf("invalid layout bounds: %w", err)
	}
	return &appservices.OrchestratorConfig{
		Collection:     cfg.Collection,
		DebounceWindow: time.Duration(cfg.DebounceMillis) * time.Millisecond,
		Bounds:         bounds,
	}, nil
}

// ProvideOrchestrator creates the graph orchestrator and hooks tuning
// reloads into it: a changed tuning file swaps in a freshly configured
// builder and engine and schedules a full rescore
func ProvideOrchestrator(
	ocfg *appservices.OrchestratorConfig,
	builder domainservices.GraphBuilder,
	tracker domainservices.ChangeTracker,
	engine *layout.Engine,
	cache ports.LayoutCacheStore,
	notifier *appservices.Notifier,
	logger *zap.Logger,
	metrics *observability.Collector,
	watcher *config.TuningWatcher,
) *appservices.GraphOrchestrator {
	orchestrator := appservices.NewGraphOrchestrator(ocfg, builder, tracker, engine, cache, notifier, logger, metrics)

	if watcher != nil {
		watcher.OnChange(func(tuning *config.TuningConfig) {
			orchestrator.ApplyTuning(ProvideGraphBuilder(tuning), ProvideLayoutEngine(tuning))
		})
	}
	return orchestrator
}
