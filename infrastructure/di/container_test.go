package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screengraph-backend/infrastructure/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerAddress:  ":0",
		Environment:    "development",
		LogLevel:       "info",
		Collection:     "default",
		DebounceMillis: 10,
		LayoutBoundsW:  1600,
		LayoutBoundsH:  1200,
		CacheBackend:   config.CacheBackendMemory,
	}
}

func TestInitializeContainer(t *testing.T) {
	container, err := InitializeContainer(context.Background(), testConfig())
	require.NoError(t, err)

	assert.NotNil(t, container.Logger)
	assert.NotNil(t, container.Cache)
	assert.NotNil(t, container.Notifier)
	assert.NotNil(t, container.Orchestrator)
	assert.Nil(t, container.Tracer, "tracing is off by default in tests")
	assert.Nil(t, container.TuningWatcher, "no tuning file configured")

	assert.NoError(t, container.Shutdown(context.Background()))
}

func TestContainer_ShutdownTolerates_PartialWiring(t *testing.T) {
	// shutdown must be safe on a container that never finished wiring
	partial := &Container{}
	assert.NoError(t, partial.Shutdown(context.Background()))
}
