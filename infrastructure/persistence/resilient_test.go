package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

// flakyStore fails a fixed number of calls before recovering
type flakyStore struct {
	failures  int
	calls     int
	lastEntry *ports.LayoutCacheEntry
}

func (s *flakyStore) do() error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("backend unavailable")
	}
	return nil
}

func (s *flakyStore) Restore(context.Context, string, valueobjects.Fingerprint) (*ports.LayoutCacheEntry, error) {
	if err := s.do(); err != nil {
		return nil, err
	}
	return s.lastEntry, nil
}

func (s *flakyStore) Store(_ context.Context, _ string, entry *ports.LayoutCacheEntry) error {
	if err := s.do(); err != nil {
		return err
	}
	s.lastEntry = entry
	return nil
}

func (s *flakyStore) InvalidateRegion(context.Context, string, []valueobjects.ItemID) error {
	return s.do()
}

func (s *flakyStore) Close() error { return nil }

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

func TestResilientCacheStore_RetriesTransientFailures(t *testing.T) {
	inner := &flakyStore{failures: 2}
	store := NewResilientCacheStore(inner, fastRetryConfig(), zap.NewNop())

	entry := &ports.LayoutCacheEntry{Fingerprint: "fp-1"}
	require.NoError(t, store.Store(context.Background(), "default", entry))
	assert.Equal(t, 3, inner.calls, "two failures then one success")
}

func TestResilientCacheStore_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyStore{failures: 100}
	store := NewResilientCacheStore(inner, fastRetryConfig(), zap.NewNop())

	err := store.Store(context.Background(), "default", &ports.LayoutCacheEntry{Fingerprint: "fp-1"})
	require.Error(t, err)
	assert.Equal(t, 4, inner.calls, "initial attempt plus three retries")
}

func TestResilientCacheStore_OpenBreakerDegradesRestoreToMiss(t *testing.T) {
	inner := &flakyStore{failures: 100}
	store := NewResilientCacheStore(inner, fastRetryConfig(), zap.NewNop())
	ctx := context.Background()

	// burn through enough consecutive failures to trip the breaker
	for i := 0; i < 2; i++ {
		_ = store.Store(ctx, "default", &ports.LayoutCacheEntry{Fingerprint: "fp-1"})
	}

	entry, err := store.Restore(ctx, "default", "fp-1")
	require.NoError(t, err, "an open breaker must read as a cache miss, not an error")
	assert.Nil(t, entry)
}

func TestResilientCacheStore_CancelledContextStopsRetrying(t *testing.T) {
	inner := &flakyStore{failures: 100}
	store := NewResilientCacheStore(inner, fastRetryConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Store(ctx, "default", &ports.LayoutCacheEntry{Fingerprint: "fp-1"})
	require.Error(t, err)
	assert.Equal(t, 0, inner.calls)
}
