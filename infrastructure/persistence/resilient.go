// Package persistence wraps layout cache backends with resilience: retries
// with exponential backoff for transient failures and a circuit breaker so
// a degraded backend cannot stall graph rebuilds.
package persistence

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

// RetryConfig controls backoff between attempts
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// DefaultRetryConfig returns the defaults used for cache backends
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// ResilientCacheStore decorates a LayoutCacheStore with retries and a
// circuit breaker. Cache failures are never fatal to the caller's logic,
// but a flapping backend should fail fast rather than add latency to every
// rebuild.
type ResilientCacheStore struct {
	inner   ports.LayoutCacheStore
	config  RetryConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewResilientCacheStore wraps a store with the default breaker settings
func NewResilientCacheStore(inner ports.LayoutCacheStore, config RetryConfig, logger *zap.Logger) *ResilientCacheStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "layout-cache",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ResilientCacheStore{
		inner:   inner,
		config:  config,
		breaker: breaker,
		logger:  logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Restore retries reads; a tripped breaker degrades to a cache miss
func (s *ResilientCacheStore) Restore(ctx context.Context, collection string, fingerprint valueobjects.Fingerprint) (*ports.LayoutCacheEntry, error) {
	var entry *ports.LayoutCacheEntry
	err := s.execute(ctx, "Restore", func() error {
		var innerErr error
		entry, innerErr = s.inner.Restore(ctx, collection, fingerprint)
		return innerErr
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		s.logger.Debug("cache read skipped, breaker open", zap.String("collection", collection))
		return nil, nil
	}
	return entry, err
}

// Store retries writes. The write is idempotent (it replaces the whole
// entry), so retrying after an ambiguous failure is safe.
func (s *ResilientCacheStore) Store(ctx context.Context, collection string, entry *ports.LayoutCacheEntry) error {
	return s.execute(ctx, "Store", func() error {
		return s.inner.Store(ctx, collection, entry)
	})
}

// InvalidateRegion retries invalidations
func (s *ResilientCacheStore) InvalidateRegion(ctx context.Context, collection string, ids []valueobjects.ItemID) error {
	return s.execute(ctx, "InvalidateRegion", func() error {
		return s.inner.InvalidateRegion(ctx, collection, ids)
	})
}

// Close closes the wrapped store
func (s *ResilientCacheStore) Close() error {
	return s.inner.Close()
}

func (s *ResilientCacheStore) execute(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			if attempt > 0 {
				s.logger.Info("cache operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		// A tripped breaker will not recover within the retry window
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return err
		}

		lastErr = err
		if attempt >= s.config.MaxRetries {
			break
		}

		delay := s.delay(attempt)
		s.logger.Warn("retrying cache operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, s.config.MaxRetries+1, lastErr)
}

func (s *ResilientCacheStore) delay(attempt int) time.Duration {
	base := float64(s.config.InitialDelay) * math.Pow(s.config.BackoffFactor, float64(attempt))
	if base > float64(s.config.MaxDelay) {
		base = float64(s.config.MaxDelay)
	}

	s.mu.Lock()
	jitter := s.config.JitterFactor * base * (s.rand.Float64()*2 - 1)
	s.mu.Unlock()

	final := base + jitter
	if final < 0 {
		final = 0
	}
	return time.Duration(final)
}
