// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/pathways/metrics"
	"github.com/poiesic/pathways/storage"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the lifetime of cached entries when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrBackendRequired is returned when a Layer is created without a backend.
var ErrBackendRequired = errors.New("cache backend is required")

// Layer is a typed, deduplicating front for a storage.Cache.
type Layer struct {
	backend storage.Cache
	ttl     time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
	group   singleflight.Group
}

// Option configures a Layer.
type Option func(*Layer) error

// WithTTL sets the lifetime of stored entries.
// Default is DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Layer) error {
		if ttl > 0 {
			l.ttl = ttl
		}
		return nil
	}
}

// WithMetrics sets the recorder for hit and miss counts.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(l *Layer) error {
		l.metrics = recorder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layer) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// New creates a Layer over backend.
func New(backend storage.Cache, opts ...Option) (*Layer, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	l := &Layer{
		backend: backend,
		ttl:     DefaultTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "cache")
	return l, nil
}

// TTL returns the lifetime applied to stored entries.
func (l *Layer) TTL() time.Duration {
	if l == nil {
		return 0
	}
	return l.ttl
}

// Get returns the raw bytes stored under kind and key.
func (l *Layer) Get(ctx context.Context, kind, key string) ([]byte, bool) {
	if l == nil {
		return nil, false
	}
	data, err := l.backend.Get(ctx, fullKey(kind, key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("cache read failed", "kind", kind, "err", err)
		}
		l.metrics.RecordCacheMiss(kind)
		return nil, false
	}
	l.metrics.RecordCacheHit(kind)
	return data, true
}

// Set stores raw bytes under kind and key with the layer's TTL.
func (l *Layer) Set(ctx context.Context, kind, key string, value []byte) {
	if l == nil {
		return
	}
	if err := l.backend.Set(ctx, fullKey(kind, key), value, l.ttl); err != nil {
		l.logger.Warn("cache write failed", "kind", kind, "err", err)
	}
}

// Close closes the backend.
func (l *Layer) Close() error {
	if l == nil {
		return nil
	}
	return l.backend.Close()
}

// Load decodes the value stored under kind and key. Undecodable entries
// count as misses.
func Load[T any](ctx context.Context, l *Layer, kind, key string) (T, bool) {
	var zero T
	data, ok := l.Get(ctx, kind, key)
	if !ok {
		return zero, false
	}
	value, err := storage.UnmarshalValue[T](data)
	if err != nil {
		l.logger.Warn("discarding undecodable cache entry", "kind", kind, "err", err)
		return zero, false
	}
	return value, true
}

// Store encodes and stores value under kind and key.
func Store[T any](ctx context.Context, l *Layer, kind, key string, value T) {
	if l == nil {
		return
	}
	data, err := storage.MarshalValue(value)
	if err != nil {
		l.logger.Warn("cache encode failed", "kind", kind, "err", err)
		return
	}
	l.Set(ctx, kind, key, data)
}

type remembered[T any] struct {
	value T
}

// Remember returns the cached value for kind and key, computing it with fn
// on a miss. fn reports whether its result may be cached; results built from
// fallbacks should not be. Concurrent callers with the same key share one
// execution of fn.
//
// A shared execution whose caller's context ends is abandoned: its result is
// neither cached nor handed to joined callers whose own context is still
// live. Those callers run fn again under their own context.
func Remember[T any](ctx context.Context, l *Layer, kind, key string, fn func(ctx context.Context) (T, bool)) T {
	if l == nil {
		value, _ := fn(ctx)
		return value
	}
	if value, ok := Load[T](ctx, l, kind, key); ok {
		return value
	}

	for {
		shared, err, joined := l.group.Do(fullKey(kind, key), func() (any, error) {
			value, cacheable := fn(ctx)
			if err := ctx.Err(); err != nil {
				return remembered[T]{value: value}, err
			}
			if cacheable {
				Store(ctx, l, kind, key, value)
			}
			return remembered[T]{value: value}, nil
		})
		if err == nil || ctx.Err() != nil {
			return shared.(remembered[T]).value
		}
		l.logger.Debug("shared computation abandoned, recomputing",
			"kind", kind, "joined", joined, "err", err)
	}
}

func fullKey(kind, key string) string {
	return kind + ":" + key
}
