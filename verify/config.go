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

package verify

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
)

// Config holds the verifier knobs.
type Config struct {
	// BatchSize is the number of distinct codes sent per classifier call.
	BatchSize int
	// SampleDescriptions is how many program descriptions accompany each code.
	SampleDescriptions int
	// HistoryTurns is how many recent conversation turns are sent to the classifier.
	HistoryTurns int
}

// DefaultConfig returns the default verifier settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:          25,
		SampleDescriptions: 3,
		HistoryTurns:       6,
	}
}

// Validate checks that every knob is in range.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: BatchSize must be positive", ErrInvalidConfig)
	}
	if c.SampleDescriptions < 1 {
		return fmt.Errorf("%w: SampleDescriptions must be positive", ErrInvalidConfig)
	}
	if c.HistoryTurns < 0 {
		return fmt.Errorf("%w: HistoryTurns cannot be negative", ErrInvalidConfig)
	}
	return nil
}

type settings struct {
	config  Config
	logger  *slog.Logger
	cache   *cache.Layer
	metrics *metrics.Recorder
	pool    *dispatch.Pool
}

// Option configures the verifiers and classifiers of this package.
type Option func(*settings) error

// WithConfig replaces the default knobs.
func WithConfig(cfg Config) Option {
	return func(s *settings) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithCache sets the cache layer used for classifier results.
func WithCache(layer *cache.Layer) Option {
	return func(s *settings) error {
		s.cache = layer
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *settings) error {
		s.metrics = recorder
		return nil
	}
}

// WithPool sets the worker pool batches run on.
func WithPool(pool *dispatch.Pool) Option {
	return func(s *settings) error {
		s.pool = pool
		return nil
	}
}

func applyOptions(component string, opts []Option) (settings, error) {
	s := settings{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return s, err
		}
	}
	s.logger = s.logger.With("component", component)
	return s, nil
}
