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

package search

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
)

// Config holds the tuning knobs of the search pipeline.
type Config struct {
	// MaxCandidates caps the prefilter output handed to the ranker.
	MaxCandidates int
	// BatchSize is the number of candidates scored per oracle call.
	BatchSize int
	// BroadLimit is the size of the record prefix returned when nothing matches.
	BroadLimit int
	// OmittedScore is given to candidates a batch reply leaves out.
	OmittedScore int
	// FailedBatchScore is given to every candidate of a batch whose call failed.
	FailedBatchScore int
	// QualityThreshold is the quality a result set needs to be accepted.
	QualityThreshold float64
	// MaxAttempts bounds the reflection loop, first attempt included.
	MaxAttempts int
	// DefaultMaxResults applies when the caller passes 0.
	DefaultMaxResults int
	// DefaultMinRelevance applies when the caller passes 0.
	DefaultMinRelevance int
	// MinRelatedTerms is how many related terms the extractor tops up to locally.
	MinRelatedTerms int
	// HistoryTurns is how many recent conversation turns are sent to the oracle.
	HistoryTurns int
}

// DefaultConfig returns the default search settings.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:       200,
		BatchSize:           20,
		BroadLimit:          25,
		OmittedScore:        5,
		FailedBatchScore:    5,
		QualityThreshold:    0.5,
		MaxAttempts:         3,
		DefaultMaxResults:   10,
		DefaultMinRelevance: 6,
		MinRelatedTerms:     5,
		HistoryTurns:        6,
	}
}

// Validate checks that every knob is in range.
func (c Config) Validate() error {
	switch {
	case c.MaxCandidates < 1:
		return fmt.Errorf("%w: MaxCandidates must be positive", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: BatchSize must be positive", ErrInvalidConfig)
	case c.BroadLimit < 1:
		return fmt.Errorf("%w: BroadLimit must be positive", ErrInvalidConfig)
	case c.OmittedScore < core.MinScore || c.OmittedScore > core.MaxScore:
		return fmt.Errorf("%w: OmittedScore must be within %d..%d", ErrInvalidConfig, core.MinScore, core.MaxScore)
	case c.FailedBatchScore < core.MinScore || c.FailedBatchScore > core.MaxScore:
		return fmt.Errorf("%w: FailedBatchScore must be within %d..%d", ErrInvalidConfig, core.MinScore, core.MaxScore)
	case c.QualityThreshold < 0 || c.QualityThreshold > 1:
		return fmt.Errorf("%w: QualityThreshold must be within 0..1", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: MaxAttempts must be at least 1", ErrInvalidConfig)
	case c.DefaultMaxResults < 1:
		return fmt.Errorf("%w: DefaultMaxResults must be positive", ErrInvalidConfig)
	case c.DefaultMinRelevance < core.MinScore || c.DefaultMinRelevance > core.MaxScore:
		return fmt.Errorf("%w: DefaultMinRelevance must be within %d..%d", ErrInvalidConfig, core.MinScore, core.MaxScore)
	case c.MinRelatedTerms < 1:
		return fmt.Errorf("%w: MinRelatedTerms must be positive", ErrInvalidConfig)
	case c.HistoryTurns < 0:
		return fmt.Errorf("%w: HistoryTurns cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// settings collects the optional collaborators shared by the search components.
type settings struct {
	config  Config
	logger  *slog.Logger
	cache   *cache.Layer
	metrics *metrics.Recorder
	pool    *dispatch.Pool
	monitor SearchMonitor
}

// Option configures the search components. The same options can be passed
// to every constructor in this package; each one uses what it needs.
type Option func(*settings) error

// WithConfig replaces the default tuning knobs.
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

// WithCache sets the cache layer. Without one nothing is cached.
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

// WithPool sets the worker pool used to score batches concurrently.
// Without one batches are scored sequentially.
func WithPool(pool *dispatch.Pool) Option {
	return func(s *settings) error {
		s.pool = pool
		return nil
	}
}

// WithMonitor sets the default monitor for searches that do not pass one.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *settings) error {
		s.monitor = monitor
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
