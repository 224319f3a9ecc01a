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

// Package pathways wires the program search and classification verification
// pipeline into a single Engine.
package pathways

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/ai/openai"
	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/config"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
	"github.com/poiesic/pathways/search"
	"github.com/poiesic/pathways/storage"
	"github.com/poiesic/pathways/storage/badger"
	"github.com/poiesic/pathways/storage/file"
	"github.com/poiesic/pathways/storage/memory"
	"github.com/poiesic/pathways/verify"
)

// Engine owns every long-lived component: record store, cache, metrics,
// worker pool, oracle provider, searcher and verifiers.
type Engine struct {
	config   *config.Config
	store    storage.RecordStore
	cache    *cache.Layer
	metrics  *metrics.Recorder
	pool     *dispatch.Pool
	provider ai.AIProvider
	searcher *search.Searcher
	programs *verify.ProgramVerifier
	careers  *verify.CareerVerifier
	logger   *slog.Logger

	backends map[string]*badger.Backend
	closers  []func() error
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	config   *config.Config
	logger   *slog.Logger
	provider ai.AIProvider
	store    storage.RecordStore
	metrics  *metrics.Recorder
}

// WithConfig sets the application configuration.
// Default is config.Default().
func WithConfig(cfg *config.Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithProvider supplies the oracle provider instead of building one from the
// ai configuration. Ignored when the configuration is offline.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithRecordStore supplies the record store. The paths passed to NewEngine
// are then ignored. The Engine does not close a supplied store.
func WithRecordStore(store storage.RecordStore) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithMetrics supplies the metrics recorder.
// Default is a recorder over a private registry.
func WithMetrics(recorder *metrics.Recorder) EngineOption {
	return func(o *engineOptions) {
		o.metrics = recorder
	}
}

// NewEngine builds an Engine. paths locate the catalog files used by the
// file store; the badger store reads the catalog previously imported into
// the configured data directory.
func NewEngine(paths file.Paths, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.config == nil {
		options.config = config.Default()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewRecorder(metrics.DefaultConfig())
	}

	e := &Engine{
		config:   options.config,
		metrics:  options.metrics,
		logger:   options.logger.With("component", "engine"),
		backends: map[string]*badger.Backend{},
	}
	if err := e.init(paths, options); err != nil {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Error("error releasing partially built engine", "err", closeErr)
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(paths file.Paths, options *engineOptions) error {
	cfg := e.config
	logger := options.logger

	var err error
	if e.store = options.store; e.store == nil {
		if e.store, err = e.openStore(paths, logger); err != nil {
			return err
		}
	}

	if e.cache, err = e.openCache(logger); err != nil {
		return err
	}

	if e.pool, err = dispatch.NewPool(dispatch.WithPoolSize(cfg.Pool.Size), dispatch.WithLogger(logger)); err != nil {
		return err
	}
	e.closers = append(e.closers, func() error {
		e.pool.Release()
		return nil
	})

	var oracle ai.Oracle
	if !cfg.Offline {
		e.provider = options.provider
		if e.provider == nil {
			if e.provider, err = openai.NewProvider(cfg.OracleConfig()); err != nil {
				return fmt.Errorf("create oracle provider: %w", err)
			}
		}
		e.closers = append(e.closers, e.provider.Close)
		oracle = e.provider.Oracle()
	}

	searchOpts := []search.Option{
		search.WithConfig(cfg.SearchSettings()),
		search.WithLogger(logger),
		search.WithCache(e.cache),
		search.WithMetrics(e.metrics),
		search.WithPool(e.pool),
	}
	verifyOpts := []verify.Option{
		verify.WithConfig(cfg.VerifySettings()),
		verify.WithLogger(logger),
		verify.WithCache(e.cache),
		verify.WithMetrics(e.metrics),
		verify.WithPool(e.pool),
	}

	var (
		scorer  search.RelevanceScorer
		program verify.ProgramClassifier
		career  verify.CareerClassifier
	)
	if oracle == nil {
		e.logger.Info("running offline with rule-based classifiers")
		scorer = search.NewRuleScorer()
		program = verify.RuleProgramClassifier{}
		career = verify.RuleCareerClassifier{}
	} else {
		if scorer, err = search.NewOracleScorer(oracle, searchOpts...); err != nil {
			return err
		}
		if program, err = verify.NewOracleProgramClassifier(oracle, verifyOpts...); err != nil {
			return err
		}
		if career, err = verify.NewOracleCareerClassifier(oracle, verifyOpts...); err != nil {
			return err
		}
	}

	if e.searcher, err = search.NewSearcher(e.store, oracle, scorer, searchOpts...); err != nil {
		return err
	}
	if e.programs, err = verify.NewProgramVerifier(program, verifyOpts...); err != nil {
		return err
	}
	if e.careers, err = verify.NewCareerVerifier(career, verifyOpts...); err != nil {
		return err
	}
	return nil
}

func (e *Engine) openStore(paths file.Paths, logger *slog.Logger) (storage.RecordStore, error) {
	switch e.config.Data.Store {
	case config.StoreBadger:
		backend, err := e.backend(e.config.Data.Dir)
		if err != nil {
			return nil, err
		}
		repo, err := badger.NewRecordRepository(backend)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, repo.Close)
		return repo, nil
	default:
		store, err := file.NewRecordStore(paths, file.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, store.Close)
		return store, nil
	}
}

func (e *Engine) openCache(logger *slog.Logger) (*cache.Layer, error) {
	var backend storage.Cache
	switch e.config.Cache.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheBadger:
		db, err := e.backend(e.config.Cache.Dir)
		if err != nil {
			return nil, err
		}
		if backend, err = badger.NewCache(db); err != nil {
			return nil, err
		}
	default:
		backend = memory.NewCache(e.config.Cache.Capacity)
	}

	layer, err := cache.New(backend,
		cache.WithTTL(e.config.Cache.TTL),
		cache.WithMetrics(e.metrics),
		cache.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, err
	}
	e.closers = append(e.closers, layer.Close)
	return layer, nil
}

// backend opens the BadgerDB database at dir once; the catalog and the cache
// share it when they point at the same directory.
func (e *Engine) backend(dir string) (*badger.Backend, error) {
	if b, ok := e.backends[dir]; ok {
		return b, nil
	}
	b, err := badger.OpenBackend(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	e.backends[dir] = b
	return b, nil
}

// Close releases every component in reverse order of creation, then the
// BadgerDB databases. It returns every error encountered.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	for dir, b := range e.backends {
		if err := b.Close(); err != nil {
			e.logger.Error("error closing backend storage", "dir", dir, "err", err)
			errs = append(errs, err)
		}
	}
	clear(e.backends)
	return errors.Join(errs...)
}

// Search runs the search pipeline. See search.Searcher.Search.
func (e *Engine) Search(ctx context.Context, query, region string, opts core.SearchOptions) ([]core.RankedCandidate, error) {
	return e.searcher.Search(ctx, query, region, opts)
}

// SearchWithMonitor runs the search pipeline with stage callbacks.
func (e *Engine) SearchWithMonitor(ctx context.Context, query, region string, opts core.SearchOptions, monitor search.SearchMonitor) ([]core.RankedCandidate, error) {
	return e.searcher.SearchWithMonitor(ctx, query, region, opts, monitor)
}

// VerifyPrograms checks the program classification codes of records against
// the conversation.
func (e *Engine) VerifyPrograms(ctx context.Context, records []core.Record, query string, history []core.Turn) ([]core.VerifiedRecord, error) {
	return e.programs.Verify(ctx, records, query, history)
}

// VerifyCareers filters occupation codes attached to program codes.
func (e *Engine) VerifyCareers(ctx context.Context, sets []core.CareerCodeSet, query string, history []core.Turn, programContext string) ([]core.CareerMapping, error) {
	return e.careers.Verify(ctx, sets, query, history, programContext)
}

// Regions lists the known region names.
func (e *Engine) Regions(ctx context.Context) ([]string, error) {
	return e.store.Regions(ctx)
}

// Store returns the record store.
func (e *Engine) Store() storage.RecordStore {
	return e.store
}

// Metrics returns the metrics recorder.
func (e *Engine) Metrics() *metrics.Recorder {
	return e.metrics
}

// Offline reports whether the engine runs on the rule-based classifiers.
func (e *Engine) Offline() bool {
	return e.provider == nil
}
