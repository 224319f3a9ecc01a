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

package dispatch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool runs indexed tasks on a bounded set of goroutines.
// It is safe for concurrent use by multiple callers.
type Pool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool) error

// WithPoolSize sets the number of workers.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pool) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPool creates a worker pool.
func NewPool(opts ...Option) (*Pool, error) {
	size := runtime.NumCPU()
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "dispatch")
	return p, nil
}

// Run executes task for every index in [0, n) and waits for all of them.
// Tasks observe ctx themselves; Run returns ctx.Err() once every submitted
// task has finished if the context ended in the meantime. A nil Pool runs
// the tasks sequentially on the calling goroutine.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	if p == nil || p.pool == nil {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			task(ctx, i)
		}
		return ctx.Err()
	}
	if p.pool.IsClosed() {
		return ErrPoolReleased
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		idx := i
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			task(ctx, idx)
		})
		if err != nil {
			wg.Done()
			p.logger.Warn("pool rejected task, running inline", "index", idx, "err", err)
			task(ctx, idx)
		}
	}
	wg.Wait()
	return ctx.Err()
}

// Running returns the number of workers currently executing tasks.
func (p *Pool) Running() int {
	if p == nil || p.pool == nil {
		return 0
	}
	return p.pool.Running()
}

// Release stops the workers. The pool should not be used after Release.
func (p *Pool) Release() {
	if p != nil && p.pool != nil {
		p.pool.Release()
	}
}

// Split partitions items into consecutive batches of at most size elements.
// The concatenation of the batches equals items.
func Split[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches, nil
}
