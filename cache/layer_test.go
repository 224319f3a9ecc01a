package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/pathways/metrics"
	"github.com/poiesic/pathways/storage"
	"github.com/poiesic/pathways/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenBackend struct{}

func (brokenBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (brokenBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("disk on fire")
}

func (brokenBackend) Delete(ctx context.Context, key string) error { return nil }

func (brokenBackend) Close() error { return nil }

type recordingBackend struct {
	storage.Cache
	mu   sync.Mutex
	ttls []time.Duration
}

func (b *recordingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	b.ttls = append(b.ttls, ttl)
	b.mu.Unlock()
	return b.Cache.Set(ctx, key, value, ttl)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)

	l, err := New(memory.NewCache(10))
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, l.TTL())
}

func TestLoadStore(t *testing.T) {
	ctx := context.Background()
	backend := &recordingBackend{Cache: memory.NewCache(10)}
	l, err := New(backend, WithTTL(time.Hour))
	require.NoError(t, err)

	_, ok := Load[[]int](ctx, l, "rank", "k")
	assert.False(t, ok)

	Store(ctx, l, "rank", "k", []int{3, 1, 2})
	got, ok := Load[[]int](ctx, l, "rank", "k")
	require.True(t, ok)
	assert.Equal(t, []int{3, 1, 2}, got)
	assert.Equal(t, []time.Duration{time.Hour}, backend.ttls)

	_, ok = Load[[]int](ctx, l, "other", "k")
	assert.False(t, ok, "kinds are separate namespaces")
}

func TestLoad_UndecodableIsMiss(t *testing.T) {
	ctx := context.Background()
	l, err := New(memory.NewCache(10))
	require.NoError(t, err)

	l.Set(ctx, "rank", "k", []byte("not json"))

	_, ok := Load[[]int](ctx, l, "rank", "k")
	assert.False(t, ok)
}

func counterValue(t *testing.T, recorder *metrics.Recorder, name, kind string) float64 {
	t.Helper()
	families, err := recorder.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	recorder := metrics.NewRecorder(metrics.Config{})
	l, err := New(memory.NewCache(10), WithMetrics(recorder))
	require.NoError(t, err)

	calls := 0
	compute := func(ctx context.Context) (string, bool) {
		calls++
		return "value", true
	}

	assert.Equal(t, "value", Remember(ctx, l, "search", "k", compute))
	assert.Equal(t, "value", Remember(ctx, l, "search", "k", compute))
	assert.Equal(t, 1, calls, "second call is served from cache")
	assert.Equal(t, 1.0, counterValue(t, recorder, "pathways_cache_hits_total", "search"))
	assert.Equal(t, 1.0, counterValue(t, recorder, "pathways_cache_misses_total", "search"))
}

func TestRemember_NotCacheable(t *testing.T) {
	ctx := context.Background()
	l, err := New(memory.NewCache(10))
	require.NoError(t, err)

	calls := 0
	compute := func(ctx context.Context) (int, bool) {
		calls++
		return calls, false
	}

	assert.Equal(t, 1, Remember(ctx, l, "rank", "k", compute))
	assert.Equal(t, 2, Remember(ctx, l, "rank", "k", compute), "fallback results are recomputed")
}

func TestRemember_DeduplicatesInFlight(t *testing.T) {
	ctx := context.Background()
	l, err := New(memory.NewCache(10))
	require.NoError(t, err)

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (string, bool) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", true
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Remember(ctx, l, "rank", "same", compute)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestRemember_AbandonedLeaderDoesNotLeak(t *testing.T) {
	l, err := New(memory.NewCache(10))
	require.NoError(t, err)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	started := make(chan struct{})
	var calls int32
	compute := func(ctx context.Context) (string, bool) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-ctx.Done()
			return "partial", true
		}
		return "fresh", true
	}

	leaderDone := make(chan string, 1)
	go func() {
		leaderDone <- Remember(leaderCtx, l, "search", "same", compute)
	}()
	<-started

	joinerDone := make(chan string, 1)
	go func() {
		joinerDone <- Remember(context.Background(), l, "search", "same", compute)
	}()
	time.Sleep(50 * time.Millisecond)
	cancelLeader()

	assert.Equal(t, "partial", <-leaderDone, "the abandoned caller gets its own result")
	assert.Equal(t, "fresh", <-joinerDone, "a live caller recomputes instead of inheriting")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	cached, ok := Load[string](context.Background(), l, "search", "same")
	require.True(t, ok)
	assert.Equal(t, "fresh", cached, "abandoned results are never cached")
}

func TestRemember_CanceledCallerIsNotCached(t *testing.T) {
	l, err := New(memory.NewCache(10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := Remember(ctx, l, "rank", "k", func(ctx context.Context) (int, bool) { return 3, true })
	assert.Equal(t, 3, got)

	_, ok := Load[int](context.Background(), l, "rank", "k")
	assert.False(t, ok)
}

func TestRemember_BrokenBackendIsTransparent(t *testing.T) {
	ctx := context.Background()
	l, err := New(brokenBackend{})
	require.NoError(t, err)

	calls := 0
	compute := func(ctx context.Context) (string, bool) {
		calls++
		return "fresh", true
	}

	assert.Equal(t, "fresh", Remember(ctx, l, "rank", "k", compute))
	assert.Equal(t, "fresh", Remember(ctx, l, "rank", "k", compute))
	assert.Equal(t, 2, calls)
}

func TestNilLayer(t *testing.T) {
	ctx := context.Background()
	var l *Layer

	_, ok := l.Get(ctx, "rank", "k")
	assert.False(t, ok)
	l.Set(ctx, "rank", "k", []byte("x"))
	Store(ctx, l, "rank", "k", 1)
	assert.Equal(t, 7, Remember(ctx, l, "rank", "k", func(ctx context.Context) (int, bool) { return 7, true }))
	assert.NoError(t, l.Close())
}
