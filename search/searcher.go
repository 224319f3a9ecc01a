package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
	"github.com/poiesic/pathways/storage"
)

const searchCacheKind = "search"

const broadReason = "no program matched the query terms"

// Searcher runs the full pipeline: intent, prefilter, ranking and quality
// reflection.
type Searcher struct {
	store     storage.RecordStore
	extractor *IntentExtractor
	prefilter *Prefilter
	ranker    *Ranker
	scorer    string
	reflector reflector
	config    Config
	cache     *cache.Layer
	metrics   *metrics.Recorder
	monitor   SearchMonitor
	logger    *slog.Logger
}

// attemptResult is one pass through prefilter and ranking.
type attemptResult struct {
	intent   core.SearchIntent
	ranked   []core.RankedCandidate
	quality  float64
	degraded bool
}

// searchOutcome is what the result cache stores.
type searchOutcome struct {
	Results  []core.RankedCandidate `json:"results"`
	Degraded bool                   `json:"-"`
}

// NewSearcher creates a searcher over store. The oracle drives intent
// extraction and may be nil; scorer ranks candidates. Options are shared
// with the searcher's components.
func NewSearcher(store storage.RecordStore, oracle ai.Oracle, scorer RelevanceScorer, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if scorer == nil {
		return nil, ErrScorerRequired
	}
	s, err := applyOptions("searcher", opts)
	if err != nil {
		return nil, err
	}
	extractor, err := NewIntentExtractor(oracle, opts...)
	if err != nil {
		return nil, err
	}
	prefilter, err := NewPrefilter(opts...)
	if err != nil {
		return nil, err
	}
	ranker, err := NewRanker(scorer, opts...)
	if err != nil {
		return nil, err
	}

	monitor := s.monitor
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	return &Searcher{
		store:     store,
		extractor: extractor,
		prefilter: prefilter,
		ranker:    ranker,
		scorer:    scorer.Name(),
		reflector: newReflector(s.config),
		config:    s.config,
		cache:     s.cache,
		metrics:   s.metrics,
		monitor:   monitor,
		logger:    s.logger,
	}, nil
}

// Search returns the records most relevant to query within region, best
// first. Every result scores at least opts.MinRelevance and there are at most
// opts.MaxResults of them; zero values select the defaults. Errors are
// limited to invalid input, an unknown region and a canceled context.
func (s *Searcher) Search(ctx context.Context, query, region string, opts core.SearchOptions) ([]core.RankedCandidate, error) {
	return s.SearchWithMonitor(ctx, query, region, opts, nil)
}

// SearchWithMonitor is Search with a monitor that receives callbacks at each
// stage. A nil monitor uses the searcher's default.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query, region string, opts core.SearchOptions, monitor SearchMonitor) ([]core.RankedCandidate, error) {
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := core.ValidateSearchOptions(opts); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = s.monitor
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = s.config.DefaultMaxResults
	}
	if opts.MinRelevance == 0 {
		opts.MinRelevance = s.config.DefaultMinRelevance
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	start := time.Now()
	monitor.Start(runID, query)

	records, err := s.store.RecordsForRegion(ctx, region)
	switch {
	case errors.Is(err, storage.ErrNoRecords):
		logger.Warn("record store is empty", "region", region)
		records = nil
	case err != nil:
		return nil, fmt.Errorf("load records for region %q: %w", region, err)
	}

	key := core.Fingerprint(
		core.NormalizeText(query),
		core.NormalizeText(region),
		core.ContextHash(opts.Conversation),
		strconv.Itoa(opts.MaxResults),
		strconv.Itoa(opts.MinRelevance),
		s.scorer)
	outcome := cache.Remember(ctx, s.cache, searchCacheKind, key, func(ctx context.Context) (searchOutcome, bool) {
		out, err := s.run(ctx, logger, monitor, query, records, opts)
		if err != nil {
			return out, false
		}
		return out, !out.Degraded
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := outcome.Results
	if results == nil {
		results = []core.RankedCandidate{}
	}
	s.metrics.RecordSearch(time.Since(start), len(results), outcome.Degraded)
	logger.Info("search complete",
		"query", query,
		"region", region,
		"results", len(results),
		"degraded", outcome.Degraded,
		"elapsed", time.Since(start))
	monitor.Finish(results)
	return results, nil
}

// run drives the reflection loop and returns the best attempt's results.
func (s *Searcher) run(ctx context.Context, logger *slog.Logger, monitor SearchMonitor, query string, records []core.Record, opts core.SearchOptions) (searchOutcome, error) {
	if len(records) == 0 {
		return searchOutcome{Results: []core.RankedCandidate{}}, nil
	}

	intent := s.extractor.Extract(ctx, query, opts.Conversation)
	if err := ctx.Err(); err != nil {
		return searchOutcome{}, err
	}

	var best *attemptResult
	for attempt := 1; ; attempt++ {
		monitor.AfterIntent(attempt, intent)
		result, err := s.attempt(ctx, monitor, attempt, intent, records, opts)
		if err != nil {
			return searchOutcome{}, err
		}
		if best == nil || result.quality > best.quality {
			best = &result
		}

		decision := s.reflector.decide(attempt, result.quality)
		var next core.SearchIntent
		if decision == DecisionRetry {
			var changed bool
			next, changed = broaden(intent, attempt)
			if !changed {
				decision = DecisionGiveUp
			}
		}
		s.metrics.RecordReflection(string(decision))
		monitor.AfterAttempt(attempt, result.quality, decision)
		logger.Debug("search attempt judged",
			"attempt", attempt,
			"quality", result.quality,
			"decision", decision)

		if decision != DecisionRetry {
			break
		}
		intent = next
	}

	return searchOutcome{
		Results:  selectResults(best.ranked, opts.MinRelevance, opts.MaxResults),
		Degraded: best.degraded,
	}, nil
}

// attempt runs prefilter and ranking for one intent.
func (s *Searcher) attempt(ctx context.Context, monitor SearchMonitor, n int, intent core.SearchIntent, records []core.Record, opts core.SearchOptions) (attemptResult, error) {
	scoped := s.filterLevel(records, intent.Level)
	pre := s.prefilter.Apply(scoped, intent)
	monitor.AfterPrefilter(n, pre)

	var (
		ranked []core.RankedCandidate
		stats  RankStats
	)
	if pre.Broad() {
		ranked = broadCandidates(pre.Candidates, opts.MinRelevance)
	} else {
		var err error
		ranked, stats, err = s.ranker.RankWithStats(ctx, intent, pre.Candidates)
		if err != nil {
			return attemptResult{}, err
		}
	}
	monitor.AfterRanking(n, ranked, stats)

	return attemptResult{
		intent:   intent,
		ranked:   ranked,
		quality:  QualityScore(ranked, opts.MinRelevance, opts.MaxResults),
		degraded: stats.Degraded(),
	}, nil
}

// filterLevel narrows records to level. A filter that would leave nothing
// is ignored.
func (s *Searcher) filterLevel(records []core.Record, level core.Level) []core.Record {
	if level == "" {
		return records
	}
	filtered := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if rec.Level.Matches(level) {
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == 0 {
		s.logger.Info("level filter matched no records, ignoring it", "level", level)
		return records
	}
	return filtered
}

// broadCandidates wraps unfiltered records so they survive the relevance
// threshold with the lowest passing score.
func broadCandidates(records []core.Record, minRelevance int) []core.RankedCandidate {
	score := core.ClampScore(max(core.MinScore, minRelevance))
	out := make([]core.RankedCandidate, len(records))
	for i, rec := range records {
		out[i] = core.RankedCandidate{
			Record:    rec,
			Score:     score,
			Reason:    broadReason,
			MatchType: core.MatchBroad,
		}
	}
	return out
}

// selectResults applies the relevance threshold and the result cap to a
// sorted candidate list.
func selectResults(ranked []core.RankedCandidate, minRelevance, maxResults int) []core.RankedCandidate {
	out := make([]core.RankedCandidate, 0, min(len(ranked), maxResults))
	for _, c := range ranked {
		if len(out) == maxResults {
			break
		}
		if c.Score >= minRelevance {
			out = append(out, c)
		}
	}
	return out
}
