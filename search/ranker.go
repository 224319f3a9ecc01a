package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
)

const (
	rankCacheKind = "rank"

	omittedReason = "not scored by the classifier"
	failedReason  = "classifier unavailable"
)

// RankStats summarizes one ranking run.
type RankStats struct {
	Candidates    int
	Batches       int
	FailedBatches int
	Omitted       int
}

// Degraded reports whether every batch fell back to default scores.
func (s RankStats) Degraded() bool {
	return s.Batches > 0 && s.FailedBatches == s.Batches
}

// scoredBatch is the cached outcome of scoring one batch.
type scoredBatch struct {
	Judgments []Judgment `json:"judgments"`
	Failed    bool       `json:"-"`
}

// Ranker scores candidates in batches and orders them by relevance.
type Ranker struct {
	scorer  RelevanceScorer
	config  Config
	cache   *cache.Layer
	pool    *dispatch.Pool
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewRanker creates a ranker around scorer.
func NewRanker(scorer RelevanceScorer, opts ...Option) (*Ranker, error) {
	if scorer == nil {
		return nil, ErrScorerRequired
	}
	s, err := applyOptions("ranker", opts)
	if err != nil {
		return nil, err
	}
	return &Ranker{
		scorer:  scorer,
		config:  s.config,
		cache:   s.cache,
		pool:    s.pool,
		metrics: s.metrics,
		logger:  s.logger,
	}, nil
}

// Rank scores records against intent and returns them sorted by score,
// highest first. Every record appears exactly once in the output. The only
// error is the context's.
func (r *Ranker) Rank(ctx context.Context, intent core.SearchIntent, records []core.Record) ([]core.RankedCandidate, error) {
	ranked, _, err := r.RankWithStats(ctx, intent, records)
	return ranked, err
}

// RankWithStats is Rank plus a summary of how the batches went.
func (r *Ranker) RankWithStats(ctx context.Context, intent core.SearchIntent, records []core.Record) ([]core.RankedCandidate, RankStats, error) {
	if len(records) > r.config.MaxCandidates {
		r.logger.Debug("truncating candidates", "count", len(records), "cap", r.config.MaxCandidates)
		records = records[:r.config.MaxCandidates]
	}
	stats := RankStats{Candidates: len(records)}
	if len(records) == 0 {
		return []core.RankedCandidate{}, stats, ctx.Err()
	}

	batches, err := dispatch.Split(records, r.config.BatchSize)
	if err != nil {
		return nil, stats, err
	}
	stats.Batches = len(batches)

	ranked := make([][]core.RankedCandidate, len(batches))
	failed := make([]bool, len(batches))
	omitted := make([]int, len(batches))
	err = r.pool.Run(ctx, len(batches), func(ctx context.Context, i int) {
		ranked[i], failed[i], omitted[i] = r.rankBatch(ctx, intent, batches[i])
	})
	if err != nil {
		return nil, stats, err
	}

	out := make([]core.RankedCandidate, 0, len(records))
	for i := range batches {
		out = append(out, ranked[i]...)
		if failed[i] {
			stats.FailedBatches++
		}
		stats.Omitted += omitted[i]
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})

	r.logger.Debug("ranking done",
		"candidates", stats.Candidates,
		"batches", stats.Batches,
		"failed_batches", stats.FailedBatches,
		"omitted", stats.Omitted)
	return out, stats, nil
}

// rankBatch scores one batch, consulting the cache first. A failed scorer
// call gives every candidate the failed-batch default.
func (r *Ranker) rankBatch(ctx context.Context, intent core.SearchIntent, batch []core.Record) ([]core.RankedCandidate, bool, int) {
	scored := cache.Remember(ctx, r.cache, rankCacheKind, r.batchKey(intent, batch), func(ctx context.Context) (scoredBatch, bool) {
		judgments, err := r.scorer.Score(ctx, intent, batch)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Warn("batch scoring failed, using default scores",
					"scorer", r.scorer.Name(),
					"size", len(batch),
					"err", err)
				r.metrics.RecordFallback("ranker")
			}
			return scoredBatch{Failed: true}, false
		}
		return scoredBatch{Judgments: judgments}, true
	})

	if scored.Failed {
		out := make([]core.RankedCandidate, len(batch))
		for i, rec := range batch {
			out[i] = core.RankedCandidate{
				Record:    rec,
				Score:     r.config.FailedBatchScore,
				Reason:    failedReason,
				MatchType: core.MatchRelated,
			}
		}
		return out, true, 0
	}
	out, omitted := r.merge(batch, scored.Judgments)
	return out, false, omitted
}

// merge pairs judgments with their candidates. Out-of-range indices are
// ignored, the first judgment for an index wins and candidates without one
// get the omitted default.
func (r *Ranker) merge(batch []core.Record, judgments []Judgment) ([]core.RankedCandidate, int) {
	byIndex := make(map[int]Judgment, len(judgments))
	for _, j := range judgments {
		if j.Index < 0 || j.Index >= len(batch) {
			r.logger.Debug("ignoring judgment with out-of-range index", "index", j.Index, "size", len(batch))
			continue
		}
		if _, dup := byIndex[j.Index]; !dup {
			byIndex[j.Index] = j
		}
	}

	out := make([]core.RankedCandidate, len(batch))
	omitted := 0
	for i, rec := range batch {
		j, ok := byIndex[i]
		if !ok {
			omitted++
			out[i] = core.RankedCandidate{
				Record:    rec,
				Score:     r.config.OmittedScore,
				Reason:    omittedReason,
				MatchType: core.MatchRelated,
			}
			continue
		}
		matchType := j.MatchType
		if matchType == "" || matchType == core.MatchBroad {
			matchType = core.MatchRelated
		}
		out[i] = core.RankedCandidate{
			Record:    rec,
			Score:     core.ClampScore(j.Score),
			Reason:    j.Reason,
			MatchType: matchType,
		}
	}
	return out, omitted
}

func (r *Ranker) batchKey(intent core.SearchIntent, batch []core.Record) string {
	parts := make([]string, 0, len(batch)+5)
	parts = append(parts,
		r.scorer.Name(),
		normalizeTerm(intent.PrimaryTopic),
		strings.Join(intent.RelatedTerms, "\x1f"),
		string(intent.Kind),
		string(intent.Level))
	for _, rec := range batch {
		parts = append(parts, rec.Key())
	}
	return core.Fingerprint(parts...)
}
