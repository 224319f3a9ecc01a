package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/storage/memory"
)

func numberedRecords(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{InstitutionID: "inst", ProgramCode: fmt.Sprintf("P%03d", i), Description: fmt.Sprintf("Program %03d", i)}
	}
	return records
}

func smallBatches(size int) Option {
	cfg := DefaultConfig()
	cfg.BatchSize = size
	return WithConfig(cfg)
}

func TestNewRankerRequiresScorer(t *testing.T) {
	_, err := NewRanker(nil)
	assert.ErrorIs(t, err, ErrScorerRequired)
}

func TestRankNoSilentLoss(t *testing.T) {
	// scores only even positions, repeats one index and invents another
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) {
		var out []Judgment
		for i := 0; i < len(batch); i += 2 {
			out = append(out, Judgment{Index: i, Score: 9, Reason: "good", MatchType: core.MatchExact})
		}
		out = append(out,
			Judgment{Index: 0, Score: 1, Reason: "duplicate"},
			Judgment{Index: len(batch) + 5, Score: 10, Reason: "phantom"},
			Judgment{Index: -1, Score: 10, Reason: "phantom"})
		return out, nil
	}}
	ranker, err := NewRanker(scorer, smallBatches(4))
	require.NoError(t, err)

	records := numberedRecords(10)
	ranked, stats, err := ranker.RankWithStats(context.Background(), core.SearchIntent{PrimaryTopic: "x"}, records)
	require.NoError(t, err)
	require.Len(t, ranked, len(records))

	seen := map[string]int{}
	for _, c := range ranked {
		seen[c.Record.Key()]++
		assert.NotEqual(t, "phantom", c.Reason)
		assert.NotEqual(t, "duplicate", c.Reason)
	}
	for _, r := range records {
		assert.Equal(t, 1, seen[r.Key()], "record %s", r.ProgramCode)
	}

	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 0, stats.FailedBatches)
	assert.Equal(t, 5, stats.Omitted)

	for _, c := range ranked[:5] {
		assert.Equal(t, 9, c.Score)
		assert.Equal(t, core.MatchExact, c.MatchType)
	}
	for _, c := range ranked[5:] {
		assert.Equal(t, DefaultConfig().OmittedScore, c.Score)
		assert.Equal(t, core.MatchRelated, c.MatchType)
		assert.Equal(t, omittedReason, c.Reason)
	}
}

func TestRankFailedBatchKeepsGoing(t *testing.T) {
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) {
		if batch[0].ProgramCode == "P003" {
			return nil, errors.New("timeout")
		}
		out := make([]Judgment, len(batch))
		for i := range batch {
			out[i] = Judgment{Index: i, Score: 8, MatchType: core.MatchSynonym}
		}
		return out, nil
	}}
	ranker, err := NewRanker(scorer, smallBatches(3))
	require.NoError(t, err)

	ranked, stats, err := ranker.RankWithStats(context.Background(), core.SearchIntent{PrimaryTopic: "x"}, numberedRecords(9))
	require.NoError(t, err)
	require.Len(t, ranked, 9)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.False(t, stats.Degraded())

	failed := 0
	for _, c := range ranked {
		if c.Reason == failedReason {
			failed++
			assert.Equal(t, DefaultConfig().FailedBatchScore, c.Score)
			assert.Equal(t, core.MatchRelated, c.MatchType)
		}
	}
	assert.Equal(t, 3, failed)
}

func TestRankAllBatchesFailedIsDegraded(t *testing.T) {
	scorer := &fakeScorer{fn: func([]core.Record) ([]Judgment, error) {
		return nil, errors.New("down")
	}}
	ranker, err := NewRanker(scorer, smallBatches(2))
	require.NoError(t, err)

	ranked, stats, err := ranker.RankWithStats(context.Background(), core.SearchIntent{}, numberedRecords(5))
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
	assert.True(t, stats.Degraded())
}

func TestRankStableOrder(t *testing.T) {
	scores := map[string]int{"P000": 5, "P001": 9, "P002": 5, "P003": 9, "P004": 42, "P005": -3}
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) {
		out := make([]Judgment, len(batch))
		for i, r := range batch {
			out[i] = Judgment{Index: i, Score: scores[r.ProgramCode]}
		}
		return out, nil
	}}
	ranker, err := NewRanker(scorer, smallBatches(2))
	require.NoError(t, err)

	ranked, err := ranker.Rank(context.Background(), core.SearchIntent{}, numberedRecords(6))
	require.NoError(t, err)

	var order []string
	for _, c := range ranked {
		order = append(order, c.Record.ProgramCode)
	}
	assert.Equal(t, []string{"P004", "P001", "P003", "P000", "P002", "P005"}, order)
	assert.Equal(t, core.MaxScore, ranked[0].Score)
	assert.Equal(t, core.MinScore, ranked[5].Score)
}

func TestRankOnPoolMatchesSequential(t *testing.T) {
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) {
		out := make([]Judgment, len(batch))
		for i, r := range batch {
			out[i] = Judgment{Index: i, Score: 1 + int(r.ProgramCode[3]-'0')%10}
		}
		return out, nil
	}}
	pool, err := dispatch.NewPool(dispatch.WithPoolSize(4))
	require.NoError(t, err)
	defer pool.Release()

	sequential, err := NewRanker(scorer, smallBatches(5))
	require.NoError(t, err)
	concurrent, err := NewRanker(scorer, smallBatches(5), WithPool(pool))
	require.NoError(t, err)

	records := numberedRecords(47)
	want, err := sequential.Rank(context.Background(), core.SearchIntent{}, records)
	require.NoError(t, err)
	got, err := concurrent.Rank(context.Background(), core.SearchIntent{}, records)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRankCapsCandidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 7
	cfg.BatchSize = 3
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) { return nil, nil }}
	ranker, err := NewRanker(scorer, WithConfig(cfg))
	require.NoError(t, err)

	ranked, stats, err := ranker.RankWithStats(context.Background(), core.SearchIntent{}, numberedRecords(20))
	require.NoError(t, err)
	assert.Len(t, ranked, 7)
	assert.Equal(t, 3, stats.Batches)
}

func TestRankCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := &fakeScorer{fn: func([]core.Record) ([]Judgment, error) { return nil, nil }}
	ranker, err := NewRanker(scorer)
	require.NoError(t, err)

	_, err = ranker.Rank(ctx, core.SearchIntent{}, numberedRecords(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankCachesBatches(t *testing.T) {
	layer, err := cache.New(memory.NewCache(100))
	require.NoError(t, err)

	fail := true
	scorer := &fakeScorer{fn: func(batch []core.Record) ([]Judgment, error) {
		if fail {
			return nil, errors.New("down")
		}
		out := make([]Judgment, len(batch))
		for i := range batch {
			out[i] = Judgment{Index: i, Score: 7, Reason: "cached", MatchType: core.MatchSynonym}
		}
		return out, nil
	}}
	ranker, err := NewRanker(scorer, smallBatches(2), WithCache(layer))
	require.NoError(t, err)

	ctx := context.Background()
	intent := core.SearchIntent{PrimaryTopic: "nursing", RelatedTerms: []string{"rn"}}
	records := numberedRecords(4)

	// fallback scores are not cached
	_, err = ranker.Rank(ctx, intent, records)
	require.NoError(t, err)
	assert.EqualValues(t, 2, scorer.calls.Load())

	fail = false
	first, err := ranker.Rank(ctx, intent, records)
	require.NoError(t, err)
	assert.EqualValues(t, 4, scorer.calls.Load())

	second, err := ranker.Rank(ctx, intent, records)
	require.NoError(t, err)
	assert.EqualValues(t, 4, scorer.calls.Load())
	assert.Equal(t, first, second)

	// a different intent misses
	_, err = ranker.Rank(ctx, core.SearchIntent{PrimaryTopic: "welding"}, records)
	require.NoError(t, err)
	assert.EqualValues(t, 6, scorer.calls.Load())
}

func TestOracleScorer(t *testing.T) {
	_, err := NewOracleScorer(nil)
	assert.ErrorIs(t, err, ErrOracleRequired)

	oracle := newScriptedOracle(scripted{score: func(desc string) int {
		if strings.Contains(desc, "Nursing") {
			return 10
		}
		return 2
	}})
	scorer, err := NewOracleScorer(oracle)
	require.NoError(t, err)
	assert.Equal(t, "oracle", scorer.Name())

	records := testRecords()[:3]
	judgments, err := scorer.Score(context.Background(), core.SearchIntent{PrimaryTopic: "nursing", Kind: core.IntentExact}, records)
	require.NoError(t, err)
	require.Len(t, judgments, 3)
	assert.Equal(t, Judgment{Index: 0, Score: 10, Reason: "scripted", MatchType: core.MatchSynonym}, judgments[0])
	assert.Equal(t, 2, judgments[2].Index)

	user := oracle.Calls()[0].User
	assert.Contains(t, user, "Topic: nursing")
	assert.Contains(t, user, "1. Practical Nursing (2-Year, CIP 51.3901)")
}

func TestOracleScorerUnavailable(t *testing.T) {
	scorer, err := NewOracleScorer(newScriptedOracle(scripted{}))
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), core.SearchIntent{}, testRecords()[:1])
	assert.Error(t, err)
}

func TestRuleScorer(t *testing.T) {
	records := []core.Record{
		{Description: "Practical Nursing", ClassificationCode: "51.3901"},
		{Description: "Registered Nurse Pathway", ClassificationCode: "51.3801"},
		{Description: "Medical Assisting", ClassificationCode: "51.0801"},
		{Description: "Nursing-adjacent Welding", ClassificationCode: "48.0508"},
		{Description: "Automotive Technology", ClassificationCode: "47.0604"},
	}
	intent := core.SearchIntent{PrimaryTopic: "nursing", RelatedTerms: []string{"registered nurse"}}

	judgments, err := NewRuleScorer().Score(context.Background(), intent, records)
	require.NoError(t, err)
	require.Len(t, judgments, len(records))

	got := make([]int, len(judgments))
	for i, j := range judgments {
		assert.Equal(t, i, j.Index)
		got[i] = j.Score
	}
	assert.Equal(t, []int{10, 8, 6, 10, 2}, got)
	assert.Equal(t, core.MatchExact, judgments[0].MatchType)
	assert.Equal(t, core.MatchSynonym, judgments[1].MatchType)
}
