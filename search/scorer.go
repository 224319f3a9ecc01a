package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
)

// Judgment is a scorer's verdict on one candidate of a batch.
// Index is the zero-based position of the candidate within the batch.
type Judgment struct {
	Index     int            `json:"index"`
	Score     int            `json:"score"`
	Reason    string         `json:"reason"`
	MatchType core.MatchType `json:"match_type"`
}

// RelevanceScorer scores a batch of candidates against an intent.
// Implementations may omit candidates or return out-of-range indices;
// the ranker repairs both.
type RelevanceScorer interface {
	// Name identifies the scorer in cache keys and logs.
	Name() string
	Score(ctx context.Context, intent core.SearchIntent, batch []core.Record) ([]Judgment, error)
}

type rankReply struct {
	Scores []struct {
		Index     int    `json:"index"`
		Score     int    `json:"score"`
		Reason    string `json:"reason"`
		MatchType string `json:"match_type"`
	} `json:"scores"`
}

// OracleScorer asks the oracle to score candidates.
type OracleScorer struct {
	oracle  ai.Oracle
	metrics *metrics.Recorder
	logger  *slog.Logger
}

var _ RelevanceScorer = (*OracleScorer)(nil)

// NewOracleScorer creates a scorer backed by oracle.
func NewOracleScorer(oracle ai.Oracle, opts ...Option) (*OracleScorer, error) {
	if oracle == nil {
		return nil, ErrOracleRequired
	}
	s, err := applyOptions("oracle_scorer", opts)
	if err != nil {
		return nil, err
	}
	return &OracleScorer{oracle: oracle, metrics: s.metrics, logger: s.logger}, nil
}

// Name implements RelevanceScorer.
func (s *OracleScorer) Name() string {
	return "oracle"
}

// Score implements RelevanceScorer. The oracle numbers candidates from 1;
// returned judgments are zero-based.
func (s *OracleScorer) Score(ctx context.Context, intent core.SearchIntent, batch []core.Record) ([]Judgment, error) {
	start := time.Now()
	reply, err := ai.Ask[rankReply](ctx, s.oracle, rankPrompt, rankUserContent(intent, batch), rankSchema, ai.DefaultParseAttempts)
	s.metrics.RecordOracleResult("ranker", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	judgments := make([]Judgment, 0, len(reply.Scores))
	for _, sc := range reply.Scores {
		judgments = append(judgments, Judgment{
			Index:     sc.Index - 1,
			Score:     sc.Score,
			Reason:    strings.TrimSpace(sc.Reason),
			MatchType: core.ParseMatchType(sc.MatchType),
		})
	}
	return judgments, nil
}

// RuleScorer scores candidates from term overlap and the topic's program
// family. It is deterministic and needs no network.
//
//   - 10 when the description contains the primary topic
//   - 8 when it contains a related term
//   - 6 when the record's classification family matches the topic's family
//   - 5 when it contains a word of the topic
//   - 2 otherwise
type RuleScorer struct{}

var _ RelevanceScorer = RuleScorer{}

// NewRuleScorer creates a rule-based scorer.
func NewRuleScorer() RuleScorer {
	return RuleScorer{}
}

// Name implements RelevanceScorer.
func (RuleScorer) Name() string {
	return "rules"
}

// Score implements RelevanceScorer. It never fails.
func (RuleScorer) Score(ctx context.Context, intent core.SearchIntent, batch []core.Record) ([]Judgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topic := normalizeTerm(intent.PrimaryTopic)
	related := ExpandTerms(intent.RelatedTerms)
	words := topicWords(intent.PrimaryTopic)
	hint, hasHint := core.MatchTopicHint(intent.PrimaryTopic)

	judgments := make([]Judgment, 0, len(batch))
	for i, rec := range batch {
		text := rec.SearchText()
		j := Judgment{Index: i, Score: 2, MatchType: core.MatchRelated, Reason: "no overlap with the topic"}
		switch {
		case topic != "" && (strings.Contains(text, topic) || containsCompound(text, topic)):
			j.Score, j.MatchType, j.Reason = 10, core.MatchExact, "description names the topic"
		case containsAny(text, related):
			j.Score, j.MatchType, j.Reason = 8, core.MatchSynonym, "description names a related term"
		case hasHint && core.FamilyPrefix(rec.ClassificationCode) == hint.ProgramFamily:
			j.Score, j.MatchType, j.Reason = 6, core.MatchRelated, "classified in the topic's program family"
		case containsAny(text, words):
			j.Score, j.MatchType, j.Reason = 5, core.MatchRelated, "description shares a word with the topic"
		}
		judgments = append(judgments, j)
	}
	return judgments, nil
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func containsCompound(text, term string) bool {
	variant := compoundVariant(term)
	return variant != "" && strings.Contains(text, variant)
}
