package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
)

const intentCacheKind = "intent"

// intentReply is the oracle's view of a query.
type intentReply struct {
	PrimaryTopic string   `json:"primary_topic"`
	RelatedTerms []string `json:"related_terms"`
	Intent       string   `json:"intent"`
	Level        string   `json:"level"`
}

// IntentExtractor turns a free-text query into a SearchIntent.
type IntentExtractor struct {
	oracle  ai.Oracle
	config  Config
	cache   *cache.Layer
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewIntentExtractor creates an extractor. A nil oracle is allowed; every
// query then goes through the local fallback.
func NewIntentExtractor(oracle ai.Oracle, opts ...Option) (*IntentExtractor, error) {
	s, err := applyOptions("intent", opts)
	if err != nil {
		return nil, err
	}
	return &IntentExtractor{
		oracle:  oracle,
		config:  s.config,
		cache:   s.cache,
		metrics: s.metrics,
		logger:  s.logger,
	}, nil
}

// Extract builds the intent for query. It never fails: when the oracle is
// unavailable the raw query becomes the topic, the kind is exact and the
// related terms come from the local synonym table.
func (e *IntentExtractor) Extract(ctx context.Context, query string, history []core.Turn) core.SearchIntent {
	query = strings.TrimSpace(query)
	key := core.Fingerprint(core.NormalizeText(query), core.ContextHash(history))

	return cache.Remember(ctx, e.cache, intentCacheKind, key, func(ctx context.Context) (core.SearchIntent, bool) {
		if e.oracle == nil {
			return e.fallback(query), false
		}

		start := time.Now()
		reply, err := ai.Ask[intentReply](ctx, e.oracle, intentPrompt,
			intentUserContent(query, history, e.config.HistoryTurns), intentSchema, ai.DefaultParseAttempts)
		e.metrics.RecordOracleResult("intent", err, time.Since(start))
		if err != nil {
			e.logger.Warn("intent extraction failed, using local fallback", "query", query, "err", err)
			e.metrics.RecordFallback("intent")
			return e.fallback(query), false
		}

		intent := e.complete(query, reply)
		e.logger.Debug("extracted intent",
			"topic", intent.PrimaryTopic,
			"terms", len(intent.RelatedTerms),
			"kind", intent.Kind,
			"level", intent.Level)
		return intent, true
	})
}

// fallback is the intent used when the oracle cannot be consulted.
func (e *IntentExtractor) fallback(query string) core.SearchIntent {
	return core.SearchIntent{
		PrimaryTopic: query,
		RelatedTerms: e.fillTerms(query, nil),
		Kind:         core.IntentExact,
	}
}

// complete turns a reply into an intent, filling in whatever the oracle left out.
func (e *IntentExtractor) complete(query string, reply intentReply) core.SearchIntent {
	topic := strings.TrimSpace(reply.PrimaryTopic)
	if topic == "" {
		topic = query
	}
	return core.SearchIntent{
		PrimaryTopic: topic,
		RelatedTerms: e.fillTerms(topic, reply.RelatedTerms),
		Kind:         core.ParseIntentKind(reply.Intent),
		Level:        core.ParseLevel(reply.Level),
	}
}

// fillTerms tops terms up to MinRelatedTerms from the synonym table and then
// from the words of the topic. The result is never empty.
func (e *IntentExtractor) fillTerms(topic string, terms []string) []string {
	normTopic := normalizeTerm(topic)
	withoutTopic := func(in []string) []string {
		deduped := dedupeTerms(in)
		out := make([]string, 0, len(deduped))
		for _, t := range deduped {
			if t != normTopic {
				out = append(out, t)
			}
		}
		return out
	}

	out := withoutTopic(terms)
	if len(out) >= e.config.MinRelatedTerms {
		return out
	}
	out = withoutTopic(append(out, localSynonyms(topic)...))
	if len(out) >= e.config.MinRelatedTerms {
		return out
	}
	out = withoutTopic(append(out, splitWords(topic)...))
	if variant := compoundVariant(normTopic); variant != "" {
		out = withoutTopic(append(out, variant))
	}
	if len(out) == 0 && normTopic != "" {
		out = []string{normTopic}
	}
	return out
}
