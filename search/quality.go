package search

import (
	"strings"

	"github.com/poiesic/pathways/core"
)

// ReflectionDecision is the outcome of judging one search attempt.
type ReflectionDecision string

const (
	// DecisionAccept means the attempt is good enough to return.
	DecisionAccept ReflectionDecision = "accept"
	// DecisionRetry means the search runs again with a broadened intent.
	DecisionRetry ReflectionDecision = "retry"
	// DecisionGiveUp means the attempt budget is spent or broadening has
	// nothing left to add; the best attempt so far is returned.
	DecisionGiveUp ReflectionDecision = "give_up"
)

// QualityScore rates a ranked candidate list in [0, 1]. Half of the score is
// how much of the result budget the qualifying candidates fill, the other
// half is their average relevance. Broad candidates do not qualify.
func QualityScore(ranked []core.RankedCandidate, minRelevance, maxResults int) float64 {
	if maxResults <= 0 {
		return 0
	}
	n, total := 0, 0
	for _, c := range ranked {
		if n == maxResults {
			break
		}
		if c.MatchType == core.MatchBroad || c.Score < minRelevance {
			continue
		}
		n++
		total += c.Score
	}
	if n == 0 {
		return 0
	}
	coverage := float64(n) / float64(maxResults)
	relevance := float64(total) / float64(n) / float64(core.MaxScore)
	return 0.5*coverage + 0.5*relevance
}

// reflector is the bounded retry policy around a search:
// Scoring -> Accept | Retry(attempt+1) | GiveUp.
type reflector struct {
	threshold   float64
	maxAttempts int
}

func newReflector(cfg Config) reflector {
	return reflector{threshold: cfg.QualityThreshold, maxAttempts: cfg.MaxAttempts}
}

// decide judges attempt (1-based) given its quality.
func (r reflector) decide(attempt int, quality float64) ReflectionDecision {
	switch {
	case quality >= r.threshold:
		return DecisionAccept
	case attempt >= r.maxAttempts:
		return DecisionGiveUp
	default:
		return DecisionRetry
	}
}

// broaden widens intent for the next attempt: the level filter is dropped,
// the kind becomes exploratory and terms are added from the synonym table,
// the words of existing terms and, from the second round on, the keywords of
// the topic's subject area. It reports whether the term set grew or a level
// filter was dropped.
func broaden(intent core.SearchIntent, round int) (core.SearchIntent, bool) {
	existing := dedupeTerms(intent.RelatedTerms)
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}

	additions := localSynonyms(intent.PrimaryTopic)
	additions = append(additions, splitWords(intent.PrimaryTopic)...)
	for _, t := range existing {
		additions = append(additions, splitWords(t)...)
	}
	if round >= 2 {
		if hint, ok := core.MatchTopicHint(intent.PrimaryTopic + " " + strings.Join(existing, " ")); ok {
			additions = append(additions, hint.Keywords...)
		}
	}

	terms := existing
	for _, t := range dedupeTerms(additions) {
		if !seen[t] && t != normalizeTerm(intent.PrimaryTopic) {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	changed := len(terms) > len(existing) || intent.Level != ""
	return core.SearchIntent{
		PrimaryTopic: intent.PrimaryTopic,
		RelatedTerms: terms,
		Kind:         core.IntentExploratory,
	}, changed
}
