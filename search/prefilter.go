package search

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
)

// PrefilterStage names the rung of the fallback ladder that produced candidates.
type PrefilterStage string

const (
	// StageTerms means the full expanded term set matched.
	StageTerms PrefilterStage = "terms"
	// StageTopicWords means only the words of the primary topic matched.
	StageTopicWords PrefilterStage = "topic_words"
	// StageBroad means nothing matched and a prefix of the record set was returned.
	StageBroad PrefilterStage = "broad"
	// StageEmpty means there were no records to filter.
	StageEmpty PrefilterStage = "empty"
)

// PrefilterResult is the candidate set handed to the ranker.
type PrefilterResult struct {
	Candidates []core.Record
	Stage      PrefilterStage
	// Terms is the term set of the stage that produced the candidates.
	Terms []string
}

// Broad reports whether the candidates are an unfiltered prefix.
func (r PrefilterResult) Broad() bool {
	return r.Stage == StageBroad
}

// Prefilter is the cheap substring filter that runs before ranking.
// It keeps a record when any term occurs in its search text.
type Prefilter struct {
	config  Config
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewPrefilter creates a prefilter.
func NewPrefilter(opts ...Option) (*Prefilter, error) {
	s, err := applyOptions("prefilter", opts)
	if err != nil {
		return nil, err
	}
	return &Prefilter{config: s.config, metrics: s.metrics, logger: s.logger}, nil
}

// Apply filters records for intent. When records is non-empty the result is
// never empty.
func (p *Prefilter) Apply(records []core.Record, intent core.SearchIntent) PrefilterResult {
	result := p.apply(records, intent)
	p.metrics.RecordPrefilterStage(string(result.Stage))
	p.logger.Debug("prefilter done",
		"stage", result.Stage,
		"terms", len(result.Terms),
		"records", len(records),
		"candidates", len(result.Candidates))
	return result
}

func (p *Prefilter) apply(records []core.Record, intent core.SearchIntent) PrefilterResult {
	if len(records) == 0 {
		return PrefilterResult{Stage: StageEmpty}
	}

	terms := ExpandTerms(append([]string{intent.PrimaryTopic}, intent.RelatedTerms...))
	if matched := p.match(records, terms); len(matched) > 0 {
		return PrefilterResult{Candidates: matched, Stage: StageTerms, Terms: terms}
	}

	words := topicWords(intent.PrimaryTopic)
	if matched := p.match(records, words); len(matched) > 0 {
		p.logger.Debug("term set matched nothing, using topic words", "topic", intent.PrimaryTopic)
		return PrefilterResult{Candidates: matched, Stage: StageTopicWords, Terms: words}
	}

	p.logger.Info("no prefilter matches, returning broad candidates",
		"topic", intent.PrimaryTopic,
		"limit", p.config.BroadLimit)
	n := min(p.config.BroadLimit, len(records))
	broad := make([]core.Record, n)
	copy(broad, records[:n])
	return PrefilterResult{Candidates: broad, Stage: StageBroad}
}

// match returns the records containing any term, in record order, capped at
// MaxCandidates.
func (p *Prefilter) match(records []core.Record, terms []string) []core.Record {
	if len(terms) == 0 {
		return nil
	}
	var out []core.Record
	for _, rec := range records {
		text := rec.SearchText()
		for _, term := range terms {
			if strings.Contains(text, term) {
				out = append(out, rec)
				break
			}
		}
		if len(out) == p.config.MaxCandidates {
			p.logger.Debug("prefilter hit candidate cap", "cap", p.config.MaxCandidates)
			break
		}
	}
	return out
}

// ExpandTerms builds the matching term set: every term, its compound variant
// and its individual words. Terms shorter than three characters are dropped
// since they match inside unrelated words.
func ExpandTerms(terms []string) []string {
	var expanded []string
	add := func(t string) {
		if utf8.RuneCountInString(t) >= minWordLength {
			expanded = append(expanded, t)
		}
	}
	for _, term := range terms {
		term = normalizeTerm(term)
		if term == "" {
			continue
		}
		add(term)
		if variant := compoundVariant(term); variant != "" {
			add(variant)
		}
		for _, w := range splitWords(term) {
			add(w)
		}
	}
	return dedupeTerms(expanded)
}

// topicWords is the second rung of the ladder: the words of the topic cut
// down to their stems, so "photographer" still finds "Photography".
func topicWords(topic string) []string {
	words := splitWords(topic)
	for i, w := range words {
		words[i] = stem(w)
	}
	return dedupeTerms(words)
}
