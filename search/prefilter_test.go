package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pathways/core"
)

func descriptions(records []core.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Description
	}
	return out
}

func TestExpandTerms(t *testing.T) {
	terms := ExpandTerms([]string{"Cyber Security", "rn", "information technology"})
	assert.Contains(t, terms, "cyber security")
	assert.Contains(t, terms, "cybersecurity")
	assert.Contains(t, terms, "cyber")
	assert.Contains(t, terms, "security")
	assert.Contains(t, terms, "informationtechnology")
	assert.NotContains(t, terms, "rn")
}

func TestPrefilterCompoundVariant(t *testing.T) {
	p, err := NewPrefilter()
	require.NoError(t, err)

	records := []core.Record{
		{InstitutionID: "a", Description: "Cybersecurity", ClassificationCode: "11.1003"},
		{InstitutionID: "b", Description: "Practical Nursing", ClassificationCode: "51.3901"},
	}
	result := p.Apply(records, core.SearchIntent{PrimaryTopic: "cyber security"})
	assert.Equal(t, StageTerms, result.Stage)
	assert.Equal(t, []string{"Cybersecurity"}, descriptions(result.Candidates))
	assert.Contains(t, result.Terms, "cybersecurity")
}

func TestPrefilterMatchesCodesAndRelatedTerms(t *testing.T) {
	p, err := NewPrefilter()
	require.NoError(t, err)

	result := p.Apply(testRecords(), core.SearchIntent{
		PrimaryTopic: "cooking",
		RelatedTerms: []string{"culinary", "51.39"},
	})
	assert.Equal(t, StageTerms, result.Stage)
	assert.ElementsMatch(t, []string{"Culinary Arts", "Practical Nursing"}, descriptions(result.Candidates))
}

func TestPrefilterTopicWordsRung(t *testing.T) {
	p, err := NewPrefilter()
	require.NoError(t, err)

	result := p.Apply(testRecords(), core.SearchIntent{PrimaryTopic: "photographer"})
	assert.Equal(t, StageTopicWords, result.Stage)
	assert.Equal(t, []string{"photograph"}, result.Terms)
	assert.Equal(t, []string{"Digital Photography"}, descriptions(result.Candidates))
}

func TestTopicWords(t *testing.T) {
	assert.Equal(t, []string{"nurs"}, topicWords("nurses"))
	assert.Equal(t, []string{"account", "technolog"}, topicWords("accountant technologies"))
	assert.Equal(t, []string{"cook"}, topicWords("cooking"))
	assert.Equal(t, []string{"arts"}, topicWords("arts"))
}

func TestPrefilterBroadFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BroadLimit = 3
	p, err := NewPrefilter(WithConfig(cfg))
	require.NoError(t, err)

	records := testRecords()
	result := p.Apply(records, core.SearchIntent{PrimaryTopic: "underwater basket weaving"})
	assert.Equal(t, StageBroad, result.Stage)
	assert.True(t, result.Broad())
	assert.Equal(t, descriptions(records[:3]), descriptions(result.Candidates))

	// the broad prefix is a copy
	result.Candidates[0].Description = "changed"
	assert.Equal(t, "Practical Nursing", records[0].Description)
}

func TestPrefilterNoRecords(t *testing.T) {
	p, err := NewPrefilter()
	require.NoError(t, err)

	result := p.Apply(nil, core.SearchIntent{PrimaryTopic: "nursing"})
	assert.Equal(t, StageEmpty, result.Stage)
	assert.Empty(t, result.Candidates)
}

func TestPrefilterCandidateCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 4
	p, err := NewPrefilter(WithConfig(cfg))
	require.NoError(t, err)

	var records []core.Record
	for i := range 10 {
		records = append(records, core.Record{InstitutionID: "a", Description: fmt.Sprintf("Nursing %d", i)})
	}
	result := p.Apply(records, core.SearchIntent{PrimaryTopic: "nursing"})
	assert.Equal(t, []string{"Nursing 0", "Nursing 1", "Nursing 2", "Nursing 3"}, descriptions(result.Candidates))
}

func TestPrefilterNeverEmptyWhenRecordsExist(t *testing.T) {
	p, err := NewPrefilter()
	require.NoError(t, err)

	for _, topic := range []string{"nursing", "zz", "", "quantum chromodynamics", "IT"} {
		result := p.Apply(testRecords(), core.SearchIntent{PrimaryTopic: topic})
		assert.NotEmpty(t, result.Candidates, "topic %q", topic)
	}
}
