package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyLookups(t *testing.T) {
	assert.Equal(t, "Health Professions and Related Programs", ProgramFamily("51.3801"))
	assert.Equal(t, "Computer and Information Sciences and Support Services", ProgramFamily("11"))
	assert.Empty(t, ProgramFamily("99.9999"))
	assert.Equal(t, "Computer and Mathematical", CareerGroup("15-1252"))
	assert.Empty(t, CareerGroup("bogus"))
}

func TestMatchTopicHint(t *testing.T) {
	t.Run("nursing maps to health", func(t *testing.T) {
		hint, ok := MatchTopicHint("Nursing programs please")
		require.True(t, ok)
		assert.Equal(t, "51", hint.ProgramFamily)
		assert.True(t, hint.HasCareerGroup("29"))
	})

	t.Run("multi word keyword", func(t *testing.T) {
		hint, ok := MatchTopicHint("anything in cyber security?")
		require.True(t, ok)
		assert.Equal(t, "11", hint.ProgramFamily)
	})

	t.Run("keywords match whole words only", func(t *testing.T) {
		_, ok := MatchTopicHint("a smart party")
		assert.False(t, ok)
	})

	t.Run("photography maps to visual arts", func(t *testing.T) {
		hint, ok := MatchTopicHint("photography")
		require.True(t, ok)
		assert.Equal(t, "50", hint.ProgramFamily)
		assert.False(t, hint.HasCareerGroup("15"))
	})
}

func TestMatchQueryTopicHint(t *testing.T) {
	history := []Turn{
		{Speaker: SpeakerTypeHuman, Content: "I want to become a chef"},
		{Speaker: SpeakerTypeAI, Content: "Great, nursing is also popular"},
	}

	hint, ok := MatchQueryTopicHint("what is on Oahu?", history)
	require.True(t, ok)
	assert.Equal(t, "culinary", hint.Name, "assistant turns are ignored")

	hint, ok = MatchQueryTopicHint("nursing", history)
	require.True(t, ok)
	assert.Equal(t, "health", hint.Name, "query wins over history")
}
