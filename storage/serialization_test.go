package storage

import (
	"testing"

	"github.com/poiesic/pathways/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalValue(t *testing.T) {
	candidates := []core.RankedCandidate{
		{
			Record:    core.Record{InstitutionID: "inst-1", ProgramCode: "P1", Description: "Nursing", ClassificationCode: "51.3801"},
			Score:     9,
			Reason:    "direct match",
			MatchType: core.MatchExact,
		},
	}

	data, err := MarshalValue(candidates)
	require.NoError(t, err)

	decoded, err := UnmarshalValue[[]core.RankedCandidate](data)
	require.NoError(t, err)
	assert.Equal(t, candidates, decoded)
}

func TestUnmarshalValue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"nil data", nil},
		{"not json", []byte("garbage")},
		{"wrong shape", []byte(`{"score":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalValue[[]core.RankedCandidate](tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalValue_Unsupported(t *testing.T) {
	_, err := MarshalValue(make(chan int))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
