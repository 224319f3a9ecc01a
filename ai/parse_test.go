package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreReply struct {
	Scores []struct {
		Index int `json:"index"`
		Score int `json:"score"`
	} `json:"scores"`
}

const scoreSchema = `{
  "type": "object",
  "required": ["scores"],
  "properties": {
    "scores": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "score"],
        "properties": {
          "index": {"type": "integer"},
          "score": {"type": "number"}
        }
      }
    }
  }
}`

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "plain", raw: `{"a":1}`, expected: `{"a":1}`},
		{name: "fenced", raw: "```json\n{\"a\":1}\n```", expected: `{"a":1}`},
		{name: "bare fence", raw: "```\n[1,2]\n```", expected: `[1,2]`},
		{name: "prose around", raw: `Here you go: {"a":1} hope that helps`, expected: `{"a":1}`},
		{name: "trailing comma", raw: `{"a":[1,2,],}`, expected: `{"a":[1,2]}`},
		{name: "comma inside string kept", raw: `{"a":"x,}"}`, expected: `{"a":"x,}"}`},
		{name: "unquoted key", raw: `{"a":1, score":2}`, expected: `{"a":1, "score":2}`},
		{name: "empty", raw: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSON(tt.raw))
		})
	}
}

func TestDecode(t *testing.T) {
	schema := MustSchema(scoreSchema)

	t.Run("valid reply", func(t *testing.T) {
		p := Decode[scoreReply](`{"scores":[{"index":0,"score":9}]}`, schema)

		d, ok := p.(Decoded[scoreReply])
		require.True(t, ok)
		require.Len(t, d.Value.Scores, 1)
		assert.Equal(t, 9, d.Value.Scores[0].Score)
	})

	t.Run("schema violation", func(t *testing.T) {
		p := Decode[scoreReply](`{"scores":[{"index":"zero"}]}`, schema)

		m, ok := p.(Malformed)
		require.True(t, ok)
		assert.Error(t, m.Err)
	})

	t.Run("not json", func(t *testing.T) {
		p := Decode[scoreReply](`I cannot help with that`, nil)

		_, ok := p.(Malformed)
		assert.True(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		p := Decode[scoreReply]("", schema)

		m, ok := p.(Malformed)
		require.True(t, ok)
		assert.ErrorIs(t, m.Err, ErrEmptyResponse)
	})
}

type stubOracle struct {
	replies []string
	err     error
	calls   int
}

func (s *stubOracle) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[len(s.replies)-1]
	if s.calls <= len(s.replies) {
		reply = s.replies[s.calls-1]
	}
	return reply, nil
}

func TestAsk(t *testing.T) {
	schema := MustSchema(scoreSchema)
	ctx := context.Background()

	t.Run("retries malformed then succeeds", func(t *testing.T) {
		oracle := &stubOracle{replies: []string{"nope", `{"scores":[]}`}}

		reply, err := Ask[scoreReply](ctx, oracle, "sys", "user", schema, 3)

		require.NoError(t, err)
		assert.Empty(t, reply.Scores)
		assert.Equal(t, 2, oracle.calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		oracle := &stubOracle{replies: []string{"nope"}}

		_, err := Ask[scoreReply](ctx, oracle, "sys", "user", schema, 3)

		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, 3, oracle.calls)
	})

	t.Run("transport error is not retried", func(t *testing.T) {
		boom := errors.New("connection refused")
		oracle := &stubOracle{err: boom}

		_, err := Ask[scoreReply](ctx, oracle, "sys", "user", schema, 3)

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, oracle.calls)
	})

	t.Run("nil oracle", func(t *testing.T) {
		_, err := Ask[scoreReply](ctx, nil, "sys", "user", schema, 3)

		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
