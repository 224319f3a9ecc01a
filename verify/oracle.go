package verify

import (
	"context"
	"time"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
)

type programReply struct {
	Validations []ProgramJudgment `json:"validations"`
}

type careerReply struct {
	Validations []CareerJudgment `json:"validations"`
}

// OracleProgramClassifier asks the oracle whether program codes fit the conversation.
type OracleProgramClassifier struct {
	oracle  ai.Oracle
	turns   int
	metrics *metrics.Recorder
}

var _ ProgramClassifier = (*OracleProgramClassifier)(nil)

// NewOracleProgramClassifier creates a program classifier backed by oracle.
func NewOracleProgramClassifier(oracle ai.Oracle, opts ...Option) (*OracleProgramClassifier, error) {
	if oracle == nil {
		return nil, ErrOracleRequired
	}
	s, err := applyOptions("program_classifier", opts)
	if err != nil {
		return nil, err
	}
	return &OracleProgramClassifier{
		oracle:  oracle,
		turns:   s.config.HistoryTurns,
		metrics: s.metrics,
	}, nil
}

// Source implements ProgramClassifier.
func (c *OracleProgramClassifier) Source() core.ValidationSource {
	return core.SourceClassifier
}

// ClassifyPrograms implements ProgramClassifier.
func (c *OracleProgramClassifier) ClassifyPrograms(ctx context.Context, convo Conversation, samples []CodeSample) ([]ProgramJudgment, error) {
	start := time.Now()
	reply, err := ai.Ask[programReply](ctx, c.oracle, programPrompt,
		programUserContent(convo, samples, c.turns), programSchema, ai.DefaultParseAttempts)
	c.metrics.RecordOracleResult("program_verifier", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return reply.Validations, nil
}

// OracleCareerClassifier asks the oracle which occupation codes are relevant.
type OracleCareerClassifier struct {
	oracle  ai.Oracle
	turns   int
	metrics *metrics.Recorder
}

var _ CareerClassifier = (*OracleCareerClassifier)(nil)

// NewOracleCareerClassifier creates a career classifier backed by oracle.
func NewOracleCareerClassifier(oracle ai.Oracle, opts ...Option) (*OracleCareerClassifier, error) {
	if oracle == nil {
		return nil, ErrOracleRequired
	}
	s, err := applyOptions("career_classifier", opts)
	if err != nil {
		return nil, err
	}
	return &OracleCareerClassifier{
		oracle:  oracle,
		turns:   s.config.HistoryTurns,
		metrics: s.metrics,
	}, nil
}

// Source implements CareerClassifier.
func (c *OracleCareerClassifier) Source() core.ValidationSource {
	return core.SourceClassifier
}

// ClassifyCareers implements CareerClassifier.
func (c *OracleCareerClassifier) ClassifyCareers(ctx context.Context, convo Conversation, programContext string, codes []string) ([]CareerJudgment, error) {
	start := time.Now()
	reply, err := ai.Ask[careerReply](ctx, c.oracle, careerPrompt,
		careerUserContent(convo, programContext, codes, c.turns), careerSchema, ai.DefaultParseAttempts)
	c.metrics.RecordOracleResult("career_verifier", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return reply.Validations, nil
}
