package verify

import (
	"context"

	"github.com/poiesic/pathways/core"
)

// Conversation is the context a code is judged against.
type Conversation struct {
	Query   string
	History []core.Turn
}

// CodeSample is a distinct program code with example descriptions of the
// records that carry it.
type CodeSample struct {
	Code         string
	Descriptions []string
}

// ProgramJudgment is a classifier's verdict on one program code.
// An empty ValidatedCode means the code stands as is.
type ProgramJudgment struct {
	Code          string `json:"code"`
	Valid         bool   `json:"valid"`
	ValidatedCode string `json:"validated_code"`
	Family        string `json:"family"`
	Category      string `json:"category"`
	Confidence    int    `json:"confidence"`
	Reasoning     string `json:"reasoning"`
}

// ProgramClassifier judges whether program codes fit the conversation.
// Implementations may leave codes out of the reply; the verifier falls back
// to the format check for those.
type ProgramClassifier interface {
	Source() core.ValidationSource
	ClassifyPrograms(ctx context.Context, convo Conversation, samples []CodeSample) ([]ProgramJudgment, error)
}

// CareerJudgment is a classifier's verdict on one occupation code.
type CareerJudgment struct {
	Code       string `json:"code"`
	Relevant   bool   `json:"relevant"`
	Title      string `json:"title"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// CareerClassifier judges whether occupation codes are relevant to the
// conversation and the programs being discussed.
type CareerClassifier interface {
	Source() core.ValidationSource
	ClassifyCareers(ctx context.Context, convo Conversation, programContext string, codes []string) ([]CareerJudgment, error)
}
