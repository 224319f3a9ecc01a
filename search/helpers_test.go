package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/ai/mock"
	"github.com/poiesic/pathways/core"
)

func testRecords() []core.Record {
	return []core.Record{
		{InstitutionID: "kapiolani", ProgramCode: "NURS-AS", Description: "Practical Nursing", Level: core.LevelTwoYear, ClassificationCode: "51.3901"},
		{InstitutionID: "honolulu", ProgramCode: "CYB-AS", Description: "Cybersecurity", Level: core.LevelTwoYear, ClassificationCode: "11.1003"},
		{InstitutionID: "manoa", ProgramCode: "ICS-BS", Description: "Computer Science", Level: core.LevelFourYear, ClassificationCode: "11.0701"},
		{InstitutionID: "honolulu", ProgramCode: "PHOT-CA", Description: "Digital Photography", Level: core.LevelNonCredit, ClassificationCode: "50.0605"},
		{InstitutionID: "maui", ProgramCode: "CULN-AS", Description: "Culinary Arts", Level: core.LevelTwoYear, ClassificationCode: "12.0503"},
		{InstitutionID: "hilo", ProgramCode: "ACC-BA", Description: "Accounting", Level: core.LevelFourYear, ClassificationCode: "52.0301"},
		{InstitutionID: "kapiolani", ProgramCode: "AUTO-AS", Description: "Automotive Technology", Level: core.LevelTwoYear, ClassificationCode: "47.0604"},
	}
}

var programLine = regexp.MustCompile(`^(\d+)\. (.+) \(`)

// scripted describes canned oracle behavior. An empty intent or a nil score
// makes the corresponding call fail.
type scripted struct {
	intent string
	score  func(description string) int
}

func newScriptedOracle(s scripted) *mock.MockOracle {
	return mock.NewMockOracle().WithCompleteFunc(func(ctx context.Context, system, user string) (string, error) {
		switch system {
		case intentPrompt:
			if s.intent == "" {
				return "", ai.ErrUnavailable
			}
			return s.intent, nil
		case rankPrompt:
			if s.score == nil {
				return "", ai.ErrUnavailable
			}
			return scoreReply(user, s.score), nil
		}
		return "", fmt.Errorf("unexpected system prompt")
	})
}

func scoreReply(user string, score func(string) int) string {
	var entries []string
	for _, line := range strings.Split(user, "\n") {
		m := programLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, fmt.Sprintf(`{"index": %s, "score": %d, "reason": "scripted", "match_type": "synonym"}`, m[1], score(m[2])))
	}
	return "```json\n{\"scores\": [" + strings.Join(entries, ",") + "]}\n```"
}

func countPrompt(o *mock.MockOracle, system string) int {
	n := 0
	for _, c := range o.Calls() {
		if c.System == system {
			n++
		}
	}
	return n
}

// fakeScorer returns judgments from fn and counts calls.
type fakeScorer struct {
	name  string
	fn    func(batch []core.Record) ([]Judgment, error)
	calls atomic.Int32
}

func (f *fakeScorer) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeScorer) Score(ctx context.Context, intent core.SearchIntent, batch []core.Record) ([]Judgment, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.fn(batch)
}
