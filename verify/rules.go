package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/pathways/core"
)

// RuleProgramClassifier judges program codes against the subject the
// conversation is about, using the static topic hints. It is deterministic
// and needs no network.
//
// A code outside the subject's family is corrected to the subject's
// representative code when the program descriptions are about the subject
// too, or about nothing recognizable. A program that is plainly about
// something else keeps its code.
type RuleProgramClassifier struct{}

var _ ProgramClassifier = RuleProgramClassifier{}

// Source implements ProgramClassifier.
func (RuleProgramClassifier) Source() core.ValidationSource {
	return core.SourceRules
}

// ClassifyPrograms implements ProgramClassifier. It never fails.
func (RuleProgramClassifier) ClassifyPrograms(ctx context.Context, convo Conversation, samples []CodeSample) ([]ProgramJudgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hint, hasHint := core.MatchQueryTopicHint(convo.Query, convo.History)

	judgments := make([]ProgramJudgment, 0, len(samples))
	for _, sample := range samples {
		family := core.FamilyPrefix(sample.Code)
		j := ProgramJudgment{
			Code:       sample.Code,
			Valid:      core.ProgramFamily(sample.Code) != "",
			Family:     core.ProgramFamily(sample.Code),
			Confidence: 60,
			Reasoning:  "no subject recognized in the conversation",
		}
		if !hasHint {
			judgments = append(judgments, j)
			continue
		}

		described, describedOK := core.MatchTopicHint(strings.Join(sample.Descriptions, " "))
		switch {
		case family == hint.ProgramFamily:
			j.Confidence = 90
			j.Reasoning = fmt.Sprintf("code is in the %s family the conversation asks about", hint.Name)
		case describedOK && described.Name != hint.Name:
			j.Confidence = 70
			j.Reasoning = fmt.Sprintf("program is about %s, not %s; code left unchanged", described.Name, hint.Name)
		default:
			j.Valid = false
			j.ValidatedCode = hint.RepresentativeCode
			j.Family = core.ProgramFamily(hint.RepresentativeCode)
			j.Confidence = 75
			j.Reasoning = fmt.Sprintf("conversation is about %s but %s is in the %s family",
				hint.Name, sample.Code, orUnknown(core.ProgramFamily(sample.Code)))
		}
		judgments = append(judgments, j)
	}
	return judgments, nil
}

// RuleCareerClassifier keeps occupation codes whose major group belongs to
// the subject of the conversation. When no subject is recognized every code
// is kept.
type RuleCareerClassifier struct{}

var _ CareerClassifier = RuleCareerClassifier{}

// Source implements CareerClassifier.
func (RuleCareerClassifier) Source() core.ValidationSource {
	return core.SourceRules
}

// ClassifyCareers implements CareerClassifier. It never fails.
func (RuleCareerClassifier) ClassifyCareers(ctx context.Context, convo Conversation, programContext string, codes []string) ([]CareerJudgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hint, ok := core.MatchQueryTopicHint(convo.Query, convo.History)
	if !ok {
		hint, ok = core.MatchTopicHint(programContext)
	}

	judgments := make([]CareerJudgment, 0, len(codes))
	for _, code := range codes {
		group := core.FamilyPrefix(code)
		j := CareerJudgment{
			Code:       code,
			Relevant:   true,
			Title:      core.CareerGroup(code),
			Confidence: 50,
			Reasoning:  "no subject recognized in the conversation",
		}
		if ok {
			j.Relevant = hint.HasCareerGroup(group)
			j.Confidence = 80
			if j.Relevant {
				j.Reasoning = fmt.Sprintf("%s occupations fit %s", orUnknown(core.CareerGroup(code)), hint.Name)
			} else {
				j.Reasoning = fmt.Sprintf("%s occupations do not fit %s", orUnknown(core.CareerGroup(code)), hint.Name)
			}
		}
		judgments = append(judgments, j)
	}
	return judgments, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
