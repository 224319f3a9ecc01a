package verify

import (
	"fmt"
	"strings"

	"github.com/poiesic/pathways/core"
)

const (
	formatConfidence      = 50
	assumedConfidence     = 50
	passthroughReason     = "high school programs carry no program classification"
	missingCodeReason     = "record has no classification code"
	malformedReason       = "code does not match the NN.NNNN format"
	malformedCareerReason = "code does not match the NN-NNNN format"
)

// FormatValidation checks a program code locally: the NN.NNNN format (or a
// bare NN family) and a known family. It has no view of the conversation,
// so it never corrects a code.
func FormatValidation(code string) core.CodeValidation {
	code = strings.TrimSpace(code)
	v := core.CodeValidation{
		OriginalCode:  code,
		ValidatedCode: code,
		Confidence:    formatConfidence,
		Source:        core.SourceFormat,
	}
	switch {
	case code == "":
		v.Reasoning = missingCodeReason
	case !core.IsProgramCode(code) && !core.IsProgramFamilyCode(code):
		v.Reasoning = malformedReason
	default:
		v.Family = core.ProgramFamily(code)
		if v.Family == "" {
			v.Reasoning = fmt.Sprintf("family %s is not a known program family", core.FamilyPrefix(code))
			break
		}
		v.Valid = true
		v.Reasoning = "format check only; code is well formed"
	}
	return v
}

// passthroughValidation marks a record exempt from verification.
func passthroughValidation(code string) core.CodeValidation {
	code = strings.TrimSpace(code)
	return core.CodeValidation{
		OriginalCode:  code,
		ValidatedCode: code,
		Valid:         true,
		Family:        core.ProgramFamily(code),
		Confidence:    100,
		Reasoning:     passthroughReason,
		Source:        core.SourcePassthrough,
	}
}

// AssumeRelevant is the local fallback for occupation codes: a well-formed
// code is kept, a malformed one is dropped.
func AssumeRelevant(code string) core.CareerCodeValidation {
	code = strings.TrimSpace(code)
	v := core.CareerCodeValidation{
		Code:       code,
		Family:     core.CareerGroup(code),
		Confidence: assumedConfidence,
		Source:     core.SourceFormat,
	}
	if !core.IsCareerCode(code) {
		v.Reasoning = malformedCareerReason
		return v
	}
	v.Relevant = true
	v.Reasoning = "not verified; kept by default"
	return v
}

func clampConfidence(c int) int {
	return max(0, min(100, c))
}
