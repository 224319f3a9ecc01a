package core

import (
	"strings"
)

// SpeakerType identifies the source of a conversational turn.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

// String returns the role name used when rendering conversation history.
func (s SpeakerType) String() string {
	switch s {
	case SpeakerTypeHuman:
		return "user"
	case SpeakerTypeAI:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is a single message of the conversation that surrounds a query.
type Turn struct {
	Speaker SpeakerType `json:"speaker"`
	Content string      `json:"content"`
}

// FormatConversation renders the last limit turns as "role: content" lines.
// A limit of zero or less renders every turn.
func FormatConversation(history []Turn, limit int) string {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	var sb strings.Builder
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		sb.WriteString(t.Speaker.String())
		sb.WriteString(": ")
		sb.WriteString(content)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Level is the program level of a record.
type Level string

const (
	LevelTwoYear    Level = "2-Year"
	LevelFourYear   Level = "4-Year"
	LevelNonCredit  Level = "Non-Credit"
	LevelHighSchool Level = "High School"
)

// Matches reports whether the record level satisfies an optional level filter.
// Comparison ignores case and surrounding whitespace; an empty filter matches everything.
func (l Level) Matches(filter Level) bool {
	if strings.TrimSpace(string(filter)) == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(string(l)), strings.TrimSpace(string(filter)))
}

// ParseLevel maps free text onto a known level. Unrecognized text yields "".
func ParseLevel(s string) Level {
	key := strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), ""))
	switch key {
	case "2year", "twoyear", "associate", "associates", "communitycollege":
		return LevelTwoYear
	case "4year", "fouryear", "bachelor", "bachelors", "university":
		return LevelFourYear
	case "noncredit", "certificate":
		return LevelNonCredit
	case "highschool", "secondary":
		return LevelHighSchool
	default:
		return ""
	}
}

// IsHighSchool reports whether the level denotes a high-school program.
func (l Level) IsHighSchool() bool {
	return strings.EqualFold(strings.TrimSpace(string(l)), string(LevelHighSchool))
}

// Record is an educational program entry. Records are immutable once loaded.
type Record struct {
	InstitutionID      string `json:"institution_id"`
	ProgramCode        string `json:"program_code"`
	Description        string `json:"description"`
	Level              Level  `json:"level"`
	ClassificationCode string `json:"classification_code"`
}

// Key identifies a record within a record set.
func (r Record) Key() string {
	return r.InstitutionID + "|" + r.ProgramCode + "|" + r.Description
}

// SearchText returns the lowercased description and code text the prefilter matches against.
func (r Record) SearchText() string {
	return strings.ToLower(r.Description + " " + r.ProgramCode + " " + r.ClassificationCode)
}

// IntentKind describes what the user is trying to do with a query.
type IntentKind string

const (
	IntentExact       IntentKind = "exact"
	IntentExploratory IntentKind = "exploratory"
	IntentComparative IntentKind = "comparative"
)

// ParseIntentKind maps free text onto a known intent kind, defaulting to exact.
func ParseIntentKind(s string) IntentKind {
	switch IntentKind(strings.ToLower(strings.TrimSpace(s))) {
	case IntentExploratory:
		return IntentExploratory
	case IntentComparative:
		return IntentComparative
	default:
		return IntentExact
	}
}

// SearchIntent is the structured form of a free-text query.
// It lives for a single query.
type SearchIntent struct {
	PrimaryTopic string     `json:"primary_topic"`
	RelatedTerms []string   `json:"related_terms"`
	Kind         IntentKind `json:"kind"`
	Level        Level      `json:"level,omitempty"`
}

// MatchType is the qualitative reason a candidate was retained.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSynonym MatchType = "synonym"
	MatchRelated MatchType = "related"
	MatchBroad   MatchType = "broad"
)

// ParseMatchType maps free text onto a known match type, defaulting to related.
func ParseMatchType(s string) MatchType {
	switch MatchType(strings.ToLower(strings.TrimSpace(s))) {
	case MatchExact:
		return MatchExact
	case MatchSynonym:
		return MatchSynonym
	case MatchBroad:
		return MatchBroad
	default:
		return MatchRelated
	}
}

const (
	// MinScore and MaxScore bound relevance scores.
	MinScore = 1
	MaxScore = 10
)

// ClampScore forces a relevance score into [MinScore, MaxScore].
func ClampScore(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// RankedCandidate is a record with its relevance judgment.
type RankedCandidate struct {
	Record    Record    `json:"record"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"`
	MatchType MatchType `json:"match_type"`
}

// SearchOptions controls a single search.
type SearchOptions struct {
	MaxResults   int    `json:"max_results"`
	MinRelevance int    `json:"min_relevance"`
	Conversation []Turn `json:"conversation,omitempty"`
}

// ValidationSource records which path produced a validation.
type ValidationSource string

const (
	// SourceClassifier means the external classifier judged the code.
	SourceClassifier ValidationSource = "classifier"
	// SourceRules means the deterministic rule-based classifier judged the code.
	SourceRules ValidationSource = "rules"
	// SourceFormat means only the local format check ran.
	SourceFormat ValidationSource = "format"
	// SourcePassthrough means the record was exempt from verification.
	SourcePassthrough ValidationSource = "passthrough"
)

// CodeValidation is the verdict on one program classification code.
//
// Corrected implies OriginalCode != ValidatedCode and a non-empty Reasoning.
type CodeValidation struct {
	OriginalCode  string           `json:"original_code"`
	ValidatedCode string           `json:"validated_code"`
	Valid         bool             `json:"valid"`
	Corrected     bool             `json:"corrected"`
	Family        string           `json:"family"`
	Category      string           `json:"category"`
	Confidence    int              `json:"confidence"`
	Reasoning     string           `json:"reasoning"`
	Source        ValidationSource `json:"source"`
}

// VerifiedRecord is a record with the validation of its classification code.
type VerifiedRecord struct {
	Record     Record         `json:"record"`
	Validation CodeValidation `json:"validation"`
}

// CareerCodeValidation is the verdict on one occupation code.
type CareerCodeValidation struct {
	Code       string           `json:"code"`
	Relevant   bool             `json:"relevant"`
	Family     string           `json:"family"`
	Title      string           `json:"title"`
	Confidence int              `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Source     ValidationSource `json:"source"`
}

// CareerCodeSet is a program classification code with its attached occupation codes.
type CareerCodeSet struct {
	Code        string   `json:"code"`
	CareerCodes []string `json:"career_codes"`
}

// CareerMapping is a program classification code with its occupation codes
// partitioned into the ones to surface and the ones filtered out.
type CareerMapping struct {
	Code    string                 `json:"code"`
	Kept    []CareerCodeValidation `json:"kept"`
	Removed []CareerCodeValidation `json:"removed"`
}

// KeptCodes returns the occupation codes that survived verification, in input order.
func (m CareerMapping) KeptCodes() []string {
	codes := make([]string, 0, len(m.Kept))
	for _, v := range m.Kept {
		codes = append(codes, v.Code)
	}
	return codes
}
