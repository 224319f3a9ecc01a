package verify

import (
	"fmt"
	"strings"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/core"
)

const programResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "validations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "code": {"type": "string"},
          "valid": {"type": "boolean"},
          "validated_code": {"type": "string"},
          "family": {"type": "string"},
          "category": {"type": "string"},
          "confidence": {"type": "integer"},
          "reasoning": {"type": "string"}
        },
        "required": ["code", "valid"]
      }
    }
  },
  "required": ["validations"]
}`

var programSchema = ai.MustSchema(programResponseSchema)

const programPromptTemplate = `You verify education program classification codes (CIP codes, format NN.NNNN) against what a student is asking for. Return your verdicts as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return one entry per code, copying the code exactly.
- valid is true when the code's family fits both the example programs and what the conversation asks for.
- When the family is wrong, set valid to false and put the correct NN.NNNN code in validated_code. Otherwise leave validated_code empty.
- family is the two-digit CIP family title of the code you settle on; category is the six-digit title.
- confidence is an integer from 0 to 100.
- reasoning is one short sentence and is required whenever validated_code is set.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.

Example:
Input: student asks about "nursing"; code 11.0701 with programs "Registered Nursing"
Output:
{
  "validations": [
    {"code": "11.0701", "valid": false, "validated_code": "51.3801", "family": "Health Professions and Related Programs", "category": "Registered Nursing/Registered Nurse", "confidence": 90, "reasoning": "A nursing program belongs in the health family, not computer science."}
  ]
}`

var programPrompt = fmt.Sprintf(programPromptTemplate, programResponseSchema)

const careerResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "validations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "code": {"type": "string"},
          "relevant": {"type": "boolean"},
          "title": {"type": "string"},
          "confidence": {"type": "integer"},
          "reasoning": {"type": "string"}
        },
        "required": ["code", "relevant"]
      }
    }
  },
  "required": ["validations"]
}`

var careerSchema = ai.MustSchema(careerResponseSchema)

const careerPromptTemplate = `You check which occupation codes (SOC codes, format NN-NNNN) are relevant careers for the programs a student is asking about. Return your verdicts as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return one entry per code, copying the code exactly.
- relevant is true when a graduate of the programs could reasonably work in the occupation and it fits what the student asked for.
- When unsure, mark the code relevant.
- title is the occupation title.
- confidence is an integer from 0 to 100.
- reasoning is one short sentence.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.

Example:
Input: student asks about "photography"; codes 27-4021, 15-1252
Output:
{
  "validations": [
    {"code": "27-4021", "relevant": true, "title": "Photographers", "confidence": 95, "reasoning": "Photography programs lead directly to this occupation."},
    {"code": "15-1252", "relevant": false, "title": "Software Developers", "confidence": 85, "reasoning": "Software development is unrelated to photography."}
  ]
}`

var careerPrompt = fmt.Sprintf(careerPromptTemplate, careerResponseSchema)

func conversationBlock(sb *strings.Builder, convo Conversation, turns int) {
	if history := core.FormatConversation(convo.History, turns); history != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(sb, "Student request: %s\n", convo.Query)
}

func programUserContent(convo Conversation, samples []CodeSample, turns int) string {
	var sb strings.Builder
	conversationBlock(&sb, convo, turns)
	sb.WriteString("\nCodes:\n")
	for _, s := range samples {
		fmt.Fprintf(&sb, "- %s", s.Code)
		if family := core.ProgramFamily(s.Code); family != "" {
			fmt.Fprintf(&sb, " (family: %s)", family)
		}
		if len(s.Descriptions) > 0 {
			fmt.Fprintf(&sb, "; programs: %q", s.Descriptions)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func careerUserContent(convo Conversation, programContext string, codes []string, turns int) string {
	var sb strings.Builder
	conversationBlock(&sb, convo, turns)
	if programContext = strings.TrimSpace(programContext); programContext != "" {
		fmt.Fprintf(&sb, "Programs: %s\n", programContext)
	}
	sb.WriteString("\nOccupation codes:\n")
	for _, code := range codes {
		fmt.Fprintf(&sb, "- %s", code)
		if group := core.CareerGroup(code); group != "" {
			fmt.Fprintf(&sb, " (group: %s)", group)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
