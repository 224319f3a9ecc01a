package search

import (
	"fmt"
	"strings"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/core"
)

const intentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "primary_topic": {"type": "string"},
    "related_terms": {
      "type": "array",
      "items": {"type": "string"}
    },
    "intent": {"type": "string"},
    "level": {"type": "string"}
  },
  "required": ["primary_topic", "related_terms"]
}`

var intentSchema = ai.MustSchema(intentResponseSchema)

const intentPromptTemplate = `You help students find educational programs. Restate the user's request as a structured search intent and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- primary_topic is the subject the user wants to study, in a few lowercase words.
- related_terms lists 5 to 8 synonyms, abbreviations, specializations and closely related fields a program catalog would use.
- intent is one of: exact (a specific program), exploratory (browsing a field), comparative (weighing options).
- level is one of "2-Year", "4-Year", "Non-Credit", "High School", or "" when the user did not ask for one.
- Use the conversation only to resolve what the request refers to. Do not invent a topic the user never mentioned.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.

Example:
Input: "any cyber security programs at community colleges?"
Output:
{
  "primary_topic": "cybersecurity",
  "related_terms": ["cyber security", "information security", "network security", "information assurance", "digital forensics", "ethical hacking"],
  "intent": "exploratory",
  "level": "2-Year"
}`

var intentPrompt = fmt.Sprintf(intentPromptTemplate, intentResponseSchema)

const rankResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "scores": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index": {"type": "integer"},
          "score": {"type": "integer"},
          "reason": {"type": "string"},
          "match_type": {"type": "string"}
        },
        "required": ["index", "score"]
      }
    }
  },
  "required": ["scores"]
}`

var rankSchema = ai.MustSchema(rankResponseSchema)

const rankPromptTemplate = `You judge how relevant educational programs are to a student's search. Score every numbered program and return the scores as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Scoring rubric:
- 10: exact match for the topic
- 8-9: strong match, a direct specialization or synonym
- 6-7: good match, clearly related field
- 4-5: moderate match, shares some coursework or career outcomes
- 1-3: weak or no match

Rules:
- Return one entry per program, using the program's number as index.
- reason is one short sentence.
- match_type is one of: exact, synonym, related.
- Judge the program description, not the institution.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.

Example:
Input: topic "nursing"; programs "1. Practical Nursing", "2. Automotive Technology"
Output:
{
  "scores": [
    {"index": 1, "score": 9, "reason": "Practical nursing is a direct nursing pathway.", "match_type": "synonym"},
    {"index": 2, "score": 1, "reason": "Automotive repair is unrelated to nursing.", "match_type": "related"}
  ]
}`

var rankPrompt = fmt.Sprintf(rankPromptTemplate, rankResponseSchema)

func intentUserContent(query string, history []core.Turn, turns int) string {
	var sb strings.Builder
	if convo := core.FormatConversation(history, turns); convo != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(convo)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Request: ")
	sb.WriteString(query)
	return sb.String()
}

func rankUserContent(intent core.SearchIntent, batch []core.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", intent.PrimaryTopic)
	if len(intent.RelatedTerms) > 0 {
		fmt.Fprintf(&sb, "Related terms: %s\n", strings.Join(intent.RelatedTerms, ", "))
	}
	fmt.Fprintf(&sb, "Intent: %s\n", intent.Kind)
	if intent.Level != "" {
		fmt.Fprintf(&sb, "Level: %s\n", intent.Level)
	}
	sb.WriteString("\nPrograms:\n")
	for i, rec := range batch {
		fmt.Fprintf(&sb, "%d. %s (%s", i+1, rec.Description, rec.Level)
		if rec.ClassificationCode != "" {
			fmt.Fprintf(&sb, ", CIP %s", rec.ClassificationCode)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}
