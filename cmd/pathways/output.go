package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/poiesic/pathways/core"
)

var (
	exactStyle   = color.New(color.FgGreen, color.Bold).SprintFunc()
	synonymStyle = color.New(color.FgGreen).SprintFunc()
	relatedStyle = color.New(color.FgYellow).SprintFunc()
	broadStyle   = color.New(color.FgHiBlack).SprintFunc()
	keptStyle    = color.New(color.FgGreen).SprintFunc()
	removedStyle = color.New(color.FgRed).SprintFunc()
	fixStyle     = color.New(color.FgCyan, color.Bold).SprintFunc()
	dimStyle     = color.New(color.Faint).SprintFunc()
)

func matchStyle(m core.MatchType) func(a ...any) string {
	switch m {
	case core.MatchExact:
		return exactStyle
	case core.MatchSynonym:
		return synonymStyle
	case core.MatchBroad:
		return broadStyle
	default:
		return relatedStyle
	}
}

func printResults(w io.Writer, results []core.RankedCandidate) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching programs")
		return
	}
	fmt.Fprintf(w, "Found %d programs\n", len(results))
	for i, r := range results {
		style := matchStyle(r.MatchType)
		fmt.Fprintf(w, "%2d. [%2d] %s %s\n", i+1, r.Score, r.Record.Description, style(string(r.MatchType)))
		fmt.Fprintf(w, "      %s\n", dimStyle(fmt.Sprintf("%s | %s | %s | %s",
			r.Record.InstitutionID, r.Record.ProgramCode, r.Record.Level, r.Record.ClassificationCode)))
		if r.Reason != "" {
			fmt.Fprintf(w, "      %s\n", r.Reason)
		}
	}
}

func printVerified(w io.Writer, verified []core.VerifiedRecord) {
	for _, v := range verified {
		val := v.Validation
		var verdict string
		switch {
		case val.Corrected:
			verdict = fixStyle(fmt.Sprintf("%s -> %s", val.OriginalCode, val.ValidatedCode))
		case val.Valid:
			verdict = keptStyle(val.ValidatedCode)
		default:
			verdict = removedStyle(orDash(val.OriginalCode))
		}
		fmt.Fprintf(w, "%s  %s %s\n", v.Record.Description, verdict, dimStyle(fmt.Sprintf("(%s, %d%%)", val.Source, val.Confidence)))
		if val.Family != "" {
			fmt.Fprintf(w, "    family: %s\n", val.Family)
		}
		if val.Reasoning != "" {
			fmt.Fprintf(w, "    %s\n", val.Reasoning)
		}
	}
}

func printMappings(w io.Writer, mappings []core.CareerMapping) {
	for _, m := range mappings {
		fmt.Fprintf(w, "%s\n", m.Code)
		for _, k := range m.Kept {
			fmt.Fprintf(w, "  %s %s %s\n", keptStyle("+"), k.Code, orDash(k.Title))
		}
		for _, r := range m.Removed {
			fmt.Fprintf(w, "  %s %s %s %s\n", removedStyle("-"), r.Code, orDash(r.Title), dimStyle(r.Reasoning))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
