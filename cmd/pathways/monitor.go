package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/search"
)

var stageStyle = color.New(color.FgMagenta, color.Bold).SprintFunc()

// verboseMonitor prints every stage of a search run.
type verboseMonitor struct {
	w io.Writer
}

var _ search.SearchMonitor = (*verboseMonitor)(nil)

func newVerboseMonitor(w io.Writer) *verboseMonitor {
	return &verboseMonitor{w: w}
}

func (m *verboseMonitor) Start(runID, query string) {
	fmt.Fprintf(m.w, "%s %q (run %s)\n", stageStyle("search"), query, runID)
}

func (m *verboseMonitor) AfterIntent(attempt int, intent core.SearchIntent) {
	fmt.Fprintf(m.w, "%s #%d topic=%q kind=%s level=%s\n", stageStyle("intent"), attempt,
		intent.PrimaryTopic, intent.Kind, orDash(string(intent.Level)))
	fmt.Fprintf(m.w, "    terms: %s\n", strings.Join(intent.RelatedTerms, ", "))
}

func (m *verboseMonitor) AfterPrefilter(attempt int, result search.PrefilterResult) {
	fmt.Fprintf(m.w, "%s #%d %d candidates via %s\n", stageStyle("prefilter"), attempt,
		len(result.Candidates), result.Stage)
}

func (m *verboseMonitor) AfterRanking(attempt int, ranked []core.RankedCandidate, stats search.RankStats) {
	fmt.Fprintf(m.w, "%s #%d %d scored in %d batches (%d failed, %d omitted)\n", stageStyle("rank"), attempt,
		len(ranked), stats.Batches, stats.FailedBatches, stats.Omitted)
}

func (m *verboseMonitor) AfterAttempt(attempt int, quality float64, decision search.ReflectionDecision) {
	fmt.Fprintf(m.w, "%s #%d quality=%.2f -> %s\n", stageStyle("reflect"), attempt, quality, decision)
}

func (m *verboseMonitor) Finish(results []core.RankedCandidate) {
	fmt.Fprintf(m.w, "%s %d results\n\n", stageStyle("done"), len(results))
}
