package search

import (
	"github.com/poiesic/pathways/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Attempts are numbered from 1.
type SearchMonitor interface {
	Start(runID, query string)
	AfterIntent(attempt int, intent core.SearchIntent)
	AfterPrefilter(attempt int, result PrefilterResult)
	AfterRanking(attempt int, ranked []core.RankedCandidate, stats RankStats)
	AfterAttempt(attempt int, quality float64, decision ReflectionDecision)
	Finish(results []core.RankedCandidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                                         {}
func (n *noopMonitor) AfterIntent(_ int, _ core.SearchIntent)                    {}
func (n *noopMonitor) AfterPrefilter(_ int, _ PrefilterResult)                   {}
func (n *noopMonitor) AfterRanking(_ int, _ []core.RankedCandidate, _ RankStats) {}
func (n *noopMonitor) AfterAttempt(_ int, _ float64, _ ReflectionDecision)       {}
func (n *noopMonitor) Finish(_ []core.RankedCandidate)                           {}
