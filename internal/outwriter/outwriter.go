// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/svncoord/core/diff"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteCommits prints commit results using the configured output format.
func (ow *OutWriter) WriteCommits(infos []schema.CommitInfo, cfg *contract.Config, duration time.Duration) error {
	return WriteCommitResults(infos, cfg, duration)
}

// WriteDiff prints tree changes using the configured output format.
func (ow *OutWriter) WriteDiff(changes []schema.TreeChange, cfg *contract.Config) error {
	return WriteDiff(changes, cfg)
}

// WriteSummary prints a summarized diff using the configured output format.
func (ow *OutWriter) WriteSummary(summaries []schema.DiffSummary, cfg *contract.Config) error {
	return WriteDiffSummary(summaries, cfg)
}

// WriteMerge prints a merge result using the configured output format.
func (ow *OutWriter) WriteMerge(result diff.MergeResult, cfg *contract.Config) error {
	return WriteMergeResult(result, cfg)
}

// WriteMergeInfo prints a merged or eligible revisions report.
func (ow *OutWriter) WriteMergeInfo(report diff.MergeInfoReport, cfg *contract.Config) error {
	return WriteMergeInfoReport(report, cfg)
}

// WriteSources prints suggested merge sources.
func (ow *OutWriter) WriteSources(sources []string, cfg *contract.Config) error {
	return WriteMergeSources(sources, cfg)
}

// WriteJournal prints journaled commit attempts.
func (ow *OutWriter) WriteJournal(records []schema.JournalRecord, cfg *contract.Config) error {
	return WriteJournal(records, cfg)
}

// WriteJournalItems prints the items of one journaled transaction.
func (ow *OutWriter) WriteJournalItems(items []schema.JournalItemRecord, cfg *contract.Config) error {
	return WriteJournalItems(items, cfg)
}

// WriteSnapshots prints the journaled merge-info snapshots.
func (ow *OutWriter) WriteSnapshots(records []schema.MergeInfoRecord, cfg *contract.Config) error {
	return WriteMergeInfoSnapshots(records, cfg)
}
