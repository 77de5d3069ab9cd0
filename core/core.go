// Package core runs the commit, diff and merge operations for the command layer
// and hands their results to the output writer.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/svncoord/core/commit"
	"github.com/huangsam/svncoord/core/diff"
	"github.com/huangsam/svncoord/core/harvest"
	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/outwriter"
	"github.com/huangsam/svncoord/schema"
)

// Workspace bundles the collaborators every operation runs against.
type Workspace struct {
	Connector contract.RepositoryConnector
	Store     contract.WorkingCopyStore
	Events    contract.EventSink
	Journal   contract.JournalStore
	Writer    *outwriter.OutWriter
}

func (ws *Workspace) writer() *outwriter.OutWriter {
	if ws.Writer == nil {
		return outwriter.NewOutWriter()
	}
	return ws.Writer
}

func (ws *Workspace) driver() *diff.Driver {
	opts := []diff.Option{diff.WithEvents(ws.Events)}
	if ws.Journal != nil {
		opts = append(opts, diff.WithJournal(ws.Journal))
	}
	return diff.New(ws.Connector, ws.Store, opts...)
}

func (ws *Workspace) committer(message string) *commit.Committer {
	opts := []commit.Option{commit.WithEvents(ws.Events)}
	if ws.Journal != nil {
		opts = append(opts, commit.WithJournal(ws.Journal))
	}
	return commit.New(ws.Connector, commit.StaticMessage(message), opts...)
}

func commitOptions(cfg *contract.Config) commit.Options {
	return commit.Options{KeepLocks: cfg.KeepLocks, RevProps: cfg.RevProps, Author: cfg.Author}
}

// logHeader prints the operation banner to stderr unless the context suppresses it.
func logHeader(ctx context.Context, format string, args ...any) {
	if shouldSuppressHeader(ctx) {
		return
	}
	_, _ = contract.InfoColor.Fprintf(os.Stderr, "🔎 "+format+"\n", args...)
}

// ExecuteCommit harvests the working-copy paths, commits one transaction per
// repository and prints the results.
func ExecuteCommit(ctx context.Context, cfg *contract.Config, ws *Workspace, paths []string) error {
	start := time.Now()
	if len(paths) == 0 {
		return errors.New("at least one working-copy path is required")
	}
	logHeader(ctx, "Committing %d target(s) at depth %s", len(paths), cfg.Depth)

	h := harvest.New(ws.Store)
	packets, err := h.CollectPackets(ctx, paths, harvest.Options{
		Depth:       cfg.Depth,
		Force:       cfg.Force,
		Changelists: cfg.Changelists,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to collect commit items: %w", err)
	}

	infos, err := ws.committer(cfg.Message).Commit(ctx, packets, commitOptions(cfg))
	if err != nil {
		return err
	}
	if err := ws.writer().WriteCommits(infos, cfg, time.Since(start)); err != nil {
		return err
	}
	for _, info := range infos {
		if info.Err != nil {
			return info.Err
		}
	}
	return nil
}

// ExecuteDelete removes repository URLs in a single transaction.
func ExecuteDelete(ctx context.Context, cfg *contract.Config, ws *Workspace, urls []string) error {
	start := time.Now()
	logHeader(ctx, "Deleting %d URL(s)", len(urls))
	info, err := ws.committer(cfg.Message).Delete(ctx, urls, commitOptions(cfg))
	if err != nil {
		return err
	}
	if info.NewRevision < 0 {
		return nil
	}
	return ws.writer().WriteCommits([]schema.CommitInfo{info}, cfg, time.Since(start))
}

func diffOptions(cfg *contract.Config) diff.Options {
	return diff.Options{Depth: cfg.Depth, UseAncestry: cfg.UseAncestry, Changelists: cfg.Changelists}
}

// ExecuteDiff compares two endpoints and prints either the changes or their summary.
func ExecuteDiff(ctx context.Context, cfg *contract.Config, ws *Workspace, left, right schema.Endpoint, summarize bool) error {
	mode, err := diff.ResolveMode(left, right)
	if err != nil {
		return err
	}
	logHeader(ctx, "Comparing %s@%s with %s@%s (%s)", left.Target, left.Revision, right.Target, right.Revision, mode)

	d := ws.driver()
	if summarize {
		summaries, err := d.Summarize(ctx, left, right, diffOptions(cfg))
		if err != nil {
			return err
		}
		return ws.writer().WriteSummary(summaries, cfg)
	}
	changes, err := d.Diff(ctx, left, right, diffOptions(cfg))
	if err != nil {
		return err
	}
	return ws.writer().WriteDiff(changes, cfg)
}

// ExecuteMerge merges ranges of source into the working copy at target. An empty
// range list merges every eligible revision of source.
func ExecuteMerge(ctx context.Context, cfg *contract.Config, ws *Workspace, source string, peg int64,
	ranges rangelist.List, target string,
) error {
	d := ws.driver()
	if len(ranges) == 0 {
		report, err := d.Eligible(ctx, schema.LocalTarget(target), source)
		if err != nil {
			return err
		}
		source = report.Source
		for _, r := range report.Selection.Ranges {
			ranges = append(ranges, r)
		}
	}
	logHeader(ctx, "Merging %s of %s into %s", ranges, source, target)

	result, err := d.Merge(ctx, source, peg, ranges, target, diff.MergeOptions{
		Options:    diffOptions(cfg),
		DryRun:     cfg.DryRun,
		RecordOnly: cfg.RecordOnly,
	})
	if err != nil {
		return err
	}
	return ws.writer().WriteMerge(result, cfg)
}

// ExecuteMergeInfo prints the revisions of source merged into, or still eligible
// for, target.
func ExecuteMergeInfo(ctx context.Context, cfg *contract.Config, ws *Workspace, target schema.Target, source string, eligible bool) error {
	d := ws.driver()
	var report diff.MergeInfoReport
	var err error
	if eligible {
		report, err = d.Eligible(ctx, target, source)
	} else {
		report, err = d.Merged(ctx, target, source)
	}
	if err != nil {
		return err
	}
	return ws.writer().WriteMergeInfo(report, cfg)
}

// ExecuteSuggestSources prints the likely merge sources of target.
func ExecuteSuggestSources(ctx context.Context, cfg *contract.Config, ws *Workspace, target schema.Target) error {
	sources, err := ws.driver().SuggestMergeSources(ctx, target)
	if err != nil {
		return err
	}
	return ws.writer().WriteSources(sources, cfg)
}

// ExecuteJournalList prints the latest journaled transactions, or the items of
// one transaction when txnID is set.
func ExecuteJournalList(_ context.Context, cfg *contract.Config, ws *Workspace, txnID string) error {
	if ws.Journal == nil {
		return errors.New("the commit journal is disabled. Set --journal-backend to use it")
	}
	if txnID != "" {
		items, err := ws.Journal.ListItems(txnID)
		if err != nil {
			return fmt.Errorf("failed to list journal items: %w", err)
		}
		return ws.writer().WriteJournalItems(items, cfg)
	}
	records, err := ws.Journal.ListCommits(cfg.Limit)
	if err != nil {
		return fmt.Errorf("failed to list journal entries: %w", err)
	}
	return ws.writer().WriteJournal(records, cfg)
}

// ExecuteJournalSnapshots prints the merge-info journaled for every merge target.
func ExecuteJournalSnapshots(_ context.Context, cfg *contract.Config, ws *Workspace) error {
	if ws.Journal == nil {
		return errors.New("the commit journal is disabled. Set --journal-backend to use it")
	}
	records, err := ws.Journal.ListMergeInfo()
	if err != nil {
		return fmt.Errorf("failed to list merge-info snapshots: %w", err)
	}
	return ws.writer().WriteSnapshots(records, cfg)
}
