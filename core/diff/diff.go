// Package diff compares working-copy and repository trees and merges revision
// ranges between them.
package diff

import (
	"context"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Options controls a comparison.
type Options struct {
	Depth schema.Depth

	// UseAncestry compares nodes without common ancestry as modifications. When
	// unset they are presented as a delete followed by an add.
	UseAncestry bool

	// Changelists limits local changes to entries in one of the named changelists.
	Changelists []string
}

func (o Options) normalized() Options {
	if o.Depth == "" || o.Depth == schema.DepthUnknown {
		o.Depth = schema.DepthInfinity
	}
	return o
}

// Driver runs comparisons and merges through a repository connector and a
// working-copy store.
type Driver struct {
	connector contract.RepositoryConnector
	store     contract.WorkingCopyStore
	events    contract.EventSink
	journal   contract.JournalStore
}

// Option configures a Driver.
type Option func(*Driver)

// WithEvents sets the sink receiving merge progress events.
func WithEvents(sink contract.EventSink) Option {
	return func(d *Driver) { d.events = sink }
}

// WithJournal stores a merge-info snapshot of every merge target.
func WithJournal(store contract.JournalStore) Option {
	return func(d *Driver) { d.journal = store }
}

// New creates a Driver. The store may be nil when only repository URLs are compared.
func New(connector contract.RepositoryConnector, store contract.WorkingCopyStore, opts ...Option) *Driver {
	d := &Driver{connector: connector, store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) dispatch(ctx context.Context, event schema.Event) {
	if d.events != nil {
		d.events.Handle(ctx, event)
	}
}

// ResolveMode decides how two endpoints are compared. A side is local when its
// target is a working-copy path at the BASE or WORKING revision.
func ResolveMode(left, right schema.Endpoint) (schema.DiffMode, error) {
	if !left.Revision.IsValid() || !right.Revision.IsValid() {
		return "", contract.NewError(contract.ValidationError, contract.CodeBadRevision,
			"Both rN and rM revisions should be specified")
	}
	leftLocal, err := isLocal(left)
	if err != nil {
		return "", err
	}
	rightLocal, err := isLocal(right)
	if err != nil {
		return "", err
	}
	switch {
	case leftLocal && rightLocal:
		return schema.WCWCMode, nil
	case leftLocal:
		return schema.WCURLMode, nil
	case rightLocal:
		return schema.URLWCMode, nil
	default:
		return schema.URLURLMode, nil
	}
}

func isLocal(ep schema.Endpoint) (bool, error) {
	if !ep.Revision.IsLocal() {
		return false, nil
	}
	if ep.Target.IsRemote() {
		return false, contract.NewError(contract.ValidationError, contract.CodeBadRevision,
			"Revision type requires a working copy path, not a URL ('%s')", ep.Target.Remote)
	}
	return true, nil
}

// Diff returns the changes that turn left into right. Change paths are relative
// to the directory the comparison is anchored at: the target itself, or its
// parent when a file is compared.
func (d *Driver) Diff(ctx context.Context, left, right schema.Endpoint, opts Options) ([]schema.TreeChange, error) {
	return d.compare(ctx, left, right, opts, true)
}

// Summarize reports the path and action of every change between left and right
// without their contents.
func (d *Driver) Summarize(ctx context.Context, left, right schema.Endpoint, opts Options) ([]schema.DiffSummary, error) {
	mode, err := ResolveMode(left, right)
	if err != nil {
		return nil, err
	}
	if mode == schema.WCWCMode {
		return nil, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
			"Summarizing diff cannot compare a working copy to itself")
	}
	changes, err := d.compare(ctx, left, right, opts, false)
	if err != nil {
		return nil, err
	}
	out := make([]schema.DiffSummary, 0, len(changes))
	for _, c := range changes {
		out = append(out, schema.DiffSummary{
			Path:         c.Path,
			Kind:         c.Kind,
			Action:       c.Action,
			PropsChanged: len(c.PropChanges) > 0,
		})
	}
	return out, nil
}

func (d *Driver) compare(ctx context.Context, left, right schema.Endpoint, opts Options, text bool) ([]schema.TreeChange, error) {
	mode, err := ResolveMode(left, right)
	if err != nil {
		return nil, err
	}
	if err := contract.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	switch mode {
	case schema.WCWCMode:
		return d.diffWCWC(ctx, left, right, opts)
	case schema.URLWCMode:
		return d.diffURLWC(ctx, left, right, opts, text, false)
	case schema.WCURLMode:
		return d.diffURLWC(ctx, right, left, opts, text, true)
	default:
		return d.diffURLURL(ctx, left, right, opts, text)
	}
}

// diffWCWC compares the text-base of a path with its working files.
func (d *Driver) diffWCWC(ctx context.Context, left, right schema.Endpoint, opts Options) ([]schema.TreeChange, error) {
	if left.Target.Local != right.Target.Local ||
		left.Revision.Keyword != schema.RevisionBase || right.Revision.Keyword != schema.RevisionWorking {
		return nil, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
			"Only diffs between a path's text-base and its working files are supported at this time (-rBASE:WORKING)")
	}
	wc, err := d.openLocal(ctx, left.Target.Local, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wc.access.Close() }()
	changes, err := localChanges(ctx, wc.access, wc.target, opts)
	if err != nil {
		return nil, err
	}
	return filterDepth(changes, wc.target, opts.Depth), nil
}

// diffURLWC compares a repository endpoint with a working copy. The transport
// reports the remote tree against the working-copy base; local modifications
// are overlaid unless the base itself is compared. With wcFirst the working
// copy is the left side and the direction is reversed.
func (d *Driver) diffURLWC(ctx context.Context, remote, wcSide schema.Endpoint, opts Options, text, wcFirst bool) ([]schema.TreeChange, error) {
	wc, err := d.openLocal(ctx, wcSide.Target.Local, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wc.access.Close() }()

	anchor, err := wc.access.Entry("")
	if err != nil {
		return nil, err
	}
	if anchor.URL == "" {
		return nil, contract.NewError(contract.ValidationError, contract.CodeEntryMissingURL,
			"Entry '%s' has no URL", wc.access.Anchor())
	}
	remoteURL, remoteRev, err := d.resolveRemote(ctx, remote)
	if err != nil {
		return nil, err
	}
	report, err := buildReport(ctx, wc.access, wc.target, opts)
	if err != nil {
		return nil, err
	}

	transport, err := d.connector.Open(ctx, anchor.URL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = transport.Close() }()
	delta, err := transport.Diff(ctx, contract.DiffRequest{
		Target:              wc.target,
		Report:              report,
		TargetURL:           remoteURL,
		TargetRevision:      remoteRev,
		Depth:               opts.Depth,
		TextDeltas:          text,
		UnrelatedAsModified: opts.UseAncestry,
	})
	if err != nil {
		return nil, err
	}
	if text {
		if err := fillBaseText(wc.access, delta); err != nil {
			return nil, err
		}
	}

	changes := reverseChanges(delta)
	if wcSide.Revision.Keyword == schema.RevisionWorking {
		mods, err := localChanges(ctx, wc.access, wc.target, opts)
		if err != nil {
			return nil, err
		}
		if !text {
			stripText(mods)
		}
		changes = compose(changes, mods)
		for i := range changes {
			changes[i].NewRevision = schema.InvalidRevision
		}
	}
	if wcFirst {
		changes = reverseChanges(changes)
	}
	return filterDepth(changes, wc.target, opts.Depth), nil
}

// diffURLURL compares two repository trees directly.
func (d *Driver) diffURLURL(ctx context.Context, left, right schema.Endpoint, opts Options, text bool) ([]schema.TreeChange, error) {
	leftURL, leftRev, err := d.resolveRemote(ctx, left)
	if err != nil {
		return nil, err
	}
	rightURL, rightRev, err := d.resolveRemote(ctx, right)
	if err != nil {
		return nil, err
	}
	changes, _, err := d.diffURLs(ctx, leftURL, leftRev, rightURL, rightRev, opts, text)
	return changes, err
}

// diffURLs returns the delta between two repository trees together with the name
// of the compared file when the comparison is anchored at its parent.
func (d *Driver) diffURLs(ctx context.Context, leftURL string, leftRev int64, rightURL string, rightRev int64,
	opts Options, text bool,
) ([]schema.TreeChange, string, error) {
	leftKind, err := d.checkURL(ctx, leftURL, leftRev)
	if err != nil {
		return nil, "", err
	}
	rightKind, err := d.checkURL(ctx, rightURL, rightRev)
	if err != nil {
		return nil, "", err
	}

	anchorURL, target := leftURL, ""
	if leftKind == schema.FileKind || rightKind == schema.FileKind {
		anchorURL = contract.RemoveURLTail(leftURL)
		p, err := contract.URLPath(leftURL)
		if err != nil {
			return nil, "", err
		}
		target = contract.PathTail(p)
	}

	transport, err := d.connector.Open(ctx, anchorURL)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = transport.Close() }()
	changes, err := transport.Diff(ctx, contract.DiffRequest{
		Target:              target,
		Report:              []contract.ReportedPath{{Path: "", Revision: leftRev, Depth: opts.Depth}},
		TargetURL:           rightURL,
		TargetRevision:      rightRev,
		Depth:               opts.Depth,
		TextDeltas:          text,
		UnrelatedAsModified: opts.UseAncestry,
	})
	if err != nil {
		return nil, "", err
	}
	return filterDepth(changes, target, opts.Depth), target, nil
}

// checkURL returns the kind of url at rev and fails when it does not exist.
func (d *Driver) checkURL(ctx context.Context, url string, rev int64) (schema.NodeKind, error) {
	transport, err := d.connector.Open(ctx, url)
	if err != nil {
		return schema.NoneKind, err
	}
	defer func() { _ = transport.Close() }()
	kind, err := transport.CheckPath(ctx, "", rev)
	if err != nil {
		return schema.NoneKind, err
	}
	if kind == schema.NoneKind {
		if rev < 0 {
			if rev, err = transport.LatestRevision(ctx); err != nil {
				return schema.NoneKind, err
			}
		}
		return schema.NoneKind, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"'%s' was not found in the repository at revision %d", url, rev)
	}
	return kind, nil
}
