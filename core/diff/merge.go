package diff

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/huangsam/svncoord/core/mergeinfo"
	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// MergeOptions controls a merge.
type MergeOptions struct {
	Options

	// DryRun computes the changes and conflicts without touching the working copy.
	DryRun bool

	// RecordOnly updates the merge-info of the target without applying any change.
	RecordOnly bool
}

// MergeResult describes what a merge did to its target.
type MergeResult struct {
	Source     string              `json:"source"`
	Target     string              `json:"target"`
	Merged     rangelist.List      `json:"merged"`
	Reverted   rangelist.List      `json:"reverted"`
	Unrecorded rangelist.List      `json:"unrecorded,omitempty"`
	Applied    []schema.TreeChange `json:"applied"`
	Conflicts  []string            `json:"conflicts,omitempty"`
	MergeInfo  string              `json:"mergeinfo"`
}

// mergePiece is one contiguous range driven as a single repository comparison.
type mergePiece struct {
	from, to int64
	reverse  bool
}

// Merge applies the changes made to source in each of ranges to the working copy
// at target. Forward ranges skip revisions the target already records as merged
// from source; reverse ranges only undo recorded revisions. The target's
// svn:mergeinfo is updated for the ranges applied without skipping any change;
// ranges with conflicts are reported as unrecorded so a later merge drives them again.
func (d *Driver) Merge(ctx context.Context, source string, peg int64, ranges rangelist.List, target string,
	opts MergeOptions,
) (MergeResult, error) {
	result := MergeResult{Source: source, Target: target}
	for _, r := range ranges {
		if _, err := rangelist.New(r.Start, r.End, r.Inheritable); err != nil {
			return result, err
		}
	}
	if len(ranges) == 0 {
		return result, nil
	}
	opts.Options = opts.Options.normalized()

	wc, err := d.openLocal(ctx, target, !opts.DryRun)
	if err != nil {
		return result, err
	}
	defer func() { _ = wc.access.Close() }()
	entry, err := wc.access.Entry(wc.target)
	if err != nil {
		return result, err
	}

	sourceURL, sourcePath, err := d.mergeSource(ctx, source, peg, ranges, entry)
	if err != nil {
		return result, err
	}
	props, err := wc.access.Properties(wc.target)
	if err != nil {
		return result, err
	}
	recordedMI, err := mergeinfo.Parse(props[schema.MergeInfoProperty])
	if err != nil {
		return result, err
	}
	recorded := recordedMI[sourcePath]

	m := &merger{driver: d, wc: wc, opts: opts, deleted: map[string]bool{}}
	for _, piece := range mergePieces(ranges, recorded) {
		if err := contract.CheckCancelled(ctx); err != nil {
			return result, err
		}
		d.dispatch(ctx, schema.Event{Action: schema.EventMergeBegin, Path: target, Revision: piece.to})
		clean := true
		if !opts.RecordOnly {
			if clean, err = m.apply(ctx, sourceURL, piece); err != nil {
				return result, err
			}
		}
		span := rangelist.List{{Start: min(piece.from, piece.to), End: max(piece.from, piece.to), Inheritable: true}}
		switch {
		case !clean:
			result.Unrecorded = rangelist.Merge(result.Unrecorded, span)
		case piece.reverse:
			result.Reverted = rangelist.Merge(result.Reverted, span)
			recorded = rangelist.Subtract(recorded, span, false)
		default:
			result.Merged = rangelist.Merge(result.Merged, span)
			recorded = rangelist.Merge(recorded, span)
		}
	}
	result.Applied = m.applied
	result.Conflicts = m.conflicts

	updated := recordedMI.Clone()
	updated[sourcePath] = recorded
	updated = mergeinfo.RemoveEmpty(updated)
	result.MergeInfo = updated.String()
	if opts.DryRun {
		return result, nil
	}

	var value *string
	if len(updated) > 0 {
		value = &result.MergeInfo
	}
	if err := wc.access.SetProperty(wc.target, schema.MergeInfoProperty, value); err != nil {
		return result, err
	}
	if d.journal != nil {
		rec := schema.MergeInfoRecord{Target: target, MergeInfo: result.MergeInfo, Revision: entry.Revision, UpdatedAt: time.Now()}
		if err := d.journal.PutMergeInfo(rec); err != nil {
			contract.LogWarn("Failed to store merge-info snapshot", err)
		}
	}
	return result, nil
}

// mergeSource resolves the URL of source and its path below the repository root.
// A valid peg locates the source at the youngest revision being merged.
func (d *Driver) mergeSource(ctx context.Context, source string, peg int64, ranges rangelist.List,
	target *schema.Entry,
) (string, string, error) {
	transport, err := d.connector.Open(ctx, source)
	if err != nil {
		return "", "", err
	}
	info, err := transport.Info(ctx)
	_ = transport.Close()
	if err != nil {
		return "", "", err
	}
	if target.RepositoryUUID != "" && info.UUID != target.RepositoryUUID {
		return "", "", contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
			"'%s' must be from the same repository as '%s'", source, target.URL)
	}

	url := source
	if peg >= 0 {
		youngest := int64(0)
		for _, r := range ranges {
			youngest = max(youngest, r.Start, r.End)
		}
		if url, _, err = d.locate(ctx, source, peg, youngest); err != nil {
			return "", "", err
		}
	}
	path, err := repositoryPath(url, info.RootURL)
	if err != nil {
		return "", "", err
	}
	return url, path, nil
}

// mergePieces splits the requested ranges into the pieces that still have to be
// driven given the ranges already recorded for the source.
func mergePieces(ranges rangelist.List, recorded rangelist.List) []mergePiece {
	var pieces []mergePiece
	for _, r := range ranges {
		if !r.IsReverse() {
			for _, p := range rangelist.Remove(recorded, rangelist.List{r}, false) {
				pieces = append(pieces, mergePiece{from: p.Start, to: p.End})
			}
			continue
		}
		undo := rangelist.Intersect(recorded, rangelist.List{r.Forward()}, false)
		for i := len(undo) - 1; i >= 0; i-- {
			pieces = append(pieces, mergePiece{from: undo[i].End, to: undo[i].Start, reverse: true})
		}
	}
	return pieces
}

// merger applies the deltas of a merge to one working-copy target.
type merger struct {
	driver    *Driver
	wc        localTarget
	opts      MergeOptions
	applied   []schema.TreeChange
	conflicts []string
	skipped   []string
	deleted   map[string]bool // paths a dry run pretends were removed
}

// apply drives one piece and reports whether every change of it was applied.
func (m *merger) apply(ctx context.Context, sourceURL string, piece mergePiece) (bool, error) {
	changes, anchored, err := m.driver.diffURLs(ctx, sourceURL, piece.from, sourceURL, piece.to, m.opts.Options, true)
	if err != nil {
		return false, err
	}
	anchorURL := sourceURL
	if anchored != "" {
		anchorURL = contract.RemoveURLTail(sourceURL)
	}
	if err := m.fillLeftText(ctx, anchorURL, piece.from, changes); err != nil {
		return false, err
	}

	skipped := len(m.skipped)
	for _, c := range changes {
		if err := contract.CheckCancelled(ctx); err != nil {
			return false, err
		}
		c.Path = contract.JoinPath(m.wc.target, contract.RelativePath(anchored, c.Path))
		if m.below(c.Path) {
			m.skip(ctx, c, "")
			continue
		}
		reason, err := m.conflict(c)
		if err != nil {
			return false, err
		}
		if reason != "" {
			m.skip(ctx, c, reason)
			continue
		}
		if m.opts.DryRun {
			if c.Action == schema.ChangeDeleted {
				m.deleted[c.Path] = true
			}
		} else if err := m.wc.access.ApplyChange(c); err != nil {
			return false, err
		}
		m.applied = append(m.applied, c)
		m.driver.dispatch(ctx, schema.Event{Action: schema.EventMergeApplied, Path: c.Path, Kind: c.Kind, Revision: piece.to})
	}
	return len(m.skipped) == skipped, nil
}

// fillLeftText loads the left-side text of deleted files so local edits to them
// can be detected.
func (m *merger) fillLeftText(ctx context.Context, anchorURL string, rev int64, changes []schema.TreeChange) error {
	var transport contract.RepositoryTransport
	defer func() {
		if transport != nil {
			_ = transport.Close()
		}
	}()
	for i, c := range changes {
		if c.Action != schema.ChangeDeleted || c.Kind != schema.FileKind || c.OldText != nil {
			continue
		}
		if transport == nil {
			var err error
			if transport, err = m.driver.connector.Open(ctx, anchorURL); err != nil {
				return err
			}
		}
		text, _, err := transport.GetFile(ctx, c.Path, rev)
		if err != nil {
			return err
		}
		if text == nil {
			text = []byte{}
		}
		changes[i].OldText = text
	}
	return nil
}

// below reports whether path lies under a node skipped earlier.
func (m *merger) below(path string) bool {
	for _, s := range m.skipped {
		if s != path && contract.IsAncestorPath(s, path) {
			return true
		}
	}
	return false
}

func (m *merger) skip(ctx context.Context, c schema.TreeChange, reason string) {
	m.skipped = append(m.skipped, c.Path)
	event := schema.Event{Action: schema.EventSkipped, Path: c.Path, Kind: c.Kind}
	if reason != "" {
		if !slices.Contains(m.conflicts, c.Path) {
			m.conflicts = append(m.conflicts, c.Path)
		}
		event.Err = contract.NewError(contract.ValidationError, contract.CodeWCFoundConflict,
			"Conflict on '%s': %s", c.Path, reason)
	}
	m.driver.dispatch(ctx, event)
}

// conflict returns why c cannot be applied to the working copy, or "" when it can.
func (m *merger) conflict(c schema.TreeChange) (string, error) {
	exists := m.exists(c.Path)
	switch c.Action {
	case schema.ChangeAdded:
		if exists {
			return "obstructed", nil
		}
		return "", nil
	case schema.ChangeDeleted:
		if !exists {
			return "missing", nil
		}
		if c.Kind == schema.FileKind && c.OldText != nil {
			local, err := readText(m.wc.access.OpenWorking(c.Path))
			if err != nil {
				return "", err
			}
			if !bytes.Equal(local, c.OldText) {
				return "locally modified", nil
			}
		}
		return "", nil
	case schema.ChangeReplaced:
		if !exists {
			return "missing", nil
		}
		return "", nil
	}

	if !exists {
		return "missing", nil
	}
	if c.Kind == schema.FileKind && c.NewText != nil {
		local, err := readText(m.wc.access.OpenWorking(c.Path))
		if err != nil {
			return "", err
		}
		if !bytes.Equal(local, c.OldText) {
			return "text conflict", nil
		}
	}
	return "", nil
}

func (m *merger) exists(path string) bool {
	for p := range m.deleted {
		if contract.IsAncestorPath(p, path) {
			return false
		}
	}
	return m.wc.access.Exists(path)
}
