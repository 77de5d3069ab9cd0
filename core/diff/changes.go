package diff

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/huangsam/svncoord/core/harvest"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// walkEntries visits entry and the entries below it that depth reaches, parents
// first. visit returns false to skip the children of an entry.
func walkEntries(ctx context.Context, access contract.WCAccess, entry *schema.Entry, depth schema.Depth,
	visit func(*schema.Entry) (bool, error),
) error {
	if err := contract.CheckCancelled(ctx); err != nil {
		return err
	}
	descend, err := visit(entry)
	if err != nil || !descend || entry.Kind != schema.DirKind || depth == schema.DepthEmpty {
		return err
	}
	children, err := access.Children(entry.Path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if depth == schema.DepthFiles && child.Kind != schema.FileKind {
			continue
		}
		if err := walkEntries(ctx, access, child, depth.Below(), visit); err != nil {
			return err
		}
	}
	return nil
}

// localChanges returns the changes between the text-base and the working files below target.
func localChanges(ctx context.Context, access contract.WCAccess, target string, opts Options) ([]schema.TreeChange, error) {
	root, err := access.Entry(target)
	if err != nil {
		return nil, err
	}
	var changes []schema.TreeChange
	err = walkEntries(ctx, access, root, opts.Depth, func(e *schema.Entry) (bool, error) {
		if len(opts.Changelists) > 0 && !slices.Contains(opts.Changelists, e.Changelist) {
			return true, nil
		}
		change, ok, err := localChange(access, e)
		if err != nil {
			return false, err
		}
		if ok {
			changes = append(changes, change)
		}
		return e.Schedule != schema.ScheduleDelete, nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func localChange(access contract.WCAccess, e *schema.Entry) (schema.TreeChange, bool, error) {
	if e.Deleted || e.Absent || e.Missing {
		return schema.TreeChange{}, false, nil
	}
	change := schema.TreeChange{Path: e.Path, Kind: e.Kind, OldRevision: e.Revision, NewRevision: schema.InvalidRevision}
	file := e.Kind == schema.FileKind
	var err error

	switch e.Schedule {
	case schema.ScheduleDelete:
		change.Action = schema.ChangeDeleted
		if file {
			change.OldText, err = readText(access.OpenBase(e.Path))
		}
		return change, true, err
	case schema.ScheduleAdd, schema.ScheduleReplace:
		change.Action = schema.ChangeAdded
		if e.Schedule == schema.ScheduleReplace {
			change.Action = schema.ChangeReplaced
		} else {
			change.OldRevision = schema.InvalidRevision
		}
		if change.PropChanges, err = propChanges(access, e); err != nil {
			return change, false, err
		}
		if file {
			if e.Schedule == schema.ScheduleReplace {
				if change.OldText, err = readText(access.OpenBase(e.Path)); err != nil {
					return change, false, err
				}
			}
			change.NewText, err = readText(access.OpenWorking(e.Path))
		}
		return change, true, err
	}

	change.Action = schema.ChangeModified
	if change.PropChanges, err = propChanges(access, e); err != nil {
		return change, false, err
	}
	modified := false
	if file {
		if modified, err = access.HasTextModifications(e.Path, false); err != nil {
			return change, false, err
		}
	}
	if !modified && len(change.PropChanges) == 0 {
		return change, false, nil
	}
	if modified {
		if change.OldText, err = readText(access.OpenBase(e.Path)); err != nil {
			return change, false, err
		}
		change.NewText, err = readText(access.OpenWorking(e.Path))
	}
	return change, true, err
}

func propChanges(access contract.WCAccess, e *schema.Entry) (map[string]schema.PropChange, error) {
	var base map[string]string
	if e.Schedule != schema.ScheduleAdd {
		var err error
		if base, err = access.BaseProperties(e.Path); err != nil {
			return nil, err
		}
	}
	working, err := access.Properties(e.Path)
	if err != nil {
		return nil, err
	}
	changes := harvest.PropDiff(base, working)
	if len(changes) == 0 {
		return nil, nil
	}
	return changes, nil
}

func readText(rc io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// buildReport describes the text-base below target: the revision of every entry
// that differs from its parent, and the entries the repository does not have yet.
func buildReport(ctx context.Context, access contract.WCAccess, target string, opts Options) ([]contract.ReportedPath, error) {
	root, err := access.Entry(target)
	if err != nil {
		return nil, err
	}
	report := []contract.ReportedPath{{Path: "", Revision: root.Revision, Depth: opts.Depth}}
	if root.Schedule == schema.ScheduleAdd {
		report[0].StartEmpty = true
		return report, nil
	}
	revs := map[string]int64{"": root.Revision}
	err = walkEntries(ctx, access, root, opts.Depth, func(e *schema.Entry) (bool, error) {
		rel := contract.RelativePath(target, e.Path)
		if rel == "" {
			return true, nil
		}
		parentRev := revs[contract.PathRemoveTail(rel)]
		switch {
		case e.Schedule == schema.ScheduleAdd || e.Deleted || e.Absent:
			report = append(report, contract.ReportedPath{Path: rel, Deleted: true})
			return false, nil
		case e.Revision != parentRev:
			report = append(report, contract.ReportedPath{Path: rel, Revision: e.Revision, Depth: schema.DepthInfinity})
		}
		revs[rel] = e.Revision
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// fillBaseText loads the base text of files the repository side no longer has.
func fillBaseText(access contract.WCAccess, changes []schema.TreeChange) error {
	for i, c := range changes {
		if c.Action != schema.ChangeDeleted || c.Kind != schema.FileKind || c.OldText != nil {
			continue
		}
		text, err := readText(access.OpenBase(c.Path))
		if err != nil {
			return err
		}
		changes[i].OldText = text
	}
	return nil
}

// reverseChanges returns the changes that undo changes.
func reverseChanges(changes []schema.TreeChange) []schema.TreeChange {
	out := make([]schema.TreeChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, reverseChange(c))
	}
	// A replacement is a delete followed by an add of the same path.
	for i := 0; i+1 < len(out); i++ {
		if out[i].Path == out[i+1].Path && out[i].Action == schema.ChangeAdded && out[i+1].Action == schema.ChangeDeleted {
			out[i], out[i+1] = out[i+1], out[i]
			i++
		}
	}
	return out
}

func reverseChange(c schema.TreeChange) schema.TreeChange {
	r := c
	r.OldText, r.NewText = c.NewText, c.OldText
	r.OldRevision, r.NewRevision = c.NewRevision, c.OldRevision
	switch c.Action {
	case schema.ChangeAdded:
		r.Action = schema.ChangeDeleted
	case schema.ChangeDeleted:
		r.Action = schema.ChangeAdded
	}
	if c.PropChanges != nil {
		r.PropChanges = make(map[string]schema.PropChange, len(c.PropChanges))
		for name, pc := range c.PropChanges {
			r.PropChanges[name] = schema.PropChange{Old: pc.New, New: pc.Old}
		}
	}
	return r
}

// compose chains two sets of changes: first turns A into B and second turns B
// into C. The result turns A into C.
func compose(first, second []schema.TreeChange) []schema.TreeChange {
	out := slices.Clone(first)
	for _, c := range second {
		if c.Action == schema.ChangeDeleted || c.Action == schema.ChangeReplaced {
			out = slices.DeleteFunc(out, func(f schema.TreeChange) bool {
				return f.Path != c.Path && contract.IsAncestorPath(c.Path, f.Path)
			})
		}
		i := slices.IndexFunc(out, func(f schema.TreeChange) bool { return f.Path == c.Path })
		if i < 0 {
			out = append(out, c)
			continue
		}
		// the add of a replacement pair is the one second builds on
		if i+1 < len(out) && out[i+1].Path == c.Path {
			i++
		}
		merged, keep := composeChange(out[i], c)
		if !keep {
			out = slices.Delete(out, i, i+1)
			continue
		}
		out[i] = merged
	}
	sort.SliceStable(out, func(i, j int) bool { return contract.ComparePaths(out[i].Path, out[j].Path) < 0 })
	return out
}

func composeChange(f, c schema.TreeChange) (schema.TreeChange, bool) {
	switch {
	case f.Action == schema.ChangeAdded && c.Action == schema.ChangeDeleted:
		return schema.TreeChange{}, false
	case f.Action == schema.ChangeDeleted:
		r := c
		r.Action = schema.ChangeReplaced
		r.OldText = f.OldText
		r.OldRevision = f.OldRevision
		return r, true
	case c.Action == schema.ChangeDeleted:
		r := c
		r.OldText = f.OldText
		r.NewText = nil
		r.OldRevision = f.OldRevision
		r.PropChanges = nil
		return r, true
	case c.Action == schema.ChangeModified:
		r := f
		if c.NewText != nil {
			if r.OldText == nil && f.Action != schema.ChangeAdded {
				r.OldText = c.OldText
			}
			r.NewText = c.NewText
		}
		r.PropChanges = composeProps(f.PropChanges, c.PropChanges)
		r.NewRevision = c.NewRevision
		if r.Action == schema.ChangeModified && r.PropChanges == nil && bytes.Equal(r.OldText, r.NewText) {
			return schema.TreeChange{}, false
		}
		return r, true
	default:
		r := c
		r.OldText = f.OldText
		r.OldRevision = f.OldRevision
		if f.Action == schema.ChangeAdded {
			r.Action = schema.ChangeAdded
			r.OldText = nil
		}
		return r, true
	}
}

func composeProps(a, b map[string]schema.PropChange) map[string]schema.PropChange {
	out := maps.Clone(a)
	if out == nil {
		out = map[string]schema.PropChange{}
	}
	for name, pb := range b {
		pa, ok := out[name]
		if !ok {
			out[name] = pb
			continue
		}
		merged := schema.PropChange{Old: pa.Old, New: pb.New}
		if sameValue(merged.Old, merged.New) {
			delete(out, name)
			continue
		}
		out[name] = merged
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stripText(changes []schema.TreeChange) {
	for i := range changes {
		changes[i].OldText = nil
		changes[i].NewText = nil
	}
}

// filterDepth drops the changes below target that depth does not reach.
func filterDepth(changes []schema.TreeChange, target string, depth schema.Depth) []schema.TreeChange {
	if depth == schema.DepthInfinity {
		return changes
	}
	var out []schema.TreeChange
	for _, c := range changes {
		rel := contract.RelativePath(target, c.Path)
		nested := strings.Contains(rel, "/")
		keep := true
		switch depth {
		case schema.DepthEmpty:
			keep = rel == ""
		case schema.DepthFiles:
			keep = rel == "" || (!nested && c.Kind == schema.FileKind)
		case schema.DepthImmediates:
			keep = !nested
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}
