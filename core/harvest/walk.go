package harvest

import (
	"context"
	"slices"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// walker holds the state of one harvest over a single access.
type walker struct {
	access      contract.WCAccess
	opts        Options
	commitables *treemap.Map // path -> schema.CommitItem
	lockTokens  map[string]string
	danglers    []string
}

func newWalker(access contract.WCAccess, opts Options) *walker {
	return &walker{
		access: access,
		opts:   opts,
		commitables: treemap.NewWith(func(a, b any) int {
			return contract.ComparePaths(a.(string), b.(string))
		}),
		lockTokens: map[string]string{},
	}
}

// items returns the harvested items in path order.
func (w *walker) items() []schema.CommitItem {
	out := make([]schema.CommitItem, 0, w.commitables.Size())
	for _, v := range w.commitables.Values() {
		out = append(out, v.(schema.CommitItem))
	}
	return out
}

func (w *walker) harvested(path string) bool {
	_, ok := w.commitables.Get(path)
	return ok
}

func (w *walker) harvestTargets(ctx context.Context, targets []string) error {
	for _, target := range targets {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		if err := w.harvestTarget(ctx, target, targets); err != nil {
			return err
		}
	}
	for _, dangler := range w.danglers {
		if !w.harvested(dangler) {
			return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"'%s' is not under version control\nand is not part of the commit, \nyet its child is part of the commit",
				w.localPath(dangler))
		}
	}
	return nil
}

func (w *walker) harvestTarget(ctx context.Context, target string, targets []string) error {
	entry, err := w.access.Entry(target)
	if err != nil {
		return err
	}
	var parent *schema.Entry
	if target != "" {
		parent, _ = w.access.Entry(contract.PathRemoveTail(target))
	}

	url := entry.URL
	if url == "" {
		if entry.Kind != schema.DirKind || entry.IsScheduledForAddition() || w.access.Exists(target) || parent == nil || parent.URL == "" {
			return contract.NewError(contract.ValidationError, contract.CodeWCCorrupt, "Entry for '%s' has no URL", w.localPath(target))
		}
		url = contract.AppendURL(parent.URL, entry.Name())
	}

	if entry.IsScheduledForAddition() && target != "" {
		if parent == nil {
			return contract.NewError(contract.ValidationError, contract.CodeWCCorrupt,
				"'%s' is scheduled for addition within unversioned parent", w.localPath(target))
		}
		if parent.IsScheduledForAddition() {
			w.danglers = append(w.danglers, contract.PathRemoveTail(target))
		}
	}

	depth := w.opts.Depth
	forced := false
	if entry.Copied && entry.Schedule == schema.ScheduleNormal {
		if !w.opts.Force {
			return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"Entry for '%s' is marked as 'copied' but is not itself scheduled\nfor addition.  Perhaps you're committing a target that is\ninside an unversioned (or not-yet-versioned) directory?",
				w.localPath(target))
		}
		return nil
	}
	if entry.Copied && entry.IsScheduledForAddition() && w.opts.Force {
		depth, forced = schema.DepthInfinity, true
	}
	if entry.Schedule == schema.ScheduleDelete && w.opts.Force && depth != schema.DepthInfinity {
		parentPath := contract.PathRemoveTail(target)
		if target != "" && parent != nil && parent.IsScheduledForDeletion() && slices.Contains(targets, parentPath) {
			return nil
		}
		depth = schema.DepthInfinity
	}

	if err := w.checkAncestorTreeConflicts(target); err != nil {
		return err
	}
	return w.harvestEntry(ctx, target, entry, parent, url, false, false, depth, forced)
}

func (w *walker) checkAncestorTreeConflicts(target string) error {
	for p := target; p != ""; {
		p = contract.PathRemoveTail(p)
		entry, err := w.access.Entry(p)
		if err != nil {
			return nil
		}
		if entry.TreeConflict {
			return contract.NewError(contract.ValidationError, contract.CodeWCFoundConflict,
				"Aborting commit: '%s' remains in tree-conflict", w.localPath(p))
		}
	}
	return nil
}

func (w *walker) harvestEntry(ctx context.Context, path string, entry, parent *schema.Entry, url string,
	copyMode, addsOnly bool, depth schema.Depth, forced bool,
) error {
	if w.harvested(path) {
		return nil
	}
	if err := contract.CheckCancelled(ctx); err != nil {
		return err
	}
	if entry.Kind != schema.FileKind && entry.Kind != schema.DirKind {
		return contract.NewError(contract.ValidationError, contract.CodeNodeUnknownKind, "Unknown entry kind for '%s'", w.localPath(path))
	}
	inChangelist := w.inChangelist(entry)
	if (entry.TextConflict || entry.PropConflict || entry.TreeConflict) && inChangelist {
		return contract.NewError(contract.ValidationError, contract.CodeWCFoundConflict,
			"Aborting commit: '%s' remains in conflict", w.localPath(path))
	}

	missing := entry.Kind == schema.FileKind && !w.access.Exists(path)
	deletion := !addsOnly && ((entry.Deleted && entry.Schedule == schema.ScheduleNormal) || entry.IsScheduledForDeletion())
	if missing && !deletion && !entry.IsScheduledForAddition() {
		switch w.opts.OnMissing {
		case MissingDelete:
			deletion = true
		case MissingError:
			return contract.NewError(contract.NotFoundError, contract.CodeWCNotLocked,
				"Working copy file '%s' is missing", w.localPath(path))
		}
	}

	item := schema.CommitItem{
		Path:      path,
		LocalPath: w.localPath(path),
		URL:       url,
		Kind:      entry.Kind,
		Revision:  entry.Revision,
		Deleted:   deletion,
	}
	if entry.IsScheduledForAddition() {
		item.Added = true
		if entry.CopyFromURL != "" {
			item.Copied = true
			item.CopyFromURL = entry.CopyFromURL
			item.CopyFromRevision = entry.CopyFromRevision
			addsOnly = false
		} else {
			addsOnly = true
		}
	}
	if (entry.Copied || copyMode) && !entry.Deleted && entry.Schedule == schema.ScheduleNormal {
		parentRevision := entry.Revision - 1
		if parent != nil {
			parentRevision = parent.Revision
		}
		if parentRevision != entry.Revision {
			item.Added = true
			item.Copied = true
			item.CopyFromURL = entry.URL
			item.CopyFromRevision = entry.Revision
		}
	}

	var err error
	switch {
	case item.Added:
		err = w.classifyAddition(path, entry, &item, missing)
	case !item.Deleted:
		err = w.classifyModification(path, entry, &item, missing)
	}
	if err != nil {
		return err
	}

	item.Locked = entry.LockToken != "" && (w.opts.JustLocked || item.HasModification())
	if (item.HasModification() || item.Locked) && inChangelist {
		w.commitables.Put(path, item)
		if item.Locked {
			w.lockTokens[url] = entry.LockToken
		}
	}

	if item.Deleted && entry.Kind == schema.DirKind {
		if err := w.collectSubtreeLocks(ctx, path, url); err != nil {
			return err
		}
	}
	if entry.Kind != schema.DirKind || depth.Compare(schema.DepthEmpty) <= 0 || (item.Deleted && !item.Added) {
		return nil
	}
	return w.harvestChildren(ctx, path, entry, url, copyMode || item.Copied, addsOnly, depth, forced)
}

func (w *walker) harvestChildren(ctx context.Context, path string, entry *schema.Entry, url string,
	copyMode, addsOnly bool, depth schema.Depth, forced bool,
) error {
	children, err := w.access.Children(path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		switch {
		case child.Depth == schema.DepthExclude,
			child.FileExternal,
			forced && child.Copied && child.CopyFromURL != "",
			entry.Schedule == schema.ScheduleReplace && child.Schedule == schema.ScheduleDelete,
			child.Kind == schema.DirKind && depth.Compare(schema.DepthFiles) <= 0:
			continue
		}

		childURL := child.URL
		if copyMode || childURL == "" {
			childURL = contract.AppendURL(url, child.Name())
		}

		if child.Kind == schema.DirKind && !w.access.Exists(child.Path) {
			if w.harvested(child.Path) {
				continue
			}
			deleteIt := child.Schedule == schema.ScheduleDelete
			if !deleteIt {
				switch w.opts.OnMissing {
				case MissingDelete:
					deleteIt = true
				case MissingError:
					return contract.NewError(contract.NotFoundError, contract.CodeWCNotLocked,
						"Working copy '%s' is missing or not locked", w.localPath(child.Path))
				}
			}
			if deleteIt && w.inChangelist(child) {
				w.commitables.Put(child.Path, schema.CommitItem{
					Path:      child.Path,
					LocalPath: w.localPath(child.Path),
					URL:       childURL,
					Kind:      schema.DirKind,
					Revision:  child.Revision,
					Deleted:   true,
				})
			}
			continue
		}

		if err := w.harvestEntry(ctx, child.Path, child, entry, childURL, copyMode, addsOnly, depth.Below(), forced); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) classifyAddition(path string, entry *schema.Entry, item *schema.CommitItem, missing bool) error {
	if missing {
		return contract.NewError(contract.NotFoundError, contract.CodeWCPathNotFound,
			"'%s' is scheduled for addition, but is missing", w.localPath(path))
	}
	working, err := w.access.Properties(path)
	if err != nil {
		return err
	}
	var changes map[string]schema.PropChange
	if entry.Schedule == schema.ScheduleReplace {
		changes = PropDiff(nil, working)
	} else {
		base, err := w.access.BaseProperties(path)
		if err != nil {
			return err
		}
		changes = PropDiff(base, working)
	}
	item.PropertiesModified = len(changes) > 0
	if entry.Kind != schema.FileKind {
		return nil
	}
	if !item.Copied {
		item.ContentsModified = true
		return nil
	}
	force := translationChanged(changes)
	if force {
		item.ContentsModified = true
		return nil
	}
	item.ContentsModified, err = w.access.HasTextModifications(path, false)
	return err
}

func (w *walker) classifyModification(path string, entry *schema.Entry, item *schema.CommitItem, missing bool) error {
	working, err := w.access.Properties(path)
	if err != nil {
		return err
	}
	base, err := w.access.BaseProperties(path)
	if err != nil {
		return err
	}
	changes := PropDiff(base, working)
	item.PropertiesModified = len(changes) > 0
	if entry.Kind != schema.FileKind || missing {
		return nil
	}
	item.ContentsModified, err = w.access.HasTextModifications(path, translationChanged(changes))
	return err
}

// collectSubtreeLocks records the lock tokens held below a deleted directory.
func (w *walker) collectSubtreeLocks(ctx context.Context, path, url string) error {
	children, err := w.access.Children(path)
	if err != nil {
		return nil
	}
	for _, child := range children {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		childURL := contract.AppendURL(url, child.Name())
		if child.LockToken != "" {
			w.lockTokens[childURL] = child.LockToken
		}
		if child.Kind == schema.DirKind {
			if err := w.collectSubtreeLocks(ctx, child.Path, childURL); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) inChangelist(entry *schema.Entry) bool {
	return len(w.opts.Changelists) == 0 || slices.Contains(w.opts.Changelists, entry.Changelist)
}

func (w *walker) localPath(path string) string {
	return contract.JoinPath(w.access.Anchor(), path)
}

// PropDiff returns the property changes that turn base into working.
func PropDiff(base, working map[string]string) map[string]schema.PropChange {
	changes := map[string]schema.PropChange{}
	for name, value := range working {
		old, ok := base[name]
		if ok && old == value {
			continue
		}
		change := schema.PropChange{New: stringPtr(value)}
		if ok {
			change.Old = stringPtr(old)
		}
		changes[name] = change
	}
	for name, old := range base {
		if _, ok := working[name]; !ok {
			changes[name] = schema.PropChange{Old: stringPtr(old)}
		}
	}
	return changes
}

// translationChanged reports whether a change affects how file content is
// translated, which forces a full text comparison.
func translationChanged(changes map[string]schema.PropChange) bool {
	_, eol := changes[schema.EOLStyleProperty]
	_, charset := changes[schema.CharsetProperty]
	return eol || charset
}

func stringPtr(s string) *string {
	return &s
}
