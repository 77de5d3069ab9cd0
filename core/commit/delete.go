package commit

import (
	"context"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Delete removes urls from the repository in a single transaction without a
// working copy. An empty list is a no-op that never contacts the repository.
func (c *Committer) Delete(ctx context.Context, urls []string, opts Options) (info schema.CommitInfo, err error) {
	if len(urls) == 0 {
		return schema.NullCommitInfo, nil
	}
	if err := contract.CheckCancelled(ctx); err != nil {
		return schema.NullCommitInfo, err
	}
	rootURL, paths, err := deleteTargets(urls)
	if err != nil {
		return schema.NullCommitInfo, err
	}
	if err := ValidateRevProps(opts.RevProps); err != nil {
		return schema.NullCommitInfo, err
	}

	items := make([]schema.CommitItem, 0, len(paths))
	for _, p := range paths {
		items = append(items, schema.CommitItem{
			Path:     p,
			URL:      contract.AppendURL(rootURL, p),
			Kind:     schema.NoneKind,
			Revision: schema.InvalidRevision,
			Deleted:  true,
		})
	}
	a := c.begin(rootURL, "", items)
	info = schema.CommitInfo{TxnID: a.rec.TxnID, NewRevision: schema.InvalidRevision, BaseURL: rootURL, ItemCount: len(items)}
	defer func() {
		switch {
		case err == nil && info.NewRevision < 0:
			c.record(a, schema.TxnSkipped, nil)
		case err == nil:
			c.record(a, schema.TxnCommitted, nil)
		case a.rec.Status == schema.TxnAborted:
			c.record(a, schema.TxnAborted, err)
		default:
			c.record(a, schema.TxnFailed, err)
		}
	}()

	message, ok, err := c.messages.CommitMessage(ctx, items)
	if err != nil {
		return info, err
	}
	if !ok {
		info.ItemCount = 0
		return info, nil
	}
	a.rec.Message = ValidateMessage(message)

	transport, err := c.connector.Open(ctx, rootURL)
	if err != nil {
		return info, err
	}
	defer func() { _ = transport.Close() }()
	for _, p := range paths {
		if err := contract.CheckCancelled(ctx); err != nil {
			return info, err
		}
		kind, err := transport.CheckPath(ctx, p, schema.InvalidRevision)
		if err != nil {
			return info, err
		}
		if kind == schema.NoneKind {
			return info, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
				"URL '%s' does not exist", contract.AppendURL(rootURL, p))
		}
	}
	if len(opts.RevProps) > 0 && !transport.HasCapability(contract.CapabilityCommitRevProps) {
		return info, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
			"Server doesn't support setting arbitrary revision properties during commit")
	}
	if repo, err := transport.Info(ctx); err == nil {
		a.rec.UUID = repo.UUID
	}

	editor, err := transport.CommitEditor(ctx, contract.CommitEditorOptions{
		Message:  a.rec.Message,
		Author:   opts.Author,
		RevProps: opts.RevProps,
	})
	if err != nil {
		return info, err
	}
	result, err := c.driveDeletes(ctx, editor, paths)
	if err != nil {
		a.rec.Status = schema.TxnAborted
		c.abort(ctx, editor, rootURL, a.rec.TxnID)
		return info, err
	}

	info.NewRevision = result.NewRevision
	info.Date = result.Date
	info.Author = result.Author
	a.rec.Revision = result.NewRevision
	a.rec.Author = result.Author
	if result.NewRevision >= 0 {
		c.dispatch(ctx, schema.Event{Action: schema.EventCommitCompleted, Path: rootURL, Revision: result.NewRevision, TxnID: a.rec.TxnID})
	}
	return info, nil
}

func (c *Committer) driveDeletes(ctx context.Context, editor contract.Editor, paths []string) (schema.CommitInfo, error) {
	handler := func(ctx context.Context, path string, editor contract.Editor) (bool, error) {
		c.dispatch(ctx, schema.Event{Action: schema.EventCommitDeleted, Path: path})
		return false, editor.DeleteEntry(ctx, path, schema.InvalidRevision)
	}
	if err := DriveEditor(ctx, editor, paths, schema.InvalidRevision, handler); err != nil {
		return schema.CommitInfo{}, err
	}
	return editor.CloseEdit(ctx)
}

// deleteTargets condenses urls to the URL the transaction is rooted at and the
// decoded paths to delete below it. Paths below another deleted path are dropped.
func deleteTargets(urls []string) (string, []string, error) {
	rootURL, rel, err := contract.CondenseURLs(urls)
	if err != nil {
		return "", nil, err
	}
	for _, r := range rel {
		if r != "" {
			continue
		}
		rootPath, err := contract.URLPath(rootURL)
		if err != nil {
			return "", nil, err
		}
		tail := contract.PathTail(strings.TrimSuffix(rootPath, "/"))
		if tail == "" {
			return "", nil, contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"Cannot delete the repository root '%s'", rootURL)
		}
		rootURL = contract.RemoveURLTail(rootURL)
		for i := range rel {
			rel[i] = contract.JoinPath(tail, rel[i])
		}
		break
	}

	contract.SortPaths(rel)
	paths := make([]string, 0, len(rel))
	for _, r := range rel {
		if len(paths) > 0 && contract.IsAncestorPath(paths[len(paths)-1], r) {
			continue
		}
		paths = append(paths, r)
	}
	return rootURL, paths, nil
}
