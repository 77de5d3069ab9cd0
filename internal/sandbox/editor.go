package sandbox

import (
	"context"
	"io"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// editor builds one transaction from the calls of a commit driver.
type editor struct {
	session *session
	txn     *txn
	opts    contract.CommitEditorOptions
	author  string
	tokens  map[string]string
	dirs    []string
	done    bool
}

var _ contract.Editor = &editor{} // Compile-time check

func (e *editor) check(ctx context.Context) error {
	if e.done {
		return contract.NewError(contract.FailureError, "", "Commit editor is already closed")
	}
	return contract.CheckCancelled(ctx)
}

func (e *editor) OpenRoot(ctx context.Context, rev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	root := e.session.abs("")
	n, ok := e.txn.tree[root]
	if !ok || n.Kind != schema.DirKind {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+root)
	}
	e.dirs = append(e.dirs[:0], root)
	return nil
}

func (e *editor) OpenDir(ctx context.Context, path string, rev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	n, ok := e.txn.tree[p]
	if !ok || n.Kind != schema.DirKind {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+p)
	}
	e.dirs = append(e.dirs, p)
	return nil
}

func (e *editor) AddDir(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	if err := e.add(p, schema.DirKind, copyFromURL, copyFromRev); err != nil {
		return err
	}
	e.dirs = append(e.dirs, p)
	return nil
}

func (e *editor) add(path string, kind schema.NodeKind, copyFromURL string, copyFromRev int64) error {
	copyFrom := ""
	if copyFromURL != "" {
		rel, err := e.session.repo.relPath(copyFromURL)
		if err != nil {
			return err
		}
		copyFrom = rel
	}
	return e.txn.add(path, kind, copyFrom, copyFromRev)
}

func (e *editor) CloseDir(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	if len(e.dirs) == 0 {
		return contract.NewError(contract.FailureError, "", "No directory is open")
	}
	e.dirs = e.dirs[:len(e.dirs)-1]
	return nil
}

func (e *editor) DeleteEntry(ctx context.Context, path string, rev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	if e.txn.outOfDate(p, rev) {
		return contract.NewError(contract.LockError, contract.CodeTxnOutOfDate, "Item '%s' is out of date", "/"+p)
	}
	return e.txn.delete(p)
}

func (e *editor) AddFile(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	return e.add(e.session.abs(path), schema.FileKind, copyFromURL, copyFromRev)
}

func (e *editor) OpenFile(ctx context.Context, path string, rev int64) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	n, ok := e.txn.tree[p]
	if !ok || n.Kind != schema.FileKind {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+p)
	}
	if e.txn.outOfDate(p, rev) {
		return contract.NewError(contract.LockError, contract.CodeTxnOutOfDate, "File '%s' is out of date", "/"+p)
	}
	return nil
}

func (e *editor) ChangeDirProperty(ctx context.Context, name string, value *string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	if len(e.dirs) == 0 {
		return contract.NewError(contract.FailureError, "", "No directory is open")
	}
	return e.txn.setProp(e.dirs[len(e.dirs)-1], name, value)
}

func (e *editor) ChangeFileProperty(ctx context.Context, path string, name string, value *string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	return e.txn.setProp(e.session.abs(path), name, value)
}

func (e *editor) ApplyText(ctx context.Context, path string, baseChecksum string, content io.Reader) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	if n, ok := e.txn.tree[p]; ok && baseChecksum != "" && contract.Checksum(n.Content) != baseChecksum {
		return contract.NewError(contract.FailureError, contract.CodeChecksumMismatch,
			"Checksum mismatch for '%s': expected %s, actual %s", "/"+p, baseChecksum, contract.Checksum(n.Content))
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return contract.WrapError(err, "Cannot read text of '%s'", "/"+p)
	}
	return e.txn.setContent(p, data)
}

func (e *editor) CloseFile(ctx context.Context, path string, textChecksum string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	p := e.session.abs(path)
	n, ok := e.txn.tree[p]
	if !ok {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+p)
	}
	if textChecksum != "" && contract.Checksum(n.Content) != textChecksum {
		return contract.NewError(contract.FailureError, contract.CodeChecksumMismatch,
			"Checksum mismatch for '%s': expected %s, actual %s", "/"+p, textChecksum, contract.Checksum(n.Content))
	}
	return nil
}

func (e *editor) CloseEdit(ctx context.Context) (schema.CommitInfo, error) {
	if err := e.check(ctx); err != nil {
		return schema.NullCommitInfo, err
	}
	e.done = true
	if len(e.txn.changed) == 0 {
		return schema.NullCommitInfo, nil
	}
	rev, err := e.session.repo.commitTxn(e.txn, e.author, e.opts.Message, e.opts.RevProps, e.tokens, e.opts.KeepLocks)
	if err != nil {
		return schema.NullCommitInfo, err
	}
	return schema.CommitInfo{
		NewRevision: rev.Number,
		Date:        rev.Date,
		Author:      rev.Author,
		BaseURL:     e.session.location,
	}, nil
}

func (e *editor) AbortEdit(ctx context.Context) error {
	if e.done {
		return nil
	}
	e.done = true
	e.txn = nil
	return nil
}
