package sandbox

import (
	"maps"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// pendingRev marks node revisions assigned when the transaction commits.
const pendingRev int64 = -2

// txn is an uncommitted tree built on top of a base revision.
type txn struct {
	repo    *Repository
	base    int64
	tree    map[string]*Node
	changed map[string]string // root-relative path to action
	touched map[string]bool
}

func (r *Repository) begin() *txn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	head := r.revs[len(r.revs)-1]
	return &txn{
		repo:    r,
		base:    head.Number,
		tree:    maps.Clone(head.tree),
		changed: map[string]string{},
		touched: map[string]bool{},
	}
}

func (t *txn) record(path, action string) {
	prev, ok := t.changed[path]
	switch {
	case !ok:
		t.changed[path] = action
	case action == "D" && prev == "A":
		delete(t.changed, path)
	case action == "D":
		t.changed[path] = "D"
	case action == "A" && prev == "D":
		t.changed[path] = "R"
	case prev == "M":
		t.changed[path] = action
	}
}

// writable returns a private copy of the node at path.
func (t *txn) writable(path string) (*Node, error) {
	n, ok := t.tree[path]
	if !ok {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+path)
	}
	if !t.touched[path] {
		n = n.clone()
		t.tree[path] = n
		t.touched[path] = true
	}
	return n, nil
}

func (t *txn) add(path string, kind schema.NodeKind, copyFrom string, copyFromRev int64) error {
	if _, exists := t.tree[path]; exists {
		return contract.NewError(contract.ValidationError, contract.CodeFSAlreadyExists, "Path '%s' already exists", "/"+path)
	}
	parent, ok := t.tree[contract.PathRemoveTail(path)]
	if !ok || parent.Kind != schema.DirKind {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"Path '%s' not present", "/"+contract.PathRemoveTail(path))
	}

	if copyFrom == "" {
		t.tree[path] = &Node{
			Kind:       kind,
			Props:      map[string]string{},
			Lineage:    t.repo.nextLineage(),
			CreatedRev: pendingRev,
			ChangedRev: pendingRev,
		}
		t.touched[path] = true
		t.record(path, "A")
		return nil
	}

	src, err := t.repo.revision(copyFromRev)
	if err != nil {
		return err
	}
	srcNode, ok := src.node(copyFrom)
	if !ok {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"Path '%s' not found in revision %d", "/"+copyFrom, src.Number)
	}
	if srcNode.Kind != kind {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
			"Cannot copy '%s' of kind %s as a %s", "/"+copyFrom, srcNode.Kind, kind)
	}
	for rel, n := range subtree(src.tree, copyFrom, schema.DepthInfinity) {
		c := n.clone()
		c.CreatedRev = pendingRev
		c.ChangedRev = pendingRev
		c.CopyFromPath = contract.JoinPath(copyFrom, rel)
		c.CopyFromRev = src.Number
		target := contract.JoinPath(path, rel)
		t.tree[target] = c
		t.touched[target] = true
	}
	t.record(path, "A")
	return nil
}

func (t *txn) delete(path string) error {
	if path == "" {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "Cannot delete the repository root")
	}
	if _, ok := t.tree[path]; !ok {
		return contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' not present", "/"+path)
	}
	for p := range t.tree {
		if contract.IsAncestorPath(path, p) {
			delete(t.tree, p)
			delete(t.touched, p)
		}
	}
	t.record(path, "D")
	return nil
}

func (t *txn) setContent(path string, content []byte) error {
	n, err := t.writable(path)
	if err != nil {
		return err
	}
	if n.Kind != schema.FileKind {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "Path '%s' is not a file", "/"+path)
	}
	n.Content = append([]byte(nil), content...)
	t.record(path, "M")
	return nil
}

func (t *txn) setProp(path, name string, value *string) error {
	n, err := t.writable(path)
	if err != nil {
		return err
	}
	if n.Props == nil {
		n.Props = map[string]string{}
	}
	if value == nil {
		delete(n.Props, name)
	} else {
		n.Props[name] = *value
	}
	t.record(path, "M")
	return nil
}

// outOfDate reports whether path changed after rev.
func (t *txn) outOfDate(path string, rev int64) bool {
	if rev < 0 {
		return false
	}
	n, ok := t.tree[path]
	return ok && !t.touched[path] && n.ChangedRev > rev
}

// commitTxn turns the transaction into the next revision. Changes made in
// revisions younger than the base are kept unless they touch the same paths.
func (r *Repository) commitTxn(t *txn, author, message string, revProps map[string]string, tokens map[string]string, keepLocks bool) (*Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := r.revs[len(r.revs)-1]
	tree := t.tree
	if head.Number != t.base {
		tree = maps.Clone(head.tree)
		for path, action := range t.changed {
			if n, ok := head.tree[path]; ok && n.ChangedRev > t.base {
				return nil, contract.NewError(contract.LockError, contract.CodeTxnOutOfDate, "Item '%s' is out of date", "/"+path)
			}
			if action == "M" {
				if n, ok := t.tree[path]; ok {
					tree[path] = n
				}
				continue
			}
			for p := range tree {
				if contract.IsAncestorPath(path, p) {
					delete(tree, p)
				}
			}
			for p, n := range t.tree {
				if contract.IsAncestorPath(path, p) {
					tree[p] = n
				}
			}
		}
	}

	if err := r.checkLocks(t, tokens); err != nil {
		return nil, err
	}

	number := head.Number + 1
	for path := range t.touched {
		n, ok := tree[path]
		if !ok {
			continue
		}
		if n.CreatedRev == pendingRev {
			n.CreatedRev = number
		}
		n.ChangedRev = number
	}
	for path := range t.changed {
		for p := contract.PathRemoveTail(path); ; p = contract.PathRemoveTail(p) {
			if n, ok := tree[p]; ok && !t.touched[p] {
				c := n.clone()
				c.ChangedRev = number
				tree[p] = c
			}
			if p == "" {
				break
			}
		}
	}

	changed := make(map[string]string, len(t.changed))
	for path, action := range t.changed {
		changed["/"+path] = action
	}
	rev := &Revision{
		Number:   number,
		Author:   author,
		Date:     r.clock().UTC(),
		Message:  message,
		RevProps: maps.Clone(revProps),
		Changed:  changed,
		tree:     tree,
	}
	r.revs = append(r.revs, rev)

	if !keepLocks {
		for path, token := range tokens {
			if l, ok := r.locks[path]; ok && l.Token == token {
				delete(r.locks, path)
			}
		}
	}
	for path := range r.locks {
		if _, ok := tree[path]; !ok {
			delete(r.locks, path)
		}
	}
	return rev, nil
}

// checkLocks verifies that every locked path touched by the transaction comes
// with its token. tokens is keyed by root-relative path.
func (r *Repository) checkLocks(t *txn, tokens map[string]string) error {
	for path, action := range t.changed {
		for locked, l := range r.locks {
			affected := locked == path || (action != "M" && contract.IsAncestorPath(path, locked))
			if !affected {
				continue
			}
			token, ok := tokens[locked]
			if !ok {
				return contract.NewError(contract.LockError, contract.CodeNoLockToken,
					"Cannot verify lock on path '%s'; no matching lock-token available", "/"+locked)
			}
			if token != l.Token {
				return contract.NewError(contract.LockError, contract.CodeLockOwnerMismatch,
					"Lock token '%s' does not match the lock on '%s'", token, "/"+locked)
			}
		}
	}
	return nil
}

// Import commits files (path to content) in a single revision, creating parent
// directories as needed. Keys ending with a slash name empty directories.
func (r *Repository) Import(author, message string, files map[string]string) (int64, error) {
	t := r.begin()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	contract.SortPaths(paths)
	for _, key := range paths {
		p := strings.Trim(key, "/")
		if strings.HasSuffix(key, "/") {
			if err := t.mkdirs(p); err != nil {
				return schema.InvalidRevision, err
			}
			continue
		}
		if err := t.mkdirs(contract.PathRemoveTail(p)); err != nil {
			return schema.InvalidRevision, err
		}
		if _, ok := t.tree[p]; !ok {
			if err := t.add(p, schema.FileKind, "", 0); err != nil {
				return schema.InvalidRevision, err
			}
		}
		if err := t.setContent(p, []byte(files[key])); err != nil {
			return schema.InvalidRevision, err
		}
	}
	rev, err := r.commitTxn(t, author, message, nil, nil, false)
	if err != nil {
		return schema.InvalidRevision, err
	}
	return rev.Number, nil
}

// Copy commits a server-side copy of src at srcRev to dst.
func (r *Repository) Copy(author, message, src string, srcRev int64, dst string) (int64, error) {
	src, dst = strings.Trim(src, "/"), strings.Trim(dst, "/")
	from, err := r.revision(srcRev)
	if err != nil {
		return schema.InvalidRevision, err
	}
	n, ok := from.node(src)
	if !ok {
		return schema.InvalidRevision, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"Path '%s' not found in revision %d", "/"+src, from.Number)
	}
	t := r.begin()
	if err := t.mkdirs(contract.PathRemoveTail(dst)); err != nil {
		return schema.InvalidRevision, err
	}
	if err := t.add(dst, n.Kind, src, from.Number); err != nil {
		return schema.InvalidRevision, err
	}
	rev, err := r.commitTxn(t, author, message, nil, nil, false)
	if err != nil {
		return schema.InvalidRevision, err
	}
	return rev.Number, nil
}

func (t *txn) mkdirs(dir string) error {
	if dir == "" {
		return nil
	}
	if n, ok := t.tree[dir]; ok {
		if n.Kind != schema.DirKind {
			return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "Path '%s' is not a directory", "/"+dir)
		}
		return nil
	}
	if err := t.mkdirs(contract.PathRemoveTail(dir)); err != nil {
		return err
	}
	return t.add(dir, schema.DirKind, "", 0)
}
