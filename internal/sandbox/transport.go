package sandbox

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// session is a RepositoryTransport rooted at one repository URL.
type session struct {
	repo     *Repository
	location string
	base     string // root-relative path of location
	user     string
	closed   bool
}

var _ contract.RepositoryTransport = &session{} // Compile-time check

func (s *session) Location() string { return s.location }

func (s *session) abs(path string) string {
	return strings.Trim(contract.JoinPath(s.base, strings.Trim(path, "/")), "/")
}

func (s *session) check(ctx context.Context) error {
	if s.closed {
		return contract.NewError(contract.FailureError, "", "Repository session for '%s' is closed", s.location)
	}
	return contract.CheckCancelled(ctx)
}

func (s *session) Info(ctx context.Context) (schema.RepositoryInfo, error) {
	if err := s.check(ctx); err != nil {
		return schema.RepositoryInfo{}, err
	}
	return schema.RepositoryInfo{UUID: s.repo.UUID(), RootURL: s.repo.RootURL()}, nil
}

func (s *session) LatestRevision(ctx context.Context) (int64, error) {
	if err := s.check(ctx); err != nil {
		return schema.InvalidRevision, err
	}
	return s.repo.Head(), nil
}

func (s *session) HasCapability(c contract.Capability) bool {
	return s.repo.hasCapability(c)
}

func (s *session) CheckPath(ctx context.Context, path string, rev int64) (schema.NodeKind, error) {
	if err := s.check(ctx); err != nil {
		return schema.NoneKind, err
	}
	r, err := s.repo.revision(rev)
	if err != nil {
		return schema.NoneKind, err
	}
	if n, ok := r.node(s.abs(path)); ok {
		return n.Kind, nil
	}
	return schema.NoneKind, nil
}

func (s *session) GetFile(ctx context.Context, path string, rev int64) ([]byte, map[string]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, nil, err
	}
	r, err := s.repo.revision(rev)
	if err != nil {
		return nil, nil, err
	}
	n, ok := r.node(s.abs(path))
	if !ok || n.Kind != schema.FileKind {
		return nil, nil, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"File not found: revision %d, path '%s'", r.Number, "/"+s.abs(path))
	}
	return n.clone().Content, n.clone().Props, nil
}

func (s *session) GetDir(ctx context.Context, path string, rev int64) ([]schema.DirEntry, map[string]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, nil, err
	}
	r, err := s.repo.revision(rev)
	if err != nil {
		return nil, nil, err
	}
	dir := s.abs(path)
	n, ok := r.node(dir)
	if !ok || n.Kind != schema.DirKind {
		return nil, nil, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"Directory not found: revision %d, path '%s'", r.Number, "/"+dir)
	}
	var entries []schema.DirEntry
	for _, name := range childNames(r.tree, dir) {
		child := r.tree[contract.JoinPath(dir, name)]
		entries = append(entries, schema.DirEntry{
			Name:     name,
			Kind:     child.Kind,
			Size:     int64(len(child.Content)),
			Revision: child.ChangedRev,
		})
	}
	return entries, n.clone().Props, nil
}

func (s *session) LocationSegments(ctx context.Context, path string, peg, start, end int64) ([]schema.LocationSegment, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if peg < 0 {
		peg = s.repo.Head()
	}
	if start < 0 || start > peg {
		start = peg
	}
	if end < 0 {
		end = 0
	}
	all, err := s.repo.segments(s.abs(path), peg)
	if err != nil {
		return nil, err
	}
	var out []schema.LocationSegment
	for _, seg := range all {
		seg.Start = max(seg.Start, end)
		seg.End = min(seg.End, start)
		if seg.Start > seg.End {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// Log follows each path through its copy history.
func (s *session) Log(ctx context.Context, paths []string, start, end int64) ([]schema.LogEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	head := s.repo.Head()
	if start < 0 {
		start = head
	}
	if end < 0 {
		end = head
	}
	youngest, oldest := max(start, end), min(start, end)
	if len(paths) == 0 {
		paths = []string{""}
	}

	var segments []schema.LocationSegment
	for _, p := range paths {
		segs, err := s.repo.segments(s.abs(p), youngest)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segs...)
	}

	var out []schema.LogEntry
	for number := oldest; number <= youngest; number++ {
		if err := contract.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		rev, err := s.repo.revision(number)
		if err != nil {
			return nil, err
		}
		if touches(rev, segments) {
			out = append(out, rev.logEntry())
		}
	}
	if start > end {
		sort.Slice(out, func(i, j int) bool { return out[i].Revision > out[j].Revision })
	}
	return out, nil
}

func touches(rev *Revision, segments []schema.LocationSegment) bool {
	for _, seg := range segments {
		if rev.Number < seg.Start || rev.Number > seg.End {
			continue
		}
		for changed, action := range rev.Changed {
			if contract.IsAncestorPath(seg.Path, changed) || (action != "M" && contract.IsAncestorPath(changed, seg.Path)) {
				return true
			}
		}
	}
	return false
}

func (s *session) CommitEditor(ctx context.Context, opts contract.CommitEditorOptions) (contract.Editor, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	author := opts.Author
	if author == "" {
		author = s.user
	}
	tokens := make(map[string]string, len(opts.LockTokens))
	for p, token := range opts.LockTokens {
		tokens[s.abs(p)] = token
	}
	return &editor{session: s, txn: s.repo.begin(), opts: opts, author: author, tokens: tokens}, nil
}

func (s *session) Lock(ctx context.Context, targets map[string]int64, comment string, steal bool) ([]schema.Lock, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	r := s.repo
	head, err := r.revision(-1)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(targets))
	for p := range targets {
		paths = append(paths, p)
	}
	contract.SortPaths(paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	var locks []schema.Lock
	for _, p := range paths {
		path := s.abs(p)
		n, ok := head.node(path)
		if !ok || n.Kind != schema.FileKind {
			return locks, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' doesn't exist in HEAD revision", "/"+path)
		}
		if rev := targets[p]; rev >= 0 && n.ChangedRev > rev {
			return locks, contract.NewError(contract.LockError, contract.CodeTxnOutOfDate, "Path '%s' is out of date", "/"+path)
		}
		if existing, ok := r.locks[path]; ok && !steal {
			return locks, contract.NewError(contract.LockError, contract.CodePathAlreadyLocked,
				"Path '%s' is already locked by user '%s'", "/"+path, existing.Owner)
		}
		l := schema.Lock{
			Path:    "/" + path,
			Token:   "opaquelocktoken:" + uuid.NewString(),
			Owner:   s.user,
			Comment: comment,
			Created: r.clock().UTC().Truncate(time.Millisecond),
		}
		r.locks[path] = l
		locks = append(locks, l)
	}
	return locks, nil
}

func (s *session) Unlock(ctx context.Context, tokens map[string]string, breakLock bool) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	for p, token := range tokens {
		path := s.abs(p)
		l, ok := r.locks[path]
		if !ok {
			return contract.NewError(contract.LockError, contract.CodeNoLockToken, "No lock on path '%s'", "/"+path)
		}
		if l.Token != token && !breakLock {
			return contract.NewError(contract.LockError, contract.CodeLockOwnerMismatch,
				"Lock token '%s' does not match the lock on '%s'", token, "/"+path)
		}
		delete(r.locks, path)
	}
	return nil
}

func (s *session) Diff(ctx context.Context, req contract.DiffRequest) ([]schema.TreeChange, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.compare(ctx, req)
}

func (s *session) Close() error {
	s.closed = true
	return nil
}
