// Package sandbox provides in-memory repositories and working copies that implement
// the collaborator contracts, for tests and for the operator CLI.
package sandbox

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// DefaultUser is the author recorded when no user is configured.
const DefaultUser = "sandbox"

// Sandbox holds repositories keyed by root URL and working copies keyed by local root.
type Sandbox struct {
	mu    sync.RWMutex
	user  string
	clock func() time.Time
	repos map[string]*Repository
	wcs   map[string]*WorkingCopy
}

// New creates an empty sandbox. A nil clock uses time.Now.
func New(user string, clock func() time.Time) *Sandbox {
	if user == "" {
		user = DefaultUser
	}
	if clock == nil {
		clock = time.Now
	}
	return &Sandbox{
		user:  user,
		clock: clock,
		repos: map[string]*Repository{},
		wcs:   map[string]*WorkingCopy{},
	}
}

// User returns the name recorded as commit author and lock owner.
func (s *Sandbox) User() string { return s.user }

// CreateRepository adds an empty repository rooted at rootURL.
func (s *Sandbox) CreateRepository(rootURL string) (*Repository, error) {
	if _, err := contract.URLConnectionKey(rootURL); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rootURL = strings.TrimSuffix(rootURL, "/")
	if _, ok := s.repos[rootURL]; ok {
		return nil, contract.NewError(contract.ValidationError, contract.CodeFSAlreadyExists, "Repository '%s' already exists", rootURL)
	}
	r := NewRepository(rootURL, s.clock)
	s.repos[rootURL] = r
	return r, nil
}

// Repository returns the repository that contains url.
func (s *Sandbox) Repository(url string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *Repository
	for _, r := range s.repos {
		if r.Contains(url) && (found == nil || len(r.root) > len(found.root)) {
			found = r
		}
	}
	if found == nil {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeBadURL, "Unable to connect to a repository at URL '%s'", url)
	}
	return found, nil
}

// Repositories returns every repository ordered by root URL.
func (s *Sandbox) Repositories() []*Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].root < out[j].root })
	return out
}

// WorkingCopy returns the working copy containing the local path.
func (s *Sandbox) WorkingCopy(local string) (*WorkingCopy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	local = strings.TrimSuffix(local, "/")
	var found *WorkingCopy
	for root, wc := range s.wcs {
		if contract.IsAncestorPath(root, local) && (found == nil || len(root) > len(found.root)) {
			found = wc
		}
	}
	if found == nil {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound, "'%s' is not a working copy", local)
	}
	return found, nil
}

// WorkingCopies returns every working copy ordered by root.
func (s *Sandbox) WorkingCopies() []*WorkingCopy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*WorkingCopy, 0, len(s.wcs))
	for _, wc := range s.wcs {
		out = append(out, wc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].root < out[j].root })
	return out
}

// Checkout creates a working copy of url at rev (negative means head) under localRoot.
func (s *Sandbox) Checkout(ctx context.Context, url string, rev int64, localRoot string) (*WorkingCopy, error) {
	if err := contract.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	repo, err := s.Repository(url)
	if err != nil {
		return nil, err
	}
	path, err := repo.relPath(url)
	if err != nil {
		return nil, err
	}
	r, err := repo.revision(rev)
	if err != nil {
		return nil, err
	}
	root, ok := r.node(path)
	if !ok || root.Kind != schema.DirKind {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"URL '%s' doesn't exist or is not a directory", url)
	}

	localRoot = strings.TrimSuffix(localRoot, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	for existing := range s.wcs {
		if contract.IsAncestorPath(existing, localRoot) || contract.IsAncestorPath(localRoot, existing) {
			return nil, contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"'%s' overlaps the working copy at '%s'", localRoot, existing)
		}
	}
	wc := &WorkingCopy{root: localRoot, nodes: map[string]*wcNode{}}
	for rel, n := range subtree(r.tree, path, schema.DepthInfinity) {
		entry := schema.Entry{
			Path:           rel,
			Kind:           n.Kind,
			URL:            repo.url(contract.JoinPath(path, rel)),
			Revision:       r.Number,
			RepositoryUUID: repo.uuid,
			RepositoryRoot: repo.root,
		}
		if n.Kind == schema.DirKind {
			entry.Depth = schema.DepthInfinity
		}
		wc.nodes[rel] = &wcNode{
			entry:     entry,
			working:   append([]byte(nil), n.Content...),
			base:      append([]byte(nil), n.Content...),
			props:     maps.Clone(n.Props),
			baseProps: maps.Clone(n.Props),
		}
	}
	s.wcs[localRoot] = wc
	return wc, nil
}

// Lock locks a working-copy file in its repository and records the token.
func (s *Sandbox) Lock(ctx context.Context, local, comment string) (schema.Lock, error) {
	wc, err := s.WorkingCopy(local)
	if err != nil {
		return schema.Lock{}, err
	}
	key, err := wc.key(local)
	if err != nil {
		return schema.Lock{}, err
	}
	entry, err := wc.Entry(key)
	if err != nil {
		return schema.Lock{}, err
	}
	session, err := s.Connector().Open(ctx, contract.RemoveURLTail(entry.URL))
	if err != nil {
		return schema.Lock{}, err
	}
	defer session.Close()
	locks, err := session.Lock(ctx, map[string]int64{entry.Name(): entry.Revision}, comment, false)
	if err != nil {
		return schema.Lock{}, err
	}
	err = wc.Update(key, func(e *schema.Entry) { e.LockToken = locks[0].Token })
	return locks[0], err
}

// Connector returns a RepositoryConnector over the sandbox repositories.
func (s *Sandbox) Connector() *Connector { return &Connector{sandbox: s} }

// Store returns a WorkingCopyStore over the sandbox working copies.
func (s *Sandbox) Store() *Store { return &Store{sandbox: s} }

// Connector opens sessions against sandbox repositories.
type Connector struct {
	sandbox *Sandbox
}

var _ contract.RepositoryConnector = &Connector{} // Compile-time check

// Open returns a session rooted at url.
func (c *Connector) Open(ctx context.Context, url string) (contract.RepositoryTransport, error) {
	if err := contract.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	repo, err := c.sandbox.Repository(url)
	if err != nil {
		return nil, err
	}
	base, err := repo.relPath(url)
	if err != nil {
		return nil, err
	}
	return &session{repo: repo, location: strings.TrimSuffix(url, "/"), base: base, user: c.sandbox.user}, nil
}

// Store opens accesses to sandbox working copies.
type Store struct {
	sandbox *Sandbox
}

var _ contract.WorkingCopyStore = &Store{} // Compile-time check

// Open returns an access anchored at path. Write accesses lock depth levels of the
// working copy below path, or the whole subtree when depth is negative.
func (st *Store) Open(ctx context.Context, path string, write bool, depth int) (contract.WCAccess, error) {
	if err := contract.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	wc, err := st.sandbox.WorkingCopy(path)
	if err != nil {
		return nil, err
	}
	key, err := wc.key(path)
	if err != nil {
		return nil, err
	}
	wc.mu.Lock()
	n, err := wc.node(key)
	wc.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if n.entry.Kind != schema.DirKind {
		return nil, contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "'%s' is not a directory", path)
	}
	a := &access{wc: wc, anchor: strings.TrimSuffix(path, "/"), key: key, write: write}
	if write {
		if a.lockID, err = wc.lock(key, depth); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Root returns the root of the working copy containing path.
func (st *Store) Root(path string) (string, error) {
	wc, err := st.sandbox.WorkingCopy(path)
	if err != nil {
		return "", err
	}
	return wc.root, nil
}
