package sandbox

import (
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Node is one versioned file or directory of a repository revision.
// Nodes are never mutated once a revision is committed.
type Node struct {
	Kind         schema.NodeKind
	Content      []byte
	Props        map[string]string
	Lineage      string // shared by a node and its copies
	CreatedRev   int64
	ChangedRev   int64
	CopyFromPath string
	CopyFromRev  int64
}

func (n *Node) clone() *Node {
	c := *n
	c.Content = append([]byte(nil), n.Content...)
	c.Props = maps.Clone(n.Props)
	return &c
}

// Revision is one committed state of a repository tree.
type Revision struct {
	Number   int64
	Author   string
	Date     time.Time
	Message  string
	RevProps map[string]string
	Changed  map[string]string // absolute path to A, D, M or R

	tree map[string]*Node // keyed by root-relative path, "" is the root directory
}

// Repository is an in-memory versioned tree.
type Repository struct {
	mu    sync.RWMutex
	uuid  string
	root  string
	revs  []*Revision
	locks map[string]schema.Lock
	caps  map[contract.Capability]bool
	clock func() time.Time
}

// NewRepository creates a repository holding only revision 0.
func NewRepository(rootURL string, clock func() time.Time) *Repository {
	if clock == nil {
		clock = time.Now
	}
	r := &Repository{
		uuid:  uuid.NewString(),
		root:  strings.TrimSuffix(rootURL, "/"),
		locks: map[string]schema.Lock{},
		clock: clock,
	}
	r.revs = []*Revision{{
		Number:  0,
		Date:    clock().UTC(),
		Changed: map[string]string{},
		tree:    map[string]*Node{"": {Kind: schema.DirKind, Props: map[string]string{}, Lineage: r.nextLineage()}},
	}}
	return r
}

// UUID returns the repository identifier.
func (r *Repository) UUID() string { return r.uuid }

// RootURL returns the URL of the repository root.
func (r *Repository) RootURL() string { return r.root }

// Head returns the youngest revision number.
func (r *Repository) Head() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.revs) - 1)
}

// DisableCapability makes sessions report c as missing.
func (r *Repository) DisableCapability(c contract.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.caps == nil {
		r.caps = map[contract.Capability]bool{}
	}
	r.caps[c] = false
}

func (r *Repository) hasCapability(c contract.Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enabled, ok := r.caps[c]
	return !ok || enabled
}

func (r *Repository) nextLineage() string {
	return uuid.NewString()
}

// revision returns a committed revision; a negative number means the youngest.
func (r *Repository) revision(rev int64) (*Revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rev < 0 {
		return r.revs[len(r.revs)-1], nil
	}
	if rev >= int64(len(r.revs)) {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeFSNoSuchRevision, "No such revision %d", rev)
	}
	return r.revs[rev], nil
}

// relPath converts a repository URL into a root-relative path.
func (r *Repository) relPath(url string) (string, error) {
	rootPath, err := contract.URLPath(r.root)
	if err != nil {
		return "", err
	}
	p, err := contract.URLPath(url)
	if err != nil {
		return "", err
	}
	rootPath = strings.TrimSuffix(rootPath, "/")
	p = strings.TrimSuffix(p, "/")
	if !contract.IsAncestorPath(rootPath, p) || !strings.HasPrefix(strings.TrimSuffix(url, "/"), r.root) {
		return "", contract.NewError(contract.ValidationError, contract.CodeBadURL,
			"URL '%s' is not a child of repository root URL '%s'", url, r.root)
	}
	return strings.Trim(contract.RelativePath(rootPath, p), "/"), nil
}

// url converts a root-relative path into a repository URL.
func (r *Repository) url(path string) string {
	return contract.AppendURL(r.root, path)
}

// Contains reports whether url points into this repository.
func (r *Repository) Contains(url string) bool {
	_, err := r.relPath(url)
	return err == nil
}

// Log returns the committed revisions in ascending order.
func (r *Repository) Log() []schema.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.LogEntry, 0, len(r.revs))
	for _, rev := range r.revs {
		out = append(out, rev.logEntry())
	}
	return out
}

func (rev *Revision) logEntry() schema.LogEntry {
	return schema.LogEntry{
		Revision:     rev.Number,
		Author:       rev.Author,
		Date:         rev.Date,
		Message:      rev.Message,
		ChangedPaths: maps.Clone(rev.Changed),
		RevProps:     maps.Clone(rev.RevProps),
	}
}

func (rev *Revision) node(path string) (*Node, bool) {
	n, ok := rev.tree[path]
	return n, ok
}

// subtree returns the nodes at and below path keyed by their path relative to it,
// limited by depth.
func subtree(tree map[string]*Node, path string, depth schema.Depth) map[string]*Node {
	out := map[string]*Node{}
	root, ok := tree[path]
	if !ok {
		return out
	}
	out[""] = root
	if root.Kind != schema.DirKind || depth == schema.DepthEmpty {
		return out
	}
	for p, n := range tree {
		if p == path || !contract.IsAncestorPath(path, p) {
			continue
		}
		rel := contract.RelativePath(path, p)
		if path == "" {
			rel = p
		}
		nested := strings.Contains(rel, "/")
		switch depth {
		case schema.DepthFiles:
			if nested || n.Kind != schema.FileKind {
				continue
			}
		case schema.DepthImmediates:
			if nested {
				continue
			}
		}
		out[rel] = n
	}
	return out
}

// childNames returns the sorted names of the direct children of dir.
func childNames(tree map[string]*Node, dir string) []string {
	var names []string
	for p := range tree {
		if p == "" || p == dir {
			continue
		}
		if contract.PathRemoveTail(p) == dir {
			names = append(names, contract.PathTail(p))
		}
	}
	sort.Strings(names)
	return names
}

// segments traces the history of path at peg back through copies, youngest first.
func (r *Repository) segments(path string, peg int64) ([]schema.LocationSegment, error) {
	var out []schema.LocationSegment
	for {
		rev, err := r.revision(peg)
		if err != nil {
			return nil, err
		}
		n, ok := rev.node(path)
		if !ok {
			if len(out) == 0 {
				return nil, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
					"Path '%s' not found in revision %d", "/"+path, rev.Number)
			}
			return out, nil
		}
		out = append(out, schema.LocationSegment{Path: "/" + path, Start: n.CreatedRev, End: rev.Number})
		if n.CopyFromPath == "" {
			return out, nil
		}
		path, peg = n.CopyFromPath, n.CopyFromRev
	}
}
