package sandbox

import (
	"fmt"
	"io"
	"maps"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"gopkg.in/yaml.v3"
)

// State is the serialized form of a sandbox.
type State struct {
	User          string             `yaml:"user,omitempty"`
	Repositories  []RepositoryState  `yaml:"repositories"`
	WorkingCopies []WorkingCopyState `yaml:"working_copies,omitempty"`
}

// RepositoryState is the serialized form of a repository.
type RepositoryState struct {
	UUID      string          `yaml:"uuid"`
	RootURL   string          `yaml:"root_url"`
	Revisions []RevisionState `yaml:"revisions"`
	Locks     []schema.Lock   `yaml:"locks,omitempty"`
}

// RevisionState is the serialized form of one revision and its full tree.
type RevisionState struct {
	Number   int64             `yaml:"number"`
	Author   string            `yaml:"author,omitempty"`
	Date     time.Time         `yaml:"date"`
	Message  string            `yaml:"message,omitempty"`
	RevProps map[string]string `yaml:"revprops,omitempty"`
	Changed  map[string]string `yaml:"changed,omitempty"`
	Nodes    []NodeState       `yaml:"nodes"`
}

// NodeState is the serialized form of a repository node.
type NodeState struct {
	Path         string            `yaml:"path"`
	Kind         schema.NodeKind   `yaml:"kind"`
	Content      string            `yaml:"content,omitempty"`
	Props        map[string]string `yaml:"props,omitempty"`
	Lineage      string            `yaml:"lineage"`
	CreatedRev   int64             `yaml:"created_rev"`
	ChangedRev   int64             `yaml:"changed_rev"`
	CopyFromPath string            `yaml:"copy_from_path,omitempty"`
	CopyFromRev  int64             `yaml:"copy_from_rev,omitempty"`
}

// WorkingCopyState is the serialized form of a working copy.
type WorkingCopyState struct {
	Root  string        `yaml:"root"`
	Nodes []WCNodeState `yaml:"nodes"`
}

// WCNodeState is the serialized form of a working-copy node.
type WCNodeState struct {
	Entry     schema.Entry      `yaml:",inline"`
	Working   string            `yaml:"working,omitempty"`
	Base      string            `yaml:"base,omitempty"`
	Props     map[string]string `yaml:"props,omitempty"`
	BaseProps map[string]string `yaml:"base_props,omitempty"`
	WCProps   map[string]string `yaml:"wc_props,omitempty"`
}

// Snapshot captures the current contents of the sandbox.
func (s *Sandbox) Snapshot() State {
	state := State{User: s.user}
	for _, r := range s.Repositories() {
		r.mu.RLock()
		rs := RepositoryState{UUID: r.uuid, RootURL: r.root}
		for _, rev := range r.revs {
			rs.Revisions = append(rs.Revisions, revisionState(rev))
		}
		paths := make([]string, 0, len(r.locks))
		for p := range r.locks {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			rs.Locks = append(rs.Locks, r.locks[p])
		}
		r.mu.RUnlock()
		state.Repositories = append(state.Repositories, rs)
	}
	for _, wc := range s.WorkingCopies() {
		wc.mu.Lock()
		ws := WorkingCopyState{Root: wc.root}
		for _, k := range wc.subtreeKeys("") {
			n := wc.nodes[k]
			ws.Nodes = append(ws.Nodes, WCNodeState{
				Entry:     n.entry,
				Working:   string(n.working),
				Base:      string(n.base),
				Props:     maps.Clone(n.props),
				BaseProps: maps.Clone(n.baseProps),
				WCProps:   maps.Clone(n.wcProps),
			})
		}
		wc.mu.Unlock()
		state.WorkingCopies = append(state.WorkingCopies, ws)
	}
	return state
}

func revisionState(rev *Revision) RevisionState {
	rs := RevisionState{
		Number:   rev.Number,
		Author:   rev.Author,
		Date:     rev.Date,
		Message:  rev.Message,
		RevProps: maps.Clone(rev.RevProps),
		Changed:  maps.Clone(rev.Changed),
	}
	paths := make([]string, 0, len(rev.tree))
	for p := range rev.tree {
		paths = append(paths, p)
	}
	contract.SortPaths(paths)
	for _, p := range paths {
		n := rev.tree[p]
		rs.Nodes = append(rs.Nodes, NodeState{
			Path:         p,
			Kind:         n.Kind,
			Content:      string(n.Content),
			Props:        maps.Clone(n.Props),
			Lineage:      n.Lineage,
			CreatedRev:   n.CreatedRev,
			ChangedRev:   n.ChangedRev,
			CopyFromPath: n.CopyFromPath,
			CopyFromRev:  n.CopyFromRev,
		})
	}
	return rs
}

// Restore builds a sandbox from a state. Nodes unchanged between revisions share
// storage again after loading.
func Restore(state State, clock func() time.Time) (*Sandbox, error) {
	s := New(state.User, clock)
	for _, rs := range state.Repositories {
		if len(rs.Revisions) == 0 {
			return nil, fmt.Errorf("repository %s has no revisions", rs.RootURL)
		}
		r := &Repository{
			uuid:  rs.UUID,
			root:  rs.RootURL,
			locks: map[string]schema.Lock{},
			clock: s.clock,
		}
		shared := map[string]*Node{}
		for i, rev := range rs.Revisions {
			if rev.Number != int64(i) {
				return nil, fmt.Errorf("repository %s: revision %d stored at position %d", rs.RootURL, rev.Number, i)
			}
			tree := make(map[string]*Node, len(rev.Nodes))
			for _, ns := range rev.Nodes {
				key := fmt.Sprintf("%s@%d@%s", ns.Lineage, ns.ChangedRev, ns.Path)
				n, ok := shared[key]
				if !ok {
					n = &Node{
						Kind:         ns.Kind,
						Content:      []byte(ns.Content),
						Props:        orEmpty(ns.Props),
						Lineage:      ns.Lineage,
						CreatedRev:   ns.CreatedRev,
						ChangedRev:   ns.ChangedRev,
						CopyFromPath: ns.CopyFromPath,
						CopyFromRev:  ns.CopyFromRev,
					}
					shared[key] = n
				}
				tree[ns.Path] = n
			}
			if _, ok := tree[""]; !ok {
				return nil, fmt.Errorf("repository %s: revision %d has no root directory", rs.RootURL, rev.Number)
			}
			r.revs = append(r.revs, &Revision{
				Number:   rev.Number,
				Author:   rev.Author,
				Date:     rev.Date,
				Message:  rev.Message,
				RevProps: rev.RevProps,
				Changed:  orEmpty(rev.Changed),
				tree:     tree,
			})
		}
		for _, l := range rs.Locks {
			r.locks[strings.TrimPrefix(l.Path, "/")] = l
		}
		s.repos[r.root] = r
	}
	for _, ws := range state.WorkingCopies {
		wc := &WorkingCopy{root: ws.Root, nodes: map[string]*wcNode{}}
		for _, ns := range ws.Nodes {
			wc.nodes[ns.Entry.Path] = &wcNode{
				entry:     ns.Entry,
				working:   []byte(ns.Working),
				base:      []byte(ns.Base),
				props:     orEmpty(ns.Props),
				baseProps: orEmpty(ns.BaseProps),
				wcProps:   ns.WCProps,
			}
		}
		if _, ok := wc.nodes[""]; !ok {
			return nil, fmt.Errorf("working copy %s has no root entry", ws.Root)
		}
		s.wcs[wc.root] = wc
	}
	return s, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// Load reads a YAML state.
func Load(r io.Reader, clock func() time.Time) (*Sandbox, error) {
	var state State
	if err := yaml.NewDecoder(r).Decode(&state); err != nil {
		if err == io.EOF {
			return New("", clock), nil
		}
		return nil, fmt.Errorf("failed to decode sandbox state: %w", err)
	}
	return Restore(state, clock)
}

// Save writes the state of the sandbox as YAML.
func (s *Sandbox) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode sandbox state: %w", err)
	}
	return enc.Close()
}

// LoadFile reads a state file; a missing file gives an empty sandbox.
func LoadFile(path string, clock func() time.Time) (*Sandbox, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New("", clock), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sandbox state %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, clock)
}

// SaveFile writes the state to path, replacing any previous content.
func (s *Sandbox) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sandbox state %s: %w", path, err)
	}
	if err := s.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
