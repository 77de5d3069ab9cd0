package sandbox

import (
	"bytes"
	"context"
	"maps"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// snapshot is a tree keyed by path relative to the compared anchor together with
// the revision each node was reported at.
type snapshot struct {
	nodes map[string]*Node
	revs  map[string]int64
}

// compare builds the reported source tree and diffs it against the target tree.
func (s *session) compare(ctx context.Context, req contract.DiffRequest) ([]schema.TreeChange, error) {
	if len(req.Report) == 0 || req.Report[0].Path != "" {
		return nil, contract.NewError(contract.ValidationError, "", "Diff report must start with the anchor")
	}
	source, err := s.reported(req)
	if err != nil {
		return nil, err
	}

	targetPath, err := s.repo.relPath(req.TargetURL)
	if err != nil {
		return nil, err
	}
	targetRev, err := s.repo.revision(req.TargetRevision)
	if err != nil {
		return nil, err
	}
	depth := req.Depth
	if depth == "" || depth == schema.DepthUnknown {
		depth = schema.DepthInfinity
	}
	target := subtree(targetRev.tree, targetPath, depth)

	paths := make([]string, 0, len(source.nodes)+len(target))
	seen := map[string]bool{}
	for p := range source.nodes {
		paths = append(paths, p)
		seen[p] = true
	}
	for p := range target {
		if !seen[p] {
			paths = append(paths, p)
		}
	}
	contract.SortPaths(paths)

	// The compared anchor directories are always treated as related; ancestry
	// only decides how the nodes below them are reported.
	var changes []schema.TreeChange
	var gone []string // subtrees already reported as deleted or replaced
	for _, p := range paths {
		if err := contract.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		if below(gone, p) {
			if n, ok := target[p]; ok {
				changes = append(changes, added(s.changePath(req, p), n, targetRev.Number, req.TextDeltas))
			}
			continue
		}
		old, inSource := source.nodes[p]
		n, inTarget := target[p]
		path := s.changePath(req, p)
		switch {
		case inSource && !inTarget:
			changes = append(changes, schema.TreeChange{
				Path:        path,
				Kind:        old.Kind,
				Action:      schema.ChangeDeleted,
				OldRevision: source.revs[p],
				NewRevision: targetRev.Number,
			})
			gone = append(gone, p)
		case !inSource && inTarget:
			changes = append(changes, added(path, n, targetRev.Number, req.TextDeltas))
			gone = append(gone, p)
		case old.Kind != n.Kind || (!req.UnrelatedAsModified && !(p == "" && req.Target == "") && old.Lineage != n.Lineage):
			changes = append(changes,
				schema.TreeChange{Path: path, Kind: old.Kind, Action: schema.ChangeDeleted, OldRevision: source.revs[p], NewRevision: targetRev.Number},
				added(path, n, targetRev.Number, req.TextDeltas))
			gone = append(gone, p)
		default:
			if change, ok := modified(path, old, n, req.TextDeltas); ok {
				change.OldRevision = source.revs[p]
				change.NewRevision = targetRev.Number
				changes = append(changes, change)
			}
		}
	}
	return changes, nil
}

// reported applies the report entries to build the source tree.
func (s *session) reported(req contract.DiffRequest) (snapshot, error) {
	snap := snapshot{nodes: map[string]*Node{}, revs: map[string]int64{}}
	anchor := s.abs(req.Target)
	for i, rp := range req.Report {
		for p := range snap.nodes {
			if contract.IsAncestorPath(rp.Path, p) {
				delete(snap.nodes, p)
				delete(snap.revs, p)
			}
		}
		if rp.Deleted {
			continue
		}
		rev, err := s.repo.revision(rp.Revision)
		if err != nil {
			return snap, err
		}
		depth := rp.Depth
		if depth == "" || depth == schema.DepthUnknown {
			depth = schema.DepthInfinity
		}
		if rp.StartEmpty {
			depth = schema.DepthEmpty
		}
		nodes := subtree(rev.tree, contract.JoinPath(anchor, rp.Path), depth)
		if i == 0 && len(nodes) == 0 {
			continue
		}
		for rel, n := range nodes {
			p := contract.JoinPath(rp.Path, rel)
			snap.nodes[p] = n
			snap.revs[p] = rev.Number
		}
	}
	return snap, nil
}

func (s *session) changePath(req contract.DiffRequest, p string) string {
	return contract.JoinPath(strings.Trim(req.Target, "/"), p)
}

func below(roots []string, p string) bool {
	for _, r := range roots {
		if r != p && contract.IsAncestorPath(r, p) {
			return true
		}
	}
	return false
}

func added(path string, n *Node, rev int64, text bool) schema.TreeChange {
	change := schema.TreeChange{
		Path:        path,
		Kind:        n.Kind,
		Action:      schema.ChangeAdded,
		OldRevision: schema.InvalidRevision,
		NewRevision: rev,
		PropChanges: propChanges(nil, n.Props),
	}
	if text && n.Kind == schema.FileKind {
		change.NewText = append([]byte{}, n.Content...)
	}
	return change
}

func modified(path string, old, n *Node, text bool) (schema.TreeChange, bool) {
	props := propChanges(old.Props, n.Props)
	contentChanged := n.Kind == schema.FileKind && !bytes.Equal(old.Content, n.Content)
	if !contentChanged && len(props) == 0 {
		return schema.TreeChange{}, false
	}
	change := schema.TreeChange{Path: path, Kind: n.Kind, Action: schema.ChangeModified, PropChanges: props}
	if text && contentChanged {
		change.OldText = append([]byte{}, old.Content...)
		change.NewText = append([]byte{}, n.Content...)
	}
	return change, true
}

func propChanges(old, current map[string]string) map[string]schema.PropChange {
	if maps.Equal(old, current) {
		return nil
	}
	changes := map[string]schema.PropChange{}
	for name, value := range current {
		if prev, ok := old[name]; ok && prev == value {
			continue
		}
		change := schema.PropChange{New: ptr(value)}
		if prev, ok := old[name]; ok {
			change.Old = ptr(prev)
		}
		changes[name] = change
	}
	for name, prev := range old {
		if _, ok := current[name]; !ok {
			changes[name] = schema.PropChange{Old: ptr(prev)}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

func ptr(s string) *string { return &s }
