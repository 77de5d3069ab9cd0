package sandbox

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// wcNode is the administrative and working state of one versioned path.
type wcNode struct {
	entry     schema.Entry // Path is relative to the working-copy root
	working   []byte
	base      []byte
	props     map[string]string
	baseProps map[string]string
	wcProps   map[string]string
}

func (n *wcNode) onDisk() bool {
	return !n.entry.Missing && n.entry.Schedule != schema.ScheduleDelete && !n.entry.Deleted
}

// writeLock is an area of a working copy locked by an open access.
type writeLock struct {
	id    int
	path  string
	depth int
}

func (l writeLock) covers(path string) bool {
	if !contract.IsAncestorPath(l.path, path) {
		return false
	}
	if l.depth < 0 {
		return true
	}
	rel := contract.RelativePath(l.path, path)
	if rel == "" {
		return true
	}
	return strings.Count(rel, "/")+1 <= l.depth
}

// WorkingCopy is an in-memory checkout of a repository directory.
type WorkingCopy struct {
	mu     sync.Mutex
	root   string
	nodes  map[string]*wcNode
	locks  []writeLock
	nextID int
}

// Root returns the local path of the working copy.
func (wc *WorkingCopy) Root() string { return wc.root }

// key converts a local path into a working-copy-relative key.
func (wc *WorkingCopy) key(local string) (string, error) {
	local = strings.TrimSuffix(local, "/")
	if !contract.IsAncestorPath(wc.root, local) {
		return "", contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound,
			"'%s' is not a working copy", local)
	}
	return contract.RelativePath(wc.root, local), nil
}

func (wc *WorkingCopy) node(key string) (*wcNode, error) {
	n, ok := wc.nodes[key]
	if !ok {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound,
			"'%s' is not under version control", contract.JoinPath(wc.root, key))
	}
	return n, nil
}

func (wc *WorkingCopy) children(key string) []*wcNode {
	var out []*wcNode
	for k, n := range wc.nodes {
		if k != "" && k != key && contract.PathRemoveTail(k) == key {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return contract.ComparePaths(out[i].entry.Path, out[j].entry.Path) < 0 })
	return out
}

func (wc *WorkingCopy) subtreeKeys(key string) []string {
	var keys []string
	for k := range wc.nodes {
		if contract.IsAncestorPath(key, k) {
			keys = append(keys, k)
		}
	}
	contract.SortPaths(keys)
	return keys
}

// lock reserves an area for a write access.
func (wc *WorkingCopy) lock(key string, depth int) (int, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	candidate := writeLock{path: key, depth: depth}
	for _, l := range wc.locks {
		if l.covers(key) || candidate.covers(l.path) {
			return 0, contract.NewError(contract.LockError, contract.CodeWCLocked,
				"Working copy '%s' locked", contract.JoinPath(wc.root, l.path))
		}
	}
	wc.nextID++
	candidate.id = wc.nextID
	wc.locks = append(wc.locks, candidate)
	return candidate.id, nil
}

func (wc *WorkingCopy) unlock(id int) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	for i, l := range wc.locks {
		if l.id == id {
			wc.locks = append(wc.locks[:i], wc.locks[i+1:]...)
			return
		}
	}
}

// Locked reports whether any write access is still open.
func (wc *WorkingCopy) Locked() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.locks) > 0
}

// Entry returns a copy of the entry at a working-copy-relative path.
func (wc *WorkingCopy) Entry(path string) (schema.Entry, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	n, err := wc.node(strings.Trim(path, "/"))
	if err != nil {
		return schema.Entry{}, err
	}
	return n.entry, nil
}

// Write replaces the working text of a file.
func (wc *WorkingCopy) Write(path, content string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	n, err := wc.node(strings.Trim(path, "/"))
	if err != nil {
		return err
	}
	if n.entry.Kind != schema.FileKind {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "'%s' is not a file", path)
	}
	n.working = []byte(content)
	n.entry.Missing = false
	return nil
}

// Read returns the working text of a file.
func (wc *WorkingCopy) Read(path string) (string, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	n, err := wc.node(strings.Trim(path, "/"))
	if err != nil {
		return "", err
	}
	return string(n.working), nil
}

// Add schedules a new file or directory for addition. content is ignored for
// directories.
func (wc *WorkingCopy) Add(path string, kind schema.NodeKind, content string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	key := strings.Trim(path, "/")
	parent, err := wc.node(contract.PathRemoveTail(key))
	if err != nil {
		return err
	}
	if parent.entry.Kind != schema.DirKind {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "'%s' is not a directory", parent.entry.Path)
	}
	schedule := schema.ScheduleAdd
	if existing, ok := wc.nodes[key]; ok {
		if existing.entry.Schedule != schema.ScheduleDelete {
			return contract.NewError(contract.ValidationError, contract.CodeFSAlreadyExists, "'%s' is already under version control", path)
		}
		schedule = schema.ScheduleReplace
	}
	n := &wcNode{
		entry: schema.Entry{
			Path:           key,
			Kind:           kind,
			URL:            contract.AppendURL(parent.entry.URL, contract.PathTail(key)),
			Revision:       0,
			Schedule:       schedule,
			RepositoryUUID: parent.entry.RepositoryUUID,
			RepositoryRoot: parent.entry.RepositoryRoot,
		},
		props:     map[string]string{},
		baseProps: map[string]string{},
	}
	if schedule == schema.ScheduleReplace {
		old := wc.nodes[key]
		n.entry.Revision = old.entry.Revision
		n.base = old.base
		n.baseProps = old.baseProps
	}
	if kind == schema.DirKind {
		n.entry.Depth = schema.DepthInfinity
	} else {
		n.working = []byte(content)
	}
	wc.nodes[key] = n
	return nil
}

// Remove schedules a versioned path and everything below it for deletion. Paths
// that were only scheduled for addition are forgotten.
func (wc *WorkingCopy) Remove(path string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	key := strings.Trim(path, "/")
	n, err := wc.node(key)
	if err != nil {
		return err
	}
	if key == "" {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "Cannot remove the working copy root")
	}
	added := n.entry.Schedule == schema.ScheduleAdd
	for _, k := range wc.subtreeKeys(key) {
		if added {
			delete(wc.nodes, k)
			continue
		}
		c := wc.nodes[k]
		if c.entry.Schedule == schema.ScheduleAdd {
			delete(wc.nodes, k)
			continue
		}
		c.entry.Schedule = schema.ScheduleDelete
	}
	return nil
}

// Copy schedules dst as a copy of the versioned path src at its base revision.
func (wc *WorkingCopy) Copy(src, dst string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	srcKey, dstKey := strings.Trim(src, "/"), strings.Trim(dst, "/")
	from, err := wc.node(srcKey)
	if err != nil {
		return err
	}
	parent, err := wc.node(contract.PathRemoveTail(dstKey))
	if err != nil {
		return err
	}
	if _, ok := wc.nodes[dstKey]; ok {
		return contract.NewError(contract.ValidationError, contract.CodeFSAlreadyExists, "'%s' is already under version control", dst)
	}
	if from.entry.URL == "" || from.entry.Schedule == schema.ScheduleAdd {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget, "'%s' has no URL to copy from", src)
	}
	dstURL := contract.AppendURL(parent.entry.URL, contract.PathTail(dstKey))
	for _, k := range wc.subtreeKeys(srcKey) {
		s := wc.nodes[k]
		rel := contract.RelativePath(srcKey, k)
		c := &wcNode{
			entry:     s.entry,
			working:   append([]byte(nil), s.working...),
			base:      append([]byte(nil), s.base...),
			props:     maps.Clone(s.props),
			baseProps: maps.Clone(s.baseProps),
		}
		c.entry.Path = contract.JoinPath(dstKey, rel)
		c.entry.URL = contract.AppendURL(dstURL, rel)
		c.entry.Copied = true
		c.entry.LockToken = ""
		c.entry.Schedule = schema.ScheduleNormal
		c.entry.CopyFromURL = ""
		c.entry.CopyFromRevision = 0
		if rel == "" {
			c.entry.Schedule = schema.ScheduleAdd
			c.entry.CopyFromURL = s.entry.URL
			c.entry.CopyFromRevision = s.entry.Revision
		}
		wc.nodes[c.entry.Path] = c
	}
	return nil
}

// SetProperty sets or, with a nil value, deletes a working property.
func (wc *WorkingCopy) SetProperty(path, name string, value *string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	n, err := wc.node(strings.Trim(path, "/"))
	if err != nil {
		return err
	}
	setProp(n.props, name, value)
	return nil
}

// Vanish removes a path from disk while keeping its entry.
func (wc *WorkingCopy) Vanish(path string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	key := strings.Trim(path, "/")
	if _, err := wc.node(key); err != nil {
		return err
	}
	for _, k := range wc.subtreeKeys(key) {
		wc.nodes[k].entry.Missing = true
	}
	return nil
}

// Update changes entry flags that have no operator command, such as conflicts.
func (wc *WorkingCopy) Update(path string, fn func(*schema.Entry)) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	n, err := wc.node(strings.Trim(path, "/"))
	if err != nil {
		return err
	}
	fn(&n.entry)
	n.entry.Path = strings.Trim(path, "/")
	return nil
}

// Status lists the locally changed paths, one "XY path" line each, where X is the
// schedule or text status and Y the property status.
func (wc *WorkingCopy) Status() []string {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	keys := wc.subtreeKeys("")
	var lines []string
	for _, k := range keys {
		n := wc.nodes[k]
		text, prop := ' ', ' '
		switch {
		case n.entry.Schedule == schema.ScheduleAdd:
			text = 'A'
		case n.entry.Schedule == schema.ScheduleDelete:
			text = 'D'
		case n.entry.Schedule == schema.ScheduleReplace:
			text = 'R'
		case n.entry.Missing:
			text = '!'
		case n.entry.TextConflict || n.entry.TreeConflict:
			text = 'C'
		case n.entry.Kind == schema.FileKind && !bytes.Equal(n.working, n.base):
			text = 'M'
		}
		if !maps.Equal(n.props, n.baseProps) && n.entry.Schedule != schema.ScheduleDelete {
			prop = 'M'
		}
		if text == ' ' && prop == ' ' && n.entry.LockToken == "" {
			continue
		}
		lock := ' '
		if n.entry.LockToken != "" {
			lock = 'K'
		}
		lines = append(lines, fmt.Sprintf("%c%c%c %s", text, prop, lock, contract.JoinPath(wc.root, k)))
	}
	return lines
}

func setProp(props map[string]string, name string, value *string) {
	if value == nil {
		delete(props, name)
		return
	}
	props[name] = *value
}

// access is a WCAccess anchored at one directory of a working copy.
type access struct {
	wc     *WorkingCopy
	anchor string
	key    string
	write  bool
	lockID int
	closed bool
}

var _ contract.WCAccess = &access{} // Compile-time check

func (a *access) Anchor() string { return a.anchor }

func (a *access) keyOf(path string) string {
	return contract.JoinPath(a.key, strings.Trim(path, "/"))
}

func (a *access) entryOf(n *wcNode) *schema.Entry {
	e := n.entry
	e.Path = contract.RelativePath(a.key, n.entry.Path)
	return &e
}

func (a *access) lookup(path string) (*wcNode, error) {
	if a.closed {
		return nil, contract.NewError(contract.FailureError, "", "Working copy access for '%s' is closed", a.anchor)
	}
	return a.wc.node(a.keyOf(path))
}

func (a *access) requireWrite(path string) error {
	if !a.write {
		return contract.NewError(contract.LockError, contract.CodeWCNotLocked, "No write-lock in '%s'", contract.JoinPath(a.anchor, path))
	}
	return nil
}

func (a *access) Entry(path string) (*schema.Entry, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	return a.entryOf(n), nil
}

func (a *access) Children(path string) ([]*schema.Entry, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	var out []*schema.Entry
	for _, c := range a.wc.children(n.entry.Path) {
		out = append(out, a.entryOf(c))
	}
	return out, nil
}

func (a *access) IsWCRoot(path string) bool {
	return a.keyOf(path) == ""
}

func (a *access) Exists(path string) bool {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	return err == nil && n.onDisk()
}

func (a *access) Properties(path string) (map[string]string, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	return maps.Clone(n.props), nil
}

func (a *access) BaseProperties(path string) (map[string]string, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	return maps.Clone(n.baseProps), nil
}

func (a *access) SetProperty(path string, name string, value *string) error {
	if err := a.requireWrite(path); err != nil {
		return err
	}
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return err
	}
	setProp(n.props, name, value)
	return nil
}

func (a *access) HasTextModifications(path string, forceCompare bool) (bool, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(n.working, n.base), nil
}

func (a *access) OpenWorking(path string) (io.ReadCloser, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	if !n.onDisk() {
		return nil, contract.NewError(contract.NotFoundError, contract.CodeWCPathNotFound, "'%s' is missing", contract.JoinPath(a.anchor, path))
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), n.working...))), nil
}

func (a *access) OpenBase(path string) (io.ReadCloser, error) {
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), n.base...))), nil
}

func (a *access) PostCommit(path string, update schema.PostCommitUpdate) error {
	if err := a.requireWrite(path); err != nil {
		return err
	}
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	n, err := a.lookup(path)
	if err != nil {
		return err
	}
	keys := []string{n.entry.Path}
	if update.Recurse {
		keys = a.wc.subtreeKeys(n.entry.Path)
	}
	for _, k := range keys {
		c, ok := a.wc.nodes[k]
		if !ok {
			continue
		}
		if c.entry.Schedule == schema.ScheduleDelete || (c.entry.Deleted && c.entry.Schedule == schema.ScheduleNormal) || (c.entry.Missing && k == n.entry.Path) {
			for _, d := range a.wc.subtreeKeys(k) {
				delete(a.wc.nodes, d)
			}
			continue
		}
		c.entry.Revision = update.NewRevision
		c.entry.Schedule = schema.ScheduleNormal
		c.entry.Copied = false
		c.entry.CopyFromURL = ""
		c.entry.CopyFromRevision = 0
		c.entry.Deleted = false
		c.base = append([]byte(nil), c.working...)
		c.baseProps = maps.Clone(c.props)
		if update.RemoveLock {
			c.entry.LockToken = ""
		}
		if len(update.WCPropChanges) > 0 {
			if c.wcProps == nil {
				c.wcProps = map[string]string{}
			}
			maps.Copy(c.wcProps, update.WCPropChanges)
		}
	}
	return nil
}

func (a *access) ApplyChange(change schema.TreeChange) error {
	if err := a.requireWrite(change.Path); err != nil {
		return err
	}
	a.wc.mu.Lock()
	defer a.wc.mu.Unlock()
	if a.closed {
		return contract.NewError(contract.FailureError, "", "Working copy access for '%s' is closed", a.anchor)
	}
	key := a.keyOf(change.Path)
	switch change.Action {
	case schema.ChangeDeleted:
		return a.applyDelete(key)
	case schema.ChangeAdded:
		return a.applyAdd(key, change)
	case schema.ChangeReplaced:
		if err := a.applyDelete(key); err != nil {
			return err
		}
		return a.applyAdd(key, change)
	default:
		n, err := a.wc.node(key)
		if err != nil {
			return err
		}
		if change.NewText != nil {
			n.working = append([]byte(nil), change.NewText...)
		}
		for name, pc := range change.PropChanges {
			setProp(n.props, name, pc.New)
		}
		return nil
	}
}

func (a *access) applyDelete(key string) error {
	n, err := a.wc.node(key)
	if err != nil {
		return err
	}
	added := n.entry.Schedule == schema.ScheduleAdd
	for _, k := range a.wc.subtreeKeys(key) {
		c := a.wc.nodes[k]
		if added || c.entry.Schedule == schema.ScheduleAdd {
			delete(a.wc.nodes, k)
			continue
		}
		c.entry.Schedule = schema.ScheduleDelete
	}
	return nil
}

func (a *access) applyAdd(key string, change schema.TreeChange) error {
	parent, err := a.wc.node(contract.PathRemoveTail(key))
	if err != nil {
		return err
	}
	schedule := schema.ScheduleAdd
	var old *wcNode
	if existing, ok := a.wc.nodes[key]; ok {
		if existing.entry.Schedule != schema.ScheduleDelete {
			return contract.NewError(contract.ValidationError, contract.CodeFSAlreadyExists,
				"'%s' is already under version control", contract.JoinPath(a.wc.root, key))
		}
		schedule, old = schema.ScheduleReplace, existing
	}
	n := &wcNode{
		entry: schema.Entry{
			Path:           key,
			Kind:           change.Kind,
			URL:            contract.AppendURL(parent.entry.URL, contract.PathTail(key)),
			Schedule:       schedule,
			RepositoryUUID: parent.entry.RepositoryUUID,
			RepositoryRoot: parent.entry.RepositoryRoot,
		},
		working:   append([]byte(nil), change.NewText...),
		props:     map[string]string{},
		baseProps: map[string]string{},
	}
	if old != nil {
		n.entry.Revision = old.entry.Revision
		n.base = old.base
		n.baseProps = old.baseProps
	}
	if change.Kind == schema.DirKind {
		n.entry.Depth = schema.DepthInfinity
	}
	for name, pc := range change.PropChanges {
		setProp(n.props, name, pc.New)
	}
	a.wc.nodes[key] = n
	return nil
}

func (a *access) Close() error {
	if a.closed {
		return contract.NewError(contract.FailureError, "", "Working copy access for '%s' is already closed", a.anchor)
	}
	a.closed = true
	if a.write {
		a.wc.unlock(a.lockID)
	}
	return nil
}
