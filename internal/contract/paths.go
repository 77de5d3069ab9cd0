package contract

import (
	"net/url"
	"sort"
	"strings"
)

// ComparePaths orders slash-separated paths so that a directory sorts before every
// path below it and siblings sort by name.
func ComparePaths(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return -1
		}
		if cb == '/' {
			return 1
		}
		if ca < cb {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// SortPaths sorts paths in place with ComparePaths.
func SortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool { return ComparePaths(paths[i], paths[j]) < 0 })
}

// JoinPath appends child to parent, treating "" as the empty path.
func JoinPath(parent, child string) string {
	parent = strings.TrimSuffix(parent, "/")
	child = strings.TrimPrefix(child, "/")
	switch {
	case child == "":
		return parent
	case parent == "":
		return child
	default:
		return parent + "/" + child
	}
}

// PathTail returns the last component of p.
func PathTail(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// PathRemoveTail returns p without its last component.
func PathRemoveTail(p string) string {
	p = strings.TrimSuffix(p, "/")
	i := strings.LastIndexByte(p, '/')
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	default:
		return p[:i]
	}
}

// IsAncestorPath reports whether parent is child or one of its ancestors.
func IsAncestorPath(parent, child string) bool {
	if parent == "" || parent == child {
		return true
	}
	if parent == "/" {
		return strings.HasPrefix(child, "/")
	}
	return strings.HasPrefix(child, parent+"/")
}

// RelativePath returns child relative to parent, or child itself when parent is
// not an ancestor.
func RelativePath(parent, child string) string {
	if parent == child {
		return ""
	}
	if !IsAncestorPath(parent, child) {
		return child
	}
	if parent == "" {
		return child
	}
	if parent == "/" {
		return strings.TrimPrefix(child, "/")
	}
	return child[len(parent)+1:]
}

// CommonAncestor returns the longest common directory of two paths.
func CommonAncestor(a, b string) string {
	if a == b {
		return a
	}
	pa := strings.Split(a, "/")
	pb := strings.Split(b, "/")
	n := 0
	for n < len(pa) && n < len(pb) && pa[n] == pb[n] {
		n++
	}
	common := strings.Join(pa[:n], "/")
	if common == "" && strings.HasPrefix(a, "/") && strings.HasPrefix(b, "/") {
		return "/"
	}
	return common
}

// CondensePaths returns the common ancestor of paths and each path relative to it,
// with duplicates removed. When removeRedundant is set, paths below another
// listed path are dropped.
func CondensePaths(paths []string, removeRedundant bool) (string, []string) {
	if len(paths) == 0 {
		return "", nil
	}
	common := paths[0]
	for _, p := range paths[1:] {
		common = CommonAncestor(common, p)
	}
	seen := make(map[string]struct{}, len(paths))
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r := RelativePath(common, p)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		rel = append(rel, r)
	}
	if removeRedundant {
		SortPaths(rel)
		kept := rel[:0]
		for _, r := range rel {
			redundant := false
			for _, k := range kept {
				if k == "" || IsAncestorPath(k, r) {
					redundant = true
					break
				}
			}
			if !redundant {
				kept = append(kept, r)
			}
		}
		rel = kept
	}
	return common, rel
}

// URLPath returns the decoded path component of a repository URL.
func URLPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewError(ValidationError, CodeBadURL, "Malformed URL '%s'", rawURL)
	}
	return u.Path, nil
}

// AppendURL appends a decoded path to a repository URL, escaping it.
func AppendURL(base, p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return strings.TrimSuffix(base, "/")
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.Join(parts, "/")
}

// RemoveURLTail returns the URL of the parent of rawURL.
func RemoveURLTail(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}
	u.Path = PathRemoveTail(u.Path)
	u.RawPath = ""
	return strings.TrimSuffix(u.String(), "/")
}

// URLConnectionKey identifies the endpoint of a repository URL as
// protocol:host:port:userinfo, filling in the protocol's default port.
func URLConnectionKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "", NewError(ValidationError, CodeBadURL, "Malformed URL '%s'", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	user := ""
	if u.User != nil {
		user = u.User.String()
	}
	return u.Scheme + ":" + u.Hostname() + ":" + port + ":" + user, nil
}

var defaultPorts = map[string]string{
	"http":      "80",
	"https":     "443",
	"svn":       "3690",
	"svn+ssh":   "22",
	"file":      "0",
	"sandbox":   "0",
	"memory":    "0",
	"svn+https": "443",
}

// CommonURLAncestor returns the deepest URL that is an ancestor of both, or ""
// when they do not share an endpoint.
func CommonURLAncestor(a, b string) string {
	ka, errA := URLConnectionKey(a)
	kb, errB := URLConnectionKey(b)
	if errA != nil || errB != nil || ka != kb {
		return ""
	}
	ua, _ := url.Parse(a)
	ub, _ := url.Parse(b)
	common := CommonAncestor(strings.TrimSuffix(ua.Path, "/"), strings.TrimSuffix(ub.Path, "/"))
	if common == "" {
		common = "/"
	}
	ua.Path = common
	ua.RawPath = ""
	ua.RawQuery = ""
	ua.Fragment = ""
	return strings.TrimSuffix(ua.String(), "/")
}

// CondenseURLs returns the common ancestor URL of urls and the decoded path of each
// URL relative to it.
func CondenseURLs(urls []string) (string, []string, error) {
	if len(urls) == 0 {
		return "", nil, nil
	}
	root := strings.TrimSuffix(urls[0], "/")
	for _, u := range urls[1:] {
		root = CommonURLAncestor(root, u)
		if root == "" {
			return "", nil, NewError(ValidationError, CodeIllegalTarget, "Can not compute common root URL")
		}
	}
	rootPath, err := URLPath(root)
	if err != nil {
		return "", nil, err
	}
	rel := make([]string, 0, len(urls))
	seen := map[string]struct{}{}
	for _, u := range urls {
		p, err := URLPath(u)
		if err != nil {
			return "", nil, err
		}
		var r string
		if rootPath == "/" || rootPath == "" {
			r = strings.Trim(p, "/")
		} else {
			r = RelativePath(strings.TrimSuffix(rootPath, "/"), strings.TrimSuffix(p, "/"))
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		rel = append(rel, r)
	}
	return root, rel, nil
}
