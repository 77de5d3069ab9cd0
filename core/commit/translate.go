package commit

import (
	"net/url"
	"sort"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Commitables maps commit paths, relative to the base URL, to their items.
type Commitables map[string]schema.CommitItem

// Paths returns the commit paths in tree order.
func (c Commitables) Paths() []string {
	paths := make([]string, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	contract.SortPaths(paths)
	return paths
}

// TranslateCommitables computes the base URL of a commit and the path of every item
// relative to it. The base steps up one level when it is itself a file or a
// directory that is added, deleted, copied or locked.
func TranslateCommitables(items []schema.CommitItem) (string, Commitables, error) {
	if len(items) == 0 {
		return "", nil, contract.NewError(contract.ValidationError, contract.CodeBadURL, "Cannot compute base URL for commit operation")
	}
	byURL := make(map[string]schema.CommitItem, len(items))
	urls := make([]string, 0, len(items))
	for _, item := range items {
		u := strings.TrimSuffix(item.URL, "/")
		if old, ok := byURL[u]; ok {
			return "", nil, contract.NewError(contract.ValidationError, contract.CodeDuplicateCommitURL,
				"Cannot commit both '%s' and '%s' as they refer to the same URL", item.LocalPath, old.LocalPath)
		}
		byURL[u] = item
		urls = append(urls, u)
	}
	sort.Strings(urls)

	base := urls[0]
	for _, u := range urls[1:] {
		base = contract.CommonURLAncestor(base, u)
		if base == "" {
			return "", nil, contract.NewError(contract.ValidationError, contract.CodeBadURL, "Cannot compute base URL for commit operation")
		}
	}
	if root, ok := byURL[base]; ok && (root.Kind != schema.DirKind || root.HasStructuralChange() || root.Locked) {
		base = contract.RemoveURLTail(base)
	}

	basePath, err := contract.URLPath(base)
	if err != nil {
		return "", nil, err
	}
	basePath = strings.TrimSuffix(basePath, "/")
	commitables := make(Commitables, len(items))
	for u, item := range byURL {
		p, err := contract.URLPath(u)
		if err != nil {
			return "", nil, err
		}
		commitables[strings.Trim(contract.RelativePath(basePath, strings.TrimSuffix(p, "/")), "/")] = item
	}
	return base, commitables, nil
}

// TranslateLockTokens rewrites URL-keyed lock tokens into decoded paths relative to
// baseURL. Tokens outside baseURL are dropped.
func TranslateLockTokens(tokens map[string]string, baseURL string) map[string]string {
	out := make(map[string]string, len(tokens))
	for u, token := range tokens {
		var rel string
		switch {
		case u == baseURL:
			rel = ""
		case strings.HasPrefix(u, baseURL+"/"):
			rel = u[len(baseURL)+1:]
		default:
			continue
		}
		if decoded, err := url.PathUnescape(rel); err == nil {
			rel = decoded
		}
		out[rel] = token
	}
	return out
}

// ValidateMessage normalizes line endings of a log message to LF.
func ValidateMessage(message string) string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	return strings.ReplaceAll(message, "\r", "\n")
}

// ValidateRevProps rejects revision properties the repository reserves for itself.
func ValidateRevProps(props map[string]string) error {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasPrefix(name, "svn:") {
			return contract.NewError(contract.ValidationError, contract.CodePropertyName,
				"Standard properties can't be set explicitly as revision properties ('%s')", name)
		}
		if name == "" || strings.ContainsAny(name, " \t\r\n") {
			return contract.NewError(contract.ValidationError, contract.CodePropertyName,
				"Bad property name: '%s'", name)
		}
	}
	return nil
}
