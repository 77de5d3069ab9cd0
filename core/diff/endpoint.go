package diff

import (
	"context"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// localTarget is an access over a working-copy target. target is "" for a
// directory and the file name when the access is anchored at its parent.
type localTarget struct {
	access contract.WCAccess
	target string
}

// openLocal opens an access anchored at path, or at its parent when path is a file.
func (d *Driver) openLocal(ctx context.Context, path string, write bool) (localTarget, error) {
	if d.store == nil {
		return localTarget{}, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
			"No working copy is available for '%s'", path)
	}
	path = strings.TrimSuffix(path, "/")
	access, err := d.store.Open(ctx, path, write, -1)
	if err == nil {
		return localTarget{access: access}, nil
	}
	if contract.CodeOf(err) != contract.CodeIllegalTarget {
		return localTarget{}, err
	}

	access, err = d.store.Open(ctx, contract.PathRemoveTail(path), write, -1)
	if err != nil {
		return localTarget{}, err
	}
	target := contract.PathTail(path)
	if _, err := access.Entry(target); err != nil {
		_ = access.Close()
		return localTarget{}, err
	}
	return localTarget{access: access, target: target}, nil
}

// localEntry returns the entry of a working-copy path.
func (d *Driver) localEntry(ctx context.Context, path string) (*schema.Entry, error) {
	wc, err := d.openLocal(ctx, path, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wc.access.Close() }()
	return wc.access.Entry(wc.target)
}

// resolveRemote returns the URL and revision number an endpoint names in the
// repository. A negative revision means the latest one.
func (d *Driver) resolveRemote(ctx context.Context, ep schema.Endpoint) (string, int64, error) {
	var url string
	var entry *schema.Entry
	if ep.Target.IsRemote() {
		url = strings.TrimSuffix(ep.Target.Remote, "/")
	} else {
		var err error
		if entry, err = d.localEntry(ctx, ep.Target.Local); err != nil {
			return "", 0, err
		}
		if entry.URL == "" {
			return "", 0, contract.NewError(contract.ValidationError, contract.CodeEntryMissingURL,
				"Entry '%s' has no URL", ep.Target.Local)
		}
		url = entry.URL
	}

	rev, err := revisionNumber(ep.Revision, entry, url)
	if err != nil {
		return "", 0, err
	}
	if !ep.Peg.IsValid() {
		return url, rev, nil
	}
	peg, err := revisionNumber(ep.Peg, entry, url)
	if err != nil {
		return "", 0, err
	}
	return d.locate(ctx, url, peg, rev)
}

// revisionNumber resolves a revision against the entry of a local target.
// Without an entry only numbers and HEAD can be resolved.
func revisionNumber(rev schema.Revision, entry *schema.Entry, target string) (int64, error) {
	switch rev.Keyword {
	case schema.RevisionNumber:
		return rev.Number, nil
	case schema.RevisionHead, schema.RevisionUnspecified:
		return schema.InvalidRevision, nil
	}
	if entry == nil {
		return 0, contract.NewError(contract.ValidationError, contract.CodeBadRevision,
			"Revision type requires a working copy path, not a URL ('%s')", target)
	}
	if rev.Keyword == schema.RevisionPrevious {
		return entry.Revision - 1, nil
	}
	return entry.Revision, nil
}

// locate follows the history of url as it existed at peg back to rev.
func (d *Driver) locate(ctx context.Context, url string, peg, rev int64) (string, int64, error) {
	transport, err := d.connector.Open(ctx, url)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = transport.Close() }()
	if peg < 0 {
		if peg, err = transport.LatestRevision(ctx); err != nil {
			return "", 0, err
		}
	}
	if rev < 0 {
		rev = peg
	}
	segments, err := transport.LocationSegments(ctx, "", peg, rev, rev)
	if err != nil {
		return "", 0, err
	}
	if len(segments) == 0 || segments[0].Path == "" {
		return "", 0, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
			"Unable to find repository location for '%s' in revision %d", url, rev)
	}
	info, err := transport.Info(ctx)
	if err != nil {
		return "", 0, err
	}
	return contract.AppendURL(info.RootURL, segments[0].Path), rev, nil
}

// repositoryPath returns the path of url below the repository root, with a leading slash.
func repositoryPath(url, rootURL string) (string, error) {
	url, rootURL = strings.TrimSuffix(url, "/"), strings.TrimSuffix(rootURL, "/")
	if url != rootURL && !strings.HasPrefix(url, rootURL+"/") {
		return "", contract.NewError(contract.ValidationError, contract.CodeBadURL,
			"URL '%s' is not a child of repository root URL '%s'", url, rootURL)
	}
	rootPath, err := contract.URLPath(rootURL)
	if err != nil {
		return "", err
	}
	p, err := contract.URLPath(url)
	if err != nil {
		return "", err
	}
	rel := contract.RelativePath(strings.TrimSuffix(rootPath, "/"), p)
	return "/" + strings.Trim(rel, "/"), nil
}
