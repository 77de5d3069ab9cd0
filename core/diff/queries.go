package diff

import (
	"context"
	"slices"
	"strings"

	"github.com/huangsam/svncoord/core/mergeinfo"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// MergeInfoReport is the answer to a merged or eligible revisions query.
type MergeInfoReport struct {
	Source    string              `json:"source"`
	Selection mergeinfo.Selection `json:"selection"`
	Log       []schema.LogEntry   `json:"log"`
}

// Merged reports the revisions of source already merged into target. An empty
// source selects the first suggested merge source.
func (d *Driver) Merged(ctx context.Context, target schema.Target, source string) (MergeInfoReport, error) {
	return d.queryMergeInfo(ctx, target, source, false)
}

// Eligible reports the revisions of source that have not been merged into target
// yet. An empty source selects the first suggested merge source.
func (d *Driver) Eligible(ctx context.Context, target schema.Target, source string) (MergeInfoReport, error) {
	return d.queryMergeInfo(ctx, target, source, true)
}

func (d *Driver) queryMergeInfo(ctx context.Context, target schema.Target, source string, eligible bool) (MergeInfoReport, error) {
	targetURL, targetMI, err := d.mergeTarget(ctx, target)
	if err != nil {
		return MergeInfoReport{}, err
	}
	if source == "" {
		sources, err := d.suggest(ctx, targetURL, targetMI)
		if err != nil {
			return MergeInfoReport{}, err
		}
		if len(sources) == 0 {
			return MergeInfoReport{}, contract.NewError(contract.NotFoundError, contract.CodeFSNotFound,
				"No merge source found for '%s'", target)
		}
		source = sources[0]
	}
	report := MergeInfoReport{Source: source}

	sourceHistory, err := d.history(ctx, source)
	if err != nil {
		return report, err
	}
	if eligible {
		targetHistory, err := d.history(ctx, targetURL)
		if err != nil {
			return report, err
		}
		report.Selection = mergeinfo.Eligible(targetMI, targetHistory, sourceHistory)
	} else {
		report.Selection = mergeinfo.Merged(targetMI, sourceHistory)
	}
	if report.Selection.IsEmpty() {
		return report, nil
	}

	report.Log, err = d.selectionLog(ctx, source, report.Selection)
	return report, err
}

// mergeTarget returns the URL of target and the merge-info recorded on it.
func (d *Driver) mergeTarget(ctx context.Context, target schema.Target) (string, mergeinfo.MergeInfo, error) {
	var url, text string
	if target.IsRemote() {
		url = strings.TrimSuffix(target.Remote, "/")
		transport, err := d.connector.Open(ctx, url)
		if err != nil {
			return "", nil, err
		}
		defer func() { _ = transport.Close() }()
		if !transport.HasCapability(contract.CapabilityMergeInfo) {
			return "", nil, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
				"Retrieval of mergeinfo unsupported by '%s'", url)
		}
		kind, err := transport.CheckPath(ctx, "", -1)
		if err != nil {
			return "", nil, err
		}
		var props map[string]string
		switch kind {
		case schema.FileKind:
			_, props, err = transport.GetFile(ctx, "", -1)
		case schema.DirKind:
			_, props, err = transport.GetDir(ctx, "", -1)
		default:
			err = contract.NewError(contract.NotFoundError, contract.CodeFSNotFound, "Path '%s' does not exist", url)
		}
		if err != nil {
			return "", nil, err
		}
		text = props[schema.MergeInfoProperty]
	} else {
		wc, err := d.openLocal(ctx, target.Local, false)
		if err != nil {
			return "", nil, err
		}
		defer func() { _ = wc.access.Close() }()
		entry, err := wc.access.Entry(wc.target)
		if err != nil {
			return "", nil, err
		}
		if entry.URL == "" {
			return "", nil, contract.NewError(contract.ValidationError, contract.CodeEntryMissingURL,
				"Entry '%s' has no URL", target.Local)
		}
		props, err := wc.access.Properties(wc.target)
		if err != nil {
			return "", nil, err
		}
		url, text = entry.URL, props[schema.MergeInfoProperty]
	}
	mi, err := mergeinfo.Parse(text)
	if err != nil {
		return "", nil, err
	}
	return url, mi, nil
}

// history returns the natural history of url at the latest revision as merge-info.
func (d *Driver) history(ctx context.Context, url string) (mergeinfo.MergeInfo, error) {
	segments, err := d.segments(ctx, url)
	if err != nil {
		return nil, err
	}
	return mergeinfo.FromHistory(segments), nil
}

func (d *Driver) segments(ctx context.Context, url string) ([]schema.LocationSegment, error) {
	transport, err := d.connector.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = transport.Close() }()
	return transport.LocationSegments(ctx, "", -1, -1, -1)
}

// selectionLog returns the log entries of the selected revisions, read from the
// path whose history reaches the youngest of them.
func (d *Driver) selectionLog(ctx context.Context, source string, sel mergeinfo.Selection) ([]schema.LogEntry, error) {
	transport, err := d.connector.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	info, err := transport.Info(ctx)
	_ = transport.Close()
	if err != nil {
		return nil, err
	}
	root, err := d.connector.Open(ctx, info.RootURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = root.Close() }()
	entries, err := root.Log(ctx, []string{strings.TrimPrefix(sel.LogTarget, "/")}, sel.Ranges.OldestStart()+1, sel.Youngest)
	if err != nil {
		return nil, err
	}
	return sel.FilterLog(entries), nil
}

// SuggestMergeSources lists the URLs target is likely to merge from: the source
// it was copied from, followed by every path its merge-info names.
func (d *Driver) SuggestMergeSources(ctx context.Context, target schema.Target) ([]string, error) {
	url, mi, err := d.mergeTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	return d.suggest(ctx, url, mi)
}

func (d *Driver) suggest(ctx context.Context, url string, mi mergeinfo.MergeInfo) ([]string, error) {
	segments, err := d.segments(ctx, url)
	if err != nil {
		return nil, err
	}
	transport, err := d.connector.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	info, err := transport.Info(ctx)
	_ = transport.Close()
	if err != nil {
		return nil, err
	}

	var sources []string
	if len(segments) > 0 {
		for _, seg := range segments[1:] {
			if seg.Path != "" && seg.Path != segments[0].Path {
				sources = append(sources, contract.AppendURL(info.RootURL, seg.Path))
				break
			}
		}
	}
	for _, path := range mi.Paths() {
		u := contract.AppendURL(info.RootURL, path)
		if !slices.Contains(sources, u) {
			sources = append(sources, u)
		}
	}
	return sources, nil
}
