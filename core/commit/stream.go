package commit

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/huangsam/svncoord/core/harvest"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// stream turns the commitables of one packet into editor calls.
type stream struct {
	packet      *harvest.Packet
	commitables Commitables
	txnID       string
	temps       *tempFiles
	dispatch    func(ctx context.Context, event schema.Event)

	deltas map[string]schema.CommitItem
}

func newStream(packet *harvest.Packet, commitables Commitables, txnID string, temps *tempFiles,
	dispatch func(context.Context, schema.Event),
) *stream {
	return &stream{
		packet:      packet,
		commitables: commitables,
		txnID:       txnID,
		temps:       temps,
		dispatch:    dispatch,
		deltas:      map[string]schema.CommitItem{},
	}
}

// handle is the PathHandler for one commit path.
func (s *stream) handle(ctx context.Context, path string, editor contract.Editor) (bool, error) {
	item, ok := s.commitables[path]
	if !ok {
		return false, contract.NewError(contract.FailureError, "", "No commit item for '%s'", path)
	}
	s.notify(ctx, item)

	if path == "" {
		if err := editor.OpenRoot(ctx, item.Revision); err != nil {
			return false, err
		}
		if item.PropertiesModified {
			if err := s.sendProperties(ctx, item, editor, path); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	closeDir, fileOpen := false, false
	if item.Deleted {
		if err := editor.DeleteEntry(ctx, path, item.Revision); err != nil {
			return false, err
		}
	}
	if item.Added {
		copyFromURL, copyFromRev := "", schema.InvalidRevision
		if item.CopyFromURL != "" {
			copyFromURL, copyFromRev = item.CopyFromURL, item.CopyFromRevision
		}
		if item.Kind == schema.FileKind {
			if err := editor.AddFile(ctx, path, copyFromURL, copyFromRev); err != nil {
				return false, err
			}
			fileOpen = true
		} else {
			if err := editor.AddDir(ctx, path, copyFromURL, copyFromRev); err != nil {
				return false, err
			}
			closeDir = true
		}
	}
	if item.PropertiesModified {
		switch {
		case item.Kind == schema.FileKind && !fileOpen:
			if err := editor.OpenFile(ctx, path, item.Revision); err != nil {
				return false, err
			}
			fileOpen = true
		case item.Kind == schema.DirKind && !item.Added:
			if err := editor.OpenDir(ctx, path, item.Revision); err != nil {
				return false, err
			}
			closeDir = true
		}
		if err := s.sendProperties(ctx, item, editor, path); err != nil {
			return false, err
		}
	}

	if item.Kind == schema.FileKind && item.ContentsModified {
		if !fileOpen {
			if err := editor.OpenFile(ctx, path, item.Revision); err != nil {
				return false, err
			}
		}
		s.deltas[path] = item
	} else if fileOpen {
		if err := editor.CloseFile(ctx, path, ""); err != nil {
			return false, err
		}
	}
	return closeDir, nil
}

func (s *stream) notify(ctx context.Context, item schema.CommitItem) {
	var action schema.EventAction
	switch {
	case item.Added && item.Deleted:
		action = schema.EventCommitReplaced
	case item.Added:
		action = schema.EventCommitAdded
	case item.Deleted:
		action = schema.EventCommitDeleted
	case item.ContentsModified || item.PropertiesModified:
		action = schema.EventCommitModified
	default:
		return
	}
	s.dispatch(ctx, schema.Event{Action: action, Path: item.LocalPath, Kind: item.Kind, TxnID: s.txnID})
}

func (s *stream) sendProperties(ctx context.Context, item schema.CommitItem, editor contract.Editor, path string) error {
	access, rel, ok := s.packet.AccessFor(item.LocalPath)
	if !ok {
		return contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound, "'%s' is not under version control", item.LocalPath)
	}
	working, err := access.Properties(rel)
	if err != nil {
		return err
	}
	var base map[string]string
	if !item.Added || item.Copied {
		if base, err = access.BaseProperties(rel); err != nil {
			return err
		}
	}
	changes := harvest.PropDiff(base, working)
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		value := changes[name].New
		if item.Kind == schema.FileKind {
			err = editor.ChangeFileProperty(ctx, path, name, value)
		} else {
			err = editor.ChangeDirProperty(ctx, name, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sendTextDeltas streams the contents of every modified file after the tree walk.
func (s *stream) sendTextDeltas(ctx context.Context, editor contract.Editor) error {
	paths := make([]string, 0, len(s.deltas))
	for p := range s.deltas {
		paths = append(paths, p)
	}
	contract.SortPaths(paths)
	for _, path := range paths {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		if err := s.sendText(ctx, editor, path, s.deltas[path]); err != nil {
			return err
		}
		s.dispatch(ctx, schema.Event{Action: schema.EventCommitDelta, Path: s.deltas[path].LocalPath, Kind: schema.FileKind, TxnID: s.txnID})
	}
	return nil
}

func (s *stream) sendText(ctx context.Context, editor contract.Editor, path string, item schema.CommitItem) error {
	access, rel, ok := s.packet.AccessFor(item.LocalPath)
	if !ok {
		return contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound, "'%s' is not under version control", item.LocalPath)
	}

	baseChecksum := ""
	if !item.Added || item.Copied {
		base, err := access.OpenBase(rel)
		if err != nil {
			return err
		}
		r, sum := contract.ChecksumReader(base)
		_, err = io.Copy(io.Discard, r)
		_ = base.Close()
		if err != nil {
			return contract.WrapError(err, "Cannot read text base of '%s'", item.LocalPath)
		}
		baseChecksum = sum()
	}

	props, err := access.Properties(rel)
	if err != nil {
		return err
	}
	text, err := s.openText(access, rel, props)
	if err != nil {
		return err
	}
	defer func() { _ = text.Close() }()

	r, sum := contract.ChecksumReader(text)
	if err := editor.ApplyText(ctx, path, baseChecksum, r); err != nil {
		return err
	}
	return editor.CloseFile(ctx, path, sum())
}

// openText returns the working text in repository-normal form. Texts that need a
// translation go through a temp file.
func (s *stream) openText(access contract.WCAccess, rel string, props map[string]string) (io.ReadCloser, error) {
	working, err := access.OpenWorking(rel)
	if err != nil {
		return nil, err
	}
	if !needsTranslation(props) {
		return working, nil
	}
	data, err := io.ReadAll(working)
	_ = working.Close()
	if err != nil {
		return nil, err
	}
	name, err := s.temps.write(TranslateText(data, props))
	if err != nil {
		return nil, contract.WrapError(err, "Cannot create temporary file for '%s'", access.Anchor())
	}
	return s.temps.open(name)
}

func needsTranslation(props map[string]string) bool {
	if _, ok := props[schema.SpecialProperty]; ok {
		return false
	}
	return props[schema.EOLStyleProperty] != "" || props[schema.KeywordsProperty] != ""
}

// TranslateText converts a working text to repository-normal form: line endings
// become LF under svn:eol-style and expanded keywords listed in svn:keywords are
// collapsed to their bare form.
func TranslateText(data []byte, props map[string]string) []byte {
	if _, special := props[schema.SpecialProperty]; special {
		return data
	}
	if props[schema.EOLStyleProperty] != "" {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	}
	for _, keyword := range strings.Fields(props[schema.KeywordsProperty]) {
		data = keywordPattern(keyword).ReplaceAllLiteral(data, []byte("$"+keyword+"$"))
	}
	return data
}

func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`\$` + regexp.QuoteMeta(keyword) + `:[^$\n]*\$`)
}
