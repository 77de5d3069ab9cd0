package commit

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an Editor that logs every call.
type recorder struct {
	calls    []string
	failOn   string
	failWith error
}

func (r *recorder) log(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	if r.failOn != "" && call == r.failOn {
		return r.failWith
	}
	return nil
}

func (r *recorder) OpenRoot(_ context.Context, rev int64) error { return r.log("open-root %d", rev) }
func (r *recorder) OpenDir(_ context.Context, path string, rev int64) error {
	return r.log("open-dir %s %d", path, rev)
}

func (r *recorder) AddDir(_ context.Context, path, copyFromURL string, copyFromRev int64) error {
	return r.log("add-dir %s %s %d", path, copyFromURL, copyFromRev)
}
func (r *recorder) CloseDir(context.Context) error { return r.log("close-dir") }
func (r *recorder) DeleteEntry(_ context.Context, path string, rev int64) error {
	return r.log("delete %s %d", path, rev)
}

func (r *recorder) AddFile(_ context.Context, path, copyFromURL string, copyFromRev int64) error {
	return r.log("add-file %s %s %d", path, copyFromURL, copyFromRev)
}

func (r *recorder) OpenFile(_ context.Context, path string, rev int64) error {
	return r.log("open-file %s %d", path, rev)
}

func (r *recorder) ChangeDirProperty(_ context.Context, name string, value *string) error {
	return r.log("dir-prop %s %s", name, deref(value))
}

func (r *recorder) ChangeFileProperty(_ context.Context, path, name string, value *string) error {
	return r.log("file-prop %s %s %s", path, name, deref(value))
}

func (r *recorder) ApplyText(_ context.Context, path, baseChecksum string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	return r.log("text %s %q %q", path, baseChecksum, data)
}

func (r *recorder) CloseFile(_ context.Context, path, textChecksum string) error {
	return r.log("close-file %s %s", path, textChecksum)
}

func (r *recorder) CloseEdit(context.Context) (schema.CommitInfo, error) {
	if err := r.log("close-edit"); err != nil {
		return schema.NullCommitInfo, err
	}
	return schema.CommitInfo{NewRevision: 7}, nil
}

func (r *recorder) AbortEdit(context.Context) error { return r.log("abort-edit") }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

var _ contract.Editor = &recorder{}

// visit is a handler that opens the directories named in dirs.
func visit(dirs ...string) PathHandler {
	open := map[string]bool{}
	for _, d := range dirs {
		open[d] = true
	}
	return func(ctx context.Context, path string, editor contract.Editor) (bool, error) {
		if path == "" {
			return true, editor.OpenRoot(ctx, 0)
		}
		if open[path] {
			return true, editor.AddDir(ctx, path, "", -1)
		}
		return false, editor.AddFile(ctx, path, "", -1)
	}
}

func TestDriveEditor(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		dirs     []string
		expected []string
	}{
		{
			name:  "single file",
			paths: []string{"a.txt"},
			expected: []string{
				"open-root -1",
				"add-file a.txt  -1",
				"close-dir",
			},
		},
		{
			name:  "intermediate directories are opened and closed",
			paths: []string{"x/y/z.txt", "a.txt"},
			expected: []string{
				"open-root -1",
				"add-file a.txt  -1",
				"open-dir x -1",
				"open-dir x/y -1",
				"add-file x/y/z.txt  -1",
				"close-dir",
				"close-dir",
				"close-dir",
			},
		},
		{
			name:  "added directory stays open for its children",
			paths: []string{"d/f.txt", "d", "e.txt"},
			dirs:  []string{"d"},
			expected: []string{
				"open-root -1",
				"add-dir d  -1",
				"add-file d/f.txt  -1",
				"close-dir",
				"add-file e.txt  -1",
				"close-dir",
			},
		},
		{
			name:  "siblings in different directories",
			paths: []string{"p/one.txt", "q/two.txt"},
			expected: []string{
				"open-root -1",
				"open-dir p -1",
				"add-file p/one.txt  -1",
				"close-dir",
				"open-dir q -1",
				"add-file q/two.txt  -1",
				"close-dir",
				"close-dir",
			},
		},
		{
			name:  "root path is handed to the handler",
			paths: []string{"", "a.txt"},
			expected: []string{
				"open-root 0",
				"add-file a.txt  -1",
				"close-dir",
			},
		},
		{
			name:  "directory sorts before its children and siblings with a longer name",
			paths: []string{"a-b.txt", "a/c.txt", "a"},
			dirs:  []string{"a"},
			expected: []string{
				"open-root -1",
				"add-dir a  -1",
				"add-file a/c.txt  -1",
				"close-dir",
				"add-file a-b.txt  -1",
				"close-dir",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := DriveEditor(context.Background(), r, tt.paths, schema.InvalidRevision, visit(tt.dirs...))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, r.calls)
		})
	}
}

func TestDriveEditor_NoPaths(t *testing.T) {
	r := &recorder{}
	require.NoError(t, DriveEditor(context.Background(), r, nil, -1, visit()))
	assert.Empty(t, r.calls)
}

func TestDriveEditor_Errors(t *testing.T) {
	t.Run("editor failure stops the walk", func(t *testing.T) {
		boom := contract.NewError(contract.FailureError, "", "boom")
		r := &recorder{failOn: "open-dir x -1", failWith: boom}
		err := DriveEditor(context.Background(), r, []string{"a.txt", "x/b.txt"}, -1, visit())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"open-root -1", "add-file a.txt  -1", "open-dir x -1"}, r.calls)
	})

	t.Run("cancellation between paths", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := &recorder{}
		handler := func(ctx context.Context, path string, editor contract.Editor) (bool, error) {
			cancel()
			return false, editor.AddFile(ctx, path, "", -1)
		}
		err := DriveEditor(ctx, r, []string{"a.txt", "b.txt"}, -1, handler)
		require.Error(t, err)
		assert.True(t, contract.IsCancelled(err))
		assert.Equal(t, contract.CancelledError, contract.KindOf(err))
		assert.Equal(t, []string{"open-root -1", "add-file a.txt  -1"}, r.calls)
	})
}
