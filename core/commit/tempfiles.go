package commit

import (
	"errors"
	"io"
	"sync"

	"github.com/spf13/afero"
)

// tempFiles tracks the files created while translating texts for one transaction.
type tempFiles struct {
	mu    sync.Mutex
	fs    afero.Fs
	paths []string
}

func newTempFiles(fs afero.Fs) *tempFiles {
	return &tempFiles{fs: fs}
}

// write stores data in a new temp file and returns its name.
func (t *tempFiles) write(data []byte) (string, error) {
	f, err := afero.TempFile(t.fs, "", "svncoord-text-*")
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.paths = append(t.paths, f.Name())
	t.mu.Unlock()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}

func (t *tempFiles) open(name string) (io.ReadCloser, error) {
	return t.fs.Open(name)
}

// cleanup removes every tracked file, whatever happened to the transaction.
func (t *tempFiles) cleanup() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, p := range t.paths {
		if err := t.fs.Remove(p); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
			errs = append(errs, err)
		}
	}
	t.paths = nil
	return errors.Join(errs...)
}
