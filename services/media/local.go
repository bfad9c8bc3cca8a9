package mediasvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
)

type localStorage struct {
	root string
}

var _ core.MediaStorage = (*localStorage)(nil)

// NewLocalStorage writes media under conf.MediaRoot; the server exposes it under conf.MediaBaseURL.
func NewLocalStorage(conf *core.Config) core.MediaStorage {
	return &localStorage{root: conf.MediaRoot}
}

// Save returns the path of the file relative to the media root.
func (s *localStorage) Save(_ context.Context, folder, name string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating media folder")
	}

	f, err := os.Create(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing media file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing media file")
	}
	return path.Join(folder, filepath.Base(name)), nil
}
