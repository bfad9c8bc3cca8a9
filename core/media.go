package core

import (
	"context"
	"io"
)

// MediaStorage stores uploaded files and returns the path or URL to reference them by.
type MediaStorage interface {
	Save(ctx context.Context, folder, name string, r io.Reader) (string, error)
}
