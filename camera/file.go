package camera

import (
	"context"
	"image"
	"io"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/tapevision/rimage"
)

// FileSource replays a list of image files, one per Read. Used for offline detection and tests.
type FileSource struct {
	closeGuard
	paths []string
	loop  bool

	mu   sync.Mutex
	next int
}

// NewFileSource returns a source over paths. Without loop, Read returns io.EOF after the last
// file.
func NewFileSource(paths []string, loop bool) (*FileSource, error) {
	if len(paths) == 0 {
		return nil, errors.New("file source needs at least one image path")
	}
	return &FileSource{paths: append([]string(nil), paths...), loop: loop}, nil
}

// Read decodes the next file.
func (fs *FileSource) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if fs.isClosed() {
		return nil, nil, ErrClosed
	}
	fs.mu.Lock()
	if fs.next >= len(fs.paths) {
		if !fs.loop {
			fs.mu.Unlock()
			return nil, nil, io.EOF
		}
		fs.next = 0
	}
	path := fs.paths[fs.next]
	fs.next++
	fs.mu.Unlock()

	img, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	return img, noopRelease, nil
}

// Current is the path of the file returned by the last Read.
func (fs *FileSource) Current() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.next == 0 {
		return ""
	}
	return fs.paths[fs.next-1]
}

// Close stops the source.
func (fs *FileSource) Close(ctx context.Context) error {
	fs.markClosed()
	return nil
}
