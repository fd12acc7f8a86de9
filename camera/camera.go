// Package camera provides the frame sources the vision loop reads from.
package camera

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/rimage"
)

// Source produces frames. Read blocks until a frame is available or ctx is done. The returned
// release function must be called once the frame is no longer used; it is never nil when err is
// nil.
type Source interface {
	Read(ctx context.Context) (image.Image, func(), error)
	Close(ctx context.Context) error
}

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("camera source closed")

// Driver names accepted in Config.Driver.
const (
	DriverV4L2         = "v4l2"
	DriverMediaDevices = "mediadevices"
	DriverGoCV         = "gocv"
	DriverFile         = "file"
)

// Property is one device control, e.g. brightness or exposure_absolute.
type Property struct {
	Name  string
	Value int
}

// Config describes one camera.
type Config struct {
	Name string
	// Path is the device node (/dev/video0), a device index for gocv, or for the file driver a
	// comma separated list of image files.
	Path   string
	Driver string
	// Width and Height request a video mode. Frames that come out in a different size are
	// resized. Zero keeps whatever the device delivers.
	Width       int
	Height      int
	FPS         float64
	PixelFormat string
	Properties  []Property
	// Loop makes the file driver start over after the last image.
	Loop bool
}

// New opens the source named by conf.Driver, v4l2 when empty.
func New(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	var (
		src Source
		err error
	)
	switch strings.ToLower(conf.Driver) {
	case "", DriverV4L2:
		src, err = NewV4L2(ctx, conf, logger)
	case DriverMediaDevices:
		src, err = NewWebcam(ctx, conf, logger)
	case DriverGoCV:
		src, err = NewGoCV(ctx, conf, logger)
	case DriverFile:
		src, err = NewFileSource(splitPaths(conf.Path), conf.Loop)
	default:
		return nil, errors.Errorf("unknown camera driver %q", conf.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open camera %q", conf.Name)
	}
	if conf.Width > 0 && conf.Height > 0 {
		src = NewResizeSource(src, conf.Width, conf.Height)
	}
	return src, nil
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func noopRelease() {}

// StaticSource returns the same image forever.
type StaticSource struct {
	Img image.Image
}

// Read returns the stored image.
func (s *StaticSource) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return s.Img, noopRelease, nil
}

// Close does nothing.
func (s *StaticSource) Close(ctx context.Context) error {
	return nil
}

type resizeSource struct {
	src           Source
	width, height int
}

// NewResizeSource scales every frame of src to width x height.
func NewResizeSource(src Source, width, height int) Source {
	return &resizeSource{src: src, width: width, height: height}
}

func (rs *resizeSource) Read(ctx context.Context) (image.Image, func(), error) {
	img, release, err := rs.src.Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	resized := rimage.ResizeImage(img, rs.width, rs.height)
	if resized == img {
		return img, release, nil
	}
	// resizing copied the pixels, so the underlying frame can go back right away.
	release()
	return resized, noopRelease, nil
}

func (rs *resizeSource) Close(ctx context.Context) error {
	return rs.src.Close(ctx)
}

// closeGuard makes Close idempotent and lets Read see whether the source is closed.
type closeGuard struct {
	mu     sync.Mutex
	closed bool
}

func (g *closeGuard) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// markClosed reports false if the source was already closed.
func (g *closeGuard) markClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.closed = true
	return true
}
