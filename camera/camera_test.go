package camera

import (
	"context"
	"image"
	"io"
	"path/filepath"
	"testing"

	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/rimage"
)

func writeFrames(t *testing.T, sizes ...image.Point) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, s := range sizes {
		p := filepath.Join(dir, string(rune('a'+i))+".png")
		test.That(t, rimage.WriteImageToFile(p, image.NewGray(image.Rect(0, 0, s.X, s.Y))), test.ShouldBeNil)
		paths = append(paths, p)
	}
	return paths
}

func TestStaticSource(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	src := &StaticSource{Img: img}
	for i := 0; i < 2; i++ {
		got, release, err := src.Read(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, img)
		release()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := src.Read(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, src.Close(context.Background()), test.ShouldBeNil)
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	paths := writeFrames(t, image.Pt(4, 2), image.Pt(6, 3))

	_, err := NewFileSource(nil, false)
	test.That(t, err, test.ShouldNotBeNil)

	t.Run("once", func(t *testing.T) {
		fs, err := NewFileSource(paths, false)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, fs.Current(), test.ShouldEqual, "")

		img, release, err := fs.Read(ctx)
		test.That(t, err, test.ShouldBeNil)
		release()
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
		test.That(t, fs.Current(), test.ShouldEqual, paths[0])

		img, _, err = fs.Read(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 6)

		_, _, err = fs.Read(ctx)
		test.That(t, err, test.ShouldEqual, io.EOF)
	})

	t.Run("loop", func(t *testing.T) {
		fs, err := NewFileSource(paths, true)
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < 5; i++ {
			img, _, err := fs.Read(ctx)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, img.Bounds().Dx(), test.ShouldEqual, []int{4, 6}[i%2])
		}
		test.That(t, fs.Close(ctx), test.ShouldBeNil)
		test.That(t, fs.Close(ctx), test.ShouldBeNil)
		_, _, err = fs.Read(ctx)
		test.That(t, errors.Is(err, ErrClosed), test.ShouldBeTrue)
	})

	t.Run("bad file", func(t *testing.T) {
		fs, err := NewFileSource([]string{filepath.Join(t.TempDir(), "nope.png")}, false)
		test.That(t, err, test.ShouldBeNil)
		_, _, err = fs.Read(ctx)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	paths := writeFrames(t, image.Pt(20, 10), image.Pt(8, 8))

	src, err := New(ctx, Config{Name: "replay", Driver: "FILE", Path: paths[0] + " , " + paths[1], Width: 10, Height: 5}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, src.Close(ctx), test.ShouldBeNil) }()
	for i := 0; i < 2; i++ {
		img, release, err := src.Read(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 10, 5))
		release()
	}

	_, err = New(ctx, Config{Name: "x", Driver: "carrier pigeon"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "carrier pigeon")

	_, err = New(ctx, Config{Name: "empty", Driver: DriverFile}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `camera "empty"`)
}

func TestResizeSourceKeepsMatchingFrames(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 5))
	src := NewResizeSource(&StaticSource{Img: img}, 10, 5)
	got, _, err := src.Read(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, img)
}

func TestPickMedia(t *testing.T) {
	mode := func(w, h int, f frame.Format) prop.Media {
		return prop.Media{Video: prop.Video{Width: w, Height: h, FrameFormat: f}}
	}
	modes := []prop.Media{
		mode(1280, 720, frame.FormatYUY2),
		mode(640, 480, frame.FormatYUY2),
		mode(640, 480, frame.FormatMJPEG),
	}

	got, err := pickMedia(modes, Config{Width: 640, Height: 480})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, modes[1])

	got, err = pickMedia(modes, Config{Width: 640, Height: 480, PixelFormat: "mjpeg"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, modes[2])

	got, err = pickMedia(modes, Config{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, modes[0])

	_, err = pickMedia(nil, Config{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindDriverNoDevices(t *testing.T) {
	_, err := findDriver("/dev/video0", nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMediaDevicesSourceClosed(t *testing.T) {
	var src Source = &mediaDevicesSource{}
	// a source whose device is already released must not touch the driver again.
	test.That(t, src.(*mediaDevicesSource).markClosed(), test.ShouldBeTrue)
	_, _, err := src.Read(context.Background())
	test.That(t, err, test.ShouldEqual, ErrClosed)
	test.That(t, src.Close(context.Background()), test.ShouldBeNil)
}
