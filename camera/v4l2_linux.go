//go:build linux

package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tapevision/logging"
)

const (
	// from https://github.com/blackjack/webcam/blob/master/examples/http_mjpeg_streamer/webcam.go
	v4l2PixFmtYuyv  = 0x56595559
	v4l2PixFmtMJPEG = 0x47504A4D

	// seconds
	frameTimeout = 1
)

var pixelFormats = map[string]webcam.PixelFormat{
	"YUYV":  v4l2PixFmtYuyv,
	"MJPEG": v4l2PixFmtMJPEG,
}

type v4l2Source struct {
	closeGuard
	readMu        sync.Mutex
	cam           *webcam.Webcam
	format        webcam.PixelFormat
	width, height uint32
	logger        logging.Logger
}

// NewV4L2 opens a Video4Linux device such as /dev/video0, applies the configured video mode and
// device controls, and starts streaming. An empty path tries /dev/video0 to /dev/video20.
func NewV4L2(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	if conf.Path != "" {
		return openV4L2(conf.Path, conf, logger)
	}
	var errs error
	for i := 0; i <= 20; i++ {
		path := fmt.Sprintf("/dev/video%d", i)
		s, err := openV4L2(path, conf, logger)
		if err == nil {
			logger.Debugf("found webcam %s", path)
			return s, nil
		}
		errs = multierr.Append(errs, err)
	}
	return nil, errors.Wrap(errs, "could not find a webcam")
}

func openV4L2(path string, conf Config, logger logging.Logger) (Source, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open webcam %s", path)
	}
	s, err := startV4L2(cam, path, conf, logger)
	if err != nil {
		return nil, multierr.Combine(err, cam.Close())
	}
	return s, nil
}

func startV4L2(cam *webcam.Webcam, path string, conf Config, logger logging.Logger) (*v4l2Source, error) {
	format, err := pickFormat(cam, conf.PixelFormat)
	if err != nil {
		return nil, err
	}

	w, h := uint32(conf.Width), uint32(conf.Height)
	if w == 0 || h == 0 {
		sizes := cam.GetSupportedFrameSizes(format)
		best := 0
		for idx, s := range sizes {
			if s.MaxWidth > sizes[best].MaxWidth {
				best = idx
			}
		}
		w, h = sizes[best].MaxWidth, sizes[best].MaxHeight
	}
	format, w, h, err = cam.SetImageFormat(format, w, h)
	if err != nil {
		return nil, errors.Wrap(err, "cannot set image format")
	}
	if conf.FPS > 0 {
		if err := cam.SetFramerate(float32(conf.FPS)); err != nil {
			logger.Warnw("cannot set frame rate", "path", path, "fps", conf.FPS, "error", err)
		}
	}
	applyControls(cam, conf.Properties, logger)

	if err := cam.SetBufferCount(2); err != nil {
		return nil, errors.Wrapf(err, "cannot set buffer count for %s", path)
	}
	if err := cam.StartStreaming(); err != nil {
		return nil, errors.Wrapf(err, "cannot start webcam stream for %s", path)
	}
	logger.Infow("webcam streaming", "path", path, "width", w, "height", h, "format", cam.GetSupportedFormats()[format])
	return &v4l2Source{cam: cam, format: format, width: w, height: h, logger: logger}, nil
}

func pickFormat(cam *webcam.Webcam, want string) (webcam.PixelFormat, error) {
	formats := cam.GetSupportedFormats()
	candidates := []webcam.PixelFormat{v4l2PixFmtYuyv, v4l2PixFmtMJPEG}
	if want != "" {
		f, ok := pixelFormats[strings.ToUpper(want)]
		if !ok {
			return 0, errors.Errorf("unsupported pixel format %q, use YUYV or MJPEG", want)
		}
		candidates = []webcam.PixelFormat{f}
	}
	for _, f := range candidates {
		if _, ok := formats[f]; ok && len(cam.GetSupportedFrameSizes(f)) > 0 {
			return f, nil
		}
	}
	return 0, errors.Errorf("no supported format, supported ones: %v", formats)
}

// applyControls sets every property whose name matches a device control, ignoring case and
// treating spaces as underscores. Unknown controls are logged and skipped.
func applyControls(cam *webcam.Webcam, props []Property, logger logging.Logger) {
	if len(props) == 0 {
		return
	}
	byName := map[string]webcam.ControlID{}
	for id, c := range cam.GetControls() {
		byName[controlKey(c.Name)] = id
	}
	for _, p := range props {
		id, ok := byName[controlKey(p.Name)]
		if !ok {
			logger.Warnw("camera has no such control", "control", p.Name)
			continue
		}
		if err := cam.SetControl(id, int32(p.Value)); err != nil {
			logger.Warnw("cannot set camera control", "control", p.Name, "value", p.Value, "error", err)
		}
	}
}

func controlKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func (s *v4l2Source) decode(frame []byte) (image.Image, error) {
	switch s.format {
	case v4l2PixFmtYuyv:
		need := int(s.width * s.height * 2)
		if len(frame) < need {
			return nil, errors.Errorf("short YUYV frame: %d bytes, want %d", len(frame), need)
		}
		yuyv := image.NewYCbCr(image.Rect(0, 0, int(s.width), int(s.height)), image.YCbCrSubsampleRatio422)
		for i := range yuyv.Cb {
			ii := i * 4
			yuyv.Y[i*2] = frame[ii]
			yuyv.Y[i*2+1] = frame[ii+2]
			yuyv.Cb[i] = frame[ii+1]
			yuyv.Cr[i] = frame[ii+3]
		}
		return yuyv, nil
	case v4l2PixFmtMJPEG:
		return jpeg.Decode(bytes.NewReader(frame))
	default:
		return nil, errors.Errorf("unexpected pixel format %x", s.format)
	}
}

func (s *v4l2Source) Read(ctx context.Context) (image.Image, func(), error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if s.isClosed() {
			return nil, nil, ErrClosed
		}
		err := s.cam.WaitForFrame(frameTimeout)
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			continue
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "couldn't get webcam frame")
		}

		frame, err := s.cam.ReadFrame()
		if err != nil {
			return nil, nil, errors.Wrap(err, "couldn't read webcam frame")
		}
		if len(frame) == 0 {
			return nil, nil, errors.New("empty webcam frame")
		}
		img, err := s.decode(frame)
		if err != nil {
			return nil, nil, err
		}
		return img, noopRelease, nil
	}
}

func (s *v4l2Source) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	s.readMu.Lock()
	defer s.readMu.Unlock()
	return multierr.Combine(s.cam.StopStreaming(), s.cam.Close())
}
