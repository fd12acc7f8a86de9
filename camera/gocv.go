//go:build gocv

package camera

import (
	"context"
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/tapevision/logging"
)

// properties settable through OpenCV, keyed like the camera properties in the config file.
var captureProperties = map[string]gocv.VideoCaptureProperties{
	"brightness":    gocv.VideoCaptureBrightness,
	"contrast":      gocv.VideoCaptureContrast,
	"saturation":    gocv.VideoCaptureSaturation,
	"hue":           gocv.VideoCaptureHue,
	"gain":          gocv.VideoCaptureGain,
	"exposure":      gocv.VideoCaptureExposure,
	"auto_exposure": gocv.VideoCaptureAutoExposure,
	"white_balance": gocv.VideoCaptureWhiteBalanceBlueU,
	"focus":         gocv.VideoCaptureFocus,
	"autofocus":     gocv.VideoCaptureAutoFocus,
	"sharpness":     gocv.VideoCaptureSharpness,
	"gamma":         gocv.VideoCaptureGamma,
}

type gocvSource struct {
	closeGuard
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	logger logging.Logger
}

// NewGoCV opens a camera through OpenCV. conf.Path is either a device index or anything
// VideoCapture accepts (device node, file, stream URL).
func NewGoCV(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	var device interface{} = conf.Path
	if idx, err := strconv.Atoi(conf.Path); err == nil {
		device = idx
	}
	if conf.Path == "" {
		device = 0
	}
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open video capture %v", device)
	}
	if conf.Width > 0 && conf.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(conf.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(conf.Height))
	}
	if conf.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, conf.FPS)
	}
	if strings.EqualFold(conf.PixelFormat, "MJPEG") {
		vc.Set(gocv.VideoCaptureFOURCC, vc.ToCodec("MJPG"))
	}
	for _, p := range conf.Properties {
		prop, ok := captureProperties[controlName(p.Name)]
		if !ok {
			logger.Warnw("camera has no such control", "control", p.Name)
			continue
		}
		vc.Set(prop, float64(p.Value))
	}
	return &gocvSource{cap: vc, mat: gocv.NewMat(), logger: logger}, nil
}

func controlName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func (s *gocvSource) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.isClosed() {
		return nil, nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, nil, errors.New("cannot read from video capture")
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot convert frame")
	}
	return img, noopRelease, nil
}

func (s *gocvSource) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mat.Close(); err != nil {
		return err
	}
	return s.cap.Close()
}
