package camera

import (
	"context"
	"image"
	"path/filepath"
	"strings"

	"github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"

	"go.viam.com/tapevision/logging"
)

// mediaDevicesSource reads frames from a mediadevices video recorder.
type mediaDevicesSource struct {
	closeGuard
	reader video.Reader
	driver driver.Driver
	logger logging.Logger
}

// NewWebcam opens a camera through the mediadevices drivers. conf.Path selects the device by
// its label (the device node on Linux); an empty path takes the first video recorder found.
func NewWebcam(ctx context.Context, conf Config, logger logging.Logger) (Source, error) {
	mediadevicescamera.Initialize()
	d, err := findDriver(conf.Path, driver.GetManager().Query(driver.FilterVideoRecorder()))
	if err != nil {
		return nil, err
	}
	if err := d.Open(); err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", d.Info().Label)
	}
	recorder, ok := d.(driver.VideoRecorder)
	if !ok {
		return nil, errors.Errorf("%s is not a video recorder", d.Info().Label)
	}
	media, err := pickMedia(d.Properties(), conf)
	if err != nil {
		return nil, errors.Wrap(err, d.Info().Label)
	}
	reader, err := recorder.VideoRecord(media)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot start recording on %s", d.Info().Label)
	}
	logger.Infow("webcam streaming", "label", d.Info().Label,
		"width", media.Width, "height", media.Height, "format", media.FrameFormat)
	if len(conf.Properties) > 0 {
		logger.Warn("camera properties are ignored by the mediadevices driver, use v4l2 to set controls")
	}
	return &mediaDevicesSource{reader: reader, driver: d, logger: logger}, nil
}

// findDriver returns the driver whose label matches path, by full path or base name.
func findDriver(path string, drivers []driver.Driver) (driver.Driver, error) {
	if len(drivers) == 0 {
		return nil, errors.New("found no webcams")
	}
	if path == "" {
		return drivers[0], nil
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	for _, d := range drivers {
		for _, label := range strings.Split(d.Info().Label, mediadevicescamera.LabelSeparator) {
			if label == path || filepath.Base(label) == filepath.Base(path) {
				return d, nil
			}
		}
	}
	return nil, errors.Errorf("no webcam with path %q", path)
}

// pickMedia chooses the supported mode closest to the configured one.
func pickMedia(props []prop.Media, conf Config) (prop.Media, error) {
	if len(props) == 0 {
		return prop.Media{}, errors.New("driver reports no video modes")
	}
	want := frame.Format(strings.ToUpper(conf.PixelFormat))
	best, bestScore := props[0], -1
	for _, p := range props {
		score := 0
		if conf.Width > 0 {
			score += absInt(p.Width - conf.Width)
		}
		if conf.Height > 0 {
			score += absInt(p.Height - conf.Height)
		}
		if want != "" && !strings.EqualFold(string(p.FrameFormat), string(want)) {
			score += 10000
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = p, score
		}
	}
	return best, nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (w *mediaDevicesSource) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if w.isClosed() {
		return nil, nil, ErrClosed
	}
	img, release, err := w.reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "webcam read failed")
	}
	if release == nil {
		release = noopRelease
	}
	return img, release, nil
}

func (w *mediaDevicesSource) Close(ctx context.Context) error {
	if !w.markClosed() {
		return nil
	}
	return w.driver.Close()
}
