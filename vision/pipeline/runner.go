package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/tapevision/camera"
	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/stream"
	"go.viam.com/tapevision/telemetry"
	"go.viam.com/tapevision/utils"
	"go.viam.com/tapevision/vision/tape"
	"go.viam.com/tapevision/vision/triangulation"
)

// Defaults for RunnerOptions.
const (
	DefaultMaxConsecutiveFailures = 5
	DefaultRetryInterval          = time.Second
	DefaultTimingWindow           = 100
)

// RunnerOptions configures a Runner. Zero values pick defaults.
type RunnerOptions struct {
	Filters   Filters
	GapPolicy telemetry.GapPolicy
	// MaxConsecutiveFailures is the number of failed reads after which the runner goes idle
	// and waits RetryInterval before every further read.
	MaxConsecutiveFailures int
	RetryInterval          time.Duration
	// TimingWindow is the number of frames summarized in one timing log line.
	TimingWindow int
	Clock        clock.Clock
}

// Runner is the capture loop. It is driven by a single goroutine.
type Runner struct {
	source    camera.Source
	processor *Processor
	publisher *telemetry.Publisher
	sink      stream.Sink
	logger    logging.Logger
	clock     clock.Clock

	maxFailures   int
	retryInterval time.Duration

	failures int
	idle     bool
	timings  *utils.RollingWindow
}

// NewRunner wires a runner. The connector must already be Ready; see
// telemetry.Connector.WaitReady. A nil sink drops debug frames.
func NewRunner(
	source camera.Source,
	connector *telemetry.Connector,
	sink stream.Sink,
	geometry triangulation.Geometry,
	opts RunnerOptions,
	logger logging.Logger,
) (*Runner, error) {
	table, err := connector.Table()
	if err != nil {
		return nil, err
	}
	processor, err := NewProcessor(geometry, opts.Filters)
	if err != nil {
		return nil, errors.Wrap(err, "invalid geometry")
	}
	if sink == nil {
		sink = stream.NopSink{}
	}
	r := &Runner{
		source:        source,
		processor:     processor,
		publisher:     telemetry.NewPublisher(table, opts.GapPolicy, logger.Sublogger("publisher")),
		sink:          sink,
		logger:        logger,
		clock:         opts.Clock,
		maxFailures:   opts.MaxConsecutiveFailures,
		retryInterval: opts.RetryInterval,
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	if r.maxFailures <= 0 {
		r.maxFailures = DefaultMaxConsecutiveFailures
	}
	if r.retryInterval <= 0 {
		r.retryInterval = DefaultRetryInterval
	}
	window := opts.TimingWindow
	if window <= 0 {
		window = DefaultTimingWindow
	}
	r.timings = utils.NewRollingWindow(window)
	return r, nil
}

// Idle reports whether the runner is waiting out a camera outage.
func (r *Runner) Idle() bool {
	return r.idle
}

// Run steps until ctx is done or the source is exhausted.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("vision loop started")
	defer r.logger.Info("vision loop stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				r.logger.Info("camera source exhausted")
				return nil
			}
			return err
		}
	}
}

// Step processes one frame. Failures of a single frame are logged and published as a gap, never
// returned; the error is non nil only when the loop cannot go on.
func (r *Runner) Step(ctx context.Context) error {
	start := r.clock.Now()
	img, release, err := r.source.Read(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, io.EOF), errors.Is(err, camera.ErrClosed):
			return err
		}
		r.readFailed(ctx, err)
		return nil
	}
	defer release()
	if r.idle {
		r.logger.Infow("camera resumed", "failures", r.failures)
	}
	r.failures = 0
	r.idle = false

	res := r.processor.Process(ctx, img)
	switch {
	case res.Err == nil:
		r.logger.Debugw("target", "heading", res.Pose.HeadingDegrees, "distance", res.Pose.Distance)
	case errors.Is(res.Err, tape.ErrNotEnoughTargets),
		errors.Is(res.Err, triangulation.ErrZeroHeight),
		errors.Is(res.Err, triangulation.ErrDomain),
		errors.Is(res.Err, ErrNoFrame):
		r.logger.Debugw("no target", "reason", res.Err, "candidates", len(res.Candidates))
	default:
		r.logger.Warnw("frame failed", "error", res.Err)
	}

	if err := r.publisher.Publish(ctx, res.Pose, res.Pair); err != nil {
		r.logger.Warnw("publish failed", "error", err)
	}
	if _, nop := r.sink.(stream.NopSink); !nop && res.Mask != nil {
		if err := r.sink.PutFrame(Annotate(img, res)); err != nil {
			r.logger.Warnw("debug frame dropped", "error", err)
		}
	}
	r.recordTiming(r.clock.Since(start))
	return nil
}

func (r *Runner) readFailed(ctx context.Context, err error) {
	r.failures++
	if perr := r.publisher.Publish(ctx, nil, nil); perr != nil {
		r.logger.Warnw("publish failed", "error", perr)
	}
	if r.failures < r.maxFailures {
		r.logger.Debugw("frame read failed", "failures", r.failures, "error", err)
		return
	}
	if !r.idle {
		r.idle = true
		r.logger.Warnw("camera unavailable, retrying", "failures", r.failures, "interval", r.retryInterval, "error", err)
	}
	select {
	case <-ctx.Done():
	case <-r.clock.After(r.retryInterval):
	}
}

func (r *Runner) recordTiming(d time.Duration) {
	r.timings.Add(float64(d) / float64(time.Millisecond))
	if r.timings.Len() < r.timings.NumSamples() {
		return
	}
	samples := r.timings.Samples()
	mean, _ := stats.Mean(samples)
	p95, _ := stats.Percentile(samples, 95)
	r.logger.Infow("frame timing", "frames", len(samples), "mean_ms", mean, "p95_ms", p95)
	r.timings = utils.NewRollingWindow(r.timings.NumSamples())
}
