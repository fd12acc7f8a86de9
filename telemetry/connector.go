package telemetry

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/utils"
)

// State of a Connector.
type State int32

// Connector states. A connector only ever moves from Connecting to Ready.
const (
	Connecting State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned when the table is requested before the backend answered.
var ErrNotReady = errors.New("telemetry connection not ready")

// DefaultRetryInterval is the time between pings while connecting.
const DefaultRetryInterval = time.Second

// ConnectorOptions configures a Connector. Zero values pick defaults.
type ConnectorOptions struct {
	RetryInterval time.Duration
	Clock         clock.Clock
}

// Connector pings a backend until it answers and then hands out the backend as a Table.
type Connector struct {
	backend  Backend
	clock    clock.Clock
	interval time.Duration
	logger   logging.Logger

	state   atomic.Int32
	ready   chan struct{}
	workers utils.StoppableWorkers
}

// NewConnector starts connecting to backend in the background.
func NewConnector(backend Backend, opts ConnectorOptions, logger logging.Logger) *Connector {
	c := &Connector{
		backend:  backend,
		clock:    opts.Clock,
		interval: opts.RetryInterval,
		logger:   logger,
		ready:    make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.interval <= 0 {
		c.interval = DefaultRetryInterval
	}
	c.state.Store(int32(Connecting))
	c.workers = utils.NewStoppableWorkers(c.connect)
	return c
}

func (c *Connector) connect(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := c.backend.Ping(ctx)
		if err == nil {
			c.state.Store(int32(Ready))
			close(c.ready)
			c.logger.Infow("telemetry connected", "attempts", attempt)
			return
		}
		if attempt == 1 {
			c.logger.Infow("waiting for telemetry", "error", err)
		} else {
			c.logger.Debugw("telemetry still unavailable", "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(c.interval):
		}
	}
}

// State returns the current state.
func (c *Connector) State() State {
	return State(c.state.Load())
}

// Table returns the table once Ready, ErrNotReady before.
func (c *Connector) Table() (Table, error) {
	if c.State() != Ready {
		return nil, ErrNotReady
	}
	return c.backend, nil
}

// WaitReady blocks until the backend answered or ctx is done.
func (c *Connector) WaitReady(ctx context.Context) (Table, error) {
	select {
	case <-c.ready:
		return c.backend, nil
	case <-ctx.Done():
		return nil, multierr.Combine(ErrNotReady, ctx.Err())
	}
}

// Close stops connecting and closes the backend.
func (c *Connector) Close(ctx context.Context) error {
	c.workers.Stop()
	return c.backend.Close()
}
