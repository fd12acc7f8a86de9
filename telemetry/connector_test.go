package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tapevision/logging"
)

func TestConnector(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()
	backend := NewMemoryTable()
	backend.PingErr = errors.New("connection refused")
	backend.PingFailures = 3

	c := NewConnector(backend, ConnectorOptions{RetryInterval: time.Second, Clock: mock}, logger)
	defer func() { test.That(t, c.Close(context.Background()), test.ShouldBeNil) }()

	test.That(t, c.State(), test.ShouldEqual, Connecting)
	_, err := c.Table()
	test.That(t, errors.Is(err, ErrNotReady), test.ShouldBeTrue)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	_, err = c.WaitReady(ctx)
	cancel()
	test.That(t, errors.Is(err, ErrNotReady), test.ShouldBeTrue)

	for i := 0; i < 1000 && c.State() != Ready; i++ {
		mock.Add(time.Second)
	}
	test.That(t, c.State(), test.ShouldEqual, Ready)

	table, err := c.WaitReady(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table, test.ShouldEqual, backend)
	table, err = c.Table()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table, test.ShouldEqual, backend)

	test.That(t, logs.FilterMessage("waiting for telemetry").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("telemetry still unavailable").Len(), test.ShouldEqual, 2)
	connected := logs.FilterMessage("telemetry connected").All()
	test.That(t, connected, test.ShouldHaveLength, 1)
	test.That(t, connected[0].ContextMap()["attempts"], test.ShouldEqual, int64(4))
}

func TestConnectorCloseWhileConnecting(t *testing.T) {
	backend := NewMemoryTable()
	backend.PingErr = errors.New("down")
	backend.PingFailures = -1
	c := NewConnector(backend, ConnectorOptions{Clock: clock.NewMock()}, logging.NewTestLogger(t))
	test.That(t, c.Close(context.Background()), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, Connecting)
}

func TestStateString(t *testing.T) {
	test.That(t, Connecting.String(), test.ShouldEqual, "connecting")
	test.That(t, Ready.String(), test.ShouldEqual, "ready")
	test.That(t, State(7).String(), test.ShouldEqual, "unknown")
}
