package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"go.viam.com/tapevision/camera"
	"go.viam.com/tapevision/config"
	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/stream"
	"go.viam.com/tapevision/telemetry"
	"go.viam.com/tapevision/vision/pipeline"
)

// RunAction runs the vision loop until SIGINT or SIGTERM.
func RunAction(c *cli.Context) error {
	cfg, err := config.Read(configPath(c))
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, c.Bool(flagDebug))
	if err != nil {
		return err
	}
	//nolint:errcheck
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runVision(ctx, cfg, logger)
}

// runVision waits for telemetry, opens the camera and the debug stream, then loops. Returns
// nil when ctx ends the run.
func runVision(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	logger.Infow("starting", "config", cfg.ConfigFilePath, "team", cfg.Team, "ntmode", cfg.NTMode)

	backend, err := telemetry.NewRedisTable(cfg.RedisOptions())
	if err != nil {
		return err
	}
	connector := telemetry.NewConnector(backend,
		telemetry.ConnectorOptions{RetryInterval: cfg.Telemetry.RetryInterval}, logger.Sublogger("telemetry"))
	defer func() {
		err = multierr.Combine(err, connector.Close(context.Background()))
	}()
	if _, err := connector.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	camConf := cfg.Camera()
	logger.Infow("starting camera", "name", camConf.Name, "path", camConf.Path, "driver", camConf.Driver)
	src, err := camera.New(ctx, camConf, logger.Sublogger("camera"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, src.Close(context.Background()))
	}()

	var sink stream.Sink = stream.NopSink{}
	if !cfg.Stream.Disabled {
		server := stream.NewMJPEGServer(cfg.StreamOptions(), logger.Sublogger("stream"))
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, server.Close(context.Background()))
		}()
		sink = server
	}

	runner, err := pipeline.NewRunner(src, connector, sink, cfg.Geometry(), cfg.RunnerOptions(), logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func newLogger(lc config.LogConfig, debug bool) (logging.Logger, error) {
	level := zapcore.InfoLevel
	if lc.Level != "" {
		parsed, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
		level = parsed
	}
	if debug {
		level = zapcore.DebugLevel
	}
	if lc.File != "" {
		return logging.NewFileLogger("tapevision", level, logging.FileConfig{
			Path:       lc.File,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
		}), nil
	}
	logger := logging.NewLogger("tapevision")
	logger.SetLevel(level)
	return logger, nil
}
