package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("frame processed", "detected", true)
	logger.Debugf("heading %.1f", 4.26)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.All()
	test.That(t, entries[0].Message, test.ShouldEqual, "frame processed")
	test.That(t, entries[0].ContextMap()["detected"], test.ShouldEqual, true)
	test.That(t, entries[1].Message, test.ShouldEqual, "heading 4.3")
	test.That(t, entries[1].Level, test.ShouldEqual, zapcore.DebugLevel)
}

func TestSubloggerSharesLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("pipeline")

	sub.Info("hello")
	test.That(t, logs.FilterMessage("hello").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "pipeline")

	sub.SetLevel(zapcore.WarnLevel)
	test.That(t, logger.GetLevel(), test.ShouldEqual, zapcore.WarnLevel)
	logger.Info("dropped")
	sub.Debug("dropped")
	test.That(t, logs.FilterMessage("dropped").Len(), test.ShouldEqual, 0)
	sub.Warn("kept")
	test.That(t, logs.FilterMessage("kept").Len(), test.ShouldEqual, 1)
}

func TestSubloggerNames(t *testing.T) {
	logger := NewLogger("tapevision")
	sub := logger.Sublogger("camera").(*impl)
	test.That(t, sub.name, test.ShouldEqual, "tapevision.camera")
	test.That(t, sub.Sublogger("webcam").(*impl).name, test.ShouldEqual, "tapevision.camera.webcam")
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision.log")
	logger := NewFileLogger("tapevision", zapcore.InfoLevel, FileConfig{Path: path})
	logger.Infow("pose", "angle", 1.5)
	logger.Debug("not written")
	// stdout sync can fail on some CI terminals; only the file matters here.
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)
	test.That(t, lines[0], test.ShouldContainSubstring, `"msg":"pose"`)
	test.That(t, lines[0], test.ShouldContainSubstring, `"angle":1.5`)
	test.That(t, lines[0], test.ShouldContainSubstring, `"logger":"tapevision"`)
}
