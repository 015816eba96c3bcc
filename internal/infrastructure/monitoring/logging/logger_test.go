package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormatToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ivrdata.log")
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{path}})
	require.NoError(t, err)
	l.Info("written to file")
	_ = l.Sync()
	assert.FileExists(t, path)
}

func TestNewLogger_NoAutomaticStacktrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ivrdata.log")
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)
	l.Error("Descriptor computation failed", Stack("goroutine 1 [running]"))
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"stack":"goroutine 1 [running]"`)
	assert.NotContains(t, string(raw), `"stacktrace"`)
}

func TestNewLogger_InvalidOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" Warning "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Debug("debug msg", Int("rows", 3))
	l.Info("info msg", String("artifact", "backend_data.csv"))
	l.Warn("warn msg", Float64("percent", 66.67))
	l.Error("error msg", Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"rows":3`)
	assert.Contains(t, out, `"artifact":"backend_data.csv"`)
	assert.Contains(t, out, `"percent":66.67`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core).Named("backend").With(String("run_id", "r-1"))
	l.Info("stage done", Duration("elapsed", time.Second), Bool("ok", true), Strings("cols", []string{"a"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "backend", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "r-1", ctx["run_id"])
	assert.Equal(t, true, ctx["ok"])
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestStack_Field(t *testing.T) {
	f := Stack("\n\tmain.go:1 main")
	assert.Equal(t, "stack", f.Key)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}
