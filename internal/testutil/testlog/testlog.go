package testlog

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/danmuck/trailctl/internal/logging"
	"github.com/rs/zerolog"
)

// Start returns a test-profile logger that writes through t.Log.
func Start(t testing.TB) zerolog.Logger {
	t.Helper()
	logger := logging.New(Writer(t), Config())
	logger.Info().Str("test", t.Name()).Msg("start")
	return logger
}

// Config is the logging profile tests run with, after env overrides.
func Config() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileTest)
	logging.ApplyEnv(&cfg, os.Getenv)
	return cfg
}

// Writer forwards each written line to t.Log.
func Writer(t testing.TB) io.Writer {
	return tWriter{t: t}
}

type tWriter struct {
	t testing.TB
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
