package testsupport

import (
	"io"
	"log/slog"
	"testing"

	"vidaudit/internal/logging"
)

// Logger returns a discard-output logger for tests.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	logger, err := logging.New(logging.Options{Level: "error", Output: io.Discard})
	if err != nil {
		t.Fatalf("build test logger: %v", err)
	}
	return logger
}
