package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNamedTagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := &Logger{zap.New(core).Sugar()}

	root.Named("storage").Infow("connected")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "storage" {
		t.Fatalf("expected logger name %q, got %q", "storage", entries[0].LoggerName)
	}
}
