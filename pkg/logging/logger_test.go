package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewZapLoggerLevel(t *testing.T) {
	logger, err := NewZapLogger("WARN")
	if err != nil {
		t.Fatalf("NewZapLogger error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) || !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("level not applied")
	}
	if _, err := NewZapLogger("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if logger, err := NewZapLogger(""); err != nil || !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("empty level should default to info: %v", err)
	}
}
