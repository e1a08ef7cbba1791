package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewZapLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		log := NewZapLogger(level)
		require.NotNil(t, log, level)
		log.Info("level check", map[string]any{"level": level})
	}
}

func TestNoopLoggerSatisfiesInterface(t *testing.T) {
	var log Logger = NoopLogger{}
	log.Debug("quiet", nil)
	log.Error("quiet", map[string]any{"k": "v"})
}
