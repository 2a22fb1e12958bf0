package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "registry"})

	log.Info("participant signed up", map[string]interface{}{
		"activity": "Chess Club",
		"email":    "test.user@example.com",
	})
	log.WithError(errors.New("boom")).Error("notifier failed", map[string]interface{}{
		"cause": errors.New("timeout"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		first := entries[0].ContextMap()
		assert.Equal(t, "participant signed up", entries[0].Message)
		assert.Equal(t, "registry", first["component"])
		assert.Equal(t, "Chess Club", first["activity"])

		second := entries[1].ContextMap()
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "boom", second["error"])
		assert.Equal(t, "timeout", second["cause"])
	}
}

func TestNew_FallsBackOnBadOutput(t *testing.T) {
	l := New("info", "console", "/nonexistent-dir/for/sure/out.log")
	assert.NotNil(t, l)
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"k": "v"}).Debug("ignored", nil)
	})
}
