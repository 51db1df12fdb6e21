package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, levelFromEnv(""))
	assert.Equal(t, zapcore.DebugLevel, levelFromEnv("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, levelFromEnv(" warn "))
	assert.Equal(t, zapcore.InfoLevel, levelFromEnv("loud"))
}

func TestNew(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	log := New()
	assert.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
