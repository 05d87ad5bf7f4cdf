package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	var testCases = []struct {
		description string
		config      Config
		level       zapcore.Level
		expectErr   bool
	}{
		{description: "defaults", config: Config{}, level: zapcore.InfoLevel},
		{description: "debug console", config: Config{Level: "debug", Format: "console"}, level: zapcore.DebugLevel},
		{description: "warn json", config: Config{Level: "warn", Format: "json"}, level: zapcore.WarnLevel},
		{description: "invalid level", config: Config{Level: "loud"}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			logger, err := New(testCase.config)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(testCase.level))
			if testCase.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(testCase.level-1))
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
