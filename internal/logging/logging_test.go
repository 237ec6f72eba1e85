package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		enabled zapcore.Level
	}{
		{name: "console info", level: "info", format: "console", enabled: zapcore.InfoLevel},
		{name: "json debug", level: "DEBUG", format: "json", enabled: zapcore.DebugLevel},
		{name: "empty format defaults to console", level: "warn", format: "", enabled: zapcore.WarnLevel},
		{name: "bad level", level: "loud", format: "console", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Desugar().Core().Enabled(tt.enabled))
			assert.False(t, log.Desugar().Core().Enabled(tt.enabled-1))
		})
	}
}
