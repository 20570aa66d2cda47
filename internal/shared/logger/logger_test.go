package logger

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"go.uber.org/zap/zapcore"
)

func TestBuildLevels(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		debug bool
	}{
		{name: "development default", env: "development", debug: true},
		{name: "production default", env: "production", debug: false},
		{name: "production override", env: "production", level: "debug", debug: true},
		{name: "development override", env: "development", level: "warn", debug: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := build(tt.env, tt.level)
			check.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestGetLoggerIsShared(t *testing.T) {
	check.True(t, GetLogger() == GetLogger())
}
