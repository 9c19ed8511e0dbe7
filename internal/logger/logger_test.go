package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{7, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		Setup(&bytes.Buffer{}, tt.verbosity)
		assert.Equal(t, tt.expected, zerolog.GlobalLevel(), "verbosity %d", tt.verbosity)
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, 1)

	l := Get("copy")
	l.Info().Str("file", "index.html").Msg("copied")

	out := buf.String()
	assert.Contains(t, out, "copied")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "copy")
	assert.Contains(t, out, "index.html")
}

func TestQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, 0)

	l := Get("serve")
	l.Info().Msg("hidden")
	l.Warn().Int("attempt", 2).Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "attempt=2")
}

func TestClear(t *testing.T) {
	var buf bytes.Buffer
	Clear(&buf)
	assert.Equal(t, "\033[H\033[2J", buf.String())
}
