package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WARN, Output: &buf})

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN shown 2")
}

func TestLogger_WithFieldsSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DEBUG, Output: &buf}).
		WithFields(map[string]interface{}{"lead_id": 7, "counselor_id": 3})

	l.Info("assigned")

	assert.Contains(t, buf.String(), "INFO counselor_id=3 lead_id=7 assigned")
}

func TestLogger_FatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: INFO, Output: &buf})
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("boom")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "FATAL boom")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DEBUG,
		"WARNING": WARN,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
