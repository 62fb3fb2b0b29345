package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{input: "trace", want: TRACE},
		{input: "DEBUG", want: DEBUG},
		{input: "Info", want: INFO},
		{input: "warn", want: WARN},
		{input: "warning", want: WARN},
		{input: "ERROR", want: ERROR},
		{input: "verbose", want: DEBUG},
		{input: "", want: DEBUG},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	previous := GetCurrentLevel()
	defer SetLevel(previous)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	SetLevel(WARN)
	Debugf("hidden %d", 1)
	Infoln("also hidden")
	Warnf("shown %s", "warning")
	Errorln("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warning")
	assert.Contains(t, out, "shown error")
	assert.False(t, IsInfoEnabled())
	assert.True(t, IsWarnEnabled())
}

func TestNamed(t *testing.T) {
	previous := GetCurrentLevel()
	defer SetLevel(previous)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetLevel(INFO)

	Named("dispatch").Info("request received", "operation", "getPet")
	assert.Contains(t, buf.String(), "shim.dispatch")
	assert.Contains(t, buf.String(), "operation=getPet")
}
