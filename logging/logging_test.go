package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFormatsSortedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, DebugLevel)

	logger.WithFields(Fields{"component": "tracker"}).Info("Partial born", Fields{"slot": 2, "frame": 7})

	assert.Equal(t, "[INFO] Partial born component=tracker frame=7 slot=2\n", buf.String())
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error(errors.New("boom"), "failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[WARN] shown", lines[0])
	assert.Equal(t, "[ERROR] failed: boom", lines[1])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger(&buf, DebugLevel)
	_ = parent.WithFields(Fields{"component": "child"})

	parent.Info("plain")
	assert.Equal(t, "[INFO] plain\n", buf.String())
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, DebugLevel)

	ctx := ContextWithFields(context.Background(), Fields{"run": "a"})
	logger.WithContext(ctx).Info("started")
	logger.WithContext(context.Background()).Info("bare")

	assert.Equal(t, "[INFO] started run=a\n[INFO] bare\n", buf.String())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Component(NewWriterLogger(&buf, DebugLevel), "synthesizer").Debug("rendered")
	assert.Equal(t, "[DEBUG] rendered component=synthesizer\n", buf.String())

	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	buf.Reset()
	SetGlobalLogger(NewWriterLogger(&buf, DebugLevel))
	Component(nil, "detector").Info("from global")
	assert.Equal(t, "[INFO] from global component=detector\n", buf.String())
}

func TestSetGlobalLoggerNil(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
