package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, closer, err := New(buf, Config{Level: "warn"})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.EqualValues(t, 1, line["k"])
}

func TestNewText(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _, err := New(buf, Config{Format: "text", Level: "debug"})
	require.NoError(t, err)

	logger.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewErrors(t *testing.T) {
	_, _, err := New(&bytes.Buffer{}, Config{Level: "loud"})
	require.Error(t, err)

	_, _, err = New(&bytes.Buffer{}, Config{Format: "xml"})
	require.Error(t, err)
}

func TestNewDir(t *testing.T) {
	dir := t.TempDir()
	buf := &bytes.Buffer{}
	logger, closer, err := New(buf, Config{Dir: dir})
	require.NoError(t, err)

	logger.Info("to both")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, buf.String(), "to both")
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Same(t, slog.Default(), Get(ctx))

	buf := &bytes.Buffer{}
	logger, _, err := New(buf, Config{})
	require.NoError(t, err)

	ctx = With(Store(ctx, logger), "book", "kjv")
	Get(ctx).Info("scoped")
	assert.Contains(t, buf.String(), `"book":"kjv"`)
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("boom") }

func TestClose(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _, err := New(buf, Config{})
	require.NoError(t, err)
	ctx := Store(context.Background(), logger)

	require.NoError(t, Close(ctx, "nop", nopCloser{}))
	require.Error(t, Close(ctx, "failing", failingCloser{}))
	assert.Contains(t, buf.String(), `"closer":"failing"`)
}
