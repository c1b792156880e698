package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) {
	t.Helper()
	Open(Config{File: filepath.Join(t.TempDir(), "nested", "library.db")})
	t.Cleanup(func() {
		require.NoError(t, Close())
	})
}

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestAddGet(t *testing.T) {
	open(t)

	rec, err := Add("kjv", "In the beginning", false, now)
	require.NoError(t, err)
	assert.Equal(t, 16, rec.Length)
	assert.Len(t, rec.Fingerprint, 64)

	b, got, err := Get("kjv")
	require.NoError(t, err)
	assert.Equal(t, "In the beginning", b.String())
	assert.Equal(t, rec, got)
	assert.Equal(t, b.Fingerprint(), got.Fingerprint)
}

func TestAddExisting(t *testing.T) {
	open(t)

	_, err := Add("kjv", "first", false, now)
	require.NoError(t, err)

	_, err = Add("kjv", "second", false, now)
	require.ErrorIs(t, err, ErrExists)

	b, _, err := Get("kjv")
	require.NoError(t, err)
	assert.Equal(t, "first", b.String())

	_, err = Add("kjv", "second", true, now)
	require.NoError(t, err)

	b, _, err = Get("kjv")
	require.NoError(t, err)
	assert.Equal(t, "second", b.String())
}

func TestAddInvalid(t *testing.T) {
	open(t)

	_, err := Add("", "text", false, now)
	require.Error(t, err)

	_, err = Add("empty", "", false, now)
	require.Error(t, err)

	_, _, err = Get("empty")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	open(t)

	_, err := Add("kjv", "text", false, now)
	require.NoError(t, err)

	require.NoError(t, Remove("kjv"))
	require.ErrorIs(t, Remove("kjv"), ErrNotFound)

	_, _, err = Get("kjv")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAll(t *testing.T) {
	open(t)

	for _, name := range []string{"c", "a", "b"} {
		_, err := Add(name, "book "+name, false, now)
		require.NoError(t, err)
	}

	var names []string
	for name, rec := range All() {
		names = append(names, name)
		assert.Equal(t, "book "+name, rec.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	count := 0
	for range All() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestOpenTwicePanics(t *testing.T) {
	open(t)
	assert.Panics(t, func() { Open(Config{File: filepath.Join(t.TempDir(), "other.db")}) })
}
