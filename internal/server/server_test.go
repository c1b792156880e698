package server

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
	"bookcipher/internal/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() cipher.Rand {
	return rand.New(rand.NewPCG(1, 1))
}

func setup(t *testing.T) http.Handler {
	t.Helper()

	library.Open(library.Config{File: filepath.Join(t.TempDir(), "library.db")})
	t.Cleanup(func() {
		require.NoError(t, library.Close())
	})

	_, err := library.Add("abc", "abcabc", false, time.Now())
	require.NoError(t, err)
	_, err = library.Add("genesis", "In the beginning God created the heaven and the earth.", false, time.Now())
	require.NoError(t, err)
	_, err = library.Add("replacement", "a\uFFFD", false, time.Now())
	require.NoError(t, err)

	anti := newAntidos(4, time.Millisecond)
	t.Cleanup(anti.stop)
	return newHandler(anti, 64, newRand)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestList(t *testing.T) {
	h := setup(t)

	rr := do(t, h, http.MethodGet, "/books", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	var infos []bookInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, "abc", infos[0].Name)
	assert.Equal(t, 6, infos[0].Length)
	assert.Equal(t, "genesis", infos[1].Name)
	assert.Equal(t, "replacement", infos[2].Name)
}

func TestEncipherUnencipher(t *testing.T) {
	h := setup(t)

	rr := do(t, h, http.MethodPost, "/books/genesis/encipher", "God created")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	positions, err := artifact.Unmarshal(artifact.JSON, rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, positions, len("God created"))

	rr = do(t, h, http.MethodPost, "/books/genesis/unencipher", rr.Body.String())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "God created", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestEncipherMsgPack(t *testing.T) {
	h := setup(t)

	rr := do(t, h, http.MethodPost, "/books/abc/encipher?format=msgpack", "cab")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/msgpack", rr.Header().Get("Content-Type"))
	assert.Equal(t, artifact.MsgPack, artifact.Detect(rr.Body.Bytes()))

	rr = do(t, h, http.MethodPost, "/books/abc/unencipher", rr.Body.String())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "cab", rr.Body.String())
}

func TestUnencipherKnownPositions(t *testing.T) {
	h := setup(t)

	rr := do(t, h, http.MethodPost, "/books/abc/unencipher", "[4, 0]")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ba", rr.Body.String())
}

func TestErrors(t *testing.T) {
	h := setup(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown book", "/books/nope/encipher", "a", http.StatusNotFound},
		{"character not in book", "/books/abc/encipher", "abd", http.StatusUnprocessableEntity},
		{"bad format", "/books/abc/encipher?format=xml", "a", http.StatusBadRequest},
		{"invalid utf-8", "/books/replacement/encipher", "\xff", http.StatusBadRequest},
		{"out of range", "/books/abc/unencipher", "[4, 6]", http.StatusUnprocessableEntity},
		{"not an artifact", "/books/abc/unencipher", `["a"]`, http.StatusBadRequest},
		{"too large", "/books/abc/encipher", strings.Repeat("a", 65), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.target, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())

			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}

	rr := do(t, h, http.MethodGet, "/books/abc/encipher", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestReplacementCharacterRoundTrip(t *testing.T) {
	h := setup(t)

	rr := do(t, h, http.MethodPost, "/books/replacement/encipher", "\uFFFDa")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "[1, 0]", rr.Body.String())

	rr = do(t, h, http.MethodPost, "/books/replacement/unencipher", rr.Body.String())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "\uFFFDa", rr.Body.String())
}

func TestShelfLoadsOnce(t *testing.T) {
	setup(t)

	s := newShelf()
	load := s.load
	loads := 0
	s.load = func(name string) (*book.Book, error) {
		loads++
		return load(name)
	}

	for range 3 {
		b, err := s.get("abc")
		require.NoError(t, err)
		assert.Equal(t, "abcabc", b.String())
	}
	assert.Equal(t, 1, loads)

	for range 2 {
		_, err := s.get("nope")
		require.ErrorIs(t, err, library.ErrNotFound)
	}
	assert.Equal(t, 3, loads, "missing books are not cached")
}

func TestRecover(t *testing.T) {
	h := newRecover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Partial", "1")
		panic("boom")
	}))

	rr := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get("X-Partial"))
	assert.Contains(t, rr.Body.String(), "internal server error")
}

func TestNewPanicsOnMissingConfig(t *testing.T) {
	assert.Panics(t, func() { New(Config{}, newRand) })
	assert.Panics(t, func() {
		New(Config{Port: 1, AntidosBuckets: 1, AntidosPeriod: time.Second, ShutdownTimeout: time.Second}, nil)
	})
}

func TestRunShutsDown(t *testing.T) {
	anti := newAntidos(1, time.Millisecond)
	s := &Server{
		addr:            "127.0.0.1:0",
		handler:         http.NotFoundHandler(),
		anti:            anti,
		shutdownTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, s.Run(ctx))
	assert.Less(t, time.Since(start), time.Second)
}
