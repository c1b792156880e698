package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
	"bookcipher/internal/ctxlog"
	"bookcipher/internal/library"
)

type books struct {
	shelf   *shelf
	maxBody int64
	newRand func() cipher.Rand
}

type bookInfo struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	Length      int       `json:"length"`
	Added       time.Time `json:"added"`
}

func (b *books) list(w http.ResponseWriter, r *http.Request) {
	infos := []bookInfo{}
	for name, record := range library.All() {
		infos = append(infos, bookInfo{
			Name:        name,
			Fingerprint: record.Fingerprint,
			Length:      record.Length,
			Added:       record.Added,
		})
	}

	writeJSON(w, r, http.StatusOK, infos)
}

func (b *books) encipher(w http.ResponseWriter, r *http.Request) {
	bk, ok := b.book(w, r)
	if !ok {
		return
	}

	format, err := artifact.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, ok := b.body(w, r)
	if !ok {
		return
	}
	if !utf8.Valid(msg) {
		writeError(w, r, http.StatusBadRequest, "message is not valid UTF-8")
		return
	}
	text := book.NormalizeNewlines(string(msg))

	positions, err := cipher.EncodeParallel(r.Context(), bk, text, 1, b.newRand)
	if err != nil {
		if errors.Is(err, cipher.ErrCharacterNotInBook) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := artifact.Marshal(format, positions)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	ct := "application/json"
	if format == artifact.MsgPack {
		ct = "application/msgpack"
	}
	write(w, r, http.StatusOK, ct, data)
}

func (b *books) unencipher(w http.ResponseWriter, r *http.Request) {
	bk, ok := b.book(w, r)
	if !ok {
		return
	}

	data, ok := b.body(w, r)
	if !ok {
		return
	}

	positions, err := artifact.Unmarshal("", data)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := cipher.Decode(bk, positions)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	write(w, r, http.StatusOK, "text/plain; charset=utf-8", []byte(msg))
}

func (b *books) book(w http.ResponseWriter, r *http.Request) (*book.Book, bool) {
	name := r.PathValue("name")

	bk, err := b.shelf.get(name)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	ctxlog.Get(r.Context()).Debug("book loaded", "book", name, "length", bk.Len())
	return bk, true
}

func (b *books) body(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	write(w, r, status, "application/json", data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, struct {
		Error string `json:"error"`
	}{msg})
}

func write(w http.ResponseWriter, r *http.Request, status int, ct string, content []byte) {
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(status)
	if _, err := w.Write(content); err != nil {
		log := ctxlog.Get(r.Context())
		log.Error("failed to write response", "error", err)
	}
}
