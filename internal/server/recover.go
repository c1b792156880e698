package server

import (
	"net/http"

	"bookcipher/internal/ctxlog"
	"bookcipher/internal/rec"
)

type recoverHandler struct {
	next http.Handler
}

func newRecover(next http.Handler) *recoverHandler {
	return &recoverHandler{
		next: next,
	}
}

func (h *recoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var err error
	defer func() {
		if err != nil {
			log := ctxlog.Get(r.Context())
			log.Error("recovered panic", "error", err)

			clear(w.Header())
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
	}()
	defer rec.Error(&err)

	h.next.ServeHTTP(w, r)
}
