// Package server exposes the books stored in the library over HTTP, so messages can be
// enciphered and unenciphered by book name.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"bookcipher/internal/cipher"
	"bookcipher/internal/ctxlog"
)

const defaultMaxBodyBytes = 1 << 20

type Server struct {
	addr            string
	handler         http.Handler
	anti            *antidos
	shutdownTimeout time.Duration
}

// New validates config and assembles the handler chain. newRand supplies the
// search start positions for every encipher request.
func New(config Config, newRand func() cipher.Rand) *Server {
	if config.Port == 0 {
		panic("server: port is required")
	}
	if config.AntidosBuckets == 0 {
		panic("server: antidosBuckets is required")
	}
	if config.AntidosPeriod == 0 {
		panic("server: antidosPeriod is required")
	}
	if config.ShutdownTimeout == 0 {
		panic("server: shutdownTimeout is required")
	}
	if newRand == nil {
		panic("server: newRand is required")
	}

	anti := newAntidos(config.AntidosBuckets, config.AntidosPeriod)

	return &Server{
		addr:            fmt.Sprintf("0.0.0.0:%d", config.Port),
		handler:         newHandler(anti, config.MaxBodyBytes, newRand),
		anti:            anti,
		shutdownTimeout: config.ShutdownTimeout,
	}
}

func newHandler(anti *antidos, maxBody int64, newRand func() cipher.Rand) http.Handler {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	b := &books{
		shelf:   newShelf(),
		maxBody: maxBody,
		newRand: newRand,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /books", anti.middleware(http.HandlerFunc(b.list)))
	mux.Handle("POST /books/{name}/encipher", anti.middleware(http.HandlerFunc(b.encipher)))
	mux.Handle("POST /books/{name}/unencipher", anti.middleware(http.HandlerFunc(b.unencipher)))

	handler := http.Handler(mux)
	handler = newRecover(handler)
	handler = logMiddleware(handler)
	return handler
}

func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.Get(ctx)
	defer s.anti.stop()

	srv := &http.Server{
		Addr:        s.addr,
		Handler:     s.handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErrCh := make(chan error, 1)
	go func() {
		defer cancel()
		logger.Info("server is running", "addr", s.addr)
		serveErrCh <- srv.ListenAndServe()
	}()

	<-ctx.Done()

	logger.Info("server is shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer stopCancel()
	shutdownErr := srv.Shutdown(stopCtx)

	if errors.Is(shutdownErr, context.DeadlineExceeded) {
		logger.Error("server shutdown timeout exceeded")
	} else if shutdownErr == nil {
		logger.Info("all clients closed successfully")
	}

	serveErr := <-serveErrCh
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	return errors.Join(serveErr, shutdownErr)
}
