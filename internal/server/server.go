// Package server exposes a small HTTP status surface next to the loader:
// a liveness document and the live table's row count.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// StatusMessage is returned by GET /.
const StatusMessage = "Dashboard FFMM Chile funcionando"

// RowCounter counts rows of a table. store.Postgres satisfies it.
type RowCounter interface {
	CountRows(ctx context.Context, name string) (int64, error)
}

type route struct {
	path    string
	methods []string
	handler func(w http.ResponseWriter, r *http.Request) error
}

// Server serves the status endpoints for one live table.
type Server struct {
	counter RowCounter
	table   string
	logger  ffmm.Logger
	router  *mux.Router
}

// New panics on nil dependencies.
func New(counter RowCounter, table string, logger ffmm.Logger) *Server {
	if counter == nil {
		panic("counter cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	s := &Server{counter: counter, table: table, logger: logger, router: mux.NewRouter()}

	routes := []route{
		{path: "/", methods: []string{http.MethodGet}, handler: s.status},
		{path: "/fondos/count", methods: []string{http.MethodGet}, handler: s.count},
	}
	for _, rt := range routes {
		s.router.HandleFunc(rt.path, s.withErrorHandle(rt.handler)).Methods(rt.methods...)
	}
	return s
}

// Handler returns the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. onListen, if set, runs once the socket is bound.
func (s *Server) ListenAndServe(ctx context.Context, addr string, onListen func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if onListen != nil {
		onListen(ln.Addr())
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-done; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"mensaje": StatusMessage,
	})
}

func (s *Server) count(w http.ResponseWriter, r *http.Request) error {
	total, err := s.counter.CountRows(r.Context(), s.table)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int64{"total_registros": total})
}

// withErrorHandle logs handler errors and answers 500 unless the handler
// already started its response.
func (s *Server) withErrorHandle(h func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		if err := h(tw, r); err != nil {
			s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
			if tw.started {
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()}) //nolint:errcheck
		}
	}
}

// trackingWriter records whether a status line has gone out.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(status int) {
	t.started = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
