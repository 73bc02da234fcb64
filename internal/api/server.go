// Package api serves the circuit editor backend over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/san-kum/convsim/internal/engine"
	"github.com/san-kum/convsim/internal/logging"
	"github.com/san-kum/convsim/internal/publish"
)

type Options struct {
	Engine *engine.Engine
	// Defaults fill end_time and step_size missing from a request.
	Defaults     engine.Params
	MaxEndTime   float64
	MaxBodyBytes int64
	// DataDir receives circuits saved through /circuits/{name}.
	DataDir string
	Sink    publish.Sink
	Metrics *Metrics
	Logger  *slog.Logger
	// AccessLog receives one line per request in Apache combined format.
	AccessLog io.Writer
}

type Server struct {
	opts     Options
	sessions *sessions
	log      *slog.Logger
}

func New(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = engine.New()
	}
	if opts.Sink == nil {
		opts.Sink = publish.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &Server{
		opts:     opts,
		sessions: newSessions(),
		log:      opts.Logger.With(slog.String("component", "api")),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	m := s.opts.Metrics

	route := func(path, name string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, m.WrapHandler(name, h)).Methods(methods...)
	}

	route("/health", "health", s.health, http.MethodGet)
	route("/components", "components", s.components, http.MethodGet)
	route("/presets", "presets", s.presets, http.MethodGet)
	route("/circuit", "circuit", s.listSessions, http.MethodGet)
	route("/circuit/{id}", "circuit", s.putCircuit, http.MethodPut)
	route("/circuit/{id}", "circuit", s.getCircuit, http.MethodGet)
	route("/circuit/{id}", "circuit", s.deleteCircuit, http.MethodDelete)
	route("/simulate", "simulate", s.simulate, http.MethodPost)
	route("/circuits", "circuits", s.listFiles, http.MethodGet)
	route("/circuits/{name}", "circuits", s.saveFile, http.MethodPost)
	route("/circuits/{name}", "circuits", s.loadFile, http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with panic recovery, CORS for the browser
// editor and, when configured, access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	if s.opts.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.opts.AccessLog, h)
	}
	return h
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.opts.DataDir != "" {
		if err := os.MkdirAll(s.opts.DataDir, 0755); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("stopped")
	return nil
}
