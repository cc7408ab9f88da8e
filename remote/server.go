// FILE: lixenwraith/propcfg/remote/server.go
package remote

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/propcfg"
)

const redacted = "<redacted>"

// Server exposes an engine's remote properties over HTTP
type Server struct {
	engine   *propcfg.Engine
	cfg      Config
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	router   *mux.Router

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// Option customizes a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves g on GET /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer creates a server for engine
func NewServer(engine *propcfg.Engine, cfg Config, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.authenticate)

	r.HandleFunc("/config", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/config", s.handlePatchBatch).Methods(http.MethodPatch)
	r.HandleFunc("/config/{key}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/config/{key}", s.handlePatchOne).Methods(http.MethodPatch)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// ErrNoToken is returned by Start when no access token is configured
var ErrNoToken = errors.New("refusing to start remote server without a token")

// Start binds the listen address and serves in the background.
// It fails with ErrNoToken when the token is empty.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Token == "" {
		return ErrNoToken
	}
	if s.srv != nil {
		return errors.New("remote server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: propcfg.RemoteReadHeaderTimeout,
		ReadTimeout:       propcfg.RemoteReadTimeout,
		WriteTimeout:      propcfg.RemoteWriteTimeout,
		IdleTimeout:       propcfg.RemoteIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.done = make(chan error, 1)

	srv := s.srv
	done := s.done
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	s.logger.Info("remote server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting requests and waits for the serve loop to exit
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if serveErr := <-done; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	s.logger.Info("remote server stopped")
	return err
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), propcfg.RemoteShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// --- Middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("remote request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// authenticate requires the Authorization header to equal the configured token
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if s.cfg.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

type valueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type valuesResponse struct {
	Values map[string]any `json:"values"`
}

type patchOneRequest struct {
	Value json.RawMessage `json:"value"`
}

type patchBatchRequest struct {
	Values map[string]json.RawMessage `json:"values"`
}

type patchResponse struct {
	Applied []string `json:"applied"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, valuesResponse{Values: s.engine.Snapshot()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if s.engine.RemoteBlocked(key) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("key %q is blocked", key))
		return
	}
	p, ok := s.engine.ResolveRemote(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("key %q does not exist", key))
		return
	}
	if p.Descriptor().Redact {
		writeJSON(w, http.StatusOK, valueResponse{Key: key, Value: redacted})
		return
	}
	value, err := s.engine.RemoteValue(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Key: key, Value: value})
}

func (s *Server) handlePatchOne(w http.ResponseWriter, r *http.Request) {
	var req patchOneRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := mux.Vars(r)["key"]
	s.apply(w, map[string]json.RawMessage{key: req.Value})
}

func (s *Server) handlePatchBatch(w http.ResponseWriter, r *http.Request) {
	var req patchBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "no values")
		return
	}
	s.apply(w, req.Values)
}

type pendingWrite struct {
	key   string
	prop  *propcfg.Property
	value any
}

// apply validates and coerces the whole batch before writing anything
func (s *Server) apply(w http.ResponseWriter, values map[string]json.RawMessage) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pending := make([]pendingWrite, 0, len(keys))
	for _, key := range keys {
		if s.engine.RemoteBlocked(key) {
			writeError(w, http.StatusForbidden, fmt.Sprintf("key %q is blocked", key))
			return
		}
		p, ok := s.engine.ResolveRemote(key)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("key %q does not exist", key))
			return
		}
		raw, err := decodeValue(values[key])
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("key %q: %v", key, err))
			return
		}
		value, err := propcfg.Coerce(raw, p.Type())
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("key %q: %v", key, err))
			return
		}
		pending = append(pending, pendingWrite{key: key, prop: p, value: value})
	}

	applied := make([]string, 0, len(pending))
	for _, pw := range pending {
		if err := s.engine.ApplyRemote(pw.prop, pw.value); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("key %q: %v", pw.key, err))
			return
		}
		applied = append(applied, pw.key)
		s.logger.Info("remote write", zap.String("key", pw.key))
	}
	writeJSON(w, http.StatusOK, patchResponse{Applied: applied})
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, propcfg.MaxRemoteBodySize))
	if err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// decodeValue keeps numbers as json.Number so integers survive intact
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
