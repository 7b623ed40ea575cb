package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StatusFunc returns a JSON-encodable snapshot of the manager.
type StatusFunc func() any

// LookupFunc returns the state of one test.
type LookupFunc func(id string) (any, bool)

// Server serves /metrics, /healthz and a read-only status API.
type Server struct {
	metrics *Metrics
	status  StatusFunc
	lookup  LookupFunc
	log     logrus.FieldLogger
	srv     *http.Server
}

// NewServer creates a new Server
func NewServer(m *Metrics, status StatusFunc, lookup LookupFunc, log logrus.FieldLogger) *Server {
	return &Server{metrics: m, status: status, lookup: lookup, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/tests/{id}", s.handleTest).Methods(http.MethodGet)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no status available"})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.lookup == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown test " + id})
		return
	}
	state, ok := s.lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown test " + id})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Start listens on addr and serves in the background. It returns the bound address.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("metrics server stopped")
		}
	}()
	s.log.Infof("serving metrics on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
