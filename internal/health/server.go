// Package health serves liveness, readiness, budget status and the
// Prometheus metrics endpoint on a small dedicated HTTP listener.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
)

// Pinger checks a dependency, typically the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BudgetReporter exposes the upstream request budget for /status.
type BudgetReporter interface {
	Usage() odds.Usage
}

// Config holds the health server wiring.
type Config struct {
	ServiceName string
	Version     string
	Port        int
	MetricsPath string
	Logger      *logrus.Logger
	DB          Pinger
	Budget      BudgetReporter
}

// Server answers probe traffic. Readiness combines the explicit ready
// flag with a database ping so a lost pool flips the probe without any
// application code noticing first.
type Server struct {
	cfg    Config
	ready  atomic.Bool
	server *http.Server
}

// NewServer creates a health server. It reports not-ready until SetReady
// is called.
func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{cfg: cfg}
}

// SetReady flips the readiness flag.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start begins serving in the background and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", s.handleLive)
	mux.HandleFunc("/health/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle(s.cfg.MetricsPath, metrics.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.cfg.Logger.WithFields(logrus.Fields{
			"port":    s.cfg.Port,
			"service": s.cfg.ServiceName,
		}).Info("Health server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.cfg.Logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return nil
}

// Shutdown stops the listener, draining in-flight probes briefly.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.cfg.ServiceName,
		"version": s.cfg.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"service": "ok"}
	healthy := true

	if !s.ready.Load() {
		checks["service"] = "not_ready"
		healthy = false
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": s.cfg.ServiceName,
		"checks":  checks,
	})
}

// handleStatus reports the upstream request budget. Exhaustion is not a
// readiness failure, the cache keeps serving stale snapshots, but
// operators watch this number.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{
		"service":   s.cfg.ServiceName,
		"version":   s.cfg.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.cfg.Budget != nil {
		body["budget"] = s.cfg.Budget.Usage()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
