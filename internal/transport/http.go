package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/partdesk/internal/domain/record"
)

// Config wires the HTTP surface.
type Config struct {
	// MCP serves the streamable MCP endpoint.
	MCP http.Handler
	// Status reports the active storage backend.
	Status func() record.BackendStatus
	// Token, when set, is required as a bearer token on /mcp and /status.
	Token  string
	Logger *slog.Logger
}

type server struct {
	status func() record.BackendStatus
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestLogger(cfg.Logger))
	r.Use(MetricsMiddleware())

	srv := &server{status: cfg.Status}

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Token != "" {
			r.Use(BearerAuth(cfg.Token))
		}
		if cfg.MCP != nil {
			r.Handle("/mcp", cfg.MCP)
		}
		r.Get("/status", srv.handleStatus)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.status())
}
