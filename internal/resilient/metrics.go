package resilient

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
)

var (
	// backendCalls counts backend calls by outcome.
	backendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partdesk_backend_calls_total",
			Help: "Backend calls by operation, backend and result",
		},
		[]string{"operation", "backend", "result"},
	)

	// backendFallbacks counts calls the remote backend could not serve.
	backendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partdesk_backend_fallbacks_total",
			Help: "Calls served by the local backend after the remote backend was unavailable",
		},
		[]string{"operation"},
	)

	// remoteActive is 1 while the probe selected the remote backend.
	remoteActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partdesk_remote_active",
			Help: "1 when the remote backend was selected at startup, 0 otherwise",
		},
	)
)

func observe(op string, backend record.Backend, err error) {
	backendCalls.WithLabelValues(op, string(backend), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
