package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks mailbox API round trips
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tethbox_api_request_duration_seconds",
			Help:    "Mailbox API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"operation", "status"},
	)

	// ResyncCount counts inbox polls by outcome
	ResyncCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tethbox_resync_total",
			Help: "Total number of inbox resynchronizations",
		},
		[]string{"result"}, // result: applied, stale, expired, failed
	)

	// SessionExpiredCount counts hard session teardowns
	SessionExpiredCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tethbox_session_expired_total",
			Help: "Total number of sessions torn down after a 410",
		},
	)

	// ArchivedMessageCount counts messages saved to the local archive
	ArchivedMessageCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tethbox_archived_messages_total",
			Help: "Total number of messages saved to the local archive",
		},
	)
)

// RecordAPIRequest records one API call. A zero status means a transport failure.
func RecordAPIRequest(operation string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(operation, statusClass(status)).Observe(duration.Seconds())
}

// IncrementResync bumps the resync counter for result
func IncrementResync(result string) {
	ResyncCount.WithLabelValues(result).Inc()
}

// IncrementSessionExpired bumps the expiry counter
func IncrementSessionExpired() {
	SessionExpiredCount.Inc()
}

// IncrementArchived bumps the archive counter
func IncrementArchived() {
	ArchivedMessageCount.Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	switch status {
	case http.StatusGone, http.StatusNotFound, http.StatusForbidden, http.StatusBadRequest:
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
