// Package metrics exports recording session events as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vatplayback/archivist/internal/app"
	"github.com/vatplayback/archivist/internal/domain"
	"github.com/vatplayback/archivist/pkg/log"
)

const namespace = "archivist"

// Observer implements app.Observer by updating Prometheus collectors.
type Observer struct {
	snapshotsStored prometheus.Counter
	snapshotBytes   prometheus.Counter
	lastSnapshotID  prometheus.Gauge
	fetchDuration   prometheus.Histogram
	fetchErrors     *prometheus.CounterVec
	storeErrors     prometheus.Counter
	sessionState    prometheus.Gauge
}

var _ app.Observer = (*Observer)(nil)

// NewObserver registers the session collectors with reg. Collectors already
// registered there by an earlier session are reused, so counters keep
// accumulating across sessions sharing a registry.
func NewObserver(reg prometheus.Registerer) *Observer {
	return &Observer{
		snapshotsStored: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_stored_total",
			Help:      "Total number of snapshots published to the store",
		})),
		snapshotBytes: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes_total",
			Help:      "Total payload bytes of published snapshots",
		})),
		lastSnapshotID: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snapshot_id",
			Help:      "Sequence number of the most recently published snapshot",
		})),
		fetchDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to fetch the upstream resource",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})),
		fetchErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed fetches",
		}, []string{"fatal"})), // true or false
		storeErrors: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed store operations",
		})),
		sessionState: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state: 0 idle, 1 running, 2 stopped",
		})),
	}
}

// register adds c to reg, or returns the collector of the same description
// registered before. Any other registration error panics, as promauto does.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (o *Observer) OnStateChange(previous, current app.State, reason string) {
	o.sessionState.Set(float64(current))
}

func (o *Observer) OnSnapshotStored(id domain.StoredID, bytes int, fetchDuration time.Duration) {
	o.snapshotsStored.Inc()
	o.snapshotBytes.Add(float64(bytes))
	o.lastSnapshotID.Set(float64(id))
	o.fetchDuration.Observe(fetchDuration.Seconds())
}

func (o *Observer) OnFetchError(err error, fatal bool) {
	label := "false"
	if fatal {
		label = "true"
	}
	o.fetchErrors.WithLabelValues(label).Inc()
}

func (o *Observer) OnStoreError(err error) {
	o.storeErrors.Inc()
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", log.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
