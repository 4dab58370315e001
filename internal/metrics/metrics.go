// Package metrics exports scheduler counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daylog/daylog/internal/scheduler"
)

// Namespace prefixes every exported metric.
const Namespace = "daylog"

var _ scheduler.Recorder = (*Prometheus)(nil)

// Prometheus implements scheduler.Recorder.
type Prometheus struct {
	registry     prometheus.Gatherer
	ticks        prometheus.Counter
	cohortSize   prometheus.Histogram
	dispatched   *prometheus.CounterVec
	reloads      prometheus.Counter
	configErrors prometheus.Counter
	referenceLag prometheus.Gauge
}

// New registers the daylog metrics with reg. A nil reg gets a fresh
// registry, which is what Handler then serves.
func New(namespace string, reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Prometheus{
		registry: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Number of wake targets reached",
		}),
		cohortSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_cohort_size",
			Help:      "Users dispatched per wake target",
			Buckets:   []float64{1, 2, 5, 10, 50, 100, 500},
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_dispatched_total",
			Help:      "Digest dispatch attempts",
		}, []string{"status"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_reloads_total",
			Help:      "Reload requests handled",
		}),
		configErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_config_errors_total",
			Help:      "User loads that failed",
		}),
		referenceLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_reference_lag_seconds",
			Help:      "How far the wall clock was past the reference at the last wake",
		}),
	}
	reg.MustRegister(
		m.ticks,
		m.cohortSize,
		m.dispatched,
		m.reloads,
		m.configErrors,
		m.referenceLag,
	)
	return m
}

func (m *Prometheus) Tick(cohort int) {
	m.ticks.Inc()
	m.cohortSize.Observe(float64(cohort))
}

func (m *Prometheus) Dispatched(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.dispatched.WithLabelValues(status).Inc()
}

func (m *Prometheus) Reloaded()    { m.reloads.Inc() }
func (m *Prometheus) ConfigError() { m.configErrors.Inc() }

func (m *Prometheus) ReferenceLag(d time.Duration) {
	m.referenceLag.Set(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr; Serve must be called to accept requests.
func Listen(addr string, m *Prometheus) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
