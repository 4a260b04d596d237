// Package metrics exposes Prometheus instrumentation for exchange sessions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exchange outcomes used as the "result" label.
const (
	ResultPass  = "pass"
	ResultFail  = "fail"
	ResultShort = "short"
)

// Collector groups the session metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	exchanges       *prometheus.CounterVec
	rounds          prometheus.Counter
	transportErrors prometheus.Counter
	duration        prometheus.Histogram
	state           prometheus.Gauge
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uartloop_exchanges_total",
				Help: "Exchanges by outcome (pass: both status markers K; fail: any marker not K; short: incomplete frame).",
			},
			[]string{"result"},
		),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uartloop_rounds_total",
			Help: "Rounds started.",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uartloop_transport_errors_total",
			Help: "Transport failures that aborted a session.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uartloop_exchange_duration_seconds",
			Help:    "Time from request write to end of the bounded read.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1},
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uartloop_session_state",
			Help: "Current session state (0 idle, 1 running, 2 stop requested, 3 stopped, 4 errored).",
		}),
	}

	for _, col := range []prometheus.Collector{c.exchanges, c.rounds, c.transportErrors, c.duration, c.state} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveExchange records one exchange outcome and its duration.
func (c *Collector) ObserveExchange(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.exchanges.WithLabelValues(result).Inc()
	c.duration.Observe(d.Seconds())
}

// IncRounds counts a started round.
func (c *Collector) IncRounds() {
	if c == nil {
		return
	}
	c.rounds.Inc()
}

// IncTransportErrors counts a session-aborting failure.
func (c *Collector) IncTransportErrors() {
	if c == nil {
		return
	}
	c.transportErrors.Inc()
}

// SetState publishes the numeric session state.
func (c *Collector) SetState(state int) {
	if c == nil {
		return
	}
	c.state.Set(float64(state))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
