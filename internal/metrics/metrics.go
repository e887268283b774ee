// Package metrics exports thermal compensation state to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/thermal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "thermloop"
	shutdownTimeout = 5 * time.Second
)

// activeSource is the part of the monitor the exporter samples on scrape.
type activeSource interface {
	IsActive() bool
}

type Exporter struct {
	temperature   prometheus.Gauge
	baseline      prometheus.GaugeFunc
	active        prometheus.GaugeFunc
	notifications *prometheus.CounterVec
}

// NewExporter registers the thermal collectors with reg.
func NewExporter(reg prometheus.Registerer, monitor *thermal.Monitor) (*Exporter, error) {
	return newExporter(reg, monitor, monitor.Baseline)
}

func newExporter(reg prometheus.Registerer, src activeSource, baseline func() float64) (*Exporter, error) {
	e := &Exporter{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last temperature that triggered a thermal calibration adjustment.",
		}),
		baseline: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baseline_celsius",
			Help:      "Temperature new samples are compared against.",
		}, baseline),
		active: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_active",
			Help:      "1 while the thermal monitor is polling.",
		}, func() float64 {
			if src.IsActive() {
				return 1
			}
			return 0
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Thermal notifications delivered to subscribers.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{e.temperature, e.baseline, e.active, e.notifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Observe is a thermal.Callback.
func (e *Exporter) Observe(temperature float64) {
	if thermal.IsCompensationOff(temperature) {
		e.notifications.WithLabelValues("disabled").Inc()
		return
	}
	e.temperature.Set(temperature)
	e.notifications.WithLabelValues("adjustment").Inc()
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down metrics server")
		}
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
