package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localforge",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"service"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localforge",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of service stops (graceful or kill).",
		}, []string{"service"},
	)
	serviceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localforge",
			Subsystem: "service",
			Name:      "failures_total",
			Help:      "Number of services that exited with an error while not being stopped.",
		}, []string{"service"},
	)
	runningServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "localforge",
			Subsystem: "service",
			Name:      "running",
			Help:      "Current number of running services.",
		},
	)
	versionFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localforge",
			Subsystem: "versions",
			Name:      "fetch_total",
			Help:      "Version fetch attempts by service and outcome.",
		}, []string{"service", "outcome"},
	)
	versionFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "localforge",
			Subsystem: "versions",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of live version fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"},
	)
	tunnelProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localforge",
			Subsystem: "tunnel",
			Name:      "probe_total",
			Help:      "Tunnel public-URL probe attempts by outcome.",
		}, []string{"outcome"},
	)
)

// Register registers all collectors on the given registerer.
// Passing nil uses prometheus.DefaultRegisterer.
func Register(r prometheus.Registerer) error {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		serviceStarts, serviceStops, serviceFailures, runningServices,
		versionFetches, versionFetchDuration, tunnelProbes,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(service string) {
	if !regOK.Load() {
		return
	}
	serviceStarts.WithLabelValues(service).Inc()
}

func IncStop(service string) {
	if !regOK.Load() {
		return
	}
	serviceStops.WithLabelValues(service).Inc()
}

func IncFailure(service string) {
	if !regOK.Load() {
		return
	}
	serviceFailures.WithLabelValues(service).Inc()
}

func SetRunning(n int) {
	if !regOK.Load() {
		return
	}
	runningServices.Set(float64(n))
}

func IncVersionFetch(service string, ok bool) {
	if !regOK.Load() {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	versionFetches.WithLabelValues(service, outcome).Inc()
}

func ObserveVersionFetchDuration(service string, seconds float64) {
	if !regOK.Load() {
		return
	}
	versionFetchDuration.WithLabelValues(service).Observe(seconds)
}

func IncTunnelProbe(ok bool) {
	if !regOK.Load() {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	tunnelProbes.WithLabelValues(outcome).Inc()
}
