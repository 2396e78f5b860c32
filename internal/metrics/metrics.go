// Package metrics exposes prometheus collectors for command executions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LaravelPlus/commander/internal/event"
)

const namespace = "commander"

// Collector owns a private registry so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	commands   prometheus.Gauge
	cleaned    prometheus.Counter
}

// NewCollector creates and registers the execution metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Command executions by outcome.",
		}, []string{"command", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of command executions.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"command"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_in_flight",
			Help:      "Executions started but not yet finished.",
		}),
		commands: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_commands",
			Help:      "Commands currently registered in the catalog.",
		}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_cleaned_total",
			Help:      "Execution records removed by cleanup.",
		}),
	}

	c.registry.MustRegister(
		c.executions, c.duration, c.inFlight, c.commands, c.cleaned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Attach feeds the collector from bus events and returns a detach function.
func (c *Collector) Attach(bus *event.Bus) func() {
	unsub := bus.SubscribeAll(c.observe)
	return unsub
}

func (c *Collector) observe(e event.Event) {
	switch e.Type {
	case event.ExecutionStarted:
		c.inFlight.Inc()
	case event.ExecutionCompleted, event.ExecutionFailed:
		data, ok := e.Data.(event.ExecutionFinishedData)
		if !ok {
			return
		}
		c.inFlight.Dec()
		status := "success"
		if !data.Success {
			status = "failed"
		}
		c.executions.WithLabelValues(data.Command, status).Inc()
		c.duration.WithLabelValues(data.Command).Observe(data.ExecutionTime)
	case event.CatalogReloaded:
		if data, ok := e.Data.(event.CatalogReloadedData); ok {
			c.commands.Set(float64(data.Commands))
		}
	case event.RecordsCleaned:
		if data, ok := e.Data.(event.RecordsCleanedData); ok {
			c.cleaned.Add(float64(data.Deleted))
		}
	}
}

// SetCommands records the catalog size.
func (c *Collector) SetCommands(n int) {
	c.commands.Set(float64(n))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
