// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// PromRegistry is the Registerer+Gatherer pair a long-running validator
// process registers instruments into and exposes over HTTP, the same
// combination the teacher's api/metrics.Registry interface names.
type PromRegistry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// NewPromRegistry returns a fresh prometheus registry for one validator
// process.
func NewPromRegistry() PromRegistry {
	return prometheus.NewRegistry()
}

// Handler returns the HTTP handler a validator process mounts at /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type promCounter struct{ c prometheus.Counter }

func (p *promCounter) Inc()            { p.c.Inc() }
func (p *promCounter) Add(delta int64) { p.c.Add(float64(delta)) }
func (p *promCounter) Read() int64     { return int64(readGaugeValue(p.c)) }

type promGauge struct{ g prometheus.Gauge }

func (p *promGauge) Set(value float64) { p.g.Set(value) }
func (p *promGauge) Add(delta float64) { p.g.Add(delta) }
func (p *promGauge) Read() float64     { return readGaugeValue(p.g) }

type promAverager struct{ h prometheus.Histogram }

func (p *promAverager) Observe(value float64) { p.h.Observe(value) }

// Read is unsupported for a prometheus histogram-backed Averager: the
// running mean is only meaningful through the exposed /metrics collector,
// not as a readback inside the process.
func (p *promAverager) Read() float64 { return 0 }

func readGaugeValue(c prometheus.Metric) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		return 0
	}
}

// NewPrometheusRegistry returns a Registry whose instruments are backed
// directly by prometheus.Collector types registered into reg, instead of
// the github.com/luxfi/metrics wrapper NewRegistry uses -- for a process
// that exposes Handler(reg) at /metrics rather than reading the
// instruments back in-process.
func NewPrometheusRegistry(reg PromRegistry) (*Registry, error) {
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "execore", Name: "request_latency_seconds",
		Help: "Wall-clock time spent executing one request.",
	})
	readyQueueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "execore", Name: "ready_queue_depth",
		Help: "Requests currently runnable in the scheduler's ready queue.",
	})
	gasConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "execore", Name: "gas_consumed_total",
		Help: "Gas spent across all executed requests.",
	})
	executionTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "execore", Name: "execution_timeouts_total",
		Help: "Invocations aborted by their CPU-time budget.",
	})
	reverts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "execore", Name: "reverts_total",
		Help: "Invocations that ended in an application error.",
	})
	reentrancyDenials := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "execore", Name: "reentrancy_denials_total",
		Help: "EnterArea calls rejected as reentrant.",
	})

	for _, c := range []prometheus.Collector{
		latency, readyQueueDepth, gasConsumed, executionTimeouts, reverts, reentrancyDenials,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &Registry{
		RequestLatency:    &promAverager{h: latency},
		ReadyQueueDepth:   &promGauge{g: readyQueueDepth},
		GasConsumed:       &promCounter{c: gasConsumed},
		ExecutionTimeouts: &promCounter{c: executionTimeouts},
		Reverts:           &promCounter{c: reverts},
		ReentrancyDenials: &promCounter{c: reentrancyDenials},
	}, nil
}
