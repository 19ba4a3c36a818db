// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metric exposes the validator's runtime instruments: request
// latency, scheduler backlog, and executor fault counts. It wraps
// github.com/luxfi/metrics the same way the teacher's utils/metric package
// does, under a namespace of its own so a long-running validator can serve
// them next to consensus's metrics without name collisions.
package metric

import (
	"sync"

	"github.com/luxfi/metrics"
)

// Averager tracks a running average, used here for per-request latency.
type Averager interface {
	Observe(value float64)
	Read() float64
}

type averager struct {
	mu    sync.RWMutex
	sum   float64
	count int64
}

func newAverager() Averager { return &averager{} }

func (a *averager) Observe(value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += value
	a.count++
}

func (a *averager) Read() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Counter tracks a monotonically increasing count.
type Counter interface {
	Inc()
	Add(delta int64)
	Read() int64
}

type counter struct {
	ctr metrics.Counter
}

func (c *counter) Inc()             { c.ctr.Inc() }
func (c *counter) Add(delta int64)  { c.ctr.Add(float64(delta)) }
func (c *counter) Read() int64      { return int64(c.ctr.Get()) }

// Gauge tracks a value that can go up or down.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
	Read() float64
}

type gauge struct {
	g metrics.Gauge
}

func (g *gauge) Set(value float64) { g.g.Set(value) }
func (g *gauge) Add(delta float64) { g.g.Add(delta) }
func (g *gauge) Read() float64     { return g.g.Get() }

// Registry is the fixed set of instruments a Validator publishes. Unlike
// the teacher's generic utils/metric.Registry, names and shapes are pinned
// up front since every block validator exposes exactly these, never an
// ad-hoc set registered at runtime.
type Registry struct {
	m metrics.Metrics

	RequestLatency    Averager // wall-clock nanoseconds per completed request
	ReadyQueueDepth   Gauge    // scheduler nodes currently runnable
	GasConsumed       Counter // cumulative gas spent across all requests
	ExecutionTimeouts Counter // invocations killed by their CPU-time budget
	Reverts           Counter // invocations ending in an ApplicationError
	ReentrancyDenials Counter // EnterArea calls rejected as reentrant
}

// NewRegistry returns a Registry backed by a fresh luxfi/metrics namespace.
func NewRegistry() *Registry {
	m := metrics.New("execore")
	return &Registry{
		m:                 m,
		RequestLatency:    newAverager(),
		ReadyQueueDepth:   &gauge{g: m.NewGauge("ready_queue_depth", "requests runnable in the scheduler's ready queue")},
		GasConsumed:       &counter{ctr: m.NewCounter("gas_consumed_total", "gas spent across all executed requests")},
		ExecutionTimeouts: &counter{ctr: m.NewCounter("execution_timeouts_total", "invocations aborted by their CPU-time budget")},
		Reverts:           &counter{ctr: m.NewCounter("reverts_total", "invocations that ended in an application error")},
		ReentrancyDenials: &counter{ctr: m.NewCounter("reentrancy_denials_total", "EnterArea calls rejected as reentrant")},
	}
}

// NoOp returns a Registry whose counters and gauges discard every
// observation, for use in tests that don't want a live metrics.Metrics
// instance. Its RequestLatency is a plain in-memory averager that still
// records observations and reads back their mean.
func NoOp() *Registry {
	return &Registry{
		RequestLatency:    newAverager(),
		ReadyQueueDepth:   &noopGauge{},
		GasConsumed:       &noopCounter{},
		ExecutionTimeouts: &noopCounter{},
		Reverts:           &noopCounter{},
		ReentrancyDenials: &noopCounter{},
	}
}

type noopCounter struct{}

func (noopCounter) Inc()            {}
func (noopCounter) Add(int64)       {}
func (noopCounter) Read() int64     { return 0 }

type noopGauge struct{}

func (noopGauge) Set(float64)  {}
func (noopGauge) Add(float64)  {}
func (noopGauge) Read() float64 { return 0 }
